package cli

import (
	"strings"

	"medical-assessment/internal/app"
	"medical-assessment/internal/assessment"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "detect <complaint...>",
		Short: "Show which symptom a chief complaint maps to",
		Args:  cobra.MinimumNArgs(1),
		Run:   runDetect,
	})
}

func runDetect(cmd *cobra.Command, args []string) {
	cat, err := app.LoadCatalog(getCatalogDir())
	if err != nil {
		exitErr("catalog", err)
	}
	m := assessment.NewDetector(cat).Detect(strings.Join(args, " "))
	if m == nil {
		printJSON(map[string]any{"detected": false, "message": "No specific symptom detected"})
		return
	}
	printJSON(assessment.DetectResponse{Detected: true, SymptomMatch: m})
}
