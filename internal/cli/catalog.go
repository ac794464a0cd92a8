package cli

import (
	"fmt"

	"medical-assessment/internal/app"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the question catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the catalog",
		Args:  cobra.NoArgs,
		Run:   runCatalogValidate,
	})
	RootCmd.AddCommand(cmd)
}

func runCatalogValidate(cmd *cobra.Command, args []string) {
	cat, err := app.LoadCatalog(getCatalogDir())
	if err != nil {
		exitErr("catalog", err)
	}
	fmt.Printf("ok: %s\n", cat)
	for _, s := range cat.Symptoms() {
		fmt.Printf("  %-16s %-20s %d follow-ups\n", s.ID, s.DefaultUrgency, len(s.Followups))
	}
}
