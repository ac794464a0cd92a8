package cli

import (
	"os"

	"medical-assessment/internal/app"
	"medical-assessment/internal/config"
	"medical-assessment/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Take an assessment in the terminal",
		Args:  cobra.NoArgs,
		Run:   runAssess,
	}
	cmd.Flags().StringP("owner", "o", "", "Owner id for the session (default: $USER)")
	cmd.Flags().Bool("memory", false, "Keep the session in memory only")
	RootCmd.AddCommand(cmd)
}

func runAssess(cmd *cobra.Command, args []string) {
	owner, _ := cmd.Flags().GetString("owner")
	if owner == "" {
		owner = os.Getenv("USER")
	}
	if owner == "" {
		owner = "local"
	}
	memory, _ := cmd.Flags().GetBool("memory")

	cfg, err := config.Load()
	if err != nil {
		exitErr("config", err)
	}
	cfg.Catalog.Dir = getCatalogDir()
	cfg.Storage.Backend = config.BackendSQLite
	if dbPath != "" {
		cfg.Storage.SQLitePath = dbPath
	}
	if memory {
		cfg.Storage.Backend = config.BackendMemory
	}

	// Logging would draw over the terminal UI.
	a, err := app.New(cmd.Context(), cfg, zap.NewNop())
	if err != nil {
		exitErr("startup", err)
	}
	defer a.Close()

	p := tea.NewProgram(tui.New(a.Assessments, a.Reports, owner), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		exitErr("assess", err)
	}
}
