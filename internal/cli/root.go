// Package cli implements the assessctl commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	catalogDir string
	dbPath     string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "assessctl",
	Short: "Medical self-assessment tooling",
	Long:  "Run assessments in the terminal, check catalogs, try symptom detection and manage the database schema.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&catalogDir, "catalog", "c", "", "Catalog directory (default: $CATALOG_DIR or the built-in catalog)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite path (default: $SQLITE_PATH or ~/.medical-assessment/assessment.db)")
}

func getCatalogDir() string {
	if catalogDir != "" {
		return catalogDir
	}
	return os.Getenv("CATALOG_DIR")
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
