package cli

import (
	"fmt"
	"os"

	"medical-assessment/internal/platform/database"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the PostgreSQL schema",
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL DSN (default: $DATABASE_URL)")
	cmd.PersistentFlags().String("dir", "migrations", "Migrations directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		Run:   runMigrateUp,
	})
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		Run:   runMigrateDown,
	}
	down.Flags().IntP("steps", "n", 1, "Number of migrations to roll back (0 = all)")
	cmd.AddCommand(down)

	RootCmd.AddCommand(cmd)
}

func migrateArgs(cmd *cobra.Command) (dir, dsn string) {
	dir, _ = cmd.Flags().GetString("dir")
	dsn, _ = cmd.Flags().GetString("database-url")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		exitErr("migrate", fmt.Errorf("--database-url or DATABASE_URL is required"))
	}
	return dir, dsn
}

func runMigrateUp(cmd *cobra.Command, args []string) {
	dir, dsn := migrateArgs(cmd)
	if err := database.MigrateUp(dir, dsn); err != nil {
		exitErr("migrate up", err)
	}
	fmt.Println("migrations applied")
}

func runMigrateDown(cmd *cobra.Command, args []string) {
	dir, dsn := migrateArgs(cmd)
	steps, _ := cmd.Flags().GetInt("steps")
	if err := database.MigrateDown(dir, dsn, steps); err != nil {
		exitErr("migrate down", err)
	}
	fmt.Println("migrations rolled back")
}
