package main

import (
	"github.com/spf13/cobra"

	"github.com/praneethkvs/Memento/internal/database"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  "Apply pending SQLite migrations. Opening the database migrates it, so serve does this too.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			a.logger.Info("migrations applied", "db", a.cfg.DBPath)
			return nil
		},
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the state of every migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return database.Status(a.db)
		},
	})

	return migrateCmd
}
