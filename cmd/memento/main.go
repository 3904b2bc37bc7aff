package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "memento",
		Short:         "Memento reminder tracker",
		Long:          "Memento keeps track of birthdays, anniversaries and other yearly dates, and reminds you before they come around.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default $MEMENTO_CONFIG)")

	rootCmd.AddCommand(newServeCommand(&configPath))
	rootCmd.AddCommand(newRemindCommand(&configPath))
	rootCmd.AddCommand(newMigrateCommand(&configPath))
	rootCmd.AddCommand(newBackupCommand(&configPath))
	rootCmd.AddCommand(newVAPIDKeysCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("memento: %v", err)
		os.Exit(1)
	}
}
