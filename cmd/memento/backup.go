package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/praneethkvs/Memento/internal/backup"
)

func newBackupCommand(configPath *string) *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage encrypted database backups",
	}

	backupCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Take a backup now and apply the retention policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			m := a.backupManager()
			record, err := m.Run(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := m.Cleanup(cmd.Context()); err != nil {
				a.logger.Warn("backup cleanup", "error", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup %d uploaded to %s (%d bytes)\n", record.ID, record.S3Key, record.SizeBytes)
			return nil
		},
	})

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			backups, err := a.backupManager().List(limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tCREATED\tSIZE\tKEY")
			for _, b := range backups {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", b.ID, b.Status, b.CreatedAt.UTC().Format(time.RFC3339), b.SizeBytes, b.S3Key)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of backups to show")
	backupCmd.AddCommand(listCmd)

	backupCmd.AddCommand(&cobra.Command{
		Use:   "restore ID",
		Short: "Replace the database with a backup",
		Long:  "Download, decrypt and verify a backup, then move it over the configured database file. Stop the server first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid backup id %q", args[0])
			}
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}

			fetched := a.cfg.DBPath + ".restore"
			if err := a.backupManager().Fetch(cmd.Context(), id, fetched); err != nil {
				return errors.Join(err, a.Close())
			}
			// the live handle must be gone before the file is swapped
			if err := a.Close(); err != nil {
				return err
			}
			if err := backup.Replace(fetched, a.cfg.DBPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored backup %d into %s\n", id, a.cfg.DBPath)
			return nil
		},
	})

	return backupCmd
}
