package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pace/internal/cli"
	"github.com/Veraticus/pace/internal/storage"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage database backups",
		Long: `Create, list, restore, and delete database backups.

Destructive commands such as 'schedule reset' take an automatic backup first;
only the most recent automatic backups are kept.`,
		Example: `  # Snapshot before editing formulas
  pace backup create --id before-formulas

  # Restore it
  pace backup restore before-formulas`,
	}

	cmd.AddCommand(createBackupCmd())
	cmd.AddCommand(listBackupsCmd())
	cmd.AddCommand(restoreBackupCmd())
	cmd.AddCommand(deleteBackupCmd())
	return cmd
}

// withBackups opens the database and hands its backup manager to fn.
func withBackups(cmd *cobra.Command, fn func(a *app, bm *storage.BackupManager) error) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	bm, err := a.store.NewBackupManager()
	if err != nil {
		return fmt.Errorf("failed to create backup manager: %w", err)
	}
	return fn(a, bm)
}

func createBackupCmd() *cobra.Command {
	var id, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new backup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackups(cmd, func(_ *app, bm *storage.BackupManager) error {
				info, err := bm.Create(cmd.Context(), id, description)
				if err != nil {
					return fmt.Errorf("failed to create backup: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s Created backup %s (%s)\n",
					cli.SuccessStyle.Render(cli.SuccessIcon),
					cli.InfoStyle.Render(info.ID),
					formatFileSize(info.FileSize))
				if info.Description != "" {
					fmt.Fprintf(out, "  Description: %s\n", info.Description)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "backup id (generated when empty)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "description of the backup")
	return cmd
}

func listBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all backups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackups(cmd, func(_ *app, bm *storage.BackupManager) error {
				backups, err := bm.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list backups: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(backups) == 0 {
					fmt.Fprintln(out, cli.SubtleStyle.Render("No backups found."))
					return nil
				}

				now := time.Now()
				w := newTable(out, "ID", "CREATED", "SIZE", "SCHEMA", "TYPE", "DESCRIPTION")
				for _, b := range backups {
					typeLabel := "manual"
					if b.IsAuto {
						typeLabel = "auto"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
						cli.InfoStyle.Render(b.ID),
						formatRelativeTime(b.CreatedAt, now),
						formatFileSize(b.FileSize),
						b.SchemaVersion,
						cli.SubtleStyle.Render(typeLabel),
						b.Description)
				}
				return w.Flush()
			})
		},
	}
}

func restoreBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Replace the database with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackups(cmd, func(_ *app, bm *storage.BackupManager) error {
				ok, err := confirm(cmd, fmt.Sprintf("Replace the database with backup %s?", args[0]))
				if err != nil || !ok {
					return err
				}
				if err := bm.Restore(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("failed to restore backup: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Restored backup "+args[0]))
				return nil
			})
		},
	}
	addYesFlag(cmd)
	return cmd
}

func deleteBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <backup-id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackups(cmd, func(_ *app, bm *storage.BackupManager) error {
				if err := bm.Delete(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("failed to delete backup: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted backup "+args[0]))
				return nil
			})
		},
	}
}
