package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/abrahampo1/savecloud/internal/backup"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup <shop> <object-id>",
		Short: "Capture the game's save data and upload a backup",
		Args:  cobra.ExactArgs(2),
		RunE:  runBackup,
	}

	cmd.Flags().String("wine-prefix", "", "Wine prefix the game runs under")
	cmd.Flags().String("title", "", "download option title to record in the backup")
	cmd.Flags().String("label", "", "free-form label for this backup")

	return cmd
}

func runBackup(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := newApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	winePrefix, _ := cmd.Flags().GetString("wine-prefix")
	title, _ := cmd.Flags().GetString("title")
	label, _ := cmd.Flags().GetString("label")

	artifact, err := a.service.UploadSaveGame(ctx, args[0], args[1], backup.PackOptions{
		WinePrefix:          expandHome(winePrefix),
		DownloadOptionTitle: title,
		Label:               label,
	})
	if err != nil {
		return err
	}

	statusf("Backed up %s (%s).\n", artifact.Name, formatSize(artifact.SizeBytes))

	return nil
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <shop> <object-id> <backup-id>",
		Short: "Download a backup and restore the game's save data",
		Args:  cobra.ExactArgs(3),
		RunE:  runRestore,
	}

	cmd.Flags().String("wine-prefix", "", "Wine prefix to restore into")

	return cmd
}

func runRestore(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := newApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	winePrefix, _ := cmd.Flags().GetString("wine-prefix")

	if err := a.service.RestoreSaveGame(ctx, args[0], args[1], args[2], expandHome(winePrefix)); err != nil {
		return err
	}

	statusf("Restore complete.\n")

	return nil
}
