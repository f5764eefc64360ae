package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/abrahampo1/savecloud/internal/backup"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <shop> <object-id>",
		Short: "List the game's backups, newest first",
		Args:  cobra.ExactArgs(2),
		RunE:  runLs,
	}
}

func runLs(_ *cobra.Command, args []string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := newApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	artifacts, err := a.service.ListBackups(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(artifacts)
	}

	if len(artifacts) == 0 {
		statusf("No backups found.\n")
		return nil
	}

	printArtifactTable(artifacts)

	return nil
}

func printArtifactTable(artifacts []backup.Artifact) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSIZE\tHOST\tLABEL")

	for i := range artifacts {
		a := &artifacts[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			a.ID, formatTime(a.CreatedAt), formatSize(a.SizeBytes),
			a.Metadata.Hostname, a.Metadata.Label)
	}

	w.Flush()
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <backup-id>",
		Short: "Delete a backup permanently",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	}
}

func runRm(_ *cobra.Command, args []string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := newApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.DeleteBackup(ctx, args[0]); err != nil {
		return err
	}

	statusf("Deleted %s.\n", args[0])

	return nil
}
