package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abrahampo1/savecloud/internal/watch"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch configured save directories and back up on change",
		Long: `Watch every [[watch]] entry in the config file and upload a backup
whenever a save directory has been quiet for its debounce interval.
Runs until interrupted.`,
		RunE: runWatch,
	}
}

func runWatch(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	if len(resolvedCfg.Watch) == 0 {
		return fmt.Errorf("no [[watch]] entries configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	targets := make([]watch.Target, 0, len(resolvedCfg.Watch))

	for _, t := range resolvedCfg.Watch {
		// Debounce strings were validated during config resolution.
		debounce, err := time.ParseDuration(t.Debounce)
		if err != nil {
			return fmt.Errorf("watch target %s/%s: %w", t.Shop, t.ObjectID, err)
		}

		targets = append(targets, watch.Target{
			Shop:       t.Shop,
			ObjectID:   t.ObjectID,
			Path:       expandHome(t.Path),
			WinePrefix: expandHome(t.WinePrefix),
			Debounce:   debounce,
		})
	}

	statusf("Watching %d save directories. Press Ctrl-C to stop.\n", len(targets))

	return watch.New(a.service, logger).Run(ctx, targets)
}
