// Command worker runs one rank of the toroidal simulation runtime: it
// builds the partition, a demonstration numeric field, the transporter,
// the remote read proxy, the scheduler, and the coordination loop, then
// ticks until interrupted.
//
// This module's only collectives.Bus implementation is in-process
// (the LocalBus handle internal/collectives.Fabric.ForRank returns): a real multi-process deployment needs
// every rank sharing one Fabric, which a standalone OS process cannot do
// on its own. worker therefore only runs a single-rank world (--world-size
// 1) directly; use cmd/simrunner to run a full multi-rank simulation
// in-process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dreamware/toroidal-sim/internal/bootstrap"
	"github.com/dreamware/toroidal-sim/internal/collectives"
	"github.com/dreamware/toroidal-sim/internal/config"
)

func main() {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run one rank of the toroidal simulation runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
	}
	config.RegisterFlags(cmd, v)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	cmd.SetContext(ctx)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if cfg.WorldSize != 1 {
		return fmt.Errorf("worker: world-size=%d requires %d OS processes sharing one collectives.Bus, "+
			"which this in-process Bus cannot do across processes; use cmd/simrunner for world-size > 1",
			cfg.WorldSize, cfg.WorldSize)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("worker: building logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	tree, err := bootstrap.NewQuadTree(cfg)
	if err != nil {
		return fmt.Errorf("rank=%d: %w", cfg.Rank, err)
	}
	bus := collectives.NewFabric(1).ForRank(0)
	w, err := bootstrap.NewWorker(cfg, tree, bus, nil, logger)
	if err != nil {
		return fmt.Errorf("rank=%d: %w", cfg.Rank, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := w.Tick(ctx); err != nil {
			// Fatal kinds already self-describe as
			// "rank=.. partition=.. coord=.. kind=..: .." (faults.RuntimeError.Error);
			// this loop's only job is to stop and surface it.
			return err
		}
	}
}
