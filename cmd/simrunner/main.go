// Command simrunner runs a complete multi-rank simulation in one OS
// process: every rank shares one collectives.Fabric and one
// partition.QuadTree, exactly the setup spec.md §5's "workers are
// launched via a multi-process launcher" describes, minus the multiple
// processes — this module's Bus is in-process only (see DESIGN.md's
// "No real MPI binding wired" note).
//
// Worker goroutines are launched and joined with golang.org/x/sync/errgroup,
// the same fan-out/join idiom the retrieved example pack uses for both
// per-target fan-out in a storage system and concurrent RPC dispatch in a
// chat server's hub: launch one goroutine per rank, propagate the first
// fatal error, and cancel every other rank's context so the run stops
// together rather than limping along partially.
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
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/toroidal-sim/internal/bootstrap"
	"github.com/dreamware/toroidal-sim/internal/collectives"
	"github.com/dreamware/toroidal-sim/internal/config"
	"github.com/dreamware/toroidal-sim/internal/rproxy"
)

func main() {
	v := viper.New()
	var ticks int
	cmd := &cobra.Command{
		Use:   "simrunner",
		Short: "Run a complete multi-rank simulation in one process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, ticks)
		},
	}
	config.RegisterFlags(cmd, v)
	cmd.Flags().IntVar(&ticks, "ticks", 10, "number of coordination ticks to run before exiting")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	cmd.SetContext(ctx)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, v *viper.Viper, ticks int) error {
	base, err := config.Load(v)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("simrunner: building logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	tree, err := bootstrap.NewQuadTree(base)
	if err != nil {
		return fmt.Errorf("simrunner: building quadtree: %w", err)
	}
	fabric := collectives.NewFabric(base.WorldSize)
	registry := rproxy.NewRegistry()

	g, gctx := errgroup.WithContext(ctx)
	for rank := 0; rank < base.WorldSize; rank++ {
		rankCfg := *base
		rankCfg.Rank = rank
		bus := fabric.ForRank(rank)

		g.Go(func() error {
			w, err := bootstrap.NewWorker(&rankCfg, tree, bus, registry, logger)
			if err != nil {
				return fmt.Errorf("rank=%d: %w", rankCfg.Rank, err)
			}
			for i := 0; i < ticks; i++ {
				if err := w.Tick(gctx); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}
