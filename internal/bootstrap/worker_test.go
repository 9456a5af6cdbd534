package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dreamware/toroidal-sim/internal/collectives"
	"github.com/dreamware/toroidal-sim/internal/config"
	"github.com/dreamware/toroidal-sim/internal/geom"
	"github.com/dreamware/toroidal-sim/internal/rproxy"
)

func testConfig(rank, worldSize int) *config.Config {
	return &config.Config{
		Rank:            rank,
		WorldSize:       worldSize,
		AOI:             []int{1, 1},
		World:           []int{10, 10},
		MaxPartitions:   4,
		RebalanceWindow: 5,
	}
}

func TestNewWorkerSingleRankTicksCleanly(t *testing.T) {
	cfg := testConfig(0, 1)
	tree, err := NewQuadTree(cfg)
	require.NoError(t, err)

	bus := collectives.NewFabric(1).ForRank(0)
	w, err := NewWorker(cfg, tree, bus, nil, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 0, w.Rank())

	require.NoError(t, w.Field().AddObject(geom.Point{2, 2}, 7))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Tick(ctx))
	}
}

func TestNewWorkerMultiRankSharesRegistryAndTree(t *testing.T) {
	const worldSize = 4
	base := testConfig(0, worldSize)
	tree, err := NewQuadTree(base)
	require.NoError(t, err)

	fabric := collectives.NewFabric(worldSize)
	registry := rproxy.NewRegistry()

	workers := make([]*Worker, worldSize)
	errs := make(chan error, worldSize)
	for rank := 0; rank < worldSize; rank++ {
		rankCfg := *base
		rankCfg.Rank = rank
		bus := fabric.ForRank(rank)
		go func(rank int, rankCfg config.Config) {
			w, err := NewWorker(&rankCfg, tree, bus, registry, zap.NewNop())
			if err != nil {
				errs <- err
				return
			}
			workers[rank] = w
			errs <- w.Tick(context.Background())
		}(rank, rankCfg)
	}

	for i := 0; i < worldSize; i++ {
		require.NoError(t, <-errs)
	}
	for _, w := range workers {
		require.NotNil(t, w)
	}
}

func TestNewQuadTreeRejectsMismatchedMaxPartitions(t *testing.T) {
	cfg := testConfig(0, 1)
	cfg.MaxPartitions = 2 // (2-1) % (4-1) != 0 for dim=2
	_, err := NewQuadTree(cfg)
	require.Error(t, err)
}
