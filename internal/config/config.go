// Package config resolves a worker's startup parameters from flags and
// TORUA_*-prefixed environment variables, the generalization of the
// teacher's raw os.Getenv reads (cmd/node/main.go's NODE_ID, NODE_LISTEN,
// NODE_ADDR, COORDINATOR_ADDR) into a real configuration library, the way
// perf-analysis's pkg/config wires viper defaults/env/flags together.
package config

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds everything a worker process needs to build its partition,
// fields, transporter, and coordination loop (spec.md §6's CLI/environment
// surface, plus the world-rectangle extent and maximum partition count the spec
// leaves to "the transport layer's init" — supplied here as additional
// flags since this module's transport layer is in-process, not a
// multi-process launcher).
type Config struct {
	Rank            int    `mapstructure:"rank"`
	WorldSize       int    `mapstructure:"world_size"`
	AOI             []int  `mapstructure:"aoi"`
	World           []int  `mapstructure:"world"`
	MaxPartitions   int    `mapstructure:"max_partitions"`
	RebalanceWindow int    `mapstructure:"rebalance_window"`
	LogEndpoint     string `mapstructure:"log_endpoint"`
}

// RegisterFlags adds the cmd/worker flag surface spec.md §6 names
// (--rank, --world-size, --aoi, --rebalance-window, --log-endpoint) plus
// --world/--max-partitions, and binds every one of them through v to its
// TORUA_* environment variable so either source can supply a value.
func RegisterFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.Flags()
	flags.Int("rank", 0, "this process's worker rank")
	flags.Int("world-size", 1, "total number of worker ranks")
	flags.IntSlice("aoi", []int{1, 1}, "halo thickness per dimension")
	flags.IntSlice("world", []int{100, 100}, "world rectangle extent per dimension")
	flags.Int("max-partitions", 4, "maximum simultaneous quadtree leaves, which sizes the id pool (must satisfy (n-1) % (branch-1) == 0)")
	flags.Int("rebalance-window", 20, "rolling-window size for the rebalance-runtime timer")
	flags.String("log-endpoint", "", "optional remote log-server endpoint")

	v.SetEnvPrefix("TORUA")
	v.AutomaticEnv()
	for _, name := range []string{"rank", "world-size", "aoi", "world", "max-partitions", "rebalance-window", "log-endpoint"} {
		key := viperKey(name)
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

func viperKey(flagName string) string {
	out := make([]byte, 0, len(flagName))
	for _, r := range flagName {
		if r == '-' {
			out = append(out, '_')
			continue
		}
		out = append(out, byte(r))
	}
	return string(out)
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the rest of the runtime assumes hold.
func (c *Config) Validate() error {
	if c.Rank < 0 || c.Rank >= c.WorldSize {
		return fmt.Errorf("config: rank %d out of range [0, %d)", c.Rank, c.WorldSize)
	}
	if len(c.AOI) != len(c.World) {
		return fmt.Errorf("config: aoi has %d dimensions, world has %d", len(c.AOI), len(c.World))
	}
	for i, t := range c.AOI {
		if t < 0 {
			return fmt.Errorf("config: aoi[%d] = %d must be >= 0", i, t)
		}
	}
	if c.MaxPartitions <= 0 {
		return fmt.Errorf("config: max-partitions must be > 0")
	}
	if c.RebalanceWindow <= 0 {
		return fmt.Errorf("config: rebalance-window must be > 0")
	}
	return nil
}
