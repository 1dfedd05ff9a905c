// Package vdrplayer replays captured marine data logs onto a live transport.
//
// Example usage:
//
//	cfg := vdrplayer.DefaultConfig()
//	cfg.Role = "signalk"
//	cfg.Port = 3000
//	cfg.LogFile = "/path/to/monitor.csv"
//	if err := vdrplayer.Run(context.Background(), cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// For background runs, events and metrics use pkg/vdrplayer directly.
package vdrplayer

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bft-labs/vdrplayer/internal/cliconfig"
	"github.com/bft-labs/vdrplayer/pkg/log"
	player "github.com/bft-labs/vdrplayer/pkg/vdrplayer"
)

// Config holds the configuration of a replay.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = player.Config

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return player.DefaultConfig()
}

// Run validates cfg and replays the log, logging through Logger().
// It blocks until every pass has been sent or ctx is canceled.
func Run(ctx context.Context, cfg Config) error {
	logger := cliconfig.Logger()
	if cfg.Quiet {
		logger = logger.Level(zerolog.WarnLevel)
	}
	r, err := player.New(cfg, player.WithLogger(log.NewZerologAdapterWithLogger(logger)))
	if err != nil {
		return err
	}
	return r.Run(ctx)
}

// Logger returns the package-level zerolog logger used by Run.
func Logger() zerolog.Logger {
	return cliconfig.Logger()
}
