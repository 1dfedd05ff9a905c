package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/vdrplayer/internal/cliconfig"
	"github.com/bft-labs/vdrplayer/pkg/log"
	"github.com/bft-labs/vdrplayer/pkg/vdrplayer"
)

const helpDescription = `
Replay a captured VDR log onto a live transport, keeping the recorded timing.

Roles:
  tcp      listen on --interface:--port and stream to the first client
  udp      send one datagram per row to --destination:--port
  signalk  serve SignalK deltas over a WebSocket on --interface:--port
  serial   write sentences to --device at --baud (8N1)

Messages:
  0183     raw NMEA 0183 sentences
  2000     NMEA 2000 frames in Actisense ASCII
`

var exampleUsage = strings.TrimSpace(`
  vdrplayer -r tcp -m 0183 -p 10110 monitor.csv
  vdrplayer -r udp -m 2000 -d 192.168.1.255 -c 3 capture.csv
  vdrplayer -r signalk -p 3000 --speed 4 monitor.csv
  vdrplayer -r serial --device /dev/ttyUSB0 --baud 38400 monitor.csv
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	logger := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "vdrplayer [flags] [logfile]",
		Short:   "Replay a captured VDR log onto TCP, UDP, SignalK or a serial port",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			// Load config file first (default $HOME/.vdrplayer/config.toml), then apply flag overrides
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags; the positional log file counts as one
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			if len(args) == 1 {
				cfg.LogFile = args[0]
				changed["logfile"] = true
			}

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			} else if cfgPath != "" {
				return fmt.Errorf("config file %s not found", cfgPath)
			}

			// Apply environment variables (VDRPLAYER_*)
			// These override file config but are overridden by flags (checked via changed map)
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			// Validate and set derived defaults
			if err := cfg.Validate(); err != nil {
				return err
			}

			if cfg.Quiet {
				logger = logger.Level(zerolog.WarnLevel)
			}
			logger.Info().Interface("config", cfg).Msg("configuration")

			r, err := vdrplayer.New(cfg,
				vdrplayer.WithLogger(log.NewZerologAdapterWithLogger(logger)),
			)
			if err != nil {
				return fmt.Errorf("create replay: %w", err)
			}

			// Setup signal handling; a signal cancels the replay at once
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = r.Run(ctx)
			if errors.Is(err, context.Canceled) {
				logger.Info().Msg("received signal, stopped")
				return nil
			}
			return err
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.vdrplayer/config.toml)")
	root.Flags().StringVarP(&cfg.Role, "role", "r", cfg.Role, "transport: tcp, udp, signalk or serial")
	root.Flags().StringVarP(&cfg.Messages, "messages", "m", cfg.Messages, "message kind: 0183 or 2000 (signalk role always sends signalk)")
	root.Flags().IntVarP(&cfg.Port, "port", "p", cfg.Port, "TCP/UDP/WebSocket port")
	root.Flags().StringVarP(&cfg.Destination, "destination", "d", cfg.Destination, "UDP destination host")
	root.Flags().StringVarP(&cfg.Interface, "interface", "i", cfg.Interface, "address the tcp and signalk servers listen on")
	root.Flags().IntVarP(&cfg.Count, "count", "c", cfg.Count, "number of passes over the log")
	root.Flags().BoolVarP(&cfg.Quiet, "quiet", "q", cfg.Quiet, "no progress or status output")

	root.Flags().Float64Var(&cfg.Speed, "speed", cfg.Speed, "playback speed factor (0 sends as fast as possible)")
	root.Flags().StringVar(&cfg.Device, "device", cfg.Device, "serial device for the serial role")
	root.Flags().IntVar(&cfg.Baud, "baud", cfg.Baud, "serial baud rate")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9102)")
	root.Flags().BoolVar(&cfg.Wait, "wait", cfg.Wait, "wait for the log file to appear")

	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("vdrplayer")
		os.Exit(1)
	}
}
