// Command tlmlog loads telemetry logger sessions, reports their integrity
// and serves their data.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JonMunkholm/tlmlog/internal/config"
	"github.com/JonMunkholm/tlmlog/internal/core"
	"github.com/JonMunkholm/tlmlog/internal/logging"
)

var (
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
)

// Flags that override the loaded configuration when set.
var (
	flagLogLevel         string
	flagLogFormat        string
	flagRoot             string
	flagAlign            string
	flagResampleMode     string
	flagResampleInterval time.Duration
	flagNoResample       bool
	flagIgnoreNetworks   []string
	flagConsiderNetworks []string
	flagWorkers          int
	flagMaxGridPoints    int
)

var rootCmd = &cobra.Command{
	Use:   "tlmlog",
	Short: "Load telemetry logger sessions and report their integrity",
	Long: `tlmlog loads the per-message CSV recordings of telemetry logger sessions,
cleans and resamples them, optionally aligns them onto a common time window,
and reports every recording that was empty, broken, cleaned or dropped.

A session is a directory holding parsed/<network>/<message>.csv files.

Configuration is read from built-in defaults, then the --config YAML file,
then TLM_* environment variables (a .env file is honoured), then flags.

Examples:
  tlmlog report ./run1                 # Integrity report of one session
  tlmlog report --align both           # Report every session under the root
  tlmlog get ./run1 can0 WHEEL speed   # Print one payload column
  tlmlog serve --root ./logs           # Browse sessions over HTTP`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env supplies values missing from the environment
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger = logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
		logger.Debug("configuration loaded",
			zap.String("root", cfg.Ingest.Root),
			zap.String("align", cfg.Ingest.Align),
			zap.Bool("resample", cfg.Ingest.Resample),
			zap.Int("workers", cfg.Ingest.Workers),
		)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: text, json")
	pf.StringVar(&flagRoot, "root", "", "Directory holding session directories")
	pf.StringVar(&flagAlign, "align", "", "Timestamp alignment: none, beginning, end, both")
	pf.StringVar(&flagResampleMode, "resample-mode", "", "Resampling: mean_interpolate, forward_fill")
	pf.DurationVar(&flagResampleInterval, "resample-interval", 0, "Resampling grid interval")
	pf.BoolVar(&flagNoResample, "no-resample", false, "Keep the recorded timestamps")
	pf.StringSliceVar(&flagIgnoreNetworks, "ignore-networks", nil, "Networks to skip")
	pf.StringSliceVar(&flagConsiderNetworks, "consider-networks", nil, "Only load these networks")
	pf.IntVar(&flagWorkers, "workers", 0, "Recordings ingested concurrently")
	pf.IntVar(&flagMaxGridPoints, "max-grid-points", 0, "Most rows one resampled recording may have")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(serveCmd)
}

// applyFlags copies every flag the user set onto cfg.
func applyFlags(cmd *cobra.Command) {
	changed := cmd.Flags().Changed
	in := &cfg.Ingest

	if changed("log-level") {
		cfg.Logging.Level = flagLogLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = flagLogFormat
	}
	if changed("root") {
		in.Root = flagRoot
	}
	if changed("align") {
		in.Align = flagAlign
	}
	if changed("resample-mode") {
		in.ResampleMode = flagResampleMode
	}
	if changed("resample-interval") {
		in.ResampleInterval = flagResampleInterval
	}
	if changed("no-resample") {
		in.Resample = !flagNoResample
	}
	if changed("ignore-networks") {
		in.IgnoreNetworks = flagIgnoreNetworks
	}
	if changed("consider-networks") {
		in.ConsiderNetworks = flagConsiderNetworks
	}
	if changed("workers") {
		in.Workers = flagWorkers
	}
	if changed("max-grid-points") {
		in.MaxGridPoints = flagMaxGridPoints
	}
}

// newLoader builds a loader from the effective configuration.
func newLoader() (*core.Loader, error) {
	return core.NewLoader(cfg.Ingest.Options(), logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
			if logger != nil {
				logger.Debug("command failed", zap.Error(err))
			}
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
