//go:build unix

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gurisko/campwatch/internal/config"
	"github.com/gurisko/campwatch/internal/daemon"
	"github.com/gurisko/campwatch/internal/logger"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch campgrounds until they become available",
	Long: `Poll every tracked campground each interval and email once per cycle
with the campgrounds that became available for the whole window.

The watcher runs in the foreground until the start date passes or it is
interrupted (Ctrl-C, SIGTERM, or 'campwatch daemon stop'). A status API is
served on a unix socket while it runs.

Examples:
  campwatch watch -s 09/17/2030 -n 2 -e me@example.com -c 233116,231962
  campwatch watch -s 09/17/2030 -n 2 -e me@example.com --lat 35.99 --lon -121.39 -r 20

For background operation, use:
  nohup campwatch watch ... --log-format json > /tmp/campwatch.log 2>&1 &`,
	PreRunE: bindFlagsPreRun,
	RunE:    runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addWindowFlags(watchCmd)
	f := watchCmd.Flags()
	f.StringP("email", "e", "", "address to alert")
	f.Duration("interval", config.DefaultInterval, "pause between polling cycles")
	f.Int("max-consecutive-failures", 0, "stop after a campground fails this many checks in a row (0 = never)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Installed before anything is started so an early Ctrl-C still goes
	// through the daemon's shutdown.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.WithComponent("daemon")

	reg, err := buildRegistry(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			log.Info().Str("reason", string(daemon.StopInterrupted)).Msg("Interrupted by operator during startup")
			return nil
		}
		return err
	}

	checker, err := newChecker(cfg)
	if err != nil {
		if ctx.Err() != nil {
			log.Info().Str("reason", string(daemon.StopInterrupted)).Msg("Interrupted by operator during startup")
			return nil
		}
		return err
	}

	poller := daemon.NewPoller(reg, checker, newEmailNotifier(cfg), daemon.PollerConfig{
		StartDate:              cfg.StartDate,
		NumDays:                cfg.NumDays,
		Interval:               cfg.Interval,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
	}, logger.WithComponent("poller"))

	d := daemon.New(&daemon.Config{
		SocketPath: cfg.Daemon.SocketPath,
		PIDFile:    cfg.Daemon.PIDFile,
		Registry:   reg,
		Poller:     poller,
		Session:    checker,
		Logger:     log,
	})

	watchLogLevel()
	return d.Start(ctx)
}
