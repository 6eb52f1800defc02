//go:build unix

package cmd

import (
	"fmt"
	"time"

	"github.com/gurisko/campwatch/internal/daemon"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage a running watcher",
	Long: `Inspect or stop a watcher started with 'campwatch watch'.

The watcher serves a small HTTP API over a unix socket:
- GET /health
- GET /api/campgrounds
- GET /api/campgrounds/{id}`,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the watcher",
	Long: `Send SIGTERM to the running watcher. A check already in progress
finishes, anything found so far is still emailed, and the browser is closed.`,
	RunE: stopDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check watcher status",
	Long:  "Check if a watcher is running and display its progress.",
	RunE:  statusDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}

func newDaemonHandle() *daemon.Daemon {
	return daemon.New(&daemon.Config{
		SocketPath: v.GetString("daemon.socket"),
		PIDFile:    v.GetString("daemon.pidfile"),
	})
}

func stopDaemon(cmd *cobra.Command, args []string) error {
	if err := newDaemonHandle().Stop(); err != nil {
		return err
	}
	fmt.Println("campwatch stopped")
	return nil
}

func statusDaemon(cmd *cobra.Command, args []string) error {
	status, err := newDaemonHandle().GetStatus()
	if err != nil {
		return err
	}

	// Format for display
	if !status.Running {
		if status.PID > 0 {
			if status.ErrorMessage != "" {
				fmt.Printf("campwatch process exists (PID: %d) but not responding\n", status.PID)
				fmt.Printf("  Socket: %s\n", status.SocketPath)
				fmt.Printf("  Error: %v\n", status.ErrorMessage)
			} else {
				fmt.Printf("campwatch is not running (stale pidfile)\n")
				fmt.Printf("  Socket: %s\n", status.SocketPath)
			}
		} else {
			fmt.Printf("campwatch is not running\n")
			fmt.Printf("  Socket: %s\n", status.SocketPath)
		}
		return nil
	}

	h := status.Health
	fmt.Printf("campwatch running (PID: %d)\n", status.PID)
	fmt.Printf("  Run ID: %s\n", h.RunID)
	fmt.Printf("  Socket: %s\n", status.SocketPath)
	fmt.Printf("  Uptime: %s\n", status.Uptime.Round(time.Second))
	fmt.Printf("  Campgrounds: %d available, %d pending\n", h.Available, h.Pending)
	fmt.Printf("  Cycles: %d (%d alert(s) sent)\n", h.Stats.Cycles, h.Stats.Notifications)
	if !h.Stats.NextCycleAt.IsZero() {
		fmt.Printf("  Next cycle: %s\n", h.Stats.NextCycleAt.Local().Format(time.DateTime))
	}
	return nil
}
