//go:build unix

package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gurisko/campwatch/internal/limits"
	"github.com/gurisko/campwatch/internal/paths"
	"github.com/gurisko/campwatch/internal/registry"
	"github.com/rs/zerolog"
)

// ensureParentDir ensures the parent directory of the given path exists with secure permissions
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)

	// Create directory with 0700 permissions (owner only)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// Ensure directory has correct permissions (best effort)
	_ = os.Chmod(dir, 0o700)

	return nil
}

// removeSocketIfExists removes the socket file if it exists and is actually a socket
func removeSocketIfExists(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if fi.Mode()&os.ModeSocket != 0 {
		return os.Remove(path)
	}

	return fmt.Errorf("refusing to remove non-socket path: %s", path)
}

// Daemon owns a watcher's lifetime: the polling loop, the scraping
// session, the status socket and the pidfile.
type Daemon struct {
	socketPath string
	pidFile    string
	listener   net.Listener
	server     *http.Server
	registry   *registry.Registry
	poller     *Poller
	session    io.Closer
	httpClient *http.Client
	log        zerolog.Logger

	runID     string
	startTime time.Time

	ownsPIDFile  bool
	shutdownOnce sync.Once
}

type Config struct {
	SocketPath string
	PIDFile    string

	// Registry and Poller are required by Start; status and stop need
	// only the paths.
	Registry *registry.Registry
	Poller   *Poller
	// Session is released exactly once on shutdown. It may be nil.
	Session io.Closer
	Logger  zerolog.Logger
}

func DefaultConfig() *Config {
	return &Config{
		SocketPath: paths.DefaultSocketPath(),
		PIDFile:    paths.DefaultPIDPath(),
		Logger:     zerolog.Nop(),
	}
}

func New(cfg *Config) *Daemon {
	// Apply defaults for any empty fields
	defaults := DefaultConfig()
	if cfg.SocketPath == "" {
		cfg.SocketPath = defaults.SocketPath
	}
	if cfg.PIDFile == "" {
		cfg.PIDFile = defaults.PIDFile
	}

	// Create HTTP client for Unix socket communication
	tr := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var nd net.Dialer
			return nd.DialContext(ctx, "unix", cfg.SocketPath)
		},
	}

	return &Daemon{
		socketPath: cfg.SocketPath,
		pidFile:    cfg.PIDFile,
		registry:   cfg.Registry,
		poller:     cfg.Poller,
		session:    cfg.Session,
		httpClient: &http.Client{Transport: tr, Timeout: 2 * time.Second},
		log:        cfg.Logger,
		runID:      uuid.NewString(),
		startTime:  time.Now().UTC(),
	}
}

// Start serves the status socket and runs the polling loop until it ends.
// SIGINT and SIGTERM cancel the loop. Every exit path goes through
// shutdown. Interruption and a passed start date return nil.
func (d *Daemon) Start(ctx context.Context) error {
	if d.poller == nil || d.registry == nil {
		d.shutdown("")
		return errors.New("daemon: registry and poller are required")
	}

	// Handle shutdown signals
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if ctx.Err() != nil {
		d.shutdown(StopInterrupted)
		return nil
	}

	// Check if already running
	if d.IsRunning() {
		pid, _ := d.readPIDFile()
		d.shutdown("")
		return fmt.Errorf("campwatch already running (PID: %d)", pid)
	}

	if err := d.listen(); err != nil {
		d.shutdown("")
		return err
	}

	// Setup HTTP server
	mux := http.NewServeMux()
	d.setupRoutes(mux)

	d.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return context.Background() },
	}

	go func() {
		if err := d.server.Serve(d.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error().Err(err).Msg("Status server stopped")
		}
	}()

	available, pending := d.registry.Counts()
	d.log.Info().
		Str("run_id", d.runID).
		Int("pid", os.Getpid()).
		Str("socket", d.socketPath).
		Int("campgrounds", d.registry.Len()).
		Int("available", available).
		Int("pending", pending).
		Msg("Watcher started")

	reason, err := d.poller.Run(ctx)
	d.shutdown(reason)
	return err
}

// listen creates the unix socket and claims the pidfile
func (d *Daemon) listen() error {
	// Ensure parent directory exists with secure permissions
	if err := ensureParentDir(d.socketPath); err != nil {
		return fmt.Errorf("failed to prepare socket directory: %w", err)
	}

	// Remove any existing socket (but only if it's actually a socket)
	if err := removeSocketIfExists(d.socketPath); err != nil {
		return err
	}

	listener, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket: %w", err)
	}
	d.listener = listener

	// Set socket permissions (owner only)
	if err := os.Chmod(d.socketPath, 0o600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	d.ownsPIDFile = true
	return nil
}

func (d *Daemon) Stop() error {
	pid, err := d.readPIDFile()
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("campwatch not running")
		}
		return fmt.Errorf("failed reading pidfile: %w", err)
	}

	// Send SIGTERM
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("process not found: %w", err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to stop campwatch: %w", err)
	}

	// An in-flight check is allowed to finish, which can take a page load.
	deadline := time.Now().Add(90 * time.Second)
	for time.Now().Before(deadline) {
		if !isProcessAlive(pid) {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	return fmt.Errorf("campwatch did not stop within 90s (PID: %d)", pid)
}

func (d *Daemon) GetStatus() (*StatusInfo, error) {
	info := &StatusInfo{
		SocketPath: d.socketPath,
	}

	pid, err := d.readPIDFile()
	if err != nil {
		// No PID file
		return info, nil
	}

	info.PID = pid

	// Check if process is alive
	if !isProcessAlive(pid) {
		// Stale PID file
		return info, nil
	}

	// Try to get health from the watcher to verify identity
	health, err := d.getHealth()
	if err != nil {
		// Process alive but not responding on socket
		info.ErrorMessage = err.Error()
		return info, nil
	}

	info.Running = true
	info.Health = health
	info.Uptime = time.Duration(health.Uptime * float64(time.Second))
	return info, nil
}

func (d *Daemon) IsRunning() bool {
	pid, err := d.readPIDFile()
	if err != nil {
		return false
	}

	// Check if process is alive
	if !isProcessAlive(pid) {
		return false
	}

	// Verify identity by checking if it responds on socket
	// This protects against PID reuse
	if _, err := d.getHealth(); err != nil {
		return false
	}

	return true
}

// shutdown releases everything the watcher holds. It runs once; later
// calls are no-ops. An empty reason skips the terminal log line.
func (d *Daemon) shutdown(reason StopReason) {
	d.shutdownOnce.Do(func() {
		if d.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := d.server.Shutdown(ctx); err != nil {
				d.log.Warn().Err(err).Msg("Status server shutdown error")
			}
		}

		if d.httpClient != nil {
			d.httpClient.CloseIdleConnections()
		}

		if d.listener != nil {
			_ = d.listener.Close()
			_ = removeSocketIfExists(d.socketPath)
		}
		if d.ownsPIDFile {
			_ = os.Remove(d.pidFile)
		}

		if d.session != nil {
			if err := d.session.Close(); err != nil {
				d.log.Warn().Err(err).Msg("Failed to close browser session")
			}
		}

		switch reason {
		case StopInterrupted:
			d.log.Info().Str("reason", string(reason)).Str("run_id", d.runID).Msg("Interrupted by operator, shutting down")
		case StopStartDatePassed:
			d.log.Info().Str("reason", string(reason)).Str("run_id", d.runID).Msg("Start date has passed, shutting down")
		case StopFailureCeiling:
			d.log.Error().Str("reason", string(reason)).Str("run_id", d.runID).Msg("Too many consecutive scrape failures, shutting down")
		}
	})
}

func (d *Daemon) writePIDFile() error {
	pid := os.Getpid()

	// Ensure parent directory exists
	if err := ensureParentDir(d.pidFile); err != nil {
		return fmt.Errorf("failed to create PID file directory: %w", err)
	}

	// Try to create PID file atomically with O_EXCL
	for {
		f, err := os.OpenFile(d.pidFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			defer f.Close()
			_, err = f.WriteString(strconv.Itoa(pid))
			return err
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create PID file: %w", err)
		}
		// File exists, check if process is still alive
		if oldPID, err2 := d.readPIDFile(); err2 == nil && isProcessAlive(oldPID) {
			return fmt.Errorf("campwatch already running (PID: %d)", oldPID)
		}
		// Stale PID file; remove and retry
		if err := os.Remove(d.pidFile); err != nil {
			return fmt.Errorf("stale pidfile exists and cannot remove: %w", err)
		}
	}
}

// isProcessAlive checks if a process with the given PID is alive
func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Send signal 0 to check if process is alive
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

func (d *Daemon) readPIDFile() (int, error) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(strings.TrimSpace(string(data)))
}

type StatusInfo struct {
	Running      bool
	PID          int
	SocketPath   string
	Uptime       time.Duration
	Health       *HealthResponse
	ErrorMessage string // For when process exists but not responding
}

func (d *Daemon) getHealth() (*HealthResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health returned HTTP %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, limits.JSON)).Decode(&health); err != nil {
		return nil, err
	}

	return &health, nil
}
