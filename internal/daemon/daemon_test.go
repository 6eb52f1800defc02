//go:build unix

package daemon

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for a logger writing from another goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type countingCloser struct {
	closes atomic.Int32
}

func (c *countingCloser) Close() error {
	c.closes.Add(1)
	return nil
}

// shortTempDir keeps unix socket paths under the platform length limit.
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "cw")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestShutdownWithoutSession(t *testing.T) {
	dir := shortTempDir(t)
	d := New(&Config{
		SocketPath: filepath.Join(dir, "w.sock"),
		PIDFile:    filepath.Join(dir, "w.pid"),
		Logger:     zerolog.Nop(),
	})

	assert.NotPanics(t, func() {
		d.shutdown(StopInterrupted)
		d.shutdown(StopInterrupted)
	})
}

func TestShutdownReleasesSessionOnce(t *testing.T) {
	dir := shortTempDir(t)
	session := &countingCloser{}
	d := New(&Config{
		SocketPath: filepath.Join(dir, "w.sock"),
		PIDFile:    filepath.Join(dir, "w.pid"),
		Session:    session,
		Logger:     zerolog.Nop(),
	})

	d.shutdown(StopStartDatePassed)
	d.shutdown(StopInterrupted)

	assert.Equal(t, int32(1), session.closes.Load())
}

func TestShutdownLeavesForeignPIDFile(t *testing.T) {
	dir := shortTempDir(t)
	pidFile := filepath.Join(dir, "w.pid")
	require.NoError(t, os.WriteFile(pidFile, []byte("1"), 0o600))

	d := New(&Config{SocketPath: filepath.Join(dir, "w.sock"), PIDFile: pidFile})
	d.shutdown("")

	assert.FileExists(t, pidFile)
}

func TestStartEndsWhenStartDatePassed(t *testing.T) {
	dir := shortTempDir(t)
	socketPath := filepath.Join(dir, "w.sock")
	pidFile := filepath.Join(dir, "w.pid")

	reg := newTestRegistry(t, "233116")
	checker := &fakeChecker{results: map[string]bool{}}
	poller := newTestPoller(reg, checker, &recordingNotifier{}, PollerConfig{
		StartDate: time.Now().Add(-48 * time.Hour),
	})
	session := &countingCloser{}

	var logs bytes.Buffer
	d := New(&Config{
		SocketPath: socketPath,
		PIDFile:    pidFile,
		Registry:   reg,
		Poller:     poller,
		Session:    session,
		Logger:     zerolog.New(&logs),
	})

	require.NoError(t, d.Start(context.Background()))

	assert.Empty(t, checker.Calls())
	assert.Equal(t, int32(1), session.closes.Load())
	assert.NoFileExists(t, pidFile)
	assert.NoFileExists(t, socketPath)
	assert.Contains(t, logs.String(), `"reason":"start_date_passed"`)
	assert.Contains(t, logs.String(), "Watcher started")
}

func TestStartReturnsFailureCeiling(t *testing.T) {
	dir := shortTempDir(t)
	reg := newTestRegistry(t, "233116")
	checker := &fakeChecker{errs: map[string]error{"233116": errors.New("no table")}}
	poller := newTestPoller(reg, checker, &recordingNotifier{}, PollerConfig{MaxConsecutiveFailures: 1})
	session := &countingCloser{}

	var logs bytes.Buffer
	d := New(&Config{
		SocketPath: filepath.Join(dir, "w.sock"),
		PIDFile:    filepath.Join(dir, "w.pid"),
		Registry:   reg,
		Poller:     poller,
		Session:    session,
		Logger:     zerolog.New(&logs),
	})

	err := d.Start(context.Background())
	require.ErrorIs(t, err, ErrFailureCeiling)
	assert.Equal(t, int32(1), session.closes.Load())
	assert.Contains(t, logs.String(), `"reason":"failure_ceiling"`)
}

func TestStartInterrupted(t *testing.T) {
	dir := shortTempDir(t)
	reg := newTestRegistry(t, "233116")
	poller := newTestPoller(reg, &fakeChecker{results: map[string]bool{}}, &recordingNotifier{}, PollerConfig{Interval: time.Hour})
	session := &countingCloser{}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var logs bytes.Buffer
	d := New(&Config{
		SocketPath: filepath.Join(dir, "w.sock"),
		PIDFile:    filepath.Join(dir, "w.pid"),
		Registry:   reg,
		Poller:     poller,
		Session:    session,
		Logger:     zerolog.New(&logs),
	})

	require.NoError(t, d.Start(ctx))
	assert.Equal(t, int32(1), session.closes.Load())
	assert.Contains(t, logs.String(), `"reason":"interrupted"`)
}

func TestStartAlreadyInterrupted(t *testing.T) {
	dir := shortTempDir(t)
	pidFile := filepath.Join(dir, "w.pid")
	reg := newTestRegistry(t, "233116")
	checker := &fakeChecker{results: map[string]bool{}}
	poller := newTestPoller(reg, checker, &recordingNotifier{}, PollerConfig{})
	session := &countingCloser{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var logs bytes.Buffer
	d := New(&Config{
		SocketPath: filepath.Join(dir, "w.sock"),
		PIDFile:    pidFile,
		Registry:   reg,
		Poller:     poller,
		Session:    session,
		Logger:     zerolog.New(&logs),
	})

	require.NoError(t, d.Start(ctx))
	assert.Empty(t, checker.Calls())
	assert.Equal(t, int32(1), session.closes.Load())
	assert.NoFileExists(t, pidFile)
	assert.Contains(t, logs.String(), `"reason":"interrupted"`)
	assert.NotContains(t, logs.String(), "Watcher started")
}

func TestStartStopsOnSIGINT(t *testing.T) {
	dir := shortTempDir(t)
	reg := newTestRegistry(t, "233116")
	poller := newTestPoller(reg, &fakeChecker{results: map[string]bool{}}, &recordingNotifier{}, PollerConfig{Interval: time.Hour})
	session := &countingCloser{}

	var logs syncBuffer
	d := New(&Config{
		SocketPath: filepath.Join(dir, "w.sock"),
		PIDFile:    filepath.Join(dir, "w.pid"),
		Registry:   reg,
		Poller:     poller,
		Session:    session,
		Logger:     zerolog.New(&logs),
	})

	errc := make(chan error, 1)
	go func() { errc <- d.Start(context.Background()) }()

	// The first cycle only runs once the signal handler is installed.
	require.Eventually(t, func() bool { return poller.Stats().Cycles >= 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Start did not return after SIGINT")
	}
	assert.Equal(t, int32(1), session.closes.Load())
	assert.Contains(t, logs.String(), `"reason":"interrupted"`)
}

func TestStartRequiresPoller(t *testing.T) {
	dir := shortTempDir(t)
	session := &countingCloser{}
	d := New(&Config{
		SocketPath: filepath.Join(dir, "w.sock"),
		PIDFile:    filepath.Join(dir, "w.pid"),
		Session:    session,
	})

	require.Error(t, d.Start(context.Background()))
	assert.Equal(t, int32(1), session.closes.Load())
}

func TestStatusWhenNotRunning(t *testing.T) {
	dir := shortTempDir(t)
	d := New(&Config{
		SocketPath: filepath.Join(dir, "w.sock"),
		PIDFile:    filepath.Join(dir, "w.pid"),
	})

	info, err := d.GetStatus()
	require.NoError(t, err)
	assert.False(t, info.Running)
	assert.False(t, d.IsRunning())

	err = d.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}
