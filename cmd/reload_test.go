package cmd

import (
	"bytes"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/gurisko/campwatch/internal/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyLogLevel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.InitWithWriter(logger.Config{Level: "info", Format: "json"}, &buf))
	t.Cleanup(func() { _ = logger.SetLevel("info", false) })

	event := fsnotify.Event{Name: "config.yaml", Op: fsnotify.Write}
	log := zerolog.New(&buf)

	v.Set("log.level", "debug")
	t.Cleanup(func() { v.Set("log.level", "info") })
	applyLogLevel(log, event)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.Contains(t, buf.String(), "log level applied")

	v.Set("log.level", "chatty")
	applyLogLevel(log, event)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.Contains(t, buf.String(), "Ignoring log level")
}
