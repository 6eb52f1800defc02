package cmd

import (
	"github.com/fsnotify/fsnotify"
	"github.com/gurisko/campwatch/internal/logger"
	"github.com/rs/zerolog"
)

// watchLogLevel re-applies log.level and log.debug whenever the config
// file changes. Everything else is fixed for the life of the watcher.
func watchLogLevel() {
	if v.ConfigFileUsed() == "" {
		return
	}
	log := logger.WithComponent("config")
	v.OnConfigChange(func(e fsnotify.Event) {
		applyLogLevel(log, e)
	})
	v.WatchConfig()
	log.Debug().Str("file", v.ConfigFileUsed()).Msg("Watching config file for log level changes")
}

func applyLogLevel(log zerolog.Logger, e fsnotify.Event) {
	if err := logger.SetLevel(v.GetString("log.level"), v.GetBool("log.debug")); err != nil {
		log.Warn().Err(err).Str("file", e.Name).Msg("Ignoring log level from changed config file")
		return
	}
	log.Info().
		Str("file", e.Name).
		Str("level", zerolog.GlobalLevel().String()).
		Msg("Config file changed, log level applied")
}
