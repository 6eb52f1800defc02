package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gurisko/campwatch/internal/config"
	"github.com/gurisko/campwatch/internal/logger"
	"github.com/gurisko/campwatch/internal/paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "campwatch",
	Short: "campwatch - recreation.gov campsite availability watcher",
	Long: `campwatch polls recreation.gov campground availability on a fixed interval
and sends one email per cycle listing every campground that became bookable
for the requested nights.

Campgrounds are given explicitly by facility ID, discovered around a point
through the RIDB API, or both.`,
	PersistentPreRunE: initRuntime,
}

func Execute() error {
	// Silence usage and errors to avoid cluttering output with Cobra defaults
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	return rootCmd.Execute()
}

func init() {
	config.SetDefaults(v)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default "+paths.DefaultConfigPath()+")")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console or json)")
	pf.Bool("debug", false, "enable debug logging")
	pf.String("socket", paths.DefaultSocketPath(), "status socket path")
	pf.String("pidfile", paths.DefaultPIDPath(), "pidfile path")

	_ = v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = v.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = v.BindPFlag("log.debug", pf.Lookup("debug"))
	_ = v.BindPFlag("daemon.socket", pf.Lookup("socket"))
	_ = v.BindPFlag("daemon.pidfile", pf.Lookup("pidfile"))

	v.SetEnvPrefix("CAMPWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// initRuntime reads the config file and installs the logger
func initRuntime(cmd *cobra.Command, args []string) error {
	if err := readConfigFile(); err != nil {
		return err
	}
	return logger.Init(logger.Config{
		Level:  v.GetString("log.level"),
		Debug:  v.GetBool("log.debug"),
		Output: v.GetString("log.output"),
		Format: v.GetString("log.format"),
	})
}

// readConfigFile loads --config, or the default file when it exists
func readConfigFile() error {
	path := cfgFile
	if path == "" {
		path = paths.DefaultConfigPath()
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read %s: %v", config.ErrInvalidConfig, path, err)
	}
	return nil
}
