package cmd

import (
	"fmt"

	"github.com/gurisko/campwatch/internal/config"
	"github.com/gurisko/campwatch/internal/scrape"
	"github.com/spf13/cobra"
)

// flagKeys maps command-line flags to config keys
var flagKeys = map[string]string{
	"start-date":               "start_date",
	"num-days":                 "num_days",
	"email":                    "email",
	"lat":                      "lat",
	"lon":                      "lon",
	"radius":                   "radius",
	"campground-ids":           "campground_ids",
	"interval":                 "interval",
	"max-consecutive-failures": "max_consecutive_failures",
	"headless":                 "browser.headless",
	"page-timeout":             "browser.page_timeout",
}

func addGeoFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("lat", 0, "latitude of the search center")
	f.Float64("lon", 0, "longitude of the search center")
	f.Float64P("radius", "r", 0, "search radius in miles")
}

func addWindowFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("start-date", "s", "", "first night, MM/DD/YYYY")
	f.IntP("num-days", "n", 0, "number of consecutive nights")
	f.StringP("campground-ids", "c", "", "comma-separated facility IDs")
	f.Bool("headless", true, "run the browser headless")
	f.Duration("page-timeout", scrape.DefaultPageTimeout, "timeout for each page wait")
	addGeoFlags(cmd)
}

// bindFlags binds the command's own flags to config keys. Binding happens
// per invocation so commands sharing a flag name do not clobber each other.
func bindFlags(cmd *cobra.Command) error {
	for flag, key := range flagKeys {
		pf := cmd.Flags().Lookup(flag)
		if pf == nil {
			continue
		}
		if err := v.BindPFlag(key, pf); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	return nil
}

func bindFlagsPreRun(cmd *cobra.Command, args []string) error {
	return bindFlags(cmd)
}

// loadConfig decodes the merged flag, env, file and default settings
func loadConfig() (*config.Config, error) {
	return config.Load(v)
}
