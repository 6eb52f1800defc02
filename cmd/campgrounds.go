//go:build unix

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/gurisko/campwatch/internal/apiclient"
	"github.com/gurisko/campwatch/internal/campground"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type listCampgroundsResp struct {
	StartDate   string                `json:"start_date" yaml:"start_date"`
	NumDays     int                   `json:"num_days" yaml:"num_days"`
	Campgrounds []campground.Snapshot `json:"campgrounds" yaml:"campgrounds"`
}

type showCampgroundResp struct {
	Campground campground.Snapshot `json:"campground" yaml:"campground"`
}

var (
	campgroundsJSON bool
	campgroundsYAML bool
)

var campgroundsCmd = &cobra.Command{
	Use:   "campgrounds [facility-id]",
	Short: "Show what a running watcher is tracking",
	Long: `List the campgrounds tracked by the running watcher, or show one.

Examples:
  campwatch campgrounds
  campwatch campgrounds 233116
  campwatch campgrounds --yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCampgrounds,
}

func init() {
	rootCmd.AddCommand(campgroundsCmd)
	campgroundsCmd.Flags().BoolVar(&campgroundsJSON, "json", false, "output JSON")
	campgroundsCmd.Flags().BoolVar(&campgroundsYAML, "yaml", false, "output YAML")
	campgroundsCmd.MarkFlagsMutuallyExclusive("json", "yaml")
}

func runCampgrounds(cmd *cobra.Command, args []string) error {
	client := apiclient.New(v.GetString("daemon.socket"))

	if len(args) == 1 {
		var resp showCampgroundResp
		if err := client.GetJSON(cmd.Context(), "/api/campgrounds/"+url.PathEscape(args[0]), &resp); err != nil {
			if apiclient.IsNotFound(err) {
				return fmt.Errorf("campground %s is not tracked", args[0])
			}
			return err
		}
		if handled, err := printStructured(resp); handled {
			return err
		}
		return printCampgrounds([]campground.Snapshot{resp.Campground})
	}

	var resp listCampgroundsResp
	if err := client.GetJSON(cmd.Context(), "/api/campgrounds", &resp); err != nil {
		return err
	}
	if handled, err := printStructured(resp); handled {
		return err
	}

	fmt.Printf("Window: %s, %d night(s)\n\n", resp.StartDate, resp.NumDays)
	return printCampgrounds(resp.Campgrounds)
}

// printStructured writes JSON or YAML when requested
func printStructured(out any) (bool, error) {
	switch {
	case campgroundsJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return true, enc.Encode(out)
	case campgroundsYAML:
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		err := enc.Encode(out)
		return true, errors.Join(err, enc.Close())
	}
	return false, nil
}
