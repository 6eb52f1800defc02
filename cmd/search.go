package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/gurisko/campwatch/internal/campground"
	"github.com/gurisko/campwatch/internal/ridb"
	"github.com/spf13/cobra"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find campgrounds near a point",
	Long: `Search the RIDB facility API for campgrounds within a radius and print
their facility IDs, which can be passed to --campground-ids.

Requires CAMPWATCH_RIDB_API_KEY.

Examples:
  campwatch search --lat 35.994431 --lon -121.394325 -r 20
  campwatch search --lat 35.994431 --lon -121.394325 -r 20 --json`,
	PreRunE: bindFlagsPreRun,
	RunE:    runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	addGeoFlags(searchCmd)
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateGeo(true); err != nil {
		return err
	}

	client, err := newRIDBClient(cfg)
	if err != nil {
		return err
	}
	facilities, err := client.Facilities(cmd.Context(), ridb.SearchParams{
		Latitude:    cfg.Geo.Latitude,
		Longitude:   cfg.Geo.Longitude,
		RadiusMiles: cfg.Geo.RadiusMiles,
	})
	if err != nil {
		return err
	}

	if searchJSON {
		if facilities == nil {
			facilities = []campground.Facility{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(facilities)
	}

	if len(facilities) == 0 {
		fmt.Println("No campgrounds found")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FACILITY\tNAME\tURL")
	for _, f := range facilities {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.ID, f.Name, campground.New(f).URL())
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nTotal: %d campground(s)\n", len(facilities))
	return nil
}
