package cmd

import (
	"context"
	"fmt"

	"github.com/gurisko/campwatch/internal/campground"
	"github.com/gurisko/campwatch/internal/config"
	"github.com/gurisko/campwatch/internal/logger"
	"github.com/gurisko/campwatch/internal/notifier"
	"github.com/gurisko/campwatch/internal/registry"
	"github.com/gurisko/campwatch/internal/ridb"
	"github.com/gurisko/campwatch/internal/scrape"
)

func newRIDBClient(cfg *config.Config) (*ridb.Client, error) {
	if cfg.Secrets.RIDBAPIKey == "" {
		return nil, fmt.Errorf("%w: CAMPWATCH_RIDB_API_KEY is required for --lat/--lon/--radius discovery", config.ErrInvalidConfig)
	}
	return ridb.NewClient(cfg.RIDB.BaseURL, cfg.Secrets.RIDBAPIKey,
		ridb.WithLimit(cfg.RIDB.Limit),
		ridb.WithLogger(logger.WithComponent("ridb")),
	), nil
}

// buildRegistry runs discovery when a geographic filter is set and merges
// the result with the explicit IDs.
func buildRegistry(ctx context.Context, cfg *config.Config) (*registry.Registry, error) {
	var discovered []campground.Facility
	if cfg.Geo != nil {
		client, err := newRIDBClient(cfg)
		if err != nil {
			return nil, err
		}
		discovered, err = client.Facilities(ctx, ridb.SearchParams{
			Latitude:    cfg.Geo.Latitude,
			Longitude:   cfg.Geo.Longitude,
			RadiusMiles: cfg.Geo.RadiusMiles,
		})
		if err != nil {
			return nil, fmt.Errorf("discover campgrounds: %w", err)
		}
	}

	reg, err := registry.Build(registry.ParseIDs(cfg.CampgroundIDs), discovered)
	if err != nil {
		return nil, err
	}
	log := logger.WithComponent("registry")
	for _, s := range reg.Snapshot() {
		log.Info().Str("facility_id", s.FacilityID).Str("name", s.Name).Msg("Tracking campground")
	}
	return reg, nil
}

// newChecker launches the browser. The caller owns the returned checker
// and must Close it.
func newChecker(cfg *config.Config) (*scrape.Checker, error) {
	session, err := scrape.NewBrowserSession(scrape.BrowserOptions{
		Headless:    cfg.Browser.Headless,
		PageTimeout: cfg.Browser.PageTimeout,
	}, logger.WithComponent("browser"))
	if err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return scrape.NewChecker(session, logger.WithComponent("scrape")), nil
}

func newEmailNotifier(cfg *config.Config) *notifier.EmailNotifier {
	smtpCfg := notifier.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.Secrets.SMTPUsername,
		Password: cfg.Secrets.SMTPPassword,
	}
	log := logger.WithComponent("notifier")
	if smtpCfg.Username == "" || smtpCfg.Password == "" {
		log.Warn().Msg("CAMPWATCH_SMTP_USERNAME or CAMPWATCH_SMTP_PASSWORD is unset; alerts will fail to send")
	}
	return notifier.NewEmailNotifier(notifier.Config{
		SMTP: smtpCfg,
		From: cfg.SMTPFrom(),
		To:   cfg.Email,
	}, notifier.NewSMTPTransport(smtpCfg), log)
}
