package config

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/gurisko/campwatch/internal/logger"
	"github.com/gurisko/campwatch/internal/paths"
	"github.com/spf13/viper"
)

// ErrInvalidConfig marks invalid or contradictory startup configuration.
// It is fatal before polling starts.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultInterval is the pause between polling cycles
const DefaultInterval = 300 * time.Second

// Accepted start date layouts; the first is the documented one.
var dateLayouts = []string{"01/02/2006", "2006-01-02"}

// Config is the complete runtime configuration
type Config struct {
	StartDate time.Time
	NumDays   int
	Email     string

	// Geo is nil unless latitude, longitude and radius were all supplied
	Geo *GeoFilter
	// CampgroundIDs is the raw comma-separated ID list, empty when absent
	CampgroundIDs string

	Interval               time.Duration
	MaxConsecutiveFailures int

	Browser BrowserConfig
	SMTP    SMTPConfig
	RIDB    RIDBConfig
	Daemon  DaemonConfig
	Log     logger.Config

	Secrets Secrets
}

// GeoFilter centers a facility search
type GeoFilter struct {
	Latitude    float64 `json:"latitude" yaml:"latitude"`
	Longitude   float64 `json:"longitude" yaml:"longitude"`
	RadiusMiles float64 `json:"radius_miles" yaml:"radius_miles"`
}

// BrowserConfig controls the scraping browser
type BrowserConfig struct {
	Headless    bool          `mapstructure:"headless" yaml:"headless"`
	PageTimeout time.Duration `mapstructure:"page_timeout" yaml:"page_timeout"`
}

// SMTPConfig holds non-secret mail settings
type SMTPConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	From string `mapstructure:"from" yaml:"from"`
}

// RIDBConfig holds facility discovery settings
type RIDBConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Limit   int    `mapstructure:"limit" yaml:"limit"`
}

// DaemonConfig holds the status socket and pidfile locations
type DaemonConfig struct {
	SocketPath string `mapstructure:"socket" yaml:"socket"`
	PIDFile    string `mapstructure:"pidfile" yaml:"pidfile"`
}

// settings mirrors the viper key space
type settings struct {
	StartDate              string        `mapstructure:"start_date"`
	NumDays                int           `mapstructure:"num_days"`
	Email                  string        `mapstructure:"email"`
	CampgroundIDs          string        `mapstructure:"campground_ids"`
	Interval               time.Duration `mapstructure:"interval"`
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures"`
	Browser                BrowserConfig `mapstructure:"browser"`
	SMTP                   SMTPConfig    `mapstructure:"smtp"`
	RIDB                   RIDBConfig    `mapstructure:"ridb"`
	Daemon                 DaemonConfig  `mapstructure:"daemon"`
	Log                    logger.Config `mapstructure:"log"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("max_consecutive_failures", 0)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.page_timeout", 60*time.Second)
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("ridb.base_url", "https://ridb.recreation.gov/api/v1/facilities")
	v.SetDefault("ridb.limit", 20)
	v.SetDefault("daemon.socket", paths.DefaultSocketPath())
	v.SetDefault("daemon.pidfile", paths.DefaultPIDPath())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load decodes v and the secret environment into a Config without
// validating it. Geographic keys have no defaults so that IsSet reports
// only what the operator supplied.
func Load(v *viper.Viper) (*Config, error) {
	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	secrets, err := LoadSecrets()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		NumDays:                s.NumDays,
		Email:                  strings.TrimSpace(s.Email),
		CampgroundIDs:          strings.TrimSpace(s.CampgroundIDs),
		Interval:               s.Interval,
		MaxConsecutiveFailures: s.MaxConsecutiveFailures,
		Browser:                s.Browser,
		SMTP:                   s.SMTP,
		RIDB:                   s.RIDB,
		Daemon:                 s.Daemon,
		Log:                    s.Log,
		Secrets:                secrets,
	}

	if s.StartDate != "" {
		start, err := ParseStartDate(s.StartDate)
		if err != nil {
			return nil, err
		}
		cfg.StartDate = start
	}

	geo, err := loadGeo(v)
	if err != nil {
		return nil, err
	}
	cfg.Geo = geo

	return cfg, nil
}

// loadGeo returns nil when no geographic key is set and an error when only
// some of them are.
func loadGeo(v *viper.Viper) (*GeoFilter, error) {
	keys := []string{"lat", "lon", "radius"}
	var set []string
	for _, k := range keys {
		if v.IsSet(k) {
			set = append(set, k)
		}
	}
	switch len(set) {
	case 0:
		return nil, nil
	case len(keys):
		return &GeoFilter{
			Latitude:    v.GetFloat64("lat"),
			Longitude:   v.GetFloat64("lon"),
			RadiusMiles: v.GetFloat64("radius"),
		}, nil
	default:
		return nil, fmt.Errorf("%w: --lat, --lon and --radius must be supplied together (got only %s)",
			ErrInvalidConfig, strings.Join(set, ", "))
	}
}

// ParseStartDate parses MM/DD/YYYY (or YYYY-MM-DD) as local midnight
func ParseStartDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: start date %q must be Month/Day/Year, e.g. 05/19/2021", ErrInvalidConfig, s)
}

// Validate checks everything the watcher needs before polling starts
func (c *Config) Validate() error {
	return c.validate(true)
}

// ValidateOneShot checks a single check run; the recipient is needed only
// when an alert will be sent.
func (c *Config) ValidateOneShot(notify bool) error {
	return c.validate(notify)
}

func (c *Config) validate(requireEmail bool) error {
	var errs []error

	if c.StartDate.IsZero() {
		errs = append(errs, errors.New("start date is required"))
	}
	if c.NumDays <= 0 {
		errs = append(errs, fmt.Errorf("number of days must be positive, got %d", c.NumDays))
	}
	if c.Email == "" {
		if requireEmail {
			errs = append(errs, errors.New("notification email is required"))
		}
	} else if _, err := mail.ParseAddress(c.Email); err != nil {
		errs = append(errs, fmt.Errorf("notification email %q is not an address: %v", c.Email, err))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	if c.MaxConsecutiveFailures < 0 {
		errs = append(errs, fmt.Errorf("max consecutive failures must be >= 0, got %d", c.MaxConsecutiveFailures))
	}
	if err := c.ValidateGeo(false); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// ValidateGeo checks the geographic filter's ranges. When required is
// true a missing filter is an error.
func (c *Config) ValidateGeo(required bool) error {
	if c.Geo == nil {
		if required {
			return fmt.Errorf("%w: --lat, --lon and --radius are required", ErrInvalidConfig)
		}
		return nil
	}
	g := c.Geo
	switch {
	case g.Latitude < -90 || g.Latitude > 90:
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidConfig, g.Latitude)
	case g.Longitude < -180 || g.Longitude > 180:
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidConfig, g.Longitude)
	case g.RadiusMiles <= 0:
		return fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidConfig, g.RadiusMiles)
	}
	return nil
}

// SMTPFrom returns the sender address, falling back to the SMTP username
func (c *Config) SMTPFrom() string {
	if c.SMTP.From != "" {
		return c.SMTP.From
	}
	return c.Secrets.SMTPUsername
}
