package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gurisko/campwatch/internal/campground"
	"github.com/gurisko/campwatch/internal/registry"
	"github.com/rs/zerolog"
)

// ErrFailureCeiling is returned when one campground fails to scrape more
// times in a row than the configured bound allows.
var ErrFailureCeiling = errors.New("consecutive scrape failure ceiling reached")

// Checker reports whether a campground is bookable for the whole window
type Checker interface {
	Check(ctx context.Context, cg *campground.Campground, start time.Time, numDays int) (bool, error)
}

// Notifier receives each cycle's newly available campgrounds. Delivery
// failures are the notifier's to log; they never reach the poller.
type Notifier interface {
	Notify(ctx context.Context, batch *campground.List)
}

// StopReason says why the polling loop ended
type StopReason string

const (
	StopInterrupted     StopReason = "interrupted"
	StopStartDatePassed StopReason = "start_date_passed"
	StopFailureCeiling  StopReason = "failure_ceiling"
)

// PollerConfig is the date window and cadence of the polling loop
type PollerConfig struct {
	StartDate time.Time
	NumDays   int
	Interval  time.Duration
	// MaxConsecutiveFailures stops the loop once a campground fails this
	// many checks in a row. Zero retries forever.
	MaxConsecutiveFailures int
}

// Stats summarizes the loop's progress for the status API
type Stats struct {
	Cycles        int       `json:"cycles"`
	Notifications int       `json:"notifications"`
	LastCycleAt   time.Time `json:"last_cycle_at,omitzero"`
	NextCycleAt   time.Time `json:"next_cycle_at,omitzero"`
}

// Poller runs availability cycles over a registry. Cycles run one at a
// time and campgrounds are checked sequentially.
type Poller struct {
	registry *registry.Registry
	checker  Checker
	notifier Notifier
	cfg      PollerConfig
	log      zerolog.Logger
	now      func() time.Time

	mu    sync.Mutex
	stats Stats
}

// NewPoller creates a poller. The registry must already be built.
func NewPoller(reg *registry.Registry, checker Checker, notifier Notifier, cfg PollerConfig, log zerolog.Logger) *Poller {
	return &Poller{
		registry: reg,
		checker:  checker,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Stats returns a copy of the loop counters
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Config returns the poller's date window and cadence
func (p *Poller) Config() PollerConfig {
	return p.cfg
}

// StartDatePassed reports whether the first night of the window is
// already behind the current time.
func (p *Poller) StartDatePassed() bool {
	return p.cfg.StartDate.Before(p.now())
}

// Run drives cycles until the start date passes, ctx is cancelled or the
// failure ceiling is hit. The date is checked only between cycles.
func (p *Poller) Run(ctx context.Context) (StopReason, error) {
	for {
		if ctx.Err() != nil {
			return StopInterrupted, nil
		}
		if p.StartDatePassed() {
			return StopStartDatePassed, nil
		}

		if _, err := p.RunCycle(ctx); err != nil {
			return StopFailureCeiling, err
		}
		if ctx.Err() != nil {
			return StopInterrupted, nil
		}

		next := p.now().Add(p.cfg.Interval)
		p.mu.Lock()
		p.stats.NextCycleAt = next
		p.mu.Unlock()

		timer := time.NewTimer(p.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return StopInterrupted, nil
		case <-timer.C:
		}
	}
}

// RunCycle makes one pass over the registry and notifies once if anything
// became available. It returns the cycle's batch, which may be empty.
//
// A cancelled ctx stops the pass before the next check; the check already
// in flight runs to completion and its result is kept. Whatever was found
// up to that point is still notified.
func (p *Poller) RunCycle(ctx context.Context) (*campground.List, error) {
	batch := campground.NewList()
	var ceiling error

	for _, cg := range p.registry.List().Items() {
		if cg.Available {
			p.log.Info().
				Str("facility_id", cg.FacilityID).
				Str("name", cg.Name).
				Msg("Already found available, skipping")
			continue
		}
		if ctx.Err() != nil {
			p.log.Info().Msg("Interrupted, skipping remaining checks this cycle")
			break
		}

		available, err := p.checker.Check(context.WithoutCancel(ctx), cg, p.cfg.StartDate, p.cfg.NumDays)
		if err != nil {
			if cerr := p.recordFailure(cg, err); cerr != nil && ceiling == nil {
				ceiling = cerr
			}
			continue
		}
		if !available {
			_ = p.registry.RecordSuccess(cg.FacilityID)
			p.log.Info().
				Str("facility_id", cg.FacilityID).
				Str("name", cg.Name).
				Msgf("Not available, trying again in %s", p.cfg.Interval)
			continue
		}

		changed, err := p.registry.MarkAvailable(cg.FacilityID)
		if err != nil || !changed {
			continue
		}
		batch.Append(cg)
		p.log.Info().
			Str("facility_id", cg.FacilityID).
			Str("name", cg.Name).
			Str("url", cg.URL()).
			Msg("Campground is available")
	}

	p.mu.Lock()
	p.stats.Cycles++
	p.stats.LastCycleAt = p.now()
	if batch.Len() > 0 {
		p.stats.Notifications++
	}
	p.mu.Unlock()

	if batch.Len() > 0 {
		p.notifier.Notify(context.WithoutCancel(ctx), batch)
	}
	return batch, ceiling
}

// recordFailure counts a failed check as "not available this cycle" and
// returns ErrFailureCeiling once the campground exceeds the bound.
func (p *Poller) recordFailure(cg *campground.Campground, err error) error {
	count, rerr := p.registry.RecordFailure(cg.FacilityID)
	if rerr != nil {
		return nil
	}
	p.log.Warn().
		Err(err).
		Str("facility_id", cg.FacilityID).
		Str("name", cg.Name).
		Int("consecutive_failures", count).
		Msgf("Availability check failed, trying again in %s", p.cfg.Interval)

	if p.cfg.MaxConsecutiveFailures > 0 && count >= p.cfg.MaxConsecutiveFailures {
		return fmt.Errorf("%w: %s failed %d checks in a row", ErrFailureCeiling, cg.FacilityID, count)
	}
	return nil
}
