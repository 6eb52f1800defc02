package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gurisko/campwatch/internal/campground"
)

var (
	// ErrNoFacilities indicates neither identifier source produced anything to track
	ErrNoFacilities = errors.New("no facilities to track")
	// ErrCampgroundNotFound indicates the facility ID is not tracked
	ErrCampgroundNotFound = errors.New("campground not found")
)

// Registry is the working set of tracked campgrounds, indexed by facility ID.
// The polling loop is the only writer; readers (the status API) take the read lock.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*campground.Campground
}

// Build merges the user-provided and discovered facility sources into a
// registry. A nil slice means the source is absent.
//
// When both sources list the same facility ID the discovered entry wins: its
// name replaces the user-provided one at the user entry's position. Discovered
// facilities not named by the user follow in their original order. Repeated IDs
// within one source keep their first occurrence.
func Build(userProvided, discovered []campground.Facility) (*Registry, error) {
	if userProvided == nil && discovered == nil {
		return nil, fmt.Errorf("%w: both user-provided and discovered sources are absent", ErrNoFacilities)
	}

	r := &Registry{byID: make(map[string]*campground.Campground)}

	discoveredByID := make(map[string]campground.Facility, len(discovered))
	for _, f := range discovered {
		if _, ok := discoveredByID[f.ID]; !ok {
			discoveredByID[f.ID] = f
		}
	}

	for _, f := range userProvided {
		if d, ok := discoveredByID[f.ID]; ok {
			f = d
		}
		r.add(f)
	}
	for _, f := range discovered {
		r.add(f)
	}

	if len(r.order) == 0 {
		return nil, fmt.Errorf("%w: identifier sources are empty", ErrNoFacilities)
	}
	return r, nil
}

// add appends f unless its ID is already tracked
func (r *Registry) add(f campground.Facility) {
	if _, exists := r.byID[f.ID]; exists {
		return
	}
	r.byID[f.ID] = campground.New(f)
	r.order = append(r.order, f.ID)
}

// ParseIDs splits a comma-separated list of facility IDs into user-provided
// facilities. An empty argument yields nil (source absent).
func ParseIDs(arg string) []campground.Facility {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil
	}

	var out []campground.Facility
	for _, id := range strings.Split(arg, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, campground.Facility{Name: campground.UnknownName, ID: id})
	}
	return out
}

// Len returns the number of tracked campgrounds
func (r *Registry) Len() int {
	return len(r.order)
}

// List returns the tracked campgrounds in registry order. The campgrounds are
// the registry's own records.
func (r *Registry) List() *campground.List {
	l := campground.NewList()
	for _, id := range r.order {
		l.Append(r.byID[id])
	}
	return l
}

// MarkAvailable flips the campground to available. It reports whether the
// flag changed; an already available campground is left untouched.
func (r *Registry) MarkAvailable(facilityID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[facilityID]
	if !ok {
		return false, ErrCampgroundNotFound
	}
	if c.Available {
		return false, nil
	}
	c.Available = true
	c.ErrorCount = 0
	return true, nil
}

// RecordFailure increments the consecutive error count and returns it
func (r *Registry) RecordFailure(facilityID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[facilityID]
	if !ok {
		return 0, ErrCampgroundNotFound
	}
	c.ErrorCount++
	return c.ErrorCount, nil
}

// RecordSuccess resets the consecutive error count
func (r *Registry) RecordSuccess(facilityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[facilityID]
	if !ok {
		return ErrCampgroundNotFound
	}
	c.ErrorCount = 0
	return nil
}

// Get returns a snapshot of a single campground
func (r *Registry) Get(facilityID string) (campground.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[facilityID]
	if !ok {
		return campground.Snapshot{}, ErrCampgroundNotFound
	}
	return c.Snapshot(), nil
}

// Snapshot returns the state of every campground in registry order
func (r *Registry) Snapshot() []campground.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]campground.Snapshot, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Snapshot())
	}
	return out
}

// Counts returns the number of available and pending campgrounds
func (r *Registry) Counts() (available, pending int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.byID {
		if c.Available {
			available++
		} else {
			pending++
		}
	}
	return available, pending
}
