package campground

import (
	"encoding/json"
	"fmt"
)

// BaseURL is the availability page prefix on recreation.gov.
const BaseURL = "https://www.recreation.gov/camping/campgrounds"

// UnknownName is the display name given to facilities the user supplied by ID only.
const UnknownName = "Name Unknown (User Provided)"

// Facility is a (name, id) pair as produced by an identifier source.
type Facility struct {
	Name string `json:"name" yaml:"name"`
	ID   string `json:"facility_id" yaml:"facility_id"`
}

// Campground is one tracked facility.
type Campground struct {
	Name       string
	FacilityID string

	// Available flips false -> true once and never back.
	Available bool

	// ErrorCount is the number of consecutive failed checks.
	ErrorCount int
}

// New creates a campground that has not been seen available yet.
func New(f Facility) *Campground {
	return &Campground{Name: f.Name, FacilityID: f.ID}
}

// URL returns the availability page locator for this campground.
func (c *Campground) URL() string {
	return fmt.Sprintf("%s/%s/availability", BaseURL, c.FacilityID)
}

// Snapshot is the serialized form of a Campground.
type Snapshot struct {
	Name       string `json:"name" yaml:"name"`
	FacilityID string `json:"facility_id" yaml:"facility_id"`
	Available  bool   `json:"available" yaml:"available"`
	ErrorCount int    `json:"error_count,omitempty" yaml:"error_count,omitempty"`
	URL        string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Snapshot returns a copy of the campground's current state.
func (c *Campground) Snapshot() Snapshot {
	return Snapshot{
		Name:       c.Name,
		FacilityID: c.FacilityID,
		Available:  c.Available,
		ErrorCount: c.ErrorCount,
		URL:        c.URL(),
	}
}

// List is an ordered collection of campgrounds.
type List struct {
	items []*Campground
}

// NewList returns a list holding cs in order.
func NewList(cs ...*Campground) *List {
	l := &List{}
	for _, c := range cs {
		l.Append(c)
	}
	return l
}

// Append adds c to the end of the list.
func (l *List) Append(c *Campground) {
	l.items = append(l.items, c)
}

// Len returns the number of campgrounds in the list.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Items returns the campgrounds in order. The slice is a copy; the
// campgrounds are shared.
func (l *List) Items() []*Campground {
	if l == nil {
		return nil
	}
	out := make([]*Campground, len(l.items))
	copy(out, l.items)
	return out
}

// Serialize returns the list as name/facility_id/available records.
func (l *List) Serialize() []Snapshot {
	out := make([]Snapshot, 0, l.Len())
	for _, c := range l.Items() {
		s := c.Snapshot()
		out = append(out, Snapshot{Name: s.Name, FacilityID: s.FacilityID, Available: s.Available})
	}
	return out
}

// MarshalJSON encodes the list in its serialized form.
func (l *List) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Serialize())
}

// IndentedJSON is the serialized form indented for logs and email bodies.
func (l *List) IndentedJSON(indent string) (string, error) {
	b, err := json.MarshalIndent(l.Serialize(), "", indent)
	if err != nil {
		return "", fmt.Errorf("failed to serialize campgrounds: %w", err)
	}
	return string(b), nil
}
