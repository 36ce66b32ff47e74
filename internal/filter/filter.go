// Package filter implements the multi-criteria work-order filter.
//
// Every dimension is an allow-list: an empty dimension matches everything,
// values inside a dimension are OR'ed and dimensions are AND'ed together.
package filter

import (
	"slices"
	"time"

	"fieldops-map-backend/internal/model"
)

// Criteria is the current filter selection.
type Criteria struct {
	Steps       []model.Step     `json:"steps"`
	Priorities  []model.Priority `json:"priorities"`
	Technicians []string         `json:"technicians"`
	Days        []string         `json:"days"`
}

// IsZero reports whether no dimension restricts anything.
func (c Criteria) IsZero() bool {
	return len(c.Steps) == 0 && len(c.Priorities) == 0 && len(c.Technicians) == 0 && len(c.Days) == 0
}

// Clone returns a deep copy so callers can mutate the result freely.
func (c Criteria) Clone() Criteria {
	return Criteria{
		Steps:       slices.Clone(c.Steps),
		Priorities:  slices.Clone(c.Priorities),
		Technicians: slices.Clone(c.Technicians),
		Days:        slices.Clone(c.Days),
	}
}

// Engine evaluates criteria. Now and Location define "today"; both are
// injectable for tests.
type Engine struct {
	Now      func() time.Time
	Location *time.Location
}

// NewEngine returns an engine using the wall clock in loc.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{Now: time.Now, Location: loc}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().In(e.loc())
	}
	return e.Now().In(e.loc())
}

func (e *Engine) loc() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}

// Matches reports whether r satisfies every dimension of c.
func (e *Engine) Matches(r model.WorkOrderLocation, c Criteria) bool {
	if len(c.Steps) > 0 && !slices.Contains(c.Steps, r.Step) {
		return false
	}
	if len(c.Priorities) > 0 && !slices.Contains(c.Priorities, r.Priority) {
		return false
	}
	if len(c.Technicians) > 0 && !slices.Contains(c.Technicians, r.Technician) {
		return false
	}
	if len(c.Days) > 0 {
		if _, ok := e.MatchDay(r, c.Days); !ok {
			return false
		}
	}
	return true
}

// Apply returns the records matching c, in input order.
func (e *Engine) Apply(records []model.WorkOrderLocation, c Criteria) []model.WorkOrderLocation {
	out := make([]model.WorkOrderLocation, 0, len(records))
	for _, r := range records {
		if e.Matches(r, c) {
			out = append(out, r)
		}
	}
	return out
}

// Count returns how many records match c.
func (e *Engine) Count(records []model.WorkOrderLocation, c Criteria) int {
	n := 0
	for _, r := range records {
		if e.Matches(r, c) {
			n++
		}
	}
	return n
}
