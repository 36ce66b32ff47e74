// Package dashboard owns the map state: data, filter selection, display
// toggles and the rendered marker set. Transitions are pure (Reduce); the
// Controller applies them one at a time and then reconciles the markers.
package dashboard

import (
	"slices"
	"strings"
	"time"

	"fieldops-map-backend/internal/filter"
	"fieldops-map-backend/internal/geo"
	"fieldops-map-backend/internal/marker"
	"fieldops-map-backend/internal/model"
)

// State is everything the map view is derived from.
type State struct {
	WorkOrders  []model.WorkOrderLocation
	Unmappable  []model.WorkOrderLocation
	Technicians []model.TechnicianLocation
	Criteria    filter.Criteria
	Display     marker.DisplayOptions
	Loading     bool
	Err         string
	// Applied is the sequence of the last refresh result taken into account;
	// Requested is the newest refresh started.
	Applied   uint64
	Requested uint64
	FetchedAt time.Time
}

// NewState returns an empty state with the given display toggles.
func NewState(display marker.DisplayOptions) State {
	return State{Display: display}
}

// Dimension names one filter dimension.
type Dimension string

const (
	DimSteps       Dimension = "steps"
	DimPriorities  Dimension = "priorities"
	DimTechnicians Dimension = "technicians"
	DimDays        Dimension = "days"
)

// Option names one display toggle.
type Option string

const (
	OptLabels      Option = "showLabels"
	OptUnselected  Option = "showUnselected"
	OptTechnicians Option = "showTechnicians"
	OptAutoFit     Option = "autoFit"
)

// Action is a named state transition.
type Action interface {
	actionName() string
}

// RefreshStarted marks the start of fetch Seq.
type RefreshStarted struct{ Seq uint64 }

// RefreshSucceeded carries the normalized result of fetch Seq.
type RefreshSucceeded struct {
	Seq         uint64
	WorkOrders  []model.WorkOrderLocation
	Technicians []model.TechnicianLocation
	At          time.Time
}

// RefreshFailed reports that fetch Seq failed.
type RefreshFailed struct {
	Seq uint64
	Err error
}

// SetFilter replaces the selection of one dimension.
type SetFilter struct {
	Dimension Dimension
	Values    []string
}

// SetCriteria replaces the whole selection.
type SetCriteria struct{ Criteria filter.Criteria }

// ResetFilters clears every dimension.
type ResetFilters struct{}

// ToggleOption flips one display toggle.
type ToggleOption struct{ Option Option }

// SetDisplay replaces every display toggle.
type SetDisplay struct{ Display marker.DisplayOptions }

func (RefreshStarted) actionName() string   { return "refresh_started" }
func (RefreshSucceeded) actionName() string { return "refresh_succeeded" }
func (RefreshFailed) actionName() string    { return "refresh_failed" }
func (SetFilter) actionName() string        { return "set_filter" }
func (SetCriteria) actionName() string      { return "set_criteria" }
func (ResetFilters) actionName() string     { return "reset_filters" }
func (ToggleOption) actionName() string     { return "toggle_option" }
func (SetDisplay) actionName() string       { return "set_display" }

// Reduce applies a to s. The boolean reports whether the marker set must be
// reconciled. Results of refreshes older than the last applied one are dropped.
func Reduce(s State, a Action) (State, bool) {
	switch a := a.(type) {
	case RefreshStarted:
		s.Loading = true
		s.Requested = max(s.Requested, a.Seq)
		return s, false

	case RefreshSucceeded:
		if a.Seq <= s.Applied {
			return s, false
		}
		s.WorkOrders, s.Unmappable = geo.Partition(a.WorkOrders)
		s.Technicians = geo.ValidTechnicians(a.Technicians)
		s.Err = ""
		s.FetchedAt = a.At
		s.Applied = a.Seq
		s.Loading = s.Applied < s.Requested
		return s, true

	case RefreshFailed:
		if a.Seq <= s.Applied {
			return s, false
		}
		s.WorkOrders = nil
		s.Unmappable = nil
		s.Technicians = nil
		if a.Err != nil {
			s.Err = a.Err.Error()
		}
		s.Applied = a.Seq
		s.Loading = s.Applied < s.Requested
		return s, true

	case SetFilter:
		s.Criteria = s.Criteria.Clone()
		switch a.Dimension {
		case DimSteps:
			s.Criteria.Steps = toSteps(withoutAll(a.Values))
		case DimPriorities:
			s.Criteria.Priorities = toPriorities(withoutAll(a.Values))
		case DimTechnicians:
			s.Criteria.Technicians = withoutAll(a.Values)
		case DimDays:
			s.Criteria.Days = slices.Clone(a.Values)
		default:
			return s, false
		}
		return s, true

	case SetCriteria:
		s.Criteria = a.Criteria.Clone()
		return s, true

	case ResetFilters:
		s.Criteria = filter.Criteria{}
		return s, true

	case ToggleOption:
		switch a.Option {
		case OptLabels:
			s.Display.ShowLabels = !s.Display.ShowLabels
		case OptUnselected:
			s.Display.ShowUnselected = !s.Display.ShowUnselected
		case OptTechnicians:
			s.Display.ShowTechnicians = !s.Display.ShowTechnicians
		case OptAutoFit:
			s.Display.AutoFit = !s.Display.AutoFit
		default:
			return s, false
		}
		return s, true

	case SetDisplay:
		s.Display = a.Display
		return s, true
	}
	return s, false
}

// withoutAll maps a selection containing the "All" sentinel to no restriction.
func withoutAll(values []string) []string {
	for _, v := range values {
		if strings.EqualFold(v, filter.DayAll) {
			return nil
		}
	}
	return slices.Clone(values)
}

func toSteps(values []string) []model.Step {
	if len(values) == 0 {
		return nil
	}
	out := make([]model.Step, 0, len(values))
	for _, v := range values {
		out = append(out, model.Step(v))
	}
	return out
}

func toPriorities(values []string) []model.Priority {
	if len(values) == 0 {
		return nil
	}
	out := make([]model.Priority, 0, len(values))
	for _, v := range values {
		out = append(out, model.Priority(v))
	}
	return out
}
