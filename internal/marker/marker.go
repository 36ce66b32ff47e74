// Package marker reconciles rendered map markers with the current data and
// filter selection.
//
// Reconciliation is deliberately non-incremental: every pass detaches all
// previous markers and builds the new set from scratch. At a few hundred
// markers this is fast enough and keeps listeners and tooltips consistent. A
// diffing strategy can be added behind the Reconciler interface.
package marker

import (
	"fieldops-map-backend/internal/filter"
	"fieldops-map-backend/internal/geo"
	"fieldops-map-backend/internal/model"
)

// Kind tells work-order markers from technician markers.
type Kind string

const (
	KindWorkOrder  Kind = "work_order"
	KindTechnician Kind = "technician"
)

// Spec is everything needed to place one marker.
type Spec struct {
	Kind     Kind      `json:"kind"`
	EntityID string    `json:"entityId"`
	Position geo.Point `json:"position"`
	Icon     Icon      `json:"icon"`
	Label    *Label    `json:"label,omitempty"`
	Title    string    `json:"title,omitempty"`
}

// Tooltip is the floating hover node of a marker.
type Tooltip struct {
	Content string  `json:"content"`
	Visible bool    `json:"visible"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// RenderedMarker binds one entity to a placed marker. It lives for exactly one
// reconciliation pass.
type RenderedMarker struct {
	Handle   Handle
	Spec     Spec
	Selected bool
	Dimmed   bool
	Tooltip  *Tooltip
	Info     string
}

// DisplayOptions are the map toggles.
type DisplayOptions struct {
	ShowLabels      bool `json:"showLabels"`
	ShowUnselected  bool `json:"showUnselected"`
	ShowTechnicians bool `json:"showTechnicians"`
	AutoFit         bool `json:"autoFit"`
}

// DefaultDisplayOptions returns the initial toggles: everything off except auto-fit.
func DefaultDisplayOptions() DisplayOptions {
	return DisplayOptions{AutoFit: true}
}

// Input is the data a reconciliation pass renders. WorkOrders must already be
// mappable and Technicians valid.
type Input struct {
	WorkOrders  []model.WorkOrderLocation
	Technicians []model.TechnicianLocation
	Criteria    filter.Criteria
	Display     DisplayOptions
}

// Reconciler replaces a previous marker set with one reflecting in.
type Reconciler interface {
	Reconcile(previous []*RenderedMarker, in Input) []*RenderedMarker
}

// Positions returns the coordinates of markers.
func Positions(markers []*RenderedMarker) []geo.Point {
	out := make([]geo.Point, 0, len(markers))
	for _, m := range markers {
		out = append(out, m.Spec.Position)
	}
	return out
}

// Fit moves the viewport of s over every marker. It does nothing for an empty set.
func Fit(s Surface, markers []*RenderedMarker) bool {
	if len(markers) == 0 {
		return false
	}
	s.FitBounds(geo.BoundsOf(Positions(markers)))
	return true
}
