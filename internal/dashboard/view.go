package dashboard

import (
	"fmt"
	"time"

	"fieldops-map-backend/internal/filter"
	"fieldops-map-backend/internal/marker"
	"fieldops-map-backend/internal/model"
)

// MarkerRef identifies a rendered marker.
type MarkerRef struct {
	Handle   marker.Handle `json:"handle"`
	Kind     marker.Kind   `json:"kind"`
	EntityID string        `json:"entityId"`
	Dimmed   bool          `json:"dimmed"`
}

// View is the read model handed to callers after each transition.
type View struct {
	Shown       int                        `json:"shown"`
	Total       int                        `json:"total"`
	Summary     string                     `json:"summary"`
	Unmappable  []model.WorkOrderLocation  `json:"unmappable"`
	Technicians []model.TechnicianLocation `json:"technicians"`
	Criteria    filter.Criteria            `json:"criteria"`
	Display     marker.DisplayOptions      `json:"display"`
	Markers     []MarkerRef                `json:"markers"`
	Loading     bool                       `json:"loading"`
	Error       string                     `json:"error,omitempty"`
	Seq         uint64                     `json:"seq"`
	FetchedAt   *time.Time                 `json:"fetchedAt,omitempty"`
}

// Summary renders the map caption.
func Summary(shown, total int) string {
	return fmt.Sprintf("Showing %d of %d work orders on map", shown, total)
}

func (c *Controller) view() View {
	s := c.state
	shown := c.filter.Count(s.WorkOrders, s.Criteria)
	v := View{
		Shown:       shown,
		Total:       len(s.WorkOrders),
		Summary:     Summary(shown, len(s.WorkOrders)),
		Unmappable:  append([]model.WorkOrderLocation{}, s.Unmappable...),
		Technicians: append([]model.TechnicianLocation{}, s.Technicians...),
		Criteria:    s.Criteria.Clone(),
		Display:     s.Display,
		Markers:     make([]MarkerRef, 0, len(c.markers)),
		Loading:     s.Loading,
		Error:       s.Err,
		Seq:         s.Applied,
	}
	if !s.FetchedAt.IsZero() {
		at := s.FetchedAt
		v.FetchedAt = &at
	}
	for _, m := range c.markers {
		v.Markers = append(v.Markers, MarkerRef{Handle: m.Handle, Kind: m.Spec.Kind, EntityID: m.Spec.EntityID, Dimmed: m.Dimmed})
	}
	return v
}

// Find returns the first marker showing entityID.
func (v View) Find(entityID string) (MarkerRef, bool) {
	for _, m := range v.Markers {
		if m.EntityID == entityID {
			return m, true
		}
	}
	return MarkerRef{}, false
}
