package marker

import "fieldops-map-backend/internal/geo"

// Handle identifies a marker placed on a Surface.
type Handle string

// Event is a pointer interaction on a placed marker.
type Event string

const (
	EventMouseOver Event = "mouseover"
	EventMouseMove Event = "mousemove"
	EventMouseOut  Event = "mouseout"
	EventClick     Event = "click"
)

// Pointer is the screen position of a pointer event, in pixels.
type Pointer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Listener handles one marker event.
type Listener func(Pointer)

// Surface is the narrow view of a map widget the reconciler needs.
type Surface interface {
	// Place adds a marker and returns its handle.
	Place(spec Spec) Handle
	// Detach removes a marker together with its listeners and info panel.
	Detach(h Handle)
	// Listen registers fn for ev on h.
	Listen(h Handle, ev Event, fn Listener)
	// SetTooltip creates or updates the floating tooltip node of h.
	SetTooltip(h Handle, t Tooltip)
	// RemoveTooltip deletes the tooltip node of h, if any.
	RemoveTooltip(h Handle)
	// OpenInfo shows the info panel of h with the given HTML content.
	OpenInfo(h Handle, content string)
	// CloseInfo hides the info panel of h.
	CloseInfo(h Handle)
	// FitBounds moves the viewport so that b is fully visible.
	FitBounds(b geo.Bounds)
}
