// Package scene is a headless marker.Surface. It records what a map widget
// would show so the map can be rendered as JSON and exercised in tests.
package scene

import (
	"errors"
	"math"
	"sync"

	"github.com/google/uuid"

	"fieldops-map-backend/internal/geo"
	"fieldops-map-backend/internal/marker"
)

// Default viewport of an unfitted map.
var (
	DefaultCenter = geo.Point{Lat: 46.2276, Lng: 2.2137}
	DefaultZoom   = 6
)

const maxZoom = 18

// ErrDetached is returned when an event targets a marker no longer on the map.
var ErrDetached = errors.New("marker is not attached")

// Viewport is the visible part of the map.
type Viewport struct {
	Center geo.Point   `json:"center"`
	Zoom   int         `json:"zoom"`
	Bounds *geo.Bounds `json:"bounds,omitempty"`
}

// Contains reports whether p is inside the fitted bounds.
func (v Viewport) Contains(p geo.Point) bool {
	return v.Bounds != nil && v.Bounds.Contains(p)
}

// Marker is one placed marker as seen in a snapshot.
type Marker struct {
	Handle  marker.Handle   `json:"handle"`
	Spec    marker.Spec     `json:"spec"`
	Tooltip *marker.Tooltip `json:"tooltip,omitempty"`
	Events  []marker.Event  `json:"events"`
}

// InfoPanel is the content of an open info panel.
type InfoPanel struct {
	Handle  marker.Handle `json:"handle"`
	Content string        `json:"content"`
}

// Scene is a point-in-time view of the map.
type Scene struct {
	Markers  []Marker    `json:"markers"`
	Info     []InfoPanel `json:"info"`
	Viewport Viewport    `json:"viewport"`
}

// Map implements marker.Surface in memory. It is safe for concurrent use.
type Map struct {
	mu        sync.Mutex
	order     []marker.Handle
	specs     map[marker.Handle]marker.Spec
	listeners map[marker.Handle]map[marker.Event][]marker.Listener
	tooltips  map[marker.Handle]marker.Tooltip
	info      map[marker.Handle]string
	viewport  Viewport
	fits      int
}

var _ marker.Surface = (*Map)(nil)

// New returns an empty map at the default viewport.
func New() *Map {
	return &Map{
		specs:     make(map[marker.Handle]marker.Spec),
		listeners: make(map[marker.Handle]map[marker.Event][]marker.Listener),
		tooltips:  make(map[marker.Handle]marker.Tooltip),
		info:      make(map[marker.Handle]string),
		viewport:  Viewport{Center: DefaultCenter, Zoom: DefaultZoom},
	}
}

func (m *Map) Place(spec marker.Spec) marker.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := marker.Handle(uuid.NewString())
	m.order = append(m.order, h)
	m.specs[h] = spec
	return h
}

func (m *Map) Detach(h marker.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.specs[h]; !ok {
		return
	}
	delete(m.specs, h)
	delete(m.listeners, h)
	delete(m.info, h)
	for i, o := range m.order {
		if o == h {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Map) Listen(h marker.Handle, ev marker.Event, fn marker.Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.specs[h]; !ok {
		return
	}
	if m.listeners[h] == nil {
		m.listeners[h] = make(map[marker.Event][]marker.Listener)
	}
	m.listeners[h][ev] = append(m.listeners[h][ev], fn)
}

func (m *Map) SetTooltip(h marker.Handle, t marker.Tooltip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tooltips[h] = t
}

func (m *Map) RemoveTooltip(h marker.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tooltips, h)
}

func (m *Map) OpenInfo(h marker.Handle, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.specs[h]; !ok {
		return
	}
	m.info[h] = content
}

func (m *Map) CloseInfo(h marker.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.info, h)
}

func (m *Map) FitBounds(b geo.Bounds) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.Empty() {
		return
	}
	m.viewport = Viewport{Center: b.Center(), Zoom: fitZoom(b), Bounds: &b}
	m.fits++
}

// Trigger fires ev on h as a pointer at p would.
func (m *Map) Trigger(h marker.Handle, ev marker.Event, p marker.Pointer) error {
	m.mu.Lock()
	if _, ok := m.specs[h]; !ok {
		m.mu.Unlock()
		return ErrDetached
	}
	fns := append([]marker.Listener(nil), m.listeners[h][ev]...)
	m.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
	return nil
}

// Attached reports whether h is currently on the map.
func (m *Map) Attached(h marker.Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.specs[h]
	return ok
}

// Tooltip returns the tooltip node of h.
func (m *Map) Tooltip(h marker.Handle) (marker.Tooltip, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tooltips[h]
	return t, ok
}

// TooltipCount returns how many tooltip nodes exist.
func (m *Map) TooltipCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tooltips)
}

// OpenInfoHandles lists markers whose info panel is open.
func (m *Map) OpenInfoHandles() []marker.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []marker.Handle
	for _, h := range m.order {
		if _, ok := m.info[h]; ok {
			out = append(out, h)
		}
	}
	return out
}

// Viewport returns the current viewport.
func (m *Map) Viewport() Viewport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewport
}

// FitCount returns how many times the viewport was fitted.
func (m *Map) FitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fits
}

// Len returns the number of attached markers.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// Snapshot returns the current scene in placement order.
func (m *Map) Snapshot() Scene {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Scene{
		Markers:  make([]Marker, 0, len(m.order)),
		Info:     make([]InfoPanel, 0, len(m.info)),
		Viewport: m.viewport,
	}
	for _, h := range m.order {
		mk := Marker{Handle: h, Spec: m.specs[h], Events: make([]marker.Event, 0, 4)}
		if t, ok := m.tooltips[h]; ok {
			mk.Tooltip = &t
		}
		for _, ev := range []marker.Event{marker.EventMouseOver, marker.EventMouseMove, marker.EventMouseOut, marker.EventClick} {
			if len(m.listeners[h][ev]) > 0 {
				mk.Events = append(mk.Events, ev)
			}
		}
		s.Markers = append(s.Markers, mk)
		if content, ok := m.info[h]; ok {
			s.Info = append(s.Info, InfoPanel{Handle: h, Content: content})
		}
	}
	return s
}

// fitZoom approximates the zoom level at which b fits a 256px world tile.
func fitZoom(b geo.Bounds) int {
	span := math.Max(b.North-b.South, b.East-b.West)
	if span <= 0 {
		return maxZoom
	}
	z := int(math.Floor(math.Log2(360 / span)))
	return max(0, min(z, maxZoom))
}
