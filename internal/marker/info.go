package marker

// InfoGroup keeps at most one info panel open among a marker set.
type InfoGroup struct {
	surface Surface
	markers []*RenderedMarker
	open    Handle
}

// NewInfoGroup returns a group over markers.
func NewInfoGroup(s Surface, markers []*RenderedMarker) *InfoGroup {
	return &InfoGroup{surface: s, markers: markers}
}

// Open closes every panel of the group and opens the one of m.
func (g *InfoGroup) Open(m *RenderedMarker) {
	for _, other := range g.markers {
		g.surface.CloseInfo(other.Handle)
	}
	g.surface.OpenInfo(m.Handle, m.Info)
	g.open = m.Handle
}

// OpenHandle returns the handle whose panel is open, or "".
func (g *InfoGroup) OpenHandle() Handle { return g.open }
