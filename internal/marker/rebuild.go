package marker

import (
	"fieldops-map-backend/internal/filter"
	"fieldops-map-backend/internal/geo"
	"fieldops-map-backend/internal/model"
)

// Rebuild is the teardown-then-rebuild Reconciler.
type Rebuild struct {
	Surface Surface
	Filter  *filter.Engine
	Content Content
}

var _ Reconciler = (*Rebuild)(nil)

// NewRebuild returns a reconciler drawing on s.
func NewRebuild(s Surface, engine *filter.Engine) *Rebuild {
	return &Rebuild{Surface: s, Filter: engine, Content: Content{Location: engine.Location}}
}

// Reconcile detaches every previous marker, places the new set and, when
// auto-fit is on and the set is not empty, fits the viewport over it.
func (r *Rebuild) Reconcile(previous []*RenderedMarker, in Input) []*RenderedMarker {
	r.Teardown(previous)

	next := make([]*RenderedMarker, 0, len(in.WorkOrders)+len(in.Technicians))
	for _, wo := range in.WorkOrders {
		selected := r.Filter.Matches(wo, in.Criteria)
		if !selected && !in.Display.ShowUnselected {
			continue
		}
		next = append(next, r.placeWorkOrder(wo, selected, in.Display))
	}
	if in.Display.ShowTechnicians {
		for _, t := range in.Technicians {
			next = append(next, r.placeTechnician(t, in.Display))
		}
	}

	group := NewInfoGroup(r.Surface, next)
	for _, m := range next {
		r.listen(m, group, in.Display.ShowLabels)
	}

	if in.Display.AutoFit {
		Fit(r.Surface, next)
	}
	return next
}

// Teardown detaches markers and removes their tooltip nodes.
func (r *Rebuild) Teardown(markers []*RenderedMarker) {
	for _, m := range markers {
		r.Surface.Detach(m.Handle)
		r.Surface.RemoveTooltip(m.Handle)
	}
}

func (r *Rebuild) placeWorkOrder(wo model.WorkOrderLocation, selected bool, d DisplayOptions) *RenderedMarker {
	dimmed := d.ShowUnselected && !selected
	spec := Spec{
		Kind:     KindWorkOrder,
		EntityID: wo.ID,
		Position: geo.Point{Lat: wo.Latitude, Lng: wo.Longitude},
		Icon:     WorkOrderIcon(wo, dimmed),
	}
	if d.ShowLabels {
		spec.Label = WorkOrderLabel(wo)
	}

	m := &RenderedMarker{
		Spec:     spec,
		Selected: selected,
		Dimmed:   dimmed,
		Info:     r.Content.WorkOrderInfo(wo, spec.Icon.FillOpacity),
	}
	if !d.ShowLabels {
		m.Tooltip = &Tooltip{Content: r.Content.WorkOrderTooltip(wo, selected)}
	}
	m.Handle = r.Surface.Place(spec)
	if m.Tooltip != nil {
		r.Surface.SetTooltip(m.Handle, *m.Tooltip)
	}
	return m
}

func (r *Rebuild) placeTechnician(t model.TechnicianLocation, d DisplayOptions) *RenderedMarker {
	spec := Spec{
		Kind:     KindTechnician,
		EntityID: t.ID,
		Position: geo.Point{Lat: t.Latitude, Lng: t.Longitude},
		Icon:     TechnicianIcon(),
		Title:    t.Name,
	}
	m := &RenderedMarker{
		Spec:     spec,
		Selected: true,
		Info:     r.Content.TechnicianInfo(t),
	}
	if !d.ShowLabels {
		m.Tooltip = &Tooltip{Content: r.Content.TechnicianTooltip(t)}
	}
	m.Handle = r.Surface.Place(spec)
	if m.Tooltip != nil {
		r.Surface.SetTooltip(m.Handle, *m.Tooltip)
	}
	return m
}

func (r *Rebuild) listen(m *RenderedMarker, group *InfoGroup, showLabels bool) {
	if !showLabels && m.Tooltip != nil {
		r.Surface.Listen(m.Handle, EventMouseOver, func(p Pointer) {
			m.Tooltip.Visible = true
			m.Tooltip.X, m.Tooltip.Y = p.X+TooltipOffsetPx, p.Y+TooltipOffsetPx
			r.Surface.SetTooltip(m.Handle, *m.Tooltip)
		})
		r.Surface.Listen(m.Handle, EventMouseMove, func(p Pointer) {
			m.Tooltip.X, m.Tooltip.Y = p.X+TooltipOffsetPx, p.Y+TooltipOffsetPx
			r.Surface.SetTooltip(m.Handle, *m.Tooltip)
		})
		r.Surface.Listen(m.Handle, EventMouseOut, func(Pointer) {
			m.Tooltip.Visible = false
			r.Surface.SetTooltip(m.Handle, *m.Tooltip)
		})
	}
	r.Surface.Listen(m.Handle, EventClick, func(Pointer) {
		group.Open(m)
	})
}
