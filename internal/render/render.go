// Package render runs one dashboard session against a headless map and
// returns the resulting scene. It backs both GET /api/map and the CLI.
package render

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"fieldops-map-backend/config"
	"fieldops-map-backend/internal/dashboard"
	"fieldops-map-backend/internal/filter"
	"fieldops-map-backend/internal/marker"
	"fieldops-map-backend/internal/normalize"
	"fieldops-map-backend/internal/scene"
)

// Request describes the filter selection and display toggles to render.
type Request struct {
	Filters map[dashboard.Dimension][]string
	Display marker.DisplayOptions
	// Open is the entity whose marker gets clicked after rendering.
	Open string
}

// Result is the rendered scene and the dashboard view that produced it.
type Result struct {
	View  dashboard.View `json:"view"`
	Scene scene.Scene    `json:"scene"`
}

// Renderer holds what every render shares.
type Renderer struct {
	Source     dashboard.Source
	Normalizer *normalize.Normalizer
	Filter     *filter.Engine
	Logger     zerolog.Logger
}

// dimensions in the order they are applied.
var dimensions = []dashboard.Dimension{dashboard.DimSteps, dashboard.DimPriorities, dashboard.DimTechnicians, dashboard.DimDays}

// Render refreshes once, applies req and returns the scene. A failed refresh
// is not an error: the view carries the message and the scene is empty.
func (r *Renderer) Render(ctx context.Context, req Request) (Result, error) {
	surface := scene.New()
	ctrl := dashboard.NewController(dashboard.Config{
		Source:     r.Source,
		Normalizer: r.Normalizer,
		Reconciler: marker.NewRebuild(surface, r.Filter),
		Filter:     r.Filter,
		Display:    req.Display,
		Logger:     r.Logger,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go ctrl.Run(runCtx)

	if _, err := ctrl.Refresh(ctx); err != nil {
		return Result{}, err
	}
	for _, dim := range dimensions {
		values, ok := req.Filters[dim]
		if !ok {
			continue
		}
		if _, err := ctrl.Dispatch(ctx, dashboard.SetFilter{Dimension: dim, Values: values}); err != nil {
			return Result{}, err
		}
	}

	view, err := ctrl.View(ctx)
	if err != nil {
		return Result{}, err
	}
	if req.Open != "" {
		m, ok := view.Find(req.Open)
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrNotShown, req.Open)
		}
		if err := surface.Trigger(m.Handle, marker.EventClick, marker.Pointer{}); err != nil {
			return Result{}, err
		}
	}

	return Result{View: view, Scene: surface.Snapshot()}, nil
}

// ErrNotShown is returned when Open names an entity without a marker.
var ErrNotShown = errors.New("entity has no marker on the map")

// ParamOpen names the entity to click after rendering.
const ParamOpen = "open"

// ParseQuery reads a Request from URL query values. Filter values may be
// repeated or comma separated; display toggles not present keep defaults.
func ParseQuery(q url.Values, defaults marker.DisplayOptions) (Request, error) {
	req := Request{Filters: map[dashboard.Dimension][]string{}, Display: defaults, Open: strings.TrimSpace(q.Get(ParamOpen))}

	for _, dim := range dimensions {
		raw, ok := q[string(dim)]
		if !ok {
			continue
		}
		req.Filters[dim] = SplitList(raw)
	}

	toggles := []struct {
		name dashboard.Option
		dst  *bool
	}{
		{dashboard.OptLabels, &req.Display.ShowLabels},
		{dashboard.OptUnselected, &req.Display.ShowUnselected},
		{dashboard.OptTechnicians, &req.Display.ShowTechnicians},
		{dashboard.OptAutoFit, &req.Display.AutoFit},
	}
	for _, t := range toggles {
		v := q.Get(string(t.name))
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Request{}, fmt.Errorf("invalid %s %q: %w", t.name, v, err)
		}
		*t.dst = b
	}
	return req, nil
}

// SplitList flattens comma separated values, trimming blanks.
func SplitList(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// DisplayFrom converts configured toggle defaults. An unset auto-fit is on.
func DisplayFrom(d config.DisplayDefault) marker.DisplayOptions {
	opts := marker.DisplayOptions{
		ShowLabels:      d.ShowLabels,
		ShowUnselected:  d.ShowUnselected,
		ShowTechnicians: d.ShowTechnicians,
		AutoFit:         true,
	}
	if d.AutoFit != nil {
		opts.AutoFit = *d.AutoFit
	}
	return opts
}
