package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"fieldops-map-backend/config"
	"fieldops-map-backend/internal/dashboard"
	"fieldops-map-backend/internal/filter"
	"fieldops-map-backend/internal/logging"
	"fieldops-map-backend/internal/marker"
	"fieldops-map-backend/internal/normalize"
	"fieldops-map-backend/internal/render"
	"fieldops-map-backend/internal/snapshot"
	"fieldops-map-backend/internal/store"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Store      store.Store
	Live       dashboard.Source
	Snapshots  *snapshot.Cache
	Normalizer *normalize.Normalizer
	Filter     *filter.Engine
	Dashboard  config.DashboardConfig
	Webpush    *webpush.Options
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      store.Store
	live       dashboard.Source
	snapshots  *snapshot.Cache
	normalizer *normalize.Normalizer
	filter     *filter.Engine
	renderer   *render.Renderer
	dashboard  config.DashboardConfig
	display    marker.DisplayOptions
	webpush    *webpush.Options
	now        func() time.Time
	logger     zerolog.Logger
}

// NewHandler creates a new API handler. Map renders read through the snapshot
// cache; GET /api/airtable always goes to the live source.
func NewHandler(d Deps) *Handler {
	logger := logging.Component("api")
	return &Handler{
		store:      d.Store,
		live:       d.Live,
		snapshots:  d.Snapshots,
		normalizer: d.Normalizer,
		filter:     d.Filter,
		renderer: &render.Renderer{
			Source:     d.Snapshots,
			Normalizer: d.Normalizer,
			Filter:     d.Filter,
			Logger:     logger,
		},
		dashboard: d.Dashboard,
		display:   render.DisplayFrom(d.Dashboard.Display),
		webpush:   d.Webpush,
		now:       time.Now,
		logger:    logger,
	}
}
