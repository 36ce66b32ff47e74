package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldops-map-backend/internal/filter"
	"fieldops-map-backend/internal/geo"
	"fieldops-map-backend/internal/marker"
	"fieldops-map-backend/internal/model"
)

const errUpstream = "Failed to fetch data from Airtable"

// GetAirtable handles GET /api/airtable: a live, complete snapshot of both tables.
func (h *Handler) GetAirtable(c *gin.Context) {
	snap, err := h.live.Fetch(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("airtable fetch failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errUpstream})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// LocationCounts summarizes a partitioned snapshot.
type LocationCounts struct {
	Total       int `json:"total"`
	Mappable    int `json:"mappable"`
	Unmappable  int `json:"unmappable"`
	Technicians int `json:"technicians"`
}

// LocationsResponse is the normalized snapshot.
type LocationsResponse struct {
	WorkOrders  []model.WorkOrderLocation  `json:"workOrders"`
	Unmappable  []model.WorkOrderLocation  `json:"unmappable"`
	Technicians []model.TechnicianLocation `json:"technicians"`
	Counts      LocationCounts             `json:"counts"`
}

func (h *Handler) locations(c *gin.Context) (LocationsResponse, error) {
	snap, err := h.snapshots.Fetch(c.Request.Context())
	if err != nil {
		return LocationsResponse{}, err
	}
	wos, techs := h.normalizer.Normalize(snap.WorkOrders, snap.Technicians)
	mappable, unmappable := geo.Partition(wos)
	valid := geo.ValidTechnicians(techs)

	return LocationsResponse{
		WorkOrders:  nonNil(mappable),
		Unmappable:  nonNil(unmappable),
		Technicians: nonNil(valid),
		Counts: LocationCounts{
			Total:       len(wos),
			Mappable:    len(mappable),
			Unmappable:  len(unmappable),
			Technicians: len(valid),
		},
	}, nil
}

// GetLocations handles GET /api/locations.
func (h *Handler) GetLocations(c *gin.Context) {
	resp, err := h.locations(c)
	if err != nil {
		h.logger.Error().Err(err).Msg("snapshot fetch failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errUpstream})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// FiltersResponse lists the choices of every filter dropdown.
type FiltersResponse struct {
	Steps       []filter.Option `json:"steps"`
	Priorities  []filter.Option `json:"priorities"`
	Technicians []filter.Option `json:"technicians"`
	Days        []filter.Option `json:"days"`
}

// GetFilters handles GET /api/filters. Without data the technician list falls
// back to the configured roster.
func (h *Handler) GetFilters(c *gin.Context) {
	var wos []model.WorkOrderLocation
	if resp, err := h.locations(c); err != nil {
		h.logger.Warn().Err(err).Msg("filters built without upstream data")
	} else {
		wos = append(resp.WorkOrders, resp.Unmappable...)
	}

	steps := make([]filter.Option, 0, len(model.Steps))
	for _, s := range model.Steps {
		steps = append(steps, filter.Option{Label: string(s), Value: string(s), Color: marker.StepColor(s)})
	}
	priorities := make([]filter.Option, 0, len(model.Priorities))
	for _, p := range model.Priorities {
		priorities = append(priorities, filter.Option{Label: string(p), Value: string(p), Color: marker.ColorFor(p)})
	}

	c.JSON(http.StatusOK, FiltersResponse{
		Steps:       steps,
		Priorities:  priorities,
		Technicians: filter.TechnicianOptions(h.dashboard.TechnicianOptions, wos),
		Days:        h.filter.DayOptions(),
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
