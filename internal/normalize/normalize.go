// Package normalize turns loosely-typed Airtable records into the canonical
// location model. It never fails: every defect maps to a documented default.
package normalize

import (
	"time"

	"github.com/rs/zerolog"

	"fieldops-map-backend/internal/model"
	"fieldops-map-backend/internal/parse"
)

// Upstream field names of the work-order table.
const (
	FieldWorkOrderID       = "WO_ID"
	FieldStep              = "Step"
	FieldPriority          = "Priority"
	FieldAsset             = "Import ID"
	FieldAddress           = "Address"
	FieldTechnicianName    = "Technician Name"
	FieldPlannedDate       = "Planned Date"
	FieldLatitude          = "Latitude"
	FieldLongitude         = "Longitude"
	FieldDaysToComplete    = "Days to complete"
	FieldStoreWorkingHours = "Store Working hours"
	FieldPointCode         = "Point Code"
)

// Upstream field names of the technician table.
const (
	FieldName         = "Name"
	FieldEmail        = "Email"
	FieldLocationDate = "Location date"
)

// Normalizer converts raw records. Location is used for zone-less dates.
type Normalizer struct {
	Location *time.Location
	Logger   zerolog.Logger
}

// New returns a Normalizer reading dates in loc.
func New(loc *time.Location, logger zerolog.Logger) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{Location: loc, Logger: logger}
}

// Normalize converts both tables. Output order follows input order.
func (n *Normalizer) Normalize(workOrders, technicians []model.RawRecord) ([]model.WorkOrderLocation, []model.TechnicianLocation) {
	wos := make([]model.WorkOrderLocation, 0, len(workOrders))
	for _, r := range workOrders {
		wos = append(wos, n.WorkOrder(r))
	}
	techs := make([]model.TechnicianLocation, 0, len(technicians))
	for _, r := range technicians {
		techs = append(techs, n.Technician(r))
	}
	return wos, techs
}

// WorkOrder converts a single work-order record.
func (n *Normalizer) WorkOrder(r model.RawRecord) model.WorkOrderLocation {
	f := r.Fields

	wo := model.WorkOrderLocation{
		ID:                r.ID,
		WorkOrderID:       parse.Text(f[FieldWorkOrderID]),
		Step:              model.Step(parse.First(f[FieldStep])),
		Priority:          model.Priority(parse.First(f[FieldPriority])),
		Asset:             parse.TextOr(f[FieldAsset], model.NotAvailable),
		Address:           parse.TextOr(f[FieldAddress], model.NotAvailable),
		PointCode:         parse.TextOr(f[FieldPointCode], model.NotAvailable),
		StoreWorkingHours: parse.TextOr(f[FieldStoreWorkingHours], model.NotAvailable),
		Technician:        technicianName(f[FieldTechnicianName]),
		PlannedDate:       parse.Date(f[FieldPlannedDate], n.Location),
		Latitude:          parse.Float(f[FieldLatitude]),
		Longitude:         parse.Float(f[FieldLongitude]),
	}
	if days, ok := parse.Number(f[FieldDaysToComplete]); ok {
		wo.DaysToComplete = model.DeadlineIn(days)
	}

	if wo.Step != "" && !wo.Step.Known() {
		n.Logger.Warn().Str("record", r.ID).Str("step", string(wo.Step)).Msg("unknown step; using fallback marker")
	}
	if wo.Priority != "" && !wo.Priority.Known() {
		n.Logger.Warn().Str("record", r.ID).Str("priority", string(wo.Priority)).Msg("unknown priority; using fallback colour")
	}
	return wo
}

// Technician converts a single technician record.
func (n *Normalizer) Technician(r model.RawRecord) model.TechnicianLocation {
	f := r.Fields
	return model.TechnicianLocation{
		ID:                r.ID,
		Name:              parse.TextOr(f[FieldName], model.NotAvailable),
		Email:             parse.TextOr(f[FieldEmail], model.NotAvailable),
		Latitude:          parse.Float(f[FieldLatitude]),
		Longitude:         parse.Float(f[FieldLongitude]),
		LocationTimestamp: parse.Date(f[FieldLocationDate], n.Location),
	}
}

func technicianName(v any) string {
	if name := parse.First(v); name != "" {
		return name
	}
	return model.Unassigned
}
