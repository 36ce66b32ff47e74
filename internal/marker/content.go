package marker

import (
	"bytes"
	"html/template"
	"time"

	"fieldops-map-backend/internal/model"
)

// DateLayout is how planned dates and position timestamps are shown.
const DateLayout = "January 2, 2006 at 3:04 PM"

const (
	deadlineOverdueColor = "#d10000"
	deadlineColor        = "#333"
)

var contentTemplates = template.Must(template.New("content").Parse(`
{{define "wo_tooltip"}}<div class="tooltip" style="opacity: {{.Opacity}};">
<p><b>WO ID:</b> {{.WO.WorkOrderID}}</p>
<p><b>Step:</b> {{.WO.Step}}</p>
<p><b>Point code:</b> {{.WO.PointCode}}</p>
<p><b>Intervention Deadline:</b> <span style="color: {{.DeadlineColor}};">{{.WO.DaysToComplete}} Days</span></p>
<p><b>Technician:</b> {{.WO.Technician}}</p>
<p><b>Planned Date:</b> {{.Planned}}</p>
<p><b>Store Opening Hours:</b> {{.WO.StoreWorkingHours}}</p>
</div>{{end}}
{{define "wo_info"}}<div class="info" style="opacity: {{.Opacity}};">
<h3>Work Order ID: <span>{{.WO.WorkOrderID}}</span></h3>
<p><strong>Asset:</strong> {{.WO.Asset}}</p>
<p><strong>Step:</strong> {{.WO.Step}}</p>
<p><strong>Address:</strong> {{.WO.Address}}</p>
<p><strong>Point Code:</strong> {{.WO.PointCode}}</p>
<p><strong>Priority:</strong> <span style="color: {{.PriorityColor}}; font-weight: bold;">{{.WO.Priority}}</span></p>
<p><strong>Technician:</strong> {{.WO.Technician}}</p>
<p><strong>Planned Date:</strong> {{.Planned}}</p>
<p><strong>Intervention Deadline:</strong> <span style="color: {{.DeadlineColor}};">{{.WO.DaysToComplete}} Days</span></p>
<p><strong>Store Working Hours:</strong> {{.WO.StoreWorkingHours}}</p>
</div>{{end}}
{{define "tech_tooltip"}}<div class="tooltip">
<p><b>Technician:</b> {{.Tech.Name}}</p>
<p><b>Email:</b> {{.Tech.Email}}</p>
<p><b>Last Update:</b> {{.Updated}}</p>
</div>{{end}}
{{define "tech_info"}}<div class="info">
<h3>Technician: <span>{{.Tech.Name}}</span></h3>
<p><strong>Email:</strong> {{.Tech.Email}}</p>
<p><strong>Last Updated:</strong> {{.Updated}}</p>
</div>{{end}}
`))

// Content renders tooltip and info-panel HTML. Times are shown in Location.
type Content struct {
	Location *time.Location
}

type workOrderView struct {
	WO            model.WorkOrderLocation
	Opacity       float64
	Planned       string
	DeadlineColor string
	PriorityColor string
}

type technicianView struct {
	Tech    model.TechnicianLocation
	Updated string
}

// WorkOrderTooltip is the hover content of a work order.
func (c Content) WorkOrderTooltip(wo model.WorkOrderLocation, selected bool) string {
	opacity := 0.95
	if !selected {
		opacity = 0.8
	}
	return c.render("wo_tooltip", c.workOrderView(wo, opacity))
}

// WorkOrderInfo is the click content of a work order.
func (c Content) WorkOrderInfo(wo model.WorkOrderLocation, opacity float64) string {
	return c.render("wo_info", c.workOrderView(wo, opacity))
}

// TechnicianTooltip is the hover content of a technician.
func (c Content) TechnicianTooltip(t model.TechnicianLocation) string {
	return c.render("tech_tooltip", technicianView{Tech: t, Updated: c.FormatTime(t.LocationTimestamp)})
}

// TechnicianInfo is the click content of a technician.
func (c Content) TechnicianInfo(t model.TechnicianLocation) string {
	return c.render("tech_info", technicianView{Tech: t, Updated: c.FormatTime(t.LocationTimestamp)})
}

// FormatTime renders t in the content location, or "N/A" when t is nil.
func (c Content) FormatTime(t *time.Time) string {
	if t == nil {
		return model.NotAvailable
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

func (c Content) workOrderView(wo model.WorkOrderLocation, opacity float64) workOrderView {
	deadline := deadlineColor
	if wo.DaysToComplete.Overdue() {
		deadline = deadlineOverdueColor
	}
	return workOrderView{
		WO:            wo,
		Opacity:       opacity,
		Planned:       c.FormatTime(wo.PlannedDate),
		DeadlineColor: deadline,
		PriorityColor: ColorFor(wo.Priority),
	}
}

func (c Content) render(name string, data any) string {
	var buf bytes.Buffer
	if err := contentTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return template.HTMLEscapeString(err.Error())
	}
	return buf.String()
}
