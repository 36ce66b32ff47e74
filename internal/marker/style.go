package marker

import "fieldops-map-backend/internal/model"

// ShapeCircle is the built-in circle symbol. Other shapes are SVG paths.
const ShapeCircle = "CIRCLE"

// Marker stroke and opacity values.
const (
	StrokeColor     = "#FFFFFF"
	StrokeWeight    = 1.0
	Opacity         = 0.9
	DimmedOpacity   = 0.6
	DimmedScale     = 0.7
	TooltipOffsetPx = 10.0
)

// Encoding used for steps and priorities outside the known sets.
const (
	FallbackShape = ShapeCircle
	FallbackColor = "#9E9E9E"
	FallbackScale = 8.0
)

// StepShapes maps each step to its marker symbol.
var StepShapes = map[model.Step]string{
	model.StepDone:               ShapeCircle,
	model.StepAwaitingValidation: "M -3,-4.5 L 3,-4.5 C 2.25,-3 0.75,-1.5 0,0 C 0.75,1.5 2.25,3 3,4.5 L -3,4.5 C -2.25,3 -0.75,1.5 0,0 C -0.75,-1.5 -2.25,-3 -3,-4.5",
	model.StepInProgress:         "M 0,-6 L 1.8,-1.8 L 6,-1.8 L 3,1.2 L 4.2,6 L 0,3 L -4.2,6 L -3,1.2 L -6,-1.8 L -1.8,-1.8 Z",
	model.StepScheduled:          "M 0,-4 L 4,0 L 0,4 L -4,0 Z",
	model.StepUnderPlanning:      "M 0,-4 4,4 -4,4 Z",
	model.StepNew:                "M 0,-4.5 L 4,-1.5 L 2.5,4 L -2.5,4 L -4,-1.5 Z",
}

// StepScales maps each step to its symbol scale.
var StepScales = map[model.Step]float64{
	model.StepDone:               10,
	model.StepAwaitingValidation: 3,
	model.StepInProgress:         2,
	model.StepScheduled:          3,
	model.StepUnderPlanning:      3,
	model.StepNew:                3,
}

// StepColors is the legend colour of each step.
var StepColors = map[model.Step]string{
	model.StepDone:               "#4caf50",
	model.StepAwaitingValidation: "#ff9800",
	model.StepInProgress:         "#2196f3",
	model.StepScheduled:          "#9c27b0",
	model.StepUnderPlanning:      "#795548",
	model.StepNew:                "#607d8b",
}

// PriorityColors is the marker fill of each priority.
var PriorityColors = map[model.Priority]string{
	model.PriorityUrgent: "#D10000",
	model.PriorityHigh:   "#FF2B2B",
	model.PriorityMedium: "#FFA500",
	model.PriorityLow:    "#008F44",
	model.Priority2:      "#CCCCCC",
	model.Priority3:      "#888888",
	model.Priority4:      "#444444",
	model.PriorityAbsent: "#8B008B",
}

// Technician marker symbol.
const (
	TechnicianPath    = "M12 12c2.21 0 4-1.79 4-4s-1.79-4-4-4-4 1.79-4 4 1.79 4 4 4zm0 2c-2.67 0-8 1.34-8 4v2h16v-2c0-2.66-5.33-4-8-4z"
	TechnicianColor   = "#000"
	TechnicianScale   = 1.5
	TechnicianAnchorX = 12.0
	TechnicianAnchorY = 12.0
)

// ShapeFor returns the symbol of step s.
func ShapeFor(s model.Step) string {
	if shape, ok := StepShapes[s]; ok {
		return shape
	}
	return FallbackShape
}

// ScaleFor returns the symbol scale of step s.
func ScaleFor(s model.Step) float64 {
	if scale, ok := StepScales[s]; ok {
		return scale
	}
	return FallbackScale
}

// ColorFor returns the fill colour of priority p.
func ColorFor(p model.Priority) string {
	if c, ok := PriorityColors[p]; ok {
		return c
	}
	return FallbackColor
}

// StepColor returns the legend colour of step s.
func StepColor(s model.Step) string {
	if c, ok := StepColors[s]; ok {
		return c
	}
	return FallbackColor
}

// Offset is a pixel offset inside an icon.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Icon is the symbol drawn for a marker.
type Icon struct {
	Path          string  `json:"path"`
	FillColor     string  `json:"fillColor"`
	FillOpacity   float64 `json:"fillOpacity"`
	StrokeColor   string  `json:"strokeColor"`
	StrokeWeight  float64 `json:"strokeWeight"`
	StrokeOpacity float64 `json:"strokeOpacity"`
	Scale         float64 `json:"scale"`
	Anchor        *Offset `json:"anchor,omitempty"`
}

// Label is the text drawn on top of a marker.
type Label struct {
	Text       string `json:"text"`
	Color      string `json:"color"`
	FontSize   string `json:"fontSize"`
	FontWeight string `json:"fontWeight"`
	ClassName  string `json:"className"`
}

// WorkOrderIcon encodes a work order. Dimmed markers are drawn fainter and smaller.
func WorkOrderIcon(wo model.WorkOrderLocation, dimmed bool) Icon {
	opacity, scale := Opacity, ScaleFor(wo.Step)
	if dimmed {
		opacity, scale = DimmedOpacity, scale*DimmedScale
	}
	return Icon{
		Path:          ShapeFor(wo.Step),
		FillColor:     ColorFor(wo.Priority),
		FillOpacity:   opacity,
		StrokeColor:   StrokeColor,
		StrokeWeight:  StrokeWeight,
		StrokeOpacity: opacity,
		Scale:         scale,
	}
}

// TechnicianIcon is the fixed person symbol.
func TechnicianIcon() Icon {
	return Icon{
		Path:          TechnicianPath,
		FillColor:     TechnicianColor,
		FillOpacity:   Opacity,
		StrokeColor:   StrokeColor,
		StrokeWeight:  StrokeWeight,
		StrokeOpacity: 1,
		Scale:         TechnicianScale,
		Anchor:        &Offset{X: TechnicianAnchorX, Y: TechnicianAnchorY},
	}
}

// WorkOrderLabel is the label showing the work-order id.
func WorkOrderLabel(wo model.WorkOrderLocation) *Label {
	return &Label{
		Text:       wo.WorkOrderID,
		Color:      "#FFFFFF",
		FontSize:   "14px",
		FontWeight: "bold",
		ClassName:  "custom-label",
	}
}
