package filter

import (
	"sort"
	"strings"
	"time"

	"fieldops-map-backend/internal/model"
)

// Option is one entry of a filter dropdown.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Color string `json:"color,omitempty"`
}

// DayOptions lists the day choices: the three sentinels, then today and the
// following six days with Sundays left out.
func (e *Engine) DayOptions() []Option {
	today := e.now()
	opts := []Option{
		{Label: "All", Value: DayAll},
		{Label: "N/A", Value: DayNA},
		{Label: "Not Today", Value: DayNotToday},
	}
	for i := 0; i <= 6; i++ {
		d := today.AddDate(0, 0, i)
		if d.Weekday() == time.Sunday {
			continue
		}
		label := d.Format("Monday, January 2")
		if i == 0 {
			label = "Today"
		}
		opts = append(opts, Option{Label: label, Value: d.Format(DayLayout)})
	}
	return opts
}

// TechnicianOptions merges the configured roster with the names present in the
// data. "Unassigned" is kept so unassigned work can be selected.
func TechnicianOptions(configured []string, records []model.WorkOrderLocation) []Option {
	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for _, n := range configured {
		add(n)
	}
	for _, r := range records {
		add(r.Technician)
	}
	sort.Strings(names)

	opts := make([]Option, 0, len(names))
	for _, n := range names {
		opts = append(opts, Option{Label: n, Value: n})
	}
	return opts
}
