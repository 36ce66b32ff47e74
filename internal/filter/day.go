package filter

import (
	"strings"
	"time"

	"fieldops-map-backend/internal/model"
)

// Day selection values besides literal dates.
const (
	DayAll      = "All"
	DayNA       = "na"
	DayNotToday = "not_today"
)

// DayLayout is the literal day format, read in the engine's location.
const DayLayout = "2006-01-02"

// DayRule is one named predicate of the day dimension. Rules are evaluated in
// order and the first one that matches wins.
type DayRule struct {
	Name  string
	Match func(selected string, planned *time.Time, today time.Time) bool
}

// DayRules is the evaluation order: all, na, not_today, literal date.
var DayRules = []DayRule{
	{
		Name: "all",
		Match: func(selected string, _ *time.Time, _ time.Time) bool {
			return strings.EqualFold(selected, DayAll)
		},
	},
	{
		Name: "na",
		Match: func(selected string, planned *time.Time, _ time.Time) bool {
			return selected == DayNA && planned == nil
		},
	},
	{
		Name: "not_today",
		Match: func(selected string, planned *time.Time, today time.Time) bool {
			return selected == DayNotToday && (planned == nil || !sameDay(*planned, today))
		},
	},
	{
		Name: "literal",
		Match: func(selected string, planned *time.Time, today time.Time) bool {
			if planned == nil {
				return false
			}
			return planned.In(today.Location()).Format(DayLayout) == selected
		},
	},
}

// MatchDay evaluates the day rules in order, each against every selected value,
// and returns the name of the first rule that matched. The reported rule does not
// depend on the order of the selection. An empty selection matches as "all".
func (e *Engine) MatchDay(r model.WorkOrderLocation, days []string) (string, bool) {
	if len(days) == 0 {
		return "all", true
	}
	today := e.now()
	for _, rule := range DayRules {
		for _, selected := range days {
			if rule.Match(selected, r.PlannedDate, today) {
				return rule.Name, true
			}
		}
	}
	return "", false
}

// Today returns the literal day value for the engine's current date.
func (e *Engine) Today() string {
	return e.now().Format(DayLayout)
}

func sameDay(t, today time.Time) bool {
	t = t.In(today.Location())
	ty, tm, td := t.Date()
	y, m, d := today.Date()
	return ty == y && tm == m && td == d
}
