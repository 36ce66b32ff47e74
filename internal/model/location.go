package model

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Sentinel values used when an upstream field is missing.
const (
	NotAvailable = "N/A"
	Unassigned   = "Unassigned"
)

// Step is the lifecycle status of a work order.
type Step string

const (
	StepDone               Step = "DONE"
	StepAwaitingValidation Step = "AWAITING VALIDATION"
	StepInProgress         Step = "IN PROGRESS"
	StepScheduled          Step = "SCHEDULED"
	StepUnderPlanning      Step = "UNDER PLANNING"
	StepNew                Step = "NEW"
)

// Steps lists the known steps in display order.
var Steps = []Step{StepDone, StepAwaitingValidation, StepInProgress, StepScheduled, StepUnderPlanning, StepNew}

// Known reports whether s is one of the six upstream steps.
func (s Step) Known() bool {
	for _, k := range Steps {
		if s == k {
			return true
		}
	}
	return false
}

// Priority is a work order's severity. The upstream scale mixes words and digits
// and is kept as-is.
type Priority string

const (
	PriorityUrgent Priority = "Urgent"
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
	Priority2      Priority = "2"
	Priority3      Priority = "3"
	Priority4      Priority = "4"
	PriorityAbsent Priority = "Absent"
)

// Priorities lists the known priorities in display order.
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow, Priority2, Priority3, Priority4, PriorityAbsent}

// Known reports whether p is one of the eight upstream priorities.
func (p Priority) Known() bool {
	for _, k := range Priorities {
		if p == k {
			return true
		}
	}
	return false
}

// Deadline is the signed "days to complete" counter. Known is false when the
// upstream value was absent or not numeric.
type Deadline struct {
	Days  float64
	Known bool
}

// DeadlineIn returns a known deadline of n days.
func DeadlineIn(n float64) Deadline { return Deadline{Days: n, Known: true} }

// Overdue reports whether the deadline has passed.
func (d Deadline) Overdue() bool { return d.Known && d.Days < 0 }

func (d Deadline) String() string {
	if !d.Known {
		return NotAvailable
	}
	return strconv.FormatFloat(d.Days, 'f', -1, 64)
}

// MarshalJSON renders a known deadline as a number and an unknown one as "N/A".
// A non-finite count is rendered as unknown.
func (d Deadline) MarshalJSON() ([]byte, error) {
	if !d.Known || math.IsNaN(d.Days) || math.IsInf(d.Days, 0) {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(d.Days)
}

// WorkOrderLocation is the canonical form of one field work order. Coordinates
// may be NaN or out of range; validity is checked by the geo package.
type WorkOrderLocation struct {
	ID                string
	WorkOrderID       string
	Step              Step
	Priority          Priority
	Asset             string
	Address           string
	PointCode         string
	StoreWorkingHours string
	Technician        string
	PlannedDate       *time.Time
	DaysToComplete    Deadline
	Latitude          float64
	Longitude         float64
}

type workOrderJSON struct {
	ID                string     `json:"id"`
	WorkOrderID       string     `json:"woId"`
	Step              Step       `json:"step"`
	Priority          Priority   `json:"priority"`
	Asset             string     `json:"asset"`
	Address           string     `json:"address"`
	PointCode         string     `json:"pointCode"`
	StoreWorkingHours string     `json:"storeWorkingHours"`
	Technician        string     `json:"technician"`
	PlannedDate       *time.Time `json:"plannedDate"`
	DaysToComplete    Deadline   `json:"daysToComplete"`
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
}

// MarshalJSON encodes non-finite coordinates as null.
func (w WorkOrderLocation) MarshalJSON() ([]byte, error) {
	return json.Marshal(workOrderJSON{
		ID:                w.ID,
		WorkOrderID:       w.WorkOrderID,
		Step:              w.Step,
		Priority:          w.Priority,
		Asset:             w.Asset,
		Address:           w.Address,
		PointCode:         w.PointCode,
		StoreWorkingHours: w.StoreWorkingHours,
		Technician:        w.Technician,
		PlannedDate:       w.PlannedDate,
		DaysToComplete:    w.DaysToComplete,
		Latitude:          finite(w.Latitude),
		Longitude:         finite(w.Longitude),
	})
}

// TechnicianLocation is the last reported position of a technician.
type TechnicianLocation struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Latitude          float64    `json:"latitude"`
	Longitude         float64    `json:"longitude"`
	LocationTimestamp *time.Time `json:"locationTimestamp"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
