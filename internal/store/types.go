package store

import "fieldops-map-backend/internal/model"

// Assignment is a work order that became assigned to a technician since the
// previous poll.
type Assignment struct {
	RecordID    string         `json:"recordId"`
	WorkOrderID string         `json:"woId"`
	Technician  string         `json:"technician"`
	Previous    string         `json:"previous,omitempty"`
	Step        model.Step     `json:"step"`
	Priority    model.Priority `json:"priority"`
}
