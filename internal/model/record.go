package model

// RawRecord is one row as returned by the upstream table API: an opaque record
// id plus a loosely-typed field map.
type RawRecord struct {
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime string         `json:"createdTime,omitempty"`
}

// RawSnapshot is the complete content of both upstream tables at one point in time.
type RawSnapshot struct {
	WorkOrders  []RawRecord `json:"workOrders"`
	Technicians []RawRecord `json:"technicians"`
}
