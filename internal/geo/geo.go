// Package geo classifies coordinates and computes bounding boxes.
package geo

import (
	"math"

	"fieldops-map-backend/internal/model"
)

// ValidCoordinate reports whether lat/lng can be placed on a map.
// NaN and infinities never qualify.
func ValidCoordinate(lat, lng float64) bool {
	return !math.IsNaN(lat) && !math.IsNaN(lng) &&
		lat >= -90 && lat <= 90 &&
		lng >= -180 && lng <= 180
}

// Mappable reports whether a work order has a valid coordinate.
func Mappable(wo model.WorkOrderLocation) bool {
	return ValidCoordinate(wo.Latitude, wo.Longitude)
}

// Partition splits work orders into mappable and unmappable ones. Every input
// lands in exactly one output, in input order.
func Partition(records []model.WorkOrderLocation) (mappable, unmappable []model.WorkOrderLocation) {
	mappable = make([]model.WorkOrderLocation, 0, len(records))
	unmappable = make([]model.WorkOrderLocation, 0)
	for _, r := range records {
		if Mappable(r) {
			mappable = append(mappable, r)
		} else {
			unmappable = append(unmappable, r)
		}
	}
	return mappable, unmappable
}

// ValidTechnicians drops technicians without a usable position.
func ValidTechnicians(techs []model.TechnicianLocation) []model.TechnicianLocation {
	out := make([]model.TechnicianLocation, 0, len(techs))
	for _, t := range techs {
		if ValidCoordinate(t.Latitude, t.Longitude) {
			out = append(out, t)
		}
	}
	return out
}

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is a latitude/longitude box. The zero value is empty.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
	set   bool
}

// Extend grows b to include p.
func (b *Bounds) Extend(p Point) {
	if !b.set {
		*b = Bounds{South: p.Lat, North: p.Lat, West: p.Lng, East: p.Lng, set: true}
		return
	}
	b.South = math.Min(b.South, p.Lat)
	b.North = math.Max(b.North, p.Lat)
	b.West = math.Min(b.West, p.Lng)
	b.East = math.Max(b.East, p.Lng)
}

// Empty reports whether no point has been added.
func (b Bounds) Empty() bool { return !b.set }

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p Point) bool {
	return b.set &&
		p.Lat >= b.South && p.Lat <= b.North &&
		p.Lng >= b.West && p.Lng <= b.East
}

// Center returns the middle of b.
func (b Bounds) Center() Point {
	return Point{Lat: (b.South + b.North) / 2, Lng: (b.West + b.East) / 2}
}

// BoundsOf returns the smallest box containing every point.
func BoundsOf(points []Point) Bounds {
	var b Bounds
	for _, p := range points {
		b.Extend(p)
	}
	return b
}
