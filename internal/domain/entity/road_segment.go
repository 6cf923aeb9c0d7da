package entity

import "github.com/paulmach/orb"

// RoadSegment is one roadway segment carrying a traffic count, as parsed
// from the AADT source. Segments are created once per fetched page and
// never mutated; records without a positive AADT or without geometry are
// filtered out during parsing and never reach the index.
type RoadSegment struct {
	ID         int64
	RouteNo    string
	AADT       int
	TruckPct   *float64 // nil when the source reports no truck share
	LengthFeet float64
	Points     orb.LineString // WGS84, orb order: (lon, lat)
}
