package entity

import "github.com/paulmach/orb"

// Route is one transit line's path, built from GTFS shape data and
// deduplicated to unique points at roughly one-meter precision.
// Routes are read-only once created.
type Route struct {
	ID     string
	Points orb.LineString // WGS84, orb order: (lon, lat)
}
