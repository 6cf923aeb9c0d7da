// Package geo holds the planar projection and polyline helpers the
// matching engine is built on. Everything here is a pure function of its
// inputs; coordinates follow the orb convention of (lon, lat).
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	// Spherical Web Mercator radius (EPSG:3857).
	earthRadiusMeters = 6378137.0

	// Approximate length of one degree of latitude.
	metersPerDegLat = 111320.0
)

// Projector converts WGS84 coordinates to local planar meters using an
// equirectangular approximation anchored at a reference latitude. The
// linear meters-per-degree assumption only holds for a city-scale study
// area; do not reuse a Projector across regions spanning more than a few
// hundred kilometers.
type Projector struct {
	metersPerDegLon float64
}

// NewProjector creates a projector anchored at the given reference
// latitude, typically the study area's approximate center.
func NewProjector(referenceLat float64) *Projector {
	return &Projector{
		metersPerDegLon: metersPerDegLat * math.Cos(referenceLat*math.Pi/180.0),
	}
}

// ToMeters converts a WGS84 point to local planar meters. Planar Euclidean
// distances between converted points approximate ground distance.
func (p *Projector) ToMeters(pt orb.Point) (x, y float64) {
	return pt[0] * p.metersPerDegLon, pt[1] * metersPerDegLat
}

// Distance returns the approximate ground distance in meters between two
// WGS84 points.
func (p *Projector) Distance(a, b orb.Point) float64 {
	ax, ay := p.ToMeters(a)
	bx, by := p.ToMeters(b)

	return math.Hypot(bx-ax, by-ay)
}

// WebMercatorToWGS84 converts EPSG:3857 coordinates to a WGS84 point via
// the standard spherical inverse projection.
func WebMercatorToWGS84(x, y float64) orb.Point {
	lon := (x / earthRadiusMeters) * 180.0 / math.Pi
	lat := (2.0*math.Atan(math.Exp(y/earthRadiusMeters)) - math.Pi/2.0) * 180.0 / math.Pi

	return orb.Point{lon, lat}
}
