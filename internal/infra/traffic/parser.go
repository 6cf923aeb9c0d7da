package traffic

import (
	"github.com/paulmach/orb"

	"overlay/internal/domain/entity"
	"overlay/internal/infra/geo"
)

// ParseSegments turns raw features into typed road segments with WGS84
// geometry, dropping every record without a positive AADT or without
// geometry. Skipped records are expected and frequent; the count is
// returned for reporting, never raised as an error.
func ParseSegments(features []Feature) (segments []entity.RoadSegment, skipped int) {
	for _, feat := range features {
		if feat.Attributes.CurrentAADT == nil || *feat.Attributes.CurrentAADT <= 0 {
			skipped++

			continue
		}
		if feat.Geometry == nil || len(feat.Geometry.Paths) == 0 {
			skipped++

			continue
		}

		var points orb.LineString
		for _, path := range feat.Geometry.Paths {
			for _, xy := range path {
				points = append(points, geo.WebMercatorToWGS84(xy[0], xy[1]))
			}
		}
		if len(points) == 0 {
			skipped++

			continue
		}

		var lengthFeet float64
		if feat.Attributes.SegLengthFeet != nil {
			lengthFeet = *feat.Attributes.SegLengthFeet
		}

		segments = append(segments, entity.RoadSegment{
			ID:         feat.Attributes.ObjectID,
			RouteNo:    feat.Attributes.StateRouteNo.String(),
			AADT:       *feat.Attributes.CurrentAADT,
			TruckPct:   feat.Attributes.TruckPct,
			LengthFeet: lengthFeet,
			Points:     points,
		})
	}

	return segments, skipped
}
