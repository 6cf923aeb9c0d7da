package usecase

import (
	"context"

	"overlay/internal/domain/entity"
)

// SegmentSource supplies the parsed road segments one matching run
// consumes, along with the number of raw records skipped during parsing.
type SegmentSource interface {
	Segments(ctx context.Context) ([]entity.RoadSegment, int, error)
}

// RouteSource supplies the transit route polylines to match.
type RouteSource interface {
	Routes(ctx context.Context) ([]entity.Route, error)
}

// RouteDigest is one route's line in the run summary.
type RouteDigest struct {
	RouteID      string
	WeightedAADT float64
	MaxAADT      int
	NSegments    int
	MatchRate    float64
}

// Summary describes one completed matching run, with the quality signals
// a human needs to judge whether the buffer distance wants tuning.
type Summary struct {
	SegmentsParsed   int
	SegmentsSkipped  int
	Routes           int
	IndexedPoints    int
	FullyMatched     int
	PartiallyMatched int
	Unmatched        int

	// TopByWeightedAADT lists the busiest routes, highest first.
	TopByWeightedAADT []RouteDigest

	// LowestMatchRate lists matched routes with the weakest coverage,
	// lowest first.
	LowestMatchRate []RouteDigest

	// UnmatchedRoutes names every route with no adjacent traffic data.
	UnmatchedRoutes []string
}

// MatchingUsecase runs the full overlay pipeline: load segments and
// routes, spatially match them, aggregate per-route traffic summaries and
// persist the route_traffic dataset.
type MatchingUsecase interface {
	Run(ctx context.Context) (*Summary, error)
}
