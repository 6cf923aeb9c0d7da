package impl

import (
	"context"
	"log/slog"
	"testing"

	"overlay/config"
	"overlay/internal/domain/entity"
	"overlay/internal/errors"
	"overlay/internal/usecase"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSegmentSource struct {
	segments []entity.RoadSegment
	skipped  int
	err      error
}

func (s *stubSegmentSource) Segments(_ context.Context) ([]entity.RoadSegment, int, error) {
	return s.segments, s.skipped, s.err
}

type stubRouteSource struct {
	routes []entity.Route
	err    error
}

func (s *stubRouteSource) Routes(_ context.Context) ([]entity.Route, error) {
	return s.routes, s.err
}

type stubRepo struct {
	replaced []*entity.MatchResult
	err      error
}

func (r *stubRepo) Replace(_ context.Context, results []*entity.MatchResult) error {
	r.replaced = results

	return r.err
}

func (r *stubRepo) FindAll(_ context.Context) ([]*entity.MatchResult, error) {
	return r.replaced, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Matching.BufferMeters = 30.0
	cfg.Matching.DensifySpacingMeters = 15.0
	cfg.Matching.ReferenceLat = 0.0
	cfg.Matching.Workers = 2

	return cfg
}

// lonAt converts meters east of the origin to degrees of longitude at the
// equator, where one degree is 111320 m.
func lonAt(meters float64) float64 {
	return meters / 111320.0
}

func latAt(meters float64) float64 {
	return meters / 111320.0
}

func newService(segs *stubSegmentSource, routes *stubRouteSource, repo *stubRepo) usecase.MatchingUsecase {
	return NewMatchingService(segs, routes, repo, testConfig(), slog.New(slog.DiscardHandler))
}

func TestMatchingService_TwoSegmentsFullyMatched(t *testing.T) {
	// Two road segments laid end to end along the equator, a straight
	// route overlapping both.
	segs := &stubSegmentSource{
		segments: []entity.RoadSegment{
			{
				ID: 1, AADT: 10000, LengthFeet: 100,
				Points: orb.LineString{{0, 0}, {lonAt(100), 0}},
			},
			{
				ID: 2, AADT: 30000, LengthFeet: 300,
				Points: orb.LineString{{lonAt(100), 0}, {lonAt(400), 0}},
			},
		},
	}
	routes := &stubRouteSource{
		routes: []entity.Route{
			{ID: "61A", Points: orb.LineString{{lonAt(50), 0}, {lonAt(250), 0}}},
		},
	}
	repo := &stubRepo{}

	summary, err := newService(segs, routes, repo).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.replaced, 1)
	result := repo.replaced[0]
	assert.Equal(t, "61A", result.RouteID)
	assert.Equal(t, 2, result.NSegments)
	assert.InDelta(t, 1.0, result.MatchRate, 1e-9)
	// (10000*100 + 30000*300) / (100+300)
	assert.InDelta(t, 25000.0, result.WeightedAADT, 1e-9)
	assert.Equal(t, 30000, result.MaxAADT)

	assert.Equal(t, 1, summary.FullyMatched)
	assert.Zero(t, summary.Unmatched)
}

func TestMatchingService_FarRouteUnmatched(t *testing.T) {
	segs := &stubSegmentSource{
		segments: []entity.RoadSegment{
			{ID: 1, AADT: 10000, LengthFeet: 100, Points: orb.LineString{{0, 0}, {lonAt(100), 0}}},
		},
	}
	// Every route point 10 km from the segment, buffer is 30 m
	routes := &stubRouteSource{
		routes: []entity.Route{
			{ID: "FAR", Points: orb.LineString{{lonAt(10000), latAt(10000)}, {lonAt(10100), latAt(10000)}}},
		},
	}
	repo := &stubRepo{}

	summary, err := newService(segs, routes, repo).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.replaced, 1)
	result := repo.replaced[0]
	assert.Zero(t, result.NSegments)
	assert.Zero(t, result.MatchRate)
	assert.Zero(t, result.WeightedAADT)
	assert.Zero(t, result.MaxAADT)
	assert.Nil(t, result.AvgTruckPct)

	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, []string{"FAR"}, summary.UnmatchedRoutes)
}

func TestMatchingService_HalfMatchedRoute(t *testing.T) {
	segs := &stubSegmentSource{
		segments: []entity.RoadSegment{
			{ID: 1, AADT: 10000, LengthFeet: 100, Points: orb.LineString{{0, 0}, {lonAt(100), 0}}},
		},
	}
	// One point on the segment, one isolated 10 km away
	routes := &stubRouteSource{
		routes: []entity.Route{
			{ID: "HALF", Points: orb.LineString{{0, 0}, {lonAt(10000), latAt(10000)}}},
		},
	}
	repo := &stubRepo{}

	summary, err := newService(segs, routes, repo).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.replaced, 1)
	result := repo.replaced[0]
	assert.InDelta(t, 0.5, result.MatchRate, 1e-9)
	assert.GreaterOrEqual(t, result.NSegments, 1)

	assert.Equal(t, 1, summary.PartiallyMatched)
}

func TestMatchingService_MatchRateWithinBounds(t *testing.T) {
	segs := &stubSegmentSource{
		segments: []entity.RoadSegment{
			{ID: 1, AADT: 5000, LengthFeet: 50, Points: orb.LineString{{0, 0}, {lonAt(500), 0}}},
			{ID: 2, AADT: 9000, LengthFeet: 80, Points: orb.LineString{{0, latAt(200)}, {lonAt(500), latAt(200)}}},
		},
	}
	routes := &stubRouteSource{
		routes: []entity.Route{
			{ID: "A", Points: orb.LineString{{0, 0}, {lonAt(250), 0}, {lonAt(500), 0}}},
			{ID: "B", Points: orb.LineString{{0, latAt(100)}, {lonAt(250), latAt(100)}}},
			{ID: "C", Points: orb.LineString{{0, latAt(200)}, {lonAt(9999), latAt(9999)}}},
		},
	}
	repo := &stubRepo{}

	_, err := newService(segs, routes, repo).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.replaced, 3)
	for _, result := range repo.replaced {
		assert.GreaterOrEqual(t, result.MatchRate, 0.0)
		assert.LessOrEqual(t, result.MatchRate, 1.0)
		if result.NSegments == 0 {
			assert.Zero(t, result.WeightedAADT)
			assert.Zero(t, result.MaxAADT)
		}
	}
}

func TestMatchingService_IntersectionMatchesAllSegments(t *testing.T) {
	// Two segments crossing at the origin; a route point at the crossing
	// counts both, not just the nearest.
	segs := &stubSegmentSource{
		segments: []entity.RoadSegment{
			{ID: 1, AADT: 10000, LengthFeet: 100, Points: orb.LineString{{-lonAt(50), 0}, {lonAt(50), 0}}},
			{ID: 2, AADT: 20000, LengthFeet: 100, Points: orb.LineString{{0, -latAt(50)}, {0, latAt(50)}}},
		},
	}
	routes := &stubRouteSource{
		routes: []entity.Route{{ID: "X", Points: orb.LineString{{0, 0}}}},
	}
	repo := &stubRepo{}

	_, err := newService(segs, routes, repo).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.replaced, 1)
	assert.Equal(t, 2, repo.replaced[0].NSegments)
}

func TestMatchingService_SegmentSourceFailureAborts(t *testing.T) {
	segs := &stubSegmentSource{err: errors.New("fetch failed")}
	repo := &stubRepo{}

	_, err := newService(segs, &stubRouteSource{}, repo).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, repo.replaced)
}

func TestMatchingService_NoRoutesFails(t *testing.T) {
	segs := &stubSegmentSource{
		segments: []entity.RoadSegment{
			{ID: 1, AADT: 10000, LengthFeet: 100, Points: orb.LineString{{0, 0}}},
		},
	}

	_, err := newService(segs, &stubRouteSource{}, &stubRepo{}).Run(context.Background())
	require.Error(t, err)
}

func TestMatchingService_EmptyRouteRejected(t *testing.T) {
	segs := &stubSegmentSource{
		segments: []entity.RoadSegment{
			{ID: 1, AADT: 10000, LengthFeet: 100, Points: orb.LineString{{0, 0}}},
		},
	}
	routes := &stubRouteSource{
		routes: []entity.Route{{ID: "EMPTY"}},
	}

	_, err := newService(segs, routes, &stubRepo{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMPTY")
}

func TestBuildSummary_Digests(t *testing.T) {
	results := []*entity.MatchResult{
		{RouteID: "A", NSegments: 2, WeightedAADT: 30000, MatchRate: 1.0},
		{RouteID: "B", NSegments: 1, WeightedAADT: 10000, MatchRate: 0.4},
		{RouteID: "C", NRoutePoints: 5},
	}

	summary := buildSummary(results, 100, 7, 5000)

	assert.Equal(t, 1, summary.FullyMatched)
	assert.Equal(t, 1, summary.PartiallyMatched)
	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, []string{"C"}, summary.UnmatchedRoutes)

	require.NotEmpty(t, summary.TopByWeightedAADT)
	assert.Equal(t, "A", summary.TopByWeightedAADT[0].RouteID)
	require.NotEmpty(t, summary.LowestMatchRate)
	assert.Equal(t, "B", summary.LowestMatchRate[0].RouteID)

	assert.Equal(t, 100, summary.SegmentsParsed)
	assert.Equal(t, 7, summary.SegmentsSkipped)
	assert.Equal(t, 5000, summary.IndexedPoints)
}
