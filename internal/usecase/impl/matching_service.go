package impl

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"overlay/config"
	"overlay/internal/domain/entity"
	"overlay/internal/domain/repository"
	"overlay/internal/errors"
	"overlay/internal/infra/geo"
	"overlay/internal/infra/spatial"
	"overlay/internal/usecase"
)

// A route counts as fully matched above this rate; shape noise keeps
// real-world routes from hitting exactly 1.0.
const fullMatchThreshold = 0.999

const summaryDigestSize = 10

type matchingService struct {
	segments usecase.SegmentSource
	routes   usecase.RouteSource
	repo     repository.RouteTrafficRepository
	cfg      *config.Config
	logger   *slog.Logger
}

// NewMatchingService creates the matching pipeline service.
func NewMatchingService(
	segments usecase.SegmentSource,
	routes usecase.RouteSource,
	repo repository.RouteTrafficRepository,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.MatchingUsecase {
	return &matchingService{
		segments: segments,
		routes:   routes,
		repo:     repo,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run executes the full overlay pipeline and persists the route_traffic
// dataset.
func (s *matchingService) Run(ctx context.Context) (*usecase.Summary, error) {
	segments, skipped, err := s.segments.Segments(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("parsed road segments",
		slog.Int("segments", len(segments)),
		slog.Int("skipped", skipped))

	routes, err := s.routes.Routes(ctx)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		return nil, errors.New("no routes with shape data")
	}

	projector := geo.NewProjector(s.cfg.Matching.ReferenceLat)
	index, points := s.buildIndex(projector, segments)

	results, err := s.matchAll(ctx, projector, index, points, segments, routes)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Replace(ctx, results); err != nil {
		return nil, errors.Wrap(err, "persist route_traffic")
	}

	summary := buildSummary(results, len(segments), skipped, index.Size())
	s.logSummary(summary)

	return summary, nil
}

// buildIndex densifies every segment and indexes the planar points, each
// tagged with its originating segment's index. The point slice is returned
// alongside the index so query hits can be mapped back to segments.
func (s *matchingService) buildIndex(projector *geo.Projector, segments []entity.RoadSegment) (spatial.Index, []spatial.Point) {
	spacing := s.cfg.Matching.DensifySpacingMeters

	var points []spatial.Point
	for segIdx, seg := range segments {
		for _, pt := range projector.Densify(seg.Points, spacing) {
			x, y := projector.ToMeters(pt)
			points = append(points, spatial.Point{X: x, Y: y, SegmentIdx: segIdx})
		}
	}

	index := spatial.NewGridIndex(s.cfg.Matching.BufferMeters)
	index.Build(points)

	s.logger.Info("built spatial index",
		slog.Int("indexedPoints", len(points)),
		slog.Int("segments", len(segments)))

	return index, points
}

// matchAll matches every route against the index. Routes are independent
// and the index is read-only, so matching fans out across workers with no
// shared mutable state; each worker writes only its own result slot.
func (s *matchingService) matchAll(
	ctx context.Context,
	projector *geo.Projector,
	index spatial.Index,
	points []spatial.Point,
	segments []entity.RoadSegment,
	routes []entity.Route,
) ([]*entity.MatchResult, error) {
	results := make([]*entity.MatchResult, len(routes))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Matching.Workers)

	for i := range routes {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			route := &routes[i]
			if len(route.Points) == 0 {
				return errors.Errorf("route %s has no shape points", route.ID)
			}
			results[i] = s.matchRoute(projector, index, points, segments, route)

			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// matchRoute determines which road segments one route runs on. A route
// point hits when at least one indexed point lies within the buffer; the
// matched set is the union of segment identities over every returned
// point, since a route point near an intersection legitimately touches
// several roads at once.
func (s *matchingService) matchRoute(
	projector *geo.Projector,
	index spatial.Index,
	points []spatial.Point,
	segments []entity.RoadSegment,
	route *entity.Route,
) *entity.MatchResult {
	buffer := s.cfg.Matching.BufferMeters

	matchedSet := make(map[int]struct{})
	hits := 0
	for _, pt := range route.Points {
		x, y := projector.ToMeters(pt)
		nearby := index.Within(x, y, buffer)
		if len(nearby) == 0 {
			continue
		}

		hits++
		for _, idx := range nearby {
			matchedSet[points[idx].SegmentIdx] = struct{}{}
		}
	}

	matched := make([]entity.RoadSegment, 0, len(matchedSet))
	for segIdx := range matchedSet {
		matched = append(matched, segments[segIdx])
	}

	matchRate := float64(hits) / float64(len(route.Points))

	return aggregateResult(route.ID, len(route.Points), matchRate, matched)
}

func buildSummary(results []*entity.MatchResult, parsed, skipped, indexed int) *usecase.Summary {
	summary := &usecase.Summary{
		SegmentsParsed:  parsed,
		SegmentsSkipped: skipped,
		Routes:          len(results),
		IndexedPoints:   indexed,
	}

	var matched []*entity.MatchResult
	for _, result := range results {
		switch {
		case !result.Matched():
			summary.Unmatched++
			summary.UnmatchedRoutes = append(summary.UnmatchedRoutes, result.RouteID)
		case result.MatchRate >= fullMatchThreshold:
			summary.FullyMatched++
			matched = append(matched, result)
		default:
			summary.PartiallyMatched++
			matched = append(matched, result)
		}
	}
	sort.Strings(summary.UnmatchedRoutes)

	byAADT := make([]*entity.MatchResult, len(matched))
	copy(byAADT, matched)
	sort.Slice(byAADT, func(i, j int) bool { return byAADT[i].WeightedAADT > byAADT[j].WeightedAADT })
	summary.TopByWeightedAADT = digest(byAADT, summaryDigestSize)

	byRate := make([]*entity.MatchResult, len(matched))
	copy(byRate, matched)
	sort.Slice(byRate, func(i, j int) bool { return byRate[i].MatchRate < byRate[j].MatchRate })
	summary.LowestMatchRate = digest(byRate, summaryDigestSize)

	return summary
}

func digest(results []*entity.MatchResult, limit int) []usecase.RouteDigest {
	if len(results) < limit {
		limit = len(results)
	}

	digests := make([]usecase.RouteDigest, 0, limit)
	for _, result := range results[:limit] {
		digests = append(digests, usecase.RouteDigest{
			RouteID:      result.RouteID,
			WeightedAADT: result.WeightedAADT,
			MaxAADT:      result.MaxAADT,
			NSegments:    result.NSegments,
			MatchRate:    result.MatchRate,
		})
	}

	return digests
}

func (s *matchingService) logSummary(summary *usecase.Summary) {
	s.logger.Info("matching run complete",
		slog.Int("routes", summary.Routes),
		slog.Int("fullyMatched", summary.FullyMatched),
		slog.Int("partiallyMatched", summary.PartiallyMatched),
		slog.Int("unmatched", summary.Unmatched),
		slog.Int("segmentsParsed", summary.SegmentsParsed),
		slog.Int("segmentsSkipped", summary.SegmentsSkipped))

	for _, top := range summary.TopByWeightedAADT {
		s.logger.Info("top route by weighted AADT",
			slog.String("route", top.RouteID),
			slog.Float64("weightedAADT", top.WeightedAADT),
			slog.Int("maxAADT", top.MaxAADT),
			slog.Int("segments", top.NSegments),
			slog.Float64("matchRate", top.MatchRate))
	}
	for _, low := range summary.LowestMatchRate {
		s.logger.Info("route with low match rate",
			slog.String("route", low.RouteID),
			slog.Float64("matchRate", low.MatchRate),
			slog.Int("segments", low.NSegments))
	}
	if len(summary.UnmatchedRoutes) > 0 {
		s.logger.Warn("routes with no nearby traffic data",
			slog.Any("routes", summary.UnmatchedRoutes))
	}
}
