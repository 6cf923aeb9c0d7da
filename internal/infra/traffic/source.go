package traffic

import (
	"context"
	"log/slog"

	"overlay/internal/domain/entity"
	"overlay/internal/errors"
)

// Source is the cache-first segment provider the pipeline consumes:
// cached features are used when present, otherwise one full fetch is
// performed and stored before parsing.
type Source struct {
	client *Client
	cache  *Cache
	logger *slog.Logger
}

// NewSource wires a client and a cache into a segment source.
func NewSource(client *Client, cache *Cache, logger *slog.Logger) *Source {
	return &Source{client: client, cache: cache, logger: logger}
}

// Segments returns parsed road segments plus the count of skipped raw
// records. A fetch failure aborts the run; the error names the cache path
// where a manual download can be placed instead.
func (s *Source) Segments(ctx context.Context) ([]entity.RoadSegment, int, error) {
	features, err := s.features(ctx)
	if err != nil {
		return nil, 0, err
	}

	segments, skipped := ParseSegments(features)
	if len(segments) == 0 {
		return nil, skipped, errors.Errorf("no usable road segments in %d features", len(features))
	}

	return segments, skipped, nil
}

// EnsureCached populates the cache when empty, fetching from the API.
func (s *Source) EnsureCached(ctx context.Context) error {
	if _, err := s.cache.Load(); err == nil {
		s.logger.Info("traffic cache already populated", slog.String("path", s.cache.Path()))

		return nil
	} else if !errors.Is(err, ErrCacheMiss) {
		return err
	}

	_, err := s.fetchAndStore(ctx)

	return err
}

func (s *Source) features(ctx context.Context) ([]Feature, error) {
	features, err := s.cache.Load()
	if err == nil {
		s.logger.Info("loaded traffic features from cache",
			slog.String("path", s.cache.Path()),
			slog.Int("features", len(features)))

		return features, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return nil, err
	}

	return s.fetchAndStore(ctx)
}

func (s *Source) fetchAndStore(ctx context.Context) ([]Feature, error) {
	s.logger.Info("traffic cache empty, fetching from API")

	features, err := s.client.FetchFeatures(ctx)
	if err != nil {
		return nil, errors.Wrapf(err,
			"traffic fetch failed; download the dataset manually and place it at %s", s.cache.Path())
	}
	if len(features) == 0 {
		return nil, errors.Errorf(
			"traffic fetch returned no features; download the dataset manually and place it at %s", s.cache.Path())
	}

	if err := s.cache.Store(features); err != nil {
		return nil, err
	}
	s.logger.Info("cached traffic features",
		slog.String("path", s.cache.Path()),
		slog.Int("features", len(features)))

	return features, nil
}
