package repository

import (
	"context"

	"overlay/internal/domain/entity"
	"overlay/internal/errors"
)

// ErrNoResults is returned when a replace is attempted with nothing to write.
var ErrNoResults = errors.New("no match results to persist")

// RouteTrafficRepository persists per-route traffic summaries. The table is
// rebuilt on every pipeline run, never incrementally updated.
type RouteTrafficRepository interface {
	// Replace drops the route_traffic table if present, recreates it and
	// writes one row per result.
	Replace(ctx context.Context, results []*entity.MatchResult) error

	// FindAll returns every persisted result ordered by route ID.
	FindAll(ctx context.Context) ([]*entity.MatchResult, error)
}
