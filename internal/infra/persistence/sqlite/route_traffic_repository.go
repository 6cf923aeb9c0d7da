package sqlite

import (
	"context"

	"overlay/internal/domain/entity"
	"overlay/internal/domain/repository"
	"overlay/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// routeTrafficRepository implements repository.RouteTrafficRepository.
type routeTrafficRepository struct {
	db *gorm.DB
}

// NewRouteTrafficRepository is the constructor for routeTrafficRepository.
func NewRouteTrafficRepository(db *gorm.DB) repository.RouteTrafficRepository {
	return &routeTrafficRepository{
		db: db,
	}
}

// Replace rebuilds the route_traffic table from scratch with one row per
// result. The table is always dropped and recreated, never incrementally
// updated.
func (repo *routeTrafficRepository) Replace(ctx context.Context, results []*entity.MatchResult) error {
	if len(results) == 0 {
		return repository.ErrNoResults
	}

	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		migrator := tx.Migrator()
		if migrator.HasTable(&model.RouteTrafficModel{}) {
			if err := migrator.DropTable(&model.RouteTrafficModel{}); err != nil {
				return errors.Wrap(err, "drop route_traffic table")
			}
		}
		if err := migrator.CreateTable(&model.RouteTrafficModel{}); err != nil {
			return errors.Wrap(err, "create route_traffic table")
		}

		rows := make([]model.RouteTrafficModel, 0, len(results))
		for _, result := range results {
			rows = append(rows, fromResultDomain(result))
		}
		if err := tx.CreateInBatches(rows, 200).Error; err != nil {
			return errors.Wrap(err, "insert route_traffic rows")
		}

		return nil
	})
}

// FindAll retrieves every persisted result ordered by route ID.
func (repo *routeTrafficRepository) FindAll(ctx context.Context) ([]*entity.MatchResult, error) {
	var rows []model.RouteTrafficModel

	if err := repo.db.WithContext(ctx).
		Order("route_id").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "find route_traffic rows")
	}

	results := make([]*entity.MatchResult, 0, len(rows))
	for i := range rows {
		results = append(results, toResultDomain(&rows[i]))
	}

	return results, nil
}

func fromResultDomain(result *entity.MatchResult) model.RouteTrafficModel {
	return model.RouteTrafficModel{
		RouteID:         result.RouteID,
		NSegments:       result.NSegments,
		TotalLengthFeet: result.TotalLengthFeet,
		WeightedAADT:    result.WeightedAADT,
		MaxAADT:         result.MaxAADT,
		MedianAADT:      result.MedianAADT,
		P90AADT:         result.P90AADT,
		AvgTruckPct:     result.AvgTruckPct,
		NRoutePoints:    result.NRoutePoints,
		MatchRate:       result.MatchRate,
	}
}

func toResultDomain(row *model.RouteTrafficModel) *entity.MatchResult {
	return &entity.MatchResult{
		RouteID:         row.RouteID,
		NSegments:       row.NSegments,
		TotalLengthFeet: row.TotalLengthFeet,
		WeightedAADT:    row.WeightedAADT,
		MaxAADT:         row.MaxAADT,
		MedianAADT:      row.MedianAADT,
		P90AADT:         row.P90AADT,
		AvgTruckPct:     row.AvgTruckPct,
		NRoutePoints:    row.NRoutePoints,
		MatchRate:       row.MatchRate,
	}
}
