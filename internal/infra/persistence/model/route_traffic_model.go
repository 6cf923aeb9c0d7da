package model

// RouteTrafficModel is the GORM-specific struct for the 'route_traffic'
// table, the pipeline's single output dataset. avg_truck_pct is nullable:
// NULL means no matched segment reported truck data, which must stay
// distinguishable from 0.
type RouteTrafficModel struct {
	RouteID         string   `gorm:"column:route_id;primaryKey"`
	NSegments       int      `gorm:"column:n_segments;not null"`
	TotalLengthFeet float64  `gorm:"column:total_length_ft;not null"`
	WeightedAADT    float64  `gorm:"column:weighted_aadt;not null"`
	MaxAADT         int      `gorm:"column:max_aadt;not null"`
	MedianAADT      float64  `gorm:"column:median_aadt;not null"`
	P90AADT         float64  `gorm:"column:p90_aadt;not null"`
	AvgTruckPct     *float64 `gorm:"column:avg_truck_pct"`
	NRoutePoints    int      `gorm:"column:n_route_points;not null"`
	MatchRate       float64  `gorm:"column:match_rate;not null"`
}

// TableName explicitly sets the table name for GORM.
func (RouteTrafficModel) TableName() string {
	return "route_traffic"
}
