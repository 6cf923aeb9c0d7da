package entity

// MatchResult is the per-route traffic summary, the terminal output of a
// matching run. One result is produced per route and never mutated.
//
// Invariants: MatchRate is within [0, 1]; NSegments == 0 implies every
// aggregate field is zero and AvgTruckPct is nil. AvgTruckPct is nil
// whenever no matched segment reports truck data, so "no data" is never
// conflated with "no trucks".
type MatchResult struct {
	RouteID         string
	NSegments       int
	TotalLengthFeet float64
	WeightedAADT    float64
	MaxAADT         int
	MedianAADT      float64
	P90AADT         float64
	AvgTruckPct     *float64
	NRoutePoints    int
	MatchRate       float64
}

// Matched reports whether at least one road segment was judged adjacent
// to the route.
func (r *MatchResult) Matched() bool {
	return r.NSegments > 0
}
