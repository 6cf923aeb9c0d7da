package impl

import (
	"sort"

	"overlay/internal/domain/entity"
)

// aggregateResult reduces a route's matched segment set into one
// MatchResult. Pure function: an empty matched set degenerates into the
// all-zero/nil result, never an error.
func aggregateResult(routeID string, nRoutePoints int, matchRate float64, matched []entity.RoadSegment) *entity.MatchResult {
	result := &entity.MatchResult{
		RouteID:      routeID,
		NRoutePoints: nRoutePoints,
		MatchRate:    matchRate,
	}
	if len(matched) == 0 {
		return result
	}

	aadts := make([]float64, 0, len(matched))
	var totalLength, weightedSum float64
	maxAADT := 0
	for _, seg := range matched {
		aadts = append(aadts, float64(seg.AADT))
		totalLength += seg.LengthFeet
		weightedSum += float64(seg.AADT) * seg.LengthFeet
		if seg.AADT > maxAADT {
			maxAADT = seg.AADT
		}
	}

	// Length-weighted mean, falling back to the unweighted mean when every
	// matched segment reports zero length. Never divides by zero.
	var weightedAADT float64
	if totalLength > 0 {
		weightedAADT = weightedSum / totalLength
	} else {
		weightedAADT = mean(aadts)
	}

	sort.Float64s(aadts)

	result.NSegments = len(matched)
	result.TotalLengthFeet = totalLength
	result.WeightedAADT = weightedAADT
	result.MaxAADT = maxAADT
	result.MedianAADT = percentile(aadts, 50)
	result.P90AADT = percentile(aadts, 90)
	result.AvgTruckPct = weightedTruckPct(matched)

	return result
}

// weightedTruckPct length-weights truck percentages over only the segments
// that report one. Returns nil when none do: "no data" must not read as
// "no trucks".
func weightedTruckPct(matched []entity.RoadSegment) *float64 {
	var vals []float64
	var weightedSum, totalLength float64
	for _, seg := range matched {
		if seg.TruckPct == nil {
			continue
		}
		vals = append(vals, *seg.TruckPct)
		weightedSum += *seg.TruckPct * seg.LengthFeet
		totalLength += seg.LengthFeet
	}
	if len(vals) == 0 {
		return nil
	}

	var avg float64
	if totalLength > 0 {
		avg = weightedSum / totalLength
	} else {
		avg = mean(vals)
	}

	return &avg
}

// percentile computes the p-th percentile of sorted values with linear
// interpolation between ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100.0 * float64(len(sorted)-1)
	lower := int(rank)
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lower)

	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}

	var sum float64
	for _, v := range vals {
		sum += v
	}

	return sum / float64(len(vals))
}
