package impl

import (
	"math/rand"
	"testing"

	"overlay/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seg(aadt int, lengthFeet float64) entity.RoadSegment {
	return entity.RoadSegment{AADT: aadt, LengthFeet: lengthFeet}
}

func segWithTruck(aadt int, lengthFeet, truckPct float64) entity.RoadSegment {
	s := seg(aadt, lengthFeet)
	s.TruckPct = &truckPct

	return s
}

func TestAggregateResult_LengthWeightedAADT(t *testing.T) {
	matched := []entity.RoadSegment{
		seg(10000, 100),
		seg(30000, 300),
	}

	result := aggregateResult("61A", 50, 1.0, matched)

	// (10000*100 + 30000*300) / (100+300)
	assert.InDelta(t, 25000.0, result.WeightedAADT, 1e-9)
	assert.Equal(t, 2, result.NSegments)
	assert.InDelta(t, 400.0, result.TotalLengthFeet, 1e-9)
	assert.Equal(t, 30000, result.MaxAADT)
	assert.InDelta(t, 20000.0, result.MedianAADT, 1e-9)
	assert.InDelta(t, 28000.0, result.P90AADT, 1e-9)
}

func TestAggregateResult_ZeroLengthFallsBackToMean(t *testing.T) {
	matched := []entity.RoadSegment{
		seg(10000, 0),
		seg(30000, 0),
	}

	result := aggregateResult("61A", 50, 1.0, matched)
	assert.InDelta(t, 20000.0, result.WeightedAADT, 1e-9)
}

func TestAggregateResult_EmptyMatchedSet(t *testing.T) {
	result := aggregateResult("61A", 120, 0.0, nil)

	assert.Zero(t, result.NSegments)
	assert.Zero(t, result.WeightedAADT)
	assert.Zero(t, result.MaxAADT)
	assert.Zero(t, result.MedianAADT)
	assert.Zero(t, result.P90AADT)
	assert.Zero(t, result.TotalLengthFeet)
	assert.Nil(t, result.AvgTruckPct)
	assert.Equal(t, 120, result.NRoutePoints)
	assert.Zero(t, result.MatchRate)
}

func TestAggregateResult_WeightedAADTIsConvex(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 100; trial++ {
		n := 1 + rng.Intn(10)
		matched := make([]entity.RoadSegment, n)
		minAADT, maxAADT := int(^uint(0)>>1), 0
		for i := range matched {
			aadt := 1 + rng.Intn(50000)
			matched[i] = seg(aadt, rng.Float64()*1000)
			if aadt < minAADT {
				minAADT = aadt
			}
			if aadt > maxAADT {
				maxAADT = aadt
			}
		}

		result := aggregateResult("r", 1, 1.0, matched)
		assert.GreaterOrEqual(t, result.WeightedAADT, float64(minAADT))
		assert.LessOrEqual(t, result.WeightedAADT, float64(maxAADT))
	}
}

func TestAggregateResult_TruckPctSubsetOnly(t *testing.T) {
	matched := []entity.RoadSegment{
		segWithTruck(10000, 100, 4.0),
		seg(30000, 300), // no truck data, excluded from the truck average
		segWithTruck(20000, 300, 8.0),
	}

	result := aggregateResult("61A", 50, 1.0, matched)
	require.NotNil(t, result.AvgTruckPct)
	// (4*100 + 8*300) / (100+300)
	assert.InDelta(t, 7.0, *result.AvgTruckPct, 1e-9)
}

func TestAggregateResult_NoTruckDataIsNil(t *testing.T) {
	matched := []entity.RoadSegment{seg(10000, 100)}

	result := aggregateResult("61A", 50, 1.0, matched)
	assert.Nil(t, result.AvgTruckPct)
}

func TestAggregateResult_TruckPctZeroLengthFallback(t *testing.T) {
	matched := []entity.RoadSegment{
		segWithTruck(10000, 0, 4.0),
		segWithTruck(20000, 0, 8.0),
	}

	result := aggregateResult("61A", 50, 1.0, matched)
	require.NotNil(t, result.AvgTruckPct)
	assert.InDelta(t, 6.0, *result.AvgTruckPct, 1e-9)
}

func TestPercentile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}

	assert.InDelta(t, 25.0, percentile(sorted, 50), 1e-9)
	assert.InDelta(t, 37.0, percentile(sorted, 90), 1e-9)
	assert.InDelta(t, 10.0, percentile(sorted, 0), 1e-9)
	assert.InDelta(t, 40.0, percentile(sorted, 100), 1e-9)

	assert.InDelta(t, 5.0, percentile([]float64{5}, 90), 1e-9)
	assert.Zero(t, percentile(nil, 50))
}
