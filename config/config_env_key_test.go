package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeEnvKey(t *testing.T) {
	existing := map[string]any{
		"traffic": map[string]any{
			"pageSize":  1000,
			"cacheDir":  "data/traffic",
			"outFields": "",
		},
		"matching": map[string]any{
			"bufferMeters": 30.0,
		},
	}

	// Env segments align with existing camelCase YAML keys
	assert.Equal(t, "traffic.pagesize", canonicalizeEnvKey("TRAFFIC_PAGESIZE", nil))
	assert.Equal(t, "traffic.pageSize", canonicalizeEnvKey("TRAFFIC_PAGESIZE", existing))
	assert.Equal(t, "traffic.cacheDir", canonicalizeEnvKey("TRAFFIC_CACHEDIR", existing))
	assert.Equal(t, "matching.bufferMeters", canonicalizeEnvKey("MATCHING_BUFFERMETERS", existing))

	// Unknown segments pass through lowercased
	assert.Equal(t, "database.path", canonicalizeEnvKey("DATABASE_PATH", existing))
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, 1000, cfg.Traffic.PageSize)
	assert.Equal(t, "aadt_raw.json", cfg.Traffic.CacheFile)
	assert.InDelta(t, 30.0, cfg.Matching.BufferMeters, 1e-9)
	assert.InDelta(t, 15.0, cfg.Matching.DensifySpacingMeters, 1e-9)
	assert.InDelta(t, 40.44, cfg.Matching.ReferenceLat, 1e-9)
	assert.GreaterOrEqual(t, cfg.Matching.Workers, 1)
}

func TestApplyDefaults_ReferenceLatNotLeftAtEquator(t *testing.T) {
	// Only the matching tunables set, as a minimal yaml would leave them.
	cfg := &Config{}
	cfg.Matching.BufferMeters = 30.0
	cfg.Matching.DensifySpacingMeters = 15.0
	cfg.applyDefaults()

	assert.InDelta(t, 40.44, cfg.Matching.ReferenceLat, 1e-9)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Traffic.PageSize = 500
	cfg.Matching.BufferMeters = 50.0
	cfg.Matching.ReferenceLat = -33.87
	cfg.applyDefaults()

	assert.Equal(t, 500, cfg.Traffic.PageSize)
	assert.InDelta(t, 50.0, cfg.Matching.BufferMeters, 1e-9)
	assert.InDelta(t, -33.87, cfg.Matching.ReferenceLat, 1e-9)
}
