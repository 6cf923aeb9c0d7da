package traffic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"overlay/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_UsesCacheWhenPresent(t *testing.T) {
	cache := NewCache(t.TempDir(), "aadt_raw.json")
	require.NoError(t, cache.Store([]Feature{testFeature(1, 5000)}))

	// Client pointing at a dead endpoint: must never be hit
	client := NewClient(config.TrafficConfig{URL: "http://127.0.0.1:1", PageSize: 10, Timeout: time.Second}, testLogger())
	source := NewSource(client, cache, testLogger())

	segments, skipped, err := source.Segments(context.Background())
	require.NoError(t, err)
	assert.Len(t, segments, 1)
	assert.Zero(t, skipped)
}

func TestSource_FetchesAndStoresOnMiss(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.NoError(t, json.NewEncoder(w).Encode(queryResponse{
			Features: []Feature{testFeature(1, 5000), testFeature(2, 6000)},
		}))
	}))
	defer server.Close()

	cache := NewCache(t.TempDir(), "aadt_raw.json")
	client := NewClient(config.TrafficConfig{URL: server.URL, PageSize: 10, Timeout: 5 * time.Second}, testLogger())
	source := NewSource(client, cache, testLogger())

	segments, _, err := source.Segments(context.Background())
	require.NoError(t, err)
	assert.Len(t, segments, 2)
	assert.Equal(t, int32(1), hits.Load())

	// Second call is served from the cache
	segments, _, err = source.Segments(context.Background())
	require.NoError(t, err)
	assert.Len(t, segments, 2)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSource_FetchFailureNamesFallbackPath(t *testing.T) {
	cache := NewCache(t.TempDir(), "aadt_raw.json")
	client := NewClient(config.TrafficConfig{URL: "http://127.0.0.1:1", PageSize: 10, Timeout: time.Second}, testLogger())
	source := NewSource(client, cache, testLogger())

	_, _, err := source.Segments(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), cache.Path())
	assert.Contains(t, err.Error(), "manually")
}

func TestSource_EnsureCached(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.NoError(t, json.NewEncoder(w).Encode(queryResponse{
			Features: []Feature{testFeature(1, 5000)},
		}))
	}))
	defer server.Close()

	cache := NewCache(t.TempDir(), "aadt_raw.json")
	client := NewClient(config.TrafficConfig{URL: server.URL, PageSize: 10, Timeout: 5 * time.Second}, testLogger())
	source := NewSource(client, cache, testLogger())

	require.NoError(t, source.EnsureCached(context.Background()))
	require.NoError(t, source.EnsureCached(context.Background()))
	assert.Equal(t, int32(1), hits.Load())
}
