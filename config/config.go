package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const defaultPath = "."

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	// Traffic configures the roadway traffic (AADT) source.
	Traffic TrafficConfig `json:"traffic" yaml:"traffic"`

	// GTFS configures the transit feed the route shapes come from.
	GTFS GTFSConfig `json:"gtfs" yaml:"gtfs"`

	// Matching configures the spatial matching engine.
	Matching MatchingConfig `json:"matching" yaml:"matching"`

	// Database configures the output dataset.
	Database DatabaseConfig `json:"database" yaml:"database"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// TrafficConfig defines the paginated ArcGIS-style query endpoint serving
// AADT segments, plus the on-disk cache the raw features are stored in.
type TrafficConfig struct {
	URL       string        `json:"url" yaml:"url" validate:"required,url"`
	Where     string        `json:"where" yaml:"where"`
	OutFields string        `json:"outFields" yaml:"outFields"`
	PageSize  int           `json:"pageSize" yaml:"pageSize" validate:"gt=0"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
	CacheDir  string        `json:"cacheDir" yaml:"cacheDir" validate:"required"`
	CacheFile string        `json:"cacheFile" yaml:"cacheFile"`
}

// GTFSConfig points at a directory holding trips.txt and shapes.txt.
type GTFSConfig struct {
	Dir string `json:"dir" yaml:"dir" validate:"required"`
}

// MatchingConfig holds the tunables of the spatial matching engine.
// Buffer and spacing are a property of the target road network's density,
// not of the algorithm, so they are configuration rather than constants.
type MatchingConfig struct {
	// BufferMeters is the radius within which a route point is considered
	// to lie on a road segment. Too small under-matches near intersections,
	// too large over-matches parallel roads.
	BufferMeters float64 `json:"bufferMeters" yaml:"bufferMeters" validate:"gt=0"`

	// DensifySpacingMeters bounds the gap between consecutive indexed
	// points along a road segment. Must not exceed the buffer, or a route
	// point can skip over a segment passing between two raw points.
	DensifySpacingMeters float64 `json:"densifySpacingMeters" yaml:"densifySpacingMeters" validate:"gt=0"`

	// ReferenceLat anchors the equirectangular projection. Pick the study
	// area's approximate center latitude.
	ReferenceLat float64 `json:"referenceLat" yaml:"referenceLat" validate:"gte=-90,lte=90"`

	// Workers is the number of concurrent route-matching workers.
	Workers int `json:"workers" yaml:"workers" validate:"gte=1"`
}

// DatabaseConfig locates the SQLite file the route_traffic table is written to.
type DatabaseConfig struct {
	Path string `json:"path" yaml:"path" validate:"required"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: TRAFFIC_PAGESIZE -> traffic.pageSize (not traffic.pagesize)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

// New loads <envName>.yaml (config.yaml when envName is empty) from the
// given search paths plus the usual defaults, applies defaults and
// validates the result.
func New(envName string, searchPaths ...string) (*Config, error) {
	if envName == "" {
		envName = "config"
	}
	searchPaths = append(searchPaths, "config", "../config", "../../config")

	cfg, err := LoadWithEnv[Config](envName, searchPaths...)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Traffic.PageSize == 0 {
		cfg.Traffic.PageSize = 1000
	}
	if cfg.Traffic.Timeout == 0 {
		cfg.Traffic.Timeout = 60 * time.Second
	}
	if cfg.Traffic.CacheFile == "" {
		cfg.Traffic.CacheFile = "aadt_raw.json"
	}
	if cfg.Matching.BufferMeters == 0 {
		cfg.Matching.BufferMeters = 30.0
	}
	if cfg.Matching.DensifySpacingMeters == 0 {
		cfg.Matching.DensifySpacingMeters = 15.0
	}
	// Zero would anchor the projection at the equator and stretch every
	// east-west distance for a mid-latitude study area.
	if cfg.Matching.ReferenceLat == 0 {
		cfg.Matching.ReferenceLat = 40.44
	}
	if cfg.Matching.Workers == 0 {
		cfg.Matching.Workers = runtime.NumCPU()
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
