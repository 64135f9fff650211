package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type MetricsCfg struct {
	Enabled bool
	Addr    string
	Path    string
}

type LogCfg struct {
	Level   string
	Console bool
	SampleN int
}

type Config struct {
	Addr            string
	BaseURL         string
	CORSOrigins     []string
	Log             LogCfg
	CollectionsFile string

	DatasetCacheSize int
	RedisAddr        string
	AxisCacheEnabled bool
	AxisCacheTTL     time.Duration
	AxisCacheTTLOvr  map[string]time.Duration
	CacheOpTimeout   time.Duration

	ItemsLimitMax         int
	LocationsLimitDefault int
	LocationsLimitMax     int
	CircleQuadSegs        int

	Metrics MetricsCfg
}

func FromEnv() Config {
	itemsMax := getint("ITEMS_LIMIT_MAX", 10000)
	if itemsMax < 1 {
		itemsMax = 10000
	}
	locMax := getint("LOCATIONS_LIMIT_MAX", 1000)
	if locMax < 1 {
		locMax = 1000
	}
	locDefault := getint("LOCATIONS_LIMIT_DEFAULT", 10)
	if locDefault < 1 || locDefault > locMax {
		locDefault = min(10, locMax)
	}

	return Config{
		Addr:        getenv("ADDR", ":5000"),
		BaseURL:     strings.TrimRight(getenv("SERVER_URL", "http://localhost:5000"), "/"),
		CORSOrigins: splitCSV(getenv("CORS_ORIGINS", "")),
		Log: LogCfg{
			Level:   getenv("LOG_LEVEL", "info"),
			Console: getbool("LOG_CONSOLE", false),
			SampleN: getint("LOG_SAMPLE_N", 0),
		},
		CollectionsFile: getenv("COLLECTIONS_FILE", "collections.yml"),

		DatasetCacheSize: getint("DATASET_CACHE_SIZE", 8),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		AxisCacheEnabled: getbool("AXIS_CACHE_ENABLED", false),
		AxisCacheTTL:     getduration("AXIS_CACHE_TTL", 10*time.Minute),
		AxisCacheTTLOvr:  parseDurationMap(getenv("AXIS_CACHE_TTL_OVERRIDES", "")),
		CacheOpTimeout:   getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),

		ItemsLimitMax:         itemsMax,
		LocationsLimitDefault: locDefault,
		LocationsLimitMax:     locMax,
		CircleQuadSegs:        getint("CIRCLE_QUAD_SEGS", 16),

		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", true),
			Addr:    getenv("METRICS_ADDR", ""),
			Path:    getenv("METRICS_PATH", "/metrics"),
		},
	}
}

// AxisTTL returns the axis cache TTL for a collection.
func (c Config) AxisTTL(collection string) time.Duration {
	if d, ok := c.AxisCacheTTLOvr[collection]; ok {
		return d
	}
	return c.AxisCacheTTL
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}

// parse "collection=5m,other=30s" into map
func parseDurationMap(s string) map[string]time.Duration {
	out := map[string]time.Duration{}
	s = strings.TrimSpace(s)
	if s == "" {
		return out
	}
	parts := strings.SplitSeq(s, ",")
	for p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		k := strings.TrimSpace(kv[0])
		v := strings.TrimSpace(kv[1])
		if k == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil {
			out[k] = d
		}
	}
	return out
}
