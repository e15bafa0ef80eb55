package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type InvalidationCfg struct {
	Enabled bool
	Topic   string
	Brokers string
	GroupID string
}

type Config struct {
	Addr               string
	LogLevel           string
	LogConsole         bool
	LogSampleN         int
	APIBaseURL         string
	APIToken           string
	RedisAddr          string
	LayerCacheTTL      time.Duration
	CacheOpTimeout     time.Duration
	Invalidation       InvalidationCfg
	SearchDebounce     time.Duration
	SearchMinChars     int
	GeolocationTimeout time.Duration
	RegionCacheSize    int
	RegionCacheTTL     time.Duration
	ClusterMaxRes      int
	LayerStylesFile    string
	MapCenterLat       float64
	MapCenterLon       float64
	MapZoom            int
	MetricsEnabled     bool
	MetricsAddr        string
}

func FromEnv() Config {
	clusterMax := getint("CLUSTER_MAX_RES", 9)
	if clusterMax < 0 {
		clusterMax = 0
	}
	if clusterMax > 15 {
		clusterMax = 15
	}

	return Config{
		Addr:           getenv("ADDR", ":8090"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		LogSampleN:     max(getint("LOG_SAMPLE_N", 0), 0),
		APIBaseURL:     strings.TrimRight(getenv("API_BASE_URL", "http://localhost:8080/api/v1"), "/"),
		APIToken:       strings.TrimSpace(os.Getenv("API_TOKEN")),
		RedisAddr:      strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		LayerCacheTTL:  getduration("LAYER_CACHE_TTL", 60*time.Second),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Topic:   getenv("KAFKA_TOPIC", "dataset-changes"),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			GroupID: getenv("KAFKA_GROUP_ID", "ecomap-layer-cache"),
		},
		SearchDebounce:     getduration("SEARCH_DEBOUNCE", 300*time.Millisecond),
		SearchMinChars:     getint("SEARCH_MIN_CHARS", 2),
		GeolocationTimeout: getduration("GEOLOCATION_TIMEOUT", 5*time.Second),
		RegionCacheSize:    getint("REGION_CACHE_SIZE", 256),
		RegionCacheTTL:     getduration("REGION_CACHE_TTL", 10*time.Minute),
		ClusterMaxRes:      clusterMax,
		LayerStylesFile:    strings.TrimSpace(os.Getenv("LAYER_STYLES_FILE")),
		MapCenterLat:       getfloat("MAP_CENTER_LAT", 55.7558),
		MapCenterLon:       getfloat("MAP_CENTER_LON", 37.6176),
		MapZoom:            getint("MAP_ZOOM", 4),
		MetricsEnabled:     getbool("METRICS_ENABLED", false),
		MetricsAddr:        strings.TrimSpace(os.Getenv("METRICS_ADDR")),
	}
}

// BrokerList splits the comma separated broker list.
func (c InvalidationCfg) BrokerList() []string {
	var out []string
	for p := range strings.SplitSeq(c.Brokers, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
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

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
