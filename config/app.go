package config

import (
	"os"
	"strconv"
	"time"
)

// App carries the recorder policy and provider settings from the
// environment. Everything has a sensible default except the GCP bits.
type App struct {
	Port string

	MinRecordingSeconds int
	TooShortPolicy      string // persist|discard
	AnalysisTimeout     time.Duration
	GeocodeTimeout      time.Duration
	GeocodeEndpoint     string

	GCSBucket      string
	VertexProject  string
	VertexLocation string
	VertexModel    string
	UseSTTPrePass  bool

	AnalysisWorkers int
}

func LoadApp() App {
	return App{
		Port: envOr("PORT", "8080"),

		MinRecordingSeconds: envInt("MIN_RECORDING_SECONDS", 2),
		TooShortPolicy:      envOr("TOO_SHORT_POLICY", "persist"),
		AnalysisTimeout:     envDuration("ANALYSIS_TIMEOUT", 2*time.Minute),
		GeocodeTimeout:      envDuration("GEOCODE_TIMEOUT", 5*time.Second),
		GeocodeEndpoint:     envOr("GEOCODE_ENDPOINT", "https://nominatim.openstreetmap.org/reverse"),

		GCSBucket:      os.Getenv("GCS_BUCKET"),
		VertexProject:  os.Getenv("VERTEX_PROJECT"),
		VertexLocation: envOr("VERTEX_LOCATION", "us-central1"),
		VertexModel:    envOr("VERTEX_MODEL", "gemini-1.5-flash"),
		UseSTTPrePass:  os.Getenv("USE_STT_PREPASS") == "true",

		AnalysisWorkers: envInt("ANALYSIS_WORKERS", 3),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
