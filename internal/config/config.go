package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database DatabaseConfig
	Local    LocalConfig
	Detector DetectorConfig
	Enroll   EnrollConfig
	Matching MatchingConfig
	Web      WebConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL; empty disables the primary tier
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type LocalConfig struct {
	Path string // JSON file for the fallback tier (default data/embeddings.json)
}

type DetectorConfig struct {
	URL     string        // defaults to http://localhost:8000
	RPS     float64       // request rate limit, 0 = unlimited
	Timeout time.Duration // per-request timeout
	Debug   bool          // FACE_DEBUG
}

type EnrollConfig struct {
	Concurrency int // parallel detector calls during batch enrollment
}

type WebConfig struct {
	Port           int
	Host           string
	AllowedOrigins []string // WEB_ALLOWED_ORIGINS, comma-separated; localhost is always allowed
}

// MatchingConfig holds the default matching policy.
type MatchingConfig struct {
	Threshold               float64 `yaml:"threshold"`
	TopK                    int     `yaml:"top_k"`
	AutoEnrollMinSimilarity float64 `yaml:"auto_enroll_min_similarity"`
	ConfidentMinSimilarity  float64 `yaml:"confident_min_similarity"`
	MinProbability          float64 `yaml:"min_probability"`
}

type defaultsFile struct {
	Matching MatchingConfig `yaml:"matching"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// envList splits a comma-separated environment variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// DefaultMatching returns the embedded matching defaults.
func DefaultMatching() MatchingConfig {
	var d defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d.Matching
}

func Load() *Config {
	m := DefaultMatching()

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Local: LocalConfig{
			Path: envString("LOCAL_EMBEDDINGS_PATH", "data/embeddings.json"),
		},
		Detector: DetectorConfig{
			URL:     os.Getenv("DETECTOR_URL"),
			RPS:     envFloat("DETECTOR_RPS", 0),
			Timeout: time.Duration(envInt("DETECTOR_TIMEOUT_SECONDS", 60)) * time.Second,
			Debug:   envBool("FACE_DEBUG"),
		},
		Enroll: EnrollConfig{
			Concurrency: envInt("ENROLL_CONCURRENCY", 4),
		},
		Matching: MatchingConfig{
			Threshold:               envFloat("FACE_MATCH_THRESHOLD", m.Threshold),
			TopK:                    envInt("FACE_TOP_K", m.TopK),
			AutoEnrollMinSimilarity: envFloat("FACE_AUTO_ENROLL_MIN_SIMILARITY", m.AutoEnrollMinSimilarity),
			ConfidentMinSimilarity:  envFloat("FACE_CONFIDENT_MIN_SIMILARITY", m.ConfidentMinSimilarity),
			MinProbability:          m.MinProbability,
		},
		Web: WebConfig{
			Port:           envInt("WEB_PORT", 8080),
			Host:           envString("WEB_HOST", "0.0.0.0"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
