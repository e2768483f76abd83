// Package config loads application configuration from environment variables.
// Components receive the pieces they need at construction; nothing reads the
// environment after Load.
package config

import (
	"os"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/mailer"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

type Config struct {
	Model     ModelConfig
	Detect    DetectConfig
	Recognize RecognizeConfig
	Ledger    LedgerConfig
	Vision    VisionConfig
	SMTP      mailer.Config
	Roster    RosterConfig
}

type ModelConfig struct {
	Dir        string // directory holding the trained model artifact pair
	DatasetDir string // enrollment root, one subdirectory per person
	UnknownDir string // destination for unknown face captures
}

type DetectConfig struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int
}

// Options converts the detect tunables to vision options.
func (d DetectConfig) Options() vision.DetectOptions {
	return vision.DetectOptions{
		ScaleFactor:  d.ScaleFactor,
		MinNeighbors: d.MinNeighbors,
		MinSize:      d.MinSize,
	}
}

type RecognizeConfig struct {
	Threshold float64 // maximum accepted match distance
}

type LedgerConfig struct {
	Driver       string // "sqlite" or "postgres"
	Path         string // sqlite database file
	URL          string // postgres connection URL
	MaxOpenConns int
	MaxIdleConns int
}

type VisionConfig struct {
	Engine string // "pixel" or "remote"
	URL    string // face service base URL for the remote engine
}

type RosterConfig struct {
	Path string // CSV roster file
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

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean with a default.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Model: ModelConfig{
			Dir:        envString("MODEL_DIR", "model"),
			DatasetDir: envString("DATASET_DIR", "dataset"),
			UnknownDir: envString("UNKNOWN_DIR", "unknown"),
		},
		Detect: DetectConfig{
			ScaleFactor:  envFloat("DETECT_SCALE_FACTOR", 1.1),
			MinNeighbors: envInt("DETECT_MIN_NEIGHBORS", 5),
			MinSize:      envInt("DETECT_MIN_SIZE", 30),
		},
		Recognize: RecognizeConfig{
			Threshold: envFloat("RECOGNIZE_THRESHOLD", 70),
		},
		Ledger: LedgerConfig{
			Driver:       envString("LEDGER_DRIVER", "sqlite"),
			Path:         envString("LEDGER_PATH", "attendance.db"),
			URL:          os.Getenv("LEDGER_DATABASE_URL"),
			MaxOpenConns: envInt("LEDGER_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("LEDGER_MAX_IDLE_CONNS", 5),
		},
		Vision: VisionConfig{
			Engine: envString("VISION_ENGINE", "pixel"),
			URL:    os.Getenv("VISION_URL"),
		},
		SMTP: mailer.Config{
			Host:   os.Getenv("SMTP_HOST"),
			Port:   envInt("SMTP_PORT", 587),
			User:   os.Getenv("SMTP_USER"),
			Pass:   os.Getenv("SMTP_PASS"),
			UseTLS: envBool("SMTP_USE_TLS", true),
		},
		Roster: RosterConfig{
			Path: envString("ROSTER_PATH", "students.csv"),
		},
	}
}
