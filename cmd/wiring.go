package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/ledger/postgres"
	"github.com/kozaktomas/face-attendance/internal/ledger/sqlite"
	"github.com/kozaktomas/face-attendance/internal/vision"
	"github.com/kozaktomas/face-attendance/internal/vision/pixel"
	"github.com/kozaktomas/face-attendance/internal/vision/remote"
)

// newEngine constructs the vision engine selected by VISION_ENGINE.
func newEngine(cfg *config.Config) (vision.Engine, error) {
	switch cfg.Vision.Engine {
	case "pixel":
		return pixel.New(), nil
	case "remote":
		if cfg.Vision.URL == "" {
			return nil, errors.New("VISION_URL environment variable is required for the remote engine")
		}
		return remote.New(cfg.Vision.URL)
	default:
		return nil, fmt.Errorf("unknown vision engine %q (supported: pixel, remote)", cfg.Vision.Engine)
	}
}

// newStore opens the attendance store selected by LEDGER_DRIVER.
func newStore(cfg *config.Config) (ledger.Store, error) {
	switch cfg.Ledger.Driver {
	case "sqlite":
		return sqlite.Open(cfg.Ledger.Path)
	case "postgres":
		if cfg.Ledger.URL == "" {
			return nil, errors.New("LEDGER_DATABASE_URL environment variable is required for the postgres driver")
		}
		return postgres.Open(postgres.Config{
			URL:          cfg.Ledger.URL,
			MaxOpenConns: cfg.Ledger.MaxOpenConns,
			MaxIdleConns: cfg.Ledger.MaxIdleConns,
		})
	default:
		return nil, fmt.Errorf("unknown ledger driver %q (supported: sqlite, postgres)", cfg.Ledger.Driver)
	}
}
