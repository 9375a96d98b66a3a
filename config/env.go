package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// FlowEnv is the environment override set for the reactive flow and
// the process surfaces.
type FlowEnv struct {
	// MaxConcurrency sizes the crawler pool and the trigger workers.
	MaxConcurrency int `env:"PIGEON_FLOW_MAX_CONCURRENCY" envDefault:"4"`
	// CooldownSec is the per-pid debounce window in seconds.
	CooldownSec float64 `env:"PIGEON_FLOW_COOLDOWN_SEC" envDefault:"2"`

	BootstrapPIDs       []int64 `env:"PIGEON_BOOTSTRAP_PIDS" envSeparator:","`
	BootstrapUseCurrent bool    `env:"PIGEON_BOOTSTRAP_USE_CURRENT" envDefault:"true"`

	Debug bool `env:"PIGEON_FLOW_DEBUG"`

	// SSEIntervalMS is the SSE keep-alive interval.
	SSEIntervalMS int `env:"PIGEON_SSE_INTERVAL_MS" envDefault:"15000"`
	// QueueCap bounds the ingest drop-head queue.
	QueueCap int `env:"QUEUE_CAP" envDefault:"1024"`
	// MinBinLen drops tapped binary frames shorter than this bound.
	MinBinLen int `env:"MIN_BIN_LEN" envDefault:"10"`

	SweepMinutes int    `env:"PIGEON_SWEEP_MINUTES" envDefault:"60"`
	Listen       string `env:"PIGEON_LISTEN" envDefault:":8000"`

	SpiderConfigPath string `env:"PIGEON_SPIDER_CONFIG" envDefault:"config/spider.yaml"`
	DBConfigPath     string `env:"PIGEON_DB_CONFIG" envDefault:"config/db_config.yaml"`
}

// Cooldown returns the debounce window as a duration.
func (e FlowEnv) Cooldown() time.Duration {
	return time.Duration(e.CooldownSec * float64(time.Second))
}

// SweepInterval returns the periodic sweep cadence.
func (e FlowEnv) SweepInterval() time.Duration {
	return time.Duration(e.SweepMinutes) * time.Minute
}

// SSEWait returns the SSE keep-alive interval, clamped to a sane floor.
func (e FlowEnv) SSEWait() time.Duration {
	ms := e.SSEIntervalMS
	if ms < 50 {
		ms = 50
	}
	return time.Duration(ms) * time.Millisecond
}

// LoadFlowEnv parses the environment override set.
func LoadFlowEnv() (FlowEnv, error) {
	var cfg FlowEnv
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}
