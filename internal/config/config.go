// Package config loads process configuration from the environment. One
// Config struct covers all three binaries (api, worker, scheduler); each
// binary reads only the fields relevant to it.
package config

import (
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	APIAddr string `env:"API_ADDR" envDefault:":8080"`

	PostgresDSN string `env:"POSTGRES_DSN,notEmpty"`

	// RedisAddrs is comma-separated; each entry becomes one shard of the
	// redis.Ring holding the coordination store, sharded by rendezvous
	// hashing (internal/queue). A single entry gives a one-shard Ring.
	RedisAddrs    string `env:"REDIS_ADDRS,notEmpty"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// AdminTokenHash is a bcrypt hash; admin routes compare the bearer
	// token against it (internal/transport middleware).
	AdminTokenHash string `env:"ADMIN_TOKEN_HASH,notEmpty"`

	WorkerID          string `env:"WORKER_ID"`
	WorkerQueues      string `env:"WORKER_QUEUES" envDefault:"default"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"4"`
	WorkerPollMS      int    `env:"WORKER_POLL_MS" envDefault:"100"`
	WorkerMetricsAddr string `env:"WORKER_METRICS_ADDR" envDefault:":9091"`

	DefaultMaxRetries          int `env:"DEFAULT_MAX_RETRIES" envDefault:"3"`
	RetryBaseDelayMS           int `env:"RETRY_BASE_DELAY_MS" envDefault:"1000"`
	DefaultVisibilityTimeoutMS int `env:"DEFAULT_VISIBILITY_TIMEOUT_MS" envDefault:"30000"`

	PoisonWindowMS  int `env:"POISON_WINDOW_MS" envDefault:"60000"`
	PoisonThreshold int `env:"POISON_THRESHOLD" envDefault:"3"`

	SchedulerTickMS      int    `env:"SCHEDULER_TICK_MS" envDefault:"1000"`
	SchedulerMetricsAddr string `env:"SCHEDULER_METRICS_ADDR" envDefault:":9092"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses Config from the environment and returns any parse error
// to the caller rather than calling log.Fatal itself, so it can be unit
// tested.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return c, errors.Wrap(err, "config: parse environment")
	}
	return c, nil
}

// RedisAddrList splits RedisAddrs on commas and trims whitespace.
func (c Config) RedisAddrList() []string {
	parts := strings.Split(c.RedisAddrs, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Queues splits WorkerQueues on commas and trims whitespace.
func (c Config) Queues() []string {
	parts := strings.Split(c.WorkerQueues, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
