package slotstore

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Ratio1/slotstore_sdk_go/internal/httpx"
)

const (
	envMode     = "R1_RUNTIME_MODE"
	envCStore   = "EE_CHAINSTORE_API_URL"
	envHashKey  = "R1_SLOTSTORE_HASH_KEY"
	envMockSeed = "R1_MOCK_SLOT_SEED"

	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"
)

// Config selects and tunes the slot store.
type Config struct {
	Mode     string        `yaml:"mode"`
	URL      string        `yaml:"url"`
	HashKey  string        `yaml:"hash_key"`
	Seed     string        `yaml:"seed"`
	Capacity int           `yaml:"capacity"`
	Timeout  time.Duration `yaml:"timeout"`
	Retry    RetryConfig   `yaml:"retry"`
}

// RetryConfig mirrors httpx.RetryPolicy.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	Jitter     float64       `yaml:"jitter"`
}

// DefaultConfig returns auto mode with the transport defaults.
func DefaultConfig() Config {
	return Config{
		Mode:    ModeAuto,
		Timeout: 10 * time.Second,
		Retry: RetryConfig{
			MaxRetries: httpx.DefaultRetryPolicy.MaxRetries,
			BaseDelay:  httpx.DefaultRetryPolicy.BaseDelay,
			MaxDelay:   httpx.DefaultRetryPolicy.MaxDelay,
			Jitter:     httpx.DefaultRetryPolicy.Jitter,
		},
	}
}

// ConfigFromEnv overlays the environment on DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if mode := strings.TrimSpace(os.Getenv(envMode)); mode != "" {
		cfg.Mode = mode
	}
	cfg.URL = strings.TrimSpace(os.Getenv(envCStore))
	cfg.HashKey = strings.TrimSpace(os.Getenv(envHashKey))
	cfg.Seed = strings.TrimSpace(os.Getenv(envMockSeed))
	return cfg
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("slotstore: read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("slotstore: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// resolveMode returns ModeHTTP or ModeMock.
func (c Config) resolveMode() (string, error) {
	mode := strings.ToLower(strings.TrimSpace(c.Mode))
	url := strings.TrimSpace(c.URL)
	switch mode {
	case "", ModeAuto:
		if url != "" {
			return ModeHTTP, nil
		}
		return ModeMock, nil
	case ModeHTTP:
		if url == "" {
			return "", fmt.Errorf("slotstore: HTTP mode requires %s or url", envCStore)
		}
		return ModeHTTP, nil
	case ModeMock:
		return ModeMock, nil
	default:
		return "", fmt.Errorf("slotstore: unsupported mode %q", c.Mode)
	}
}

func (c Config) retryPolicy() httpx.RetryPolicy {
	return httpx.RetryPolicy{
		MaxRetries: c.Retry.MaxRetries,
		BaseDelay:  c.Retry.BaseDelay,
		MaxDelay:   c.Retry.MaxDelay,
		Jitter:     c.Retry.Jitter,
	}
}
