package pulsechat

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config controls how the client connects.
type Config struct {
	// WSURL is the realtime endpoint base, e.g. "ws://localhost:8000".
	WSURL string
	// APIURL is the REST endpoint base, e.g. "http://localhost:8000/api".
	APIURL string

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration // 0 disables the per-read deadline
	WriteTimeout     time.Duration

	// ReconnectInterval is multiplied by the attempt number (linear backoff).
	ReconnectInterval time.Duration
	MaxReconnectTries int

	// TypingExpiry bounds how long a typing indicator survives a lost stop signal.
	TypingExpiry time.Duration
	// TypingRemoveDelay is the delayed second removal after a typing stop.
	TypingRemoveDelay time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReconnectInterval: 3 * time.Second,
		MaxReconnectTries: 5,
		TypingExpiry:      5 * time.Second,
		TypingRemoveDelay: time.Second,
	}
}

// fileConfig is the YAML shape; durations are millisecond integers.
type fileConfig struct {
	WSURL               string `yaml:"ws_url"`
	APIURL              string `yaml:"api_url"`
	HandshakeTimeoutMS  *int   `yaml:"handshake_timeout_ms"`
	ReadTimeoutMS       *int   `yaml:"read_timeout_ms"`
	WriteTimeoutMS      *int   `yaml:"write_timeout_ms"`
	ReconnectIntervalMS *int   `yaml:"reconnect_interval_ms"`
	MaxReconnectTries   *int   `yaml:"max_reconnect_tries"`
	TypingExpiryMS      *int   `yaml:"typing_expiry_ms"`
	TypingRemoveDelayMS *int   `yaml:"typing_remove_delay_ms"`
}

// LoadConfig reads a YAML config file and merges it over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	cfg.WSURL = fc.WSURL
	cfg.APIURL = fc.APIURL
	applyMS(&cfg.HandshakeTimeout, fc.HandshakeTimeoutMS)
	applyMS(&cfg.ReadTimeout, fc.ReadTimeoutMS)
	applyMS(&cfg.WriteTimeout, fc.WriteTimeoutMS)
	applyMS(&cfg.ReconnectInterval, fc.ReconnectIntervalMS)
	applyMS(&cfg.TypingExpiry, fc.TypingExpiryMS)
	applyMS(&cfg.TypingRemoveDelay, fc.TypingRemoveDelayMS)
	if fc.MaxReconnectTries != nil {
		cfg.MaxReconnectTries = *fc.MaxReconnectTries
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyMS(dst *time.Duration, src *int) {
	if src != nil {
		*dst = time.Duration(*src) * time.Millisecond
	}
}

func (c *Config) validate() error {
	if c.WSURL == "" {
		return errors.New("ws_url is required")
	}
	if c.APIURL == "" {
		return errors.New("api_url is required")
	}
	if c.MaxReconnectTries < 0 {
		return errors.New("max_reconnect_tries must not be negative")
	}
	return nil
}
