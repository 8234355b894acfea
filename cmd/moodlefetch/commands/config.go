package commands

import (
	"fmt"
	"log/slog"
	"moodlefetch/internal/components/configutil"
	"moodlefetch/internal/components/telemetry"
	"path/filepath"
	"time"
)

type SessionConfig struct {
	Sesskey       string `json:"sesskey"`
	MoodleSession string `json:"moodle_session"`
}

type Config struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`

	RequestsPerSecond float64 `json:"requests_per_second"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`

	// "slog" (default) or "zap"
	LogBackend string               `json:"log_backend"`
	Verbose    bool                 `json:"verbose"`
	Otlp       telemetry.OtlpConfig `json:"otlp"`

	// Session is a previously obtained session, when both values are set
	// commands reuse it instead of logging in.
	Session SessionConfig `json:"session"`
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) HasSession() bool {
	return c.Session.Sesskey != "" && c.Session.MoodleSession != ""
}

// Validate rejects configs no command can run with.
func (c Config) Validate() error {
	if c.BaseUrl == "" {
		return fmt.Errorf("base_url is required")
	}
	switch c.LogBackend {
	case "", "slog", "zap":
	default:
		return fmt.Errorf("unknown log_backend '%s'", c.LogBackend)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative")
	}
	if (c.Session.Sesskey == "") != (c.Session.MoodleSession == "") {
		return fmt.Errorf("session needs both sesskey and moodle_session")
	}
	return nil
}

// readConfig reads `path`, a bare file name is looked up from the working
// directory upwards so the CLI works from anywhere inside a checkout.
func readConfig(path string) (Config, error) {
	var cfg Config
	var err error
	if filepath.Dir(path) == "." && !filepath.IsAbs(path) {
		var found string
		cfg, found, err = configutil.ReadRecursively[Config](path)
		if found != "" {
			path = found
		}
	} else {
		cfg, err = configutil.ReadConfig[Config](path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	slog.Debug("read config", "path", path)
	return cfg, nil
}
