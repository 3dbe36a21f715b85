package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"xstream-backend/internal/components/configutil"
	"xstream-backend/internal/components/telemetry"
	"xstream-backend/internal/scrapers/x"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	envAuthToken = "XSTREAM_AUTH_TOKEN"
	envCSRFToken = "XSTREAM_CSRF_TOKEN"
)

type Config struct {
	// the `auth_token` and `ct0` cookies of a logged in browser session
	AuthToken string `json:"auth_token"`
	CSRFToken string `json:"csrf_token"`
	Bearer    string `json:"bearer"`
	BaseUrl   string `json:"base_url" validate:"omitempty,url"`

	RequestsPerSecond float64 `json:"requests_per_second" validate:"gte=0"`
	TimeoutSeconds    int     `json:"timeout_seconds" validate:"gte=0"`
	// overrides of the GraphQL query ids keyed by operation name, upstream rotates them
	QueryIds map[string]string `json:"query_ids" validate:"dive,required"`

	// every response body is written here when set, handy for capturing fixtures
	DumpDir string `json:"dump_dir"`

	MaxDepth           int `json:"max_depth" validate:"gte=0,lte=32"`
	EmptyPageTolerance int `json:"empty_page_tolerance" validate:"gte=0"`

	LogLevel  string               `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Otlp      telemetry.OtlpConfig `json:"otlp"`
	PerfStats bool                 `json:"perf_stats"`
}

func (c Config) clientOptions() x.ClientOptions {
	return x.ClientOptions{
		BaseURL:           c.BaseUrl,
		AuthToken:         c.AuthToken,
		CSRFToken:         c.CSRFToken,
		Bearer:            c.Bearer,
		RequestsPerSecond: c.RequestsPerSecond,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		QueryIDs:          c.QueryIds,
		DumpDir:           c.DumpDir,
	}
}

func (c Config) slogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

var validate = validator.New()

func (c Config) Validate() error {
	err := validate.Struct(c)
	if err != nil {
		return err
	}
	for name := range c.QueryIds {
		if _, ok := x.Operations[name]; !ok {
			known := make([]string, 0, len(x.Operations))
			for op := range x.Operations {
				known = append(known, op)
			}
			slices.Sort(known)
			return fmt.Errorf("query_ids: unknown operation %q (known: %s)", name, strings.Join(known, ", "))
		}
	}
	return nil
}

// loadConfig reads the config file (searching parent directories), then applies `.env` and
// environment overrides. A missing config file is not an error, every field has a default.
func loadConfig(name string) (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	config, err := configutil.ReadRecursively[Config](name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", name, err)
	}

	if token, ok := os.LookupEnv(envAuthToken); ok {
		config.AuthToken = token
	}
	if token, ok := os.LookupEnv(envCSRFToken); ok {
		config.CSRFToken = token
	}

	err = config.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}
