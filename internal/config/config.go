// Package config loads the fieldflow configuration file.
//
// The file is CUE (JSON is valid CUE). It is unified with the embedded
// #Config schema, which supplies defaults and rejects unknown fields, then
// decoded into Config.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/fieldflow/internal/api"
)

//go:embed schema.cue
var schemaCUE string

// Config is the validated configuration.
type Config struct {
	Database           string
	LogLevel           slog.Level
	SplashDelay        time.Duration
	PasswordMinLength  int
	GeocodeConcurrency int
	MetricsAddr        string
	API                APIConfig
}

// APIConfig configures the HTTP backend client.
type APIConfig struct {
	BaseURL       string
	RatePerSecond float64
	Burst         int
	Timeout       time.Duration
}

// Simulated reports whether the app runs against the in-process simulator.
func (c APIConfig) Simulated() bool { return c.BaseURL == "" }

// ClientConfig converts c for api.NewClient.
func (c APIConfig) ClientConfig(logger *slog.Logger) api.ClientConfig {
	return api.ClientConfig{
		BaseURL:       c.BaseURL,
		RatePerSecond: c.RatePerSecond,
		Burst:         c.Burst,
		Timeout:       c.Timeout,
		Logger:        logger,
	}
}

type rawConfig struct {
	Database           string `json:"database"`
	LogLevel           string `json:"log_level"`
	SplashDelay        string `json:"splash_delay"`
	PasswordMinLength  int    `json:"password_min_length"`
	GeocodeConcurrency int    `json:"geocode_concurrency"`
	MetricsAddr        string `json:"metrics_addr"`
	API                struct {
		BaseURL       string  `json:"base_url"`
		RatePerSecond float64 `json:"rate_per_second"`
		Burst         int     `json:"burst"`
		Timeout       string  `json:"timeout"`
	} `json:"api"`
}

// Error is a configuration error. Pos is set when the error points into
// the configuration file.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	field := e.Field
	if field == "" {
		field = "config"
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), field, e.Message)
	}
	return fmt.Sprintf("%s: %s", field, e.Message)
}

// Default returns the configuration used when no file is given.
func Default() Config {
	c, err := Parse(nil, "default.cue")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return c
}

// Load reads and validates the file at path. An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates data against the schema and decodes it.
func Parse(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	user := ctx.CompileBytes(data, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, cueError(err)
	}

	v := def.Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, cueError(err)
	}

	var raw rawConfig
	if err := v.Decode(&raw); err != nil {
		return Config{}, cueError(err)
	}
	return raw.convert()
}

func (r rawConfig) convert() (Config, error) {
	level, err := parseLevel(r.LogLevel)
	if err != nil {
		return Config{}, err
	}
	splash, err := time.ParseDuration(r.SplashDelay)
	if err != nil {
		return Config{}, &Error{Field: "splash_delay", Message: err.Error()}
	}
	timeout, err := time.ParseDuration(r.API.Timeout)
	if err != nil {
		return Config{}, &Error{Field: "api.timeout", Message: err.Error()}
	}
	return Config{
		Database:           r.Database,
		LogLevel:           level,
		SplashDelay:        splash,
		PasswordMinLength:  r.PasswordMinLength,
		GeocodeConcurrency: r.GeocodeConcurrency,
		MetricsAddr:        r.MetricsAddr,
		API: APIConfig{
			BaseURL:       r.API.BaseURL,
			RatePerSecond: r.API.RatePerSecond,
			Burst:         r.API.Burst,
			Timeout:       timeout,
		},
	}, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, &Error{Field: "log_level", Message: err.Error()}
	}
	return l, nil
}

// cueError converts the first CUE error into an *Error with its path and
// position.
func cueError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}
	first := errs[0]
	e := &Error{Field: strings.Join(first.Path(), ".")}
	format, args := first.Msg()
	e.Message = fmt.Sprintf(format, args...)
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
