// Package config loads quotedesk settings from a CUE file, a dotenv file and
// QUOTEDESK_* environment variables, validated against an embedded schema.
//
// Precedence, highest first: process environment, dotenv file, CUE file,
// schema defaults.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

//go:embed schema.cue
var schemaCUE []byte

// EnvPrefix prefixes every environment override.
const EnvPrefix = "QUOTEDESK_"

// Config is the validated application configuration.
type Config struct {
	Database          string  `json:"database"`
	BatchSize         int     `json:"batch_size"`
	DebounceMS        int     `json:"debounce_ms"`
	ServiceTaxPercent float64 `json:"service_tax_percent"`
	DraftKeyPrefix    string  `json:"draft_key_prefix"`
	LogLevel          string  `json:"log_level"`
}

// Debounce returns the quiet window for debounced inputs.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// ServiceTax returns the service order tax percent.
func (c Config) ServiceTax() decimal.Decimal {
	return decimal.NewFromFloat(c.ServiceTaxPercent)
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Source names where configuration is read from. Empty paths are skipped.
type Source struct {
	// File is a CUE file holding a #Config value.
	File string
	// EnvFile is a dotenv file. A missing file is ignored.
	EnvFile string
	// Lookup reads process environment; nil uses os.LookupEnv.
	Lookup func(string) (string, bool)
}

type field struct {
	name string
	kind string // "string", "int" or "number"
}

var fields = []field{
	{"database", "string"},
	{"batch_size", "int"},
	{"debounce_ms", "int"},
	{"service_tax_percent", "number"},
	{"draft_key_prefix", "string"},
	{"log_level", "string"},
}

// EnvName returns the environment variable overriding a config field.
func EnvName(name string) string {
	return EnvPrefix + strings.ToUpper(name)
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := Load(Source{Lookup: func(string) (string, bool) { return "", false }})
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads, merges and validates configuration.
func Load(src Source) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("config schema: %w", formatCUEError(err))
	}

	values := map[string]any{}
	if src.File != "" {
		data, err := os.ReadFile(src.File)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		file := ctx.CompileBytes(data, cue.Filename(src.File))
		if err := file.Err(); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", src.File, formatCUEError(err))
		}
		// Validate before decoding so unknown fields and bad types report
		// file positions.
		if err := schema.Unify(file).Validate(); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", src.File, formatCUEError(err))
		}
		if err := file.Decode(&values); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", src.File, formatCUEError(err))
		}
	}

	dotenv := map[string]string{}
	if src.EnvFile != "" {
		m, err := godotenv.Read(src.EnvFile)
		switch {
		case err == nil:
			dotenv = m
		case os.IsNotExist(err):
		default:
			return Config{}, fmt.Errorf("read env file: %w", err)
		}
	}
	lookup := src.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, f := range fields {
		key := EnvName(f.name)
		raw, ok := lookup(key)
		if !ok {
			raw, ok = dotenv[key]
		}
		if !ok {
			continue
		}
		v, err := parseEnv(f, raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", key, err)
		}
		values[f.name] = v
	}

	merged := schema.Unify(ctx.Encode(values))
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("config: %w", formatCUEError(err))
	}
	var cfg Config
	if err := merged.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", formatCUEError(err))
	}
	return cfg, nil
}

func parseEnv(f field, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch f.kind {
	case "int":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("want integer, got %q", raw)
		}
		return n, nil
	case "number":
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("want number, got %q", raw)
		}
		return n, nil
	default:
		return raw, nil
	}
}

// Error is a configuration error with a source position.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	e := &Error{Message: first.Error()}
	if pos := cueerrors.Positions(first); len(pos) > 0 {
		e.Pos = pos[0]
	}
	return e
}
