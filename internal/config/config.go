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
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// Config holds engine and session settings.
type Config struct {
	SampleRate      float64 `json:"sample_rate"`
	BlockSize       int     `json:"block_size"`
	LogLevel        string  `json:"log_level"`
	LogFormat       string  `json:"log_format"`
	Journal         string  `json:"journal"`
	WatchDebounceMS int     `json:"watch_debounce_ms"`
	WatchRate       float64 `json:"watch_rate"`
	MetricsAddr     string  `json:"metrics_addr"`
}

// Error reports a config file or value that does not satisfy the schema.
type Error struct {
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := Parse(nil, "")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads a config file. An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, path)
}

// Parse unifies CUE source with the schema and decodes the result.
// filename is used in error positions.
func Parse(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()
	def, err := schema(ctx)
	if err != nil {
		return Config{}, err
	}

	v := def
	if len(data) > 0 {
		file := ctx.CompileBytes(data, cue.Filename(filename))
		if err := file.Err(); err != nil {
			return Config{}, wrapCUE(err)
		}
		v = def.Unify(file)
	}
	return decode(v)
}

// Validate checks c against the schema, e.g. after flags override fields.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	def, err := schema(ctx)
	if err != nil {
		return err
	}
	_, err = decode(def.Unify(ctx.Encode(c)))
	return err
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WatchDebounce returns the file-watch debounce window.
func (c Config) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMS) * time.Millisecond
}

func schema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, wrapCUE(err)
	}
	return v.LookupPath(cue.ParsePath("#Config")), nil
}

func decode(v cue.Value) (Config, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, wrapCUE(err)
	}
	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, wrapCUE(err)
	}
	return cfg, nil
}

func wrapCUE(err error) error {
	ce := &Error{Message: strings.TrimSpace(cueerrors.Details(err, nil))}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		ce.Pos = errs[0].Position()
		format, args := errs[0].Msg()
		ce.Message = fmt.Sprintf(format, args...)
		if p := errs[0].Path(); len(p) > 0 {
			ce.Message = strings.Join(p, ".") + ": " + ce.Message
		}
	}
	return ce
}
