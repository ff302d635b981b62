// Package config reads runtime settings from a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"school-library/library"
)

const (
	EnvDBPath     = "LIBRARY_DB_PATH"
	EnvLogLevel   = "LOG_LEVEL"
	EnvLogFormat  = "LOG_FORMAT"
	EnvBcryptCost = "BCRYPT_COST"
	// EnvAsOf pins "today" to a YYYY-MM-DD day, for demos and rehearsals.
	EnvAsOf = "OVERDUE_AS_OF"

	DefaultDBPath = "library.db"
)

type Config struct {
	DBPath     string
	LogLevel   slog.Level
	LogFormat  string
	BcryptCost int
	AsOf       *time.Time
}

// Load reads the given .env files (".env" when none are named) if they exist,
// then builds a Config from the environment. Variables already set in the
// environment win over the files.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment alone.
func FromEnv() (*Config, error) {
	c := &Config{
		DBPath:    GetEnv(EnvDBPath, DefaultDBPath),
		LogFormat: strings.ToLower(GetEnv(EnvLogFormat, "text")),
	}

	if err := c.LogLevel.UnmarshalText([]byte(GetEnv(EnvLogLevel, "info"))); err != nil {
		return nil, fmt.Errorf("%s: %w", EnvLogLevel, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("%s: unknown format %q (want text or json)", EnvLogFormat, c.LogFormat)
	}

	if v := GetEnv(EnvBcryptCost); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvBcryptCost, err)
		}
		c.BcryptCost = cost
	}

	if v := GetEnv(EnvAsOf); v != "" {
		day, err := library.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvAsOf, err)
		}
		c.AsOf = &day
	}
	return c, nil
}

// GetEnv returns the variable, or the default when it is unset.
func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Clock is the wall clock, or a fixed day when AsOf is set.
func (c *Config) Clock() library.Clock {
	if c.AsOf == nil {
		return library.SystemClock
	}
	return library.FixedClock(*c.AsOf)
}

// Options assembles the library options this config describes.
func (c *Config) Options(logger *slog.Logger) library.Options {
	return library.Options{
		Clock:  c.Clock(),
		Logger: logger,
		Auth:   library.NewBcryptAuthenticator(c.BcryptCost),
	}
}
