// Copyright 2024-25 The mmckit Authors. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package logging provides the structured logger shared by the transports
// and the capability probe.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	Level  zerolog.Level
	Format string // "json" or "console"
	Output io.Writer
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() *Config {
	return &Config{
		Level:  zerolog.InfoLevel,
		Format: "console",
		Output: os.Stderr,
	}
}

// New creates a logger from the given configuration.
func New(config *Config) zerolog.Logger {
	if config == nil {
		config = DefaultConfig()
	}

	var zlog zerolog.Logger
	switch config.Format {
	case "json":
		zlog = zerolog.New(config.Output).With().Timestamp().Logger()
	default:
		zlog = zerolog.New(zerolog.ConsoleWriter{Out: config.Output}).With().Timestamp().Logger()
	}

	return zlog.Level(config.Level)
}

var (
	mu            sync.RWMutex
	defaultLogger *zerolog.Logger
)

// Default returns the default logger, creating it if necessary.
func Default() *zerolog.Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		l := New(nil)
		defaultLogger = &l
	}
	return defaultLogger
}

// SetDefault replaces the default logger.
func SetDefault(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = &l
}
