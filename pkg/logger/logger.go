/*
 * Copyright 2026 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger provides JSON structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls log level and output destination.
type Config struct {
	Level  string `json:"level"`
	Debug  bool   `json:"debug"`
	Output string `json:"output"`
}

// Logger is the logging interface passed to every component.
type Logger interface {
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	Fatal() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) Logger
}

type zlog struct {
	l zerolog.Logger
}

// New builds a Logger from config. Unknown levels fall back to info.
func New(config Config) Logger {
	var output io.Writer = os.Stdout

	if config.Output == "stderr" {
		output = os.Stderr
	}

	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		if parsed, err := zerolog.ParseLevel(config.Level); err == nil {
			level = parsed
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339

	return &zlog{
		l: zerolog.New(output).Level(level).With().Timestamp().Logger(),
	}
}

// NewTestLogger returns a logger that discards all output.
func NewTestLogger() Logger {
	return &zlog{l: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}

func (z *zlog) Debug() *zerolog.Event { return z.l.Debug() }
func (z *zlog) Info() *zerolog.Event  { return z.l.Info() }
func (z *zlog) Warn() *zerolog.Event  { return z.l.Warn() }
func (z *zlog) Error() *zerolog.Event { return z.l.Error() }
func (z *zlog) Fatal() *zerolog.Event { return z.l.Fatal() }
func (z *zlog) With() zerolog.Context { return z.l.With() }

func (z *zlog) WithComponent(component string) Logger {
	return &zlog{l: z.l.With().Str("component", component).Logger()}
}
