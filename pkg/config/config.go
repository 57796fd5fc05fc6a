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

// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the process-level configuration for the server binary.
// Every field has a workable default so the binary starts with nothing
// but DATABASE_URL set.
type Config struct {
	DatabaseURL string
	NatsURL     string
	AppSecret   string

	LogLevel string
	LogDebug bool

	SNMPCommunity    string
	SNMPPollInterval time.Duration

	NetflowPort int
	SflowPort   int

	DeviceSSLVerify bool
	GeoIPDBPath     string

	FlowBackfillDays int
}

// FromEnv reads configuration from environment variables, applying
// defaults for anything unset.
func FromEnv() *Config {
	return &Config{
		DatabaseURL:      envString("DATABASE_URL", "postgres://localhost:5432/netpulse"),
		NatsURL:          envString("NATS_URL", "nats://localhost:4222"),
		AppSecret:        envString("APP_SECRET", "change-me"),
		LogLevel:         envString("LOG_LEVEL", "info"),
		LogDebug:         envBool("LOG_DEBUG", false),
		SNMPCommunity:    envString("SNMP_COMMUNITY", "public"),
		SNMPPollInterval: time.Duration(envInt("SNMP_POLL_INTERVAL_SECONDS", 60)) * time.Second,
		NetflowPort:      envInt("NETFLOW_PORT", 2055),
		SflowPort:        envInt("SFLOW_PORT", 6343),
		DeviceSSLVerify:  envBool("DEVICE_SSL_VERIFY", false),
		GeoIPDBPath:      envString("GEOIP_DB_PATH", ""),
		FlowBackfillDays: envInt("FLOW_BACKFILL_DAYS", 30),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return parsed
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}

	return parsed
}
