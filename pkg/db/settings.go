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

package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// GetSetting returns a setting value, or ErrNotFound when unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string

	err := s.pool.QueryRow(ctx, `SELECT value FROM system_settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}

	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}

	return value, nil
}

// GetSettingFloat parses a numeric setting; unset or unparseable values
// return the fallback.
func (s *Store) GetSettingFloat(ctx context.Context, key string, fallback float64) float64 {
	value, err := s.GetSetting(ctx, key)
	if err != nil {
		return fallback
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}

	return parsed
}

// GetSettingBool parses a boolean setting; unset or unparseable values
// return the fallback.
func (s *Store) GetSettingBool(ctx context.Context, key string, fallback bool) bool {
	value, err := s.GetSetting(ctx, key)
	if err != nil {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}

	return parsed
}

// SetSetting upserts a setting row.
func (s *Store) SetSetting(ctx context.Context, key, value string, isSecret bool, updatedBy string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO system_settings (key, value, is_secret, updated_by, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			is_secret = EXCLUDED.is_secret,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at`,
		key, value, isSecret, updatedBy, nowUTC())
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}

	return nil
}
