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

package flow

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/oschwald/maxminddb-golang"

	"github.com/carverauto/netpulse/pkg/kv"
	"github.com/carverauto/netpulse/pkg/models"
)

const geoCacheTTL = 24 * time.Hour

// GeoResolver maps IPs to ISO country codes via a MaxMind database,
// with a shared cache in front. A nil resolver is valid and resolves
// nothing.
type GeoResolver struct {
	reader *maxminddb.Reader
	cache  kv.Store
}

type geoRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// NewGeoResolver opens the database at path. An empty path disables
// geo enrichment. cache may be nil.
func NewGeoResolver(path string, cache kv.Store) (*GeoResolver, error) {
	if path == "" {
		return nil, nil
	}

	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("flow: open geo database %s: %w", path, err)
	}

	return &GeoResolver{reader: reader, cache: cache}, nil
}

// Country returns the ISO country code for ip, or "" when unknown.
func (g *GeoResolver) Country(ctx context.Context, ip string) string {
	if g == nil {
		return ""
	}

	cacheKey := "ipgeo:" + ip

	if g.cache != nil {
		if cached, found, err := g.cache.Get(ctx, cacheKey); err == nil && found {
			return string(cached)
		}
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}

	var record geoRecord
	if err := g.reader.Lookup(parsed, &record); err != nil {
		return ""
	}

	code := record.Country.ISOCode

	if g.cache != nil {
		// Negative results are cached too; misses dominate on
		// private address space.
		_ = g.cache.Put(ctx, cacheKey, []byte(code), geoCacheTTL)
	}

	return code
}

// Enrich fills src/dst country codes in place.
func (g *GeoResolver) Enrich(ctx context.Context, records []*models.FlowRecord) {
	if g == nil {
		return
	}

	for _, r := range records {
		r.SrcCountry = g.Country(ctx, r.SrcIP)
		r.DstCountry = g.Country(ctx, r.DstIP)
	}
}

// Close releases the database mapping.
func (g *GeoResolver) Close() {
	if g != nil && g.reader != nil {
		_ = g.reader.Close()
	}
}
