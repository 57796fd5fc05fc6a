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

// Package flow ingests NetFlow v5 and sFlow v5 datagrams, persists
// flow records and maintains the 5-minute rollup table.
package flow

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/carverauto/netpulse/pkg/logger"
	"github.com/carverauto/netpulse/pkg/models"
)

const (
	maxDatagramSize = 9000

	// First parse failures per exporter are logged with detail; after
	// that only the counter moves.
	parseErrorLogBudget = 3
)

// Store is the persistence surface the collector writes through.
type Store interface {
	GetDeviceByIP(ctx context.Context, ip string) (*models.Device, error)
	InsertFlowRecords(ctx context.Context, records []*models.FlowRecord) error
}

// Collector runs the two UDP listeners. Each datagram is handled on
// its own goroutine so parsing never blocks the socket read loop.
type Collector struct {
	store  Store
	geo    *GeoResolver
	logger logger.Logger

	netflowPort int
	sflowPort   int

	netflowConn *net.UDPConn
	sflowConn   *net.UDPConn

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Diagnostic counters; approximate under concurrency is fine.
	received  atomic.Uint64
	parseErrs atomic.Uint64

	mu           sync.Mutex
	errsBySource map[string]int
}

// NewCollector builds a stopped collector. geo may be nil.
func NewCollector(store Store, geo *GeoResolver, netflowPort, sflowPort int, log logger.Logger) *Collector {
	return &Collector{
		store:        store,
		geo:          geo,
		logger:       log.WithComponent("flow"),
		netflowPort:  netflowPort,
		sflowPort:    sflowPort,
		errsBySource: make(map[string]int),
	}
}

// Start binds both sockets and launches the read loops.
func (c *Collector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	var err error

	c.netflowConn, err = listenUDP(c.netflowPort)
	if err != nil {
		return fmt.Errorf("flow: bind netflow port %d: %w", c.netflowPort, err)
	}

	c.sflowConn, err = listenUDP(c.sflowPort)
	if err != nil {
		c.netflowConn.Close()

		return fmt.Errorf("flow: bind sflow port %d: %w", c.sflowPort, err)
	}

	c.wg.Add(2)

	go c.readLoop(ctx, c.netflowConn, ParseNetflowV5)
	go c.readLoop(ctx, c.sflowConn, ParseSflowV5)

	c.logger.Info().
		Int("netflow_port", c.netflowPort).
		Int("sflow_port", c.sflowPort).
		Msg("flow collector started")

	return nil
}

// Stop closes both sockets and waits for in-flight datagram handlers.
func (c *Collector) Stop() {
	if c.cancel != nil {
		c.cancel()
	}

	if c.netflowConn != nil {
		c.netflowConn.Close()
	}

	if c.sflowConn != nil {
		c.sflowConn.Close()
	}

	c.wg.Wait()
	c.logger.Info().
		Uint64("datagrams", c.received.Load()).
		Uint64("parse_errors", c.parseErrs.Load()).
		Msg("flow collector stopped")
}

func listenUDP(port int) (*net.UDPConn, error) {
	return net.ListenUDP("udp", &net.UDPAddr{Port: port})
}

type parseFunc func([]byte) ([]*models.FlowRecord, error)

func (c *Collector) readLoop(ctx context.Context, conn *net.UDPConn, parse parseFunc) {
	defer c.wg.Done()

	buf := make([]byte, maxDatagramSize)

	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}

			c.logger.Warn().Err(err).Msg("udp read failed")

			continue
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])

		c.wg.Add(1)

		go func() {
			defer c.wg.Done()
			c.handleDatagram(ctx, addr.IP.String(), datagram, parse)
		}()
	}
}

// handleDatagram parses and persists one datagram. The UDP source IP
// is authoritative for device attribution; any agent address inside
// the payload is ignored.
func (c *Collector) handleDatagram(ctx context.Context, exporterIP string, datagram []byte, parse parseFunc) {
	c.received.Add(1)

	records, err := parse(datagram)
	if err != nil {
		c.recordParseError(exporterIP, len(datagram), err)

		return
	}

	if len(records) == 0 {
		return
	}

	var deviceID *int64

	device, err := c.store.GetDeviceByIP(ctx, exporterIP)
	if err == nil {
		deviceID = &device.ID
	}

	now := nowUTC()

	for _, r := range records {
		r.DeviceID = deviceID
		r.ExporterIP = exporterIP
		r.Timestamp = now
	}

	c.geo.Enrich(ctx, records)

	if err := c.store.InsertFlowRecords(ctx, records); err != nil {
		c.logger.Error().Err(err).
			Str("exporter", exporterIP).
			Int("records", len(records)).
			Msg("flow insert failed")
	}
}

// recordParseError counts the failure and logs the first few per
// exporter. Malformed packets never abort the listener.
func (c *Collector) recordParseError(exporterIP string, size int, err error) {
	c.parseErrs.Add(1)

	c.mu.Lock()
	n := c.errsBySource[exporterIP]
	c.errsBySource[exporterIP] = n + 1
	c.mu.Unlock()

	if n < parseErrorLogBudget {
		c.logger.Warn().Err(err).
			Str("exporter", exporterIP).
			Int("bytes", size).
			Msg("datagram parse failed")
	}
}
