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

package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carverauto/netpulse/pkg/models"
	"github.com/carverauto/netpulse/pkg/snmp"
)

// EAPIClient runs commands against an Arista eAPI endpoint. The
// implementation owns transport, auth and TLS policy.
type EAPIClient interface {
	RunCmds(ctx context.Context, device *models.Device, cmds []string) ([]json.RawMessage, error)
}

// mlagShowReply mirrors the relevant fields of `show mlag`.
type mlagShowReply struct {
	DomainID    string `json:"domainId"`
	State       string `json:"state"`
	NegStatus   string `json:"negStatus"`
	PeerAddress string `json:"peerAddress"`
	PeerLink    string `json:"peerLink"`
	MlagPorts   struct {
		Active  int `json:"Active-full"`
		Errored int `json:"Disabled"`
	} `json:"mlagPorts"`
}

// mlagInterfacesReply mirrors `show mlag interfaces`.
type mlagInterfacesReply struct {
	Interfaces map[string]struct {
		LocalInterface string `json:"localInterface"`
		PeerInterface  string `json:"peerInterface"`
		Status         string `json:"status"`
		LocalState     string `json:"localInterfaceStatus"`
		RemoteState    string `json:"peerInterfaceStatus"`
	} `json:"interfaces"`
}

// DiscoverMlag refreshes MLAG state on all spine and leaf devices.
func (p *Poller) DiscoverMlag(ctx context.Context) error {
	for _, deviceType := range []string{models.DeviceTypeSpine, models.DeviceTypeLeaf} {
		devices, err := p.store.ListActiveDevicesByType(ctx, deviceType)
		if err != nil {
			return fmt.Errorf("poller: list %s devices: %w", deviceType, err)
		}

		for _, device := range devices {
			if err := p.discoverDeviceMlag(ctx, device); err != nil {
				p.logger.Debug().Err(err).
					Str("device", device.Hostname).
					Msg("mlag discovery failed")
			}

			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}

	return nil
}

// discoverDeviceMlag prefers eAPI and falls back to the Arista MLAG
// MIB over SNMP. A device with no MLAG configured has its domain row
// deleted.
func (p *Poller) discoverDeviceMlag(ctx context.Context, device *models.Device) error {
	if p.eapi != nil && device.APIUsername != "" {
		domain, ifaces, err := p.mlagViaEAPI(ctx, device)
		if err == nil {
			return p.storeMlag(ctx, device, domain, ifaces)
		}

		p.logger.Debug().Err(err).
			Str("device", device.Hostname).
			Msg("eAPI mlag query failed, trying SNMP")
	}

	domain, err := p.mlagViaSNMP(device)
	if err != nil {
		return err
	}

	return p.storeMlag(ctx, device, domain, nil)
}

func (p *Poller) storeMlag(ctx context.Context, device *models.Device, domain *models.MlagDomain, ifaces []*models.MlagInterface) error {
	if domain == nil {
		return p.store.DeleteMlagDomain(ctx, device.ID)
	}

	return p.store.ReplaceMlagDomain(ctx, domain, ifaces)
}

func (p *Poller) mlagViaEAPI(ctx context.Context, device *models.Device) (*models.MlagDomain, []*models.MlagInterface, error) {
	replies, err := p.eapi.RunCmds(ctx, device, []string{"show mlag", "show mlag interfaces"})
	if err != nil {
		return nil, nil, err
	}

	if len(replies) < 2 {
		return nil, nil, fmt.Errorf("poller: eAPI returned %d replies, want 2", len(replies))
	}

	var show mlagShowReply
	if err := json.Unmarshal(replies[0], &show); err != nil {
		return nil, nil, fmt.Errorf("poller: decode show mlag: %w", err)
	}

	if show.State == "" || show.State == "disabled" {
		return nil, nil, nil
	}

	domain := &models.MlagDomain{
		DeviceID:     device.ID,
		DomainID:     show.DomainID,
		State:        show.State,
		NegStatus:    show.NegStatus,
		PeerAddress:  show.PeerAddress,
		PeerLink:     show.PeerLink,
		PortsActive:  show.MlagPorts.Active,
		PortsErrored: show.MlagPorts.Errored,
		UpdatedAt:    time.Now().UTC(),
	}

	var ifaceReply mlagInterfacesReply
	if err := json.Unmarshal(replies[1], &ifaceReply); err != nil {
		return domain, nil, nil
	}

	ifaces := make([]*models.MlagInterface, 0, len(ifaceReply.Interfaces))

	for port, info := range ifaceReply.Interfaces {
		local := info.LocalInterface
		if local == "" {
			local = port
		}

		ifaces = append(ifaces, &models.MlagInterface{
			LocalPort:   local,
			PeerPort:    info.PeerInterface,
			Status:      info.Status,
			LocalState:  info.LocalState,
			RemoteState: info.RemoteState,
		})
	}

	return domain, ifaces, nil
}

func (p *Poller) mlagViaSNMP(device *models.Device) (*models.MlagDomain, error) {
	sess, err := p.dial(device)
	if err != nil {
		return nil, fmt.Errorf("poller: dial %s: %w", device.IPAddress, err)
	}
	defer sess.Close()

	vals, err := sess.Get([]string{
		oidAristaMlagDomainID,
		oidAristaMlagState,
		oidAristaMlagNegStatus,
		oidAristaMlagPeerAddr,
		oidAristaMlagPeerLink,
	})
	if err != nil {
		return nil, fmt.Errorf("poller: mlag MIB on %s: %w", device.IPAddress, err)
	}

	domainID := vals[oidAristaMlagDomainID]
	if !domainID.Present() || domainID.Str == "" {
		return nil, nil
	}

	return &models.MlagDomain{
		DeviceID:    device.ID,
		DomainID:    domainID.Str,
		State:       mlagStateName(vals[oidAristaMlagState]),
		NegStatus:   mlagNegName(vals[oidAristaMlagNegStatus]),
		PeerAddress: vals[oidAristaMlagPeerAddr].Str,
		PeerLink:    vals[oidAristaMlagPeerLink].Str,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

func mlagStateName(v snmp.Value) string {
	code, _ := v.Int64()

	switch code {
	case 1:
		return "active"
	case 2:
		return "inactive"
	case 3:
		return "primary"
	case 4:
		return "secondary"
	default:
		return "unknown"
	}
}

func mlagNegName(v snmp.Value) string {
	code, _ := v.Int64()

	switch code {
	case 1:
		return "connected"
	case 2:
		return "connecting"
	default:
		return "unknown"
	}
}
