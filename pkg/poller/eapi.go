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
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/carverauto/netpulse/pkg/models"
	"github.com/carverauto/netpulse/pkg/secrets"
)

const eapiTimeout = 10 * time.Second

// EAPI is the JSON-RPC 2.0 client for Arista eAPI. Device API
// passwords are decrypted on use.
type EAPI struct {
	client *http.Client
	cipher *secrets.Cipher
}

// NewEAPI builds the client. sslVerify=false accepts self-signed
// device certificates, the common case for management interfaces.
func NewEAPI(cipher *secrets.Cipher, sslVerify bool) *EAPI {
	transport := &http.Transport{}
	if !sslVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &EAPI{
		client: &http.Client{Timeout: eapiTimeout, Transport: transport},
		cipher: cipher,
	}
}

type eapiRequest struct {
	Jsonrpc string     `json:"jsonrpc"`
	Method  string     `json:"method"`
	Params  eapiParams `json:"params"`
	ID      string     `json:"id"`
}

type eapiParams struct {
	Version int      `json:"version"`
	Cmds    []string `json:"cmds"`
	Format  string   `json:"format"`
}

type eapiResponse struct {
	Result []json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RunCmds executes commands in order and returns one JSON result per
// command.
func (e *EAPI) RunCmds(ctx context.Context, device *models.Device, cmds []string) ([]json.RawMessage, error) {
	if device.APIUsername == "" {
		return nil, fmt.Errorf("poller: device %s has no API credentials", device.Hostname)
	}

	body, err := json.Marshal(eapiRequest{
		Jsonrpc: "2.0",
		Method:  "runCmds",
		Params:  eapiParams{Version: 1, Cmds: cmds, Format: "json"},
		ID:      "netpulse",
	})
	if err != nil {
		return nil, fmt.Errorf("poller: marshal eAPI request: %w", err)
	}

	url := fmt.Sprintf("https://%s/command-api", device.IPAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("poller: build eAPI request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(device.APIUsername, e.cipher.Decrypt(device.APIPassword))

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poller: eAPI call to %s: %w", device.IPAddress, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poller: eAPI call to %s: status %d", device.IPAddress, resp.StatusCode)
	}

	var reply eapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("poller: decode eAPI response from %s: %w", device.IPAddress, err)
	}

	if reply.Error != nil {
		return nil, fmt.Errorf("poller: eAPI error %d from %s: %s", reply.Error.Code, device.IPAddress, reply.Error.Message)
	}

	return reply.Result, nil
}

var _ EAPIClient = (*EAPI)(nil)
