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

// Package snmp wraps gosnmp with per-device client construction and a
// typed varbind container.
package snmp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

const (
	defaultPort    = 161
	defaultTimeout = 5 * time.Second
	defaultRetries = 1
)

// ClientConfig carries everything needed to reach one agent. Credentials
// arrive already decrypted.
type ClientConfig struct {
	Target    string
	Port      uint16
	Version   string // "1", "2c" or "3"
	Community string

	// SNMPv3
	SecurityName  string
	AuthProtocol  string // MD5, SHA, SHA224, SHA256, SHA384, SHA512
	AuthPassword  string
	PrivProtocol  string // DES, AES, AES192, AES256
	PrivPassword  string
	SecurityLevel string // noAuthNoPriv, authNoPriv, authPriv

	Timeout time.Duration
	Retries int
}

// Client is a connected SNMP session against one device.
type Client struct {
	conn *gosnmp.GoSNMP
}

// NewClient builds a client from config without connecting.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Target == "" {
		return nil, fmt.Errorf("snmp: empty target")
	}

	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRetries
	}

	conn := &gosnmp.GoSNMP{
		Target:  cfg.Target,
		Port:    port,
		Timeout: timeout,
		Retries: retries,
	}

	if err := configureVersion(conn, cfg); err != nil {
		return nil, err
	}

	return &Client{conn: conn}, nil
}

func configureVersion(conn *gosnmp.GoSNMP, cfg ClientConfig) error {
	switch strings.ToLower(cfg.Version) {
	case "1":
		conn.Version = gosnmp.Version1
		conn.Community = cfg.Community
	case "", "2c", "v2c":
		conn.Version = gosnmp.Version2c
		conn.Community = cfg.Community
	case "3", "v3":
		conn.Version = gosnmp.Version3

		return configureV3(conn, cfg)
	default:
		return fmt.Errorf("snmp: unsupported version %q", cfg.Version)
	}

	return nil
}

func configureV3(conn *gosnmp.GoSNMP, cfg ClientConfig) error {
	conn.SecurityModel = gosnmp.UserSecurityModel

	usm := &gosnmp.UsmSecurityParameters{UserName: cfg.SecurityName}
	conn.SecurityParameters = usm

	switch strings.ToLower(cfg.SecurityLevel) {
	case "noauthnopriv", "":
		conn.MsgFlags = gosnmp.NoAuthNoPriv

		return nil
	case "authnopriv":
		conn.MsgFlags = gosnmp.AuthNoPriv
	case "authpriv":
		conn.MsgFlags = gosnmp.AuthPriv
	default:
		return fmt.Errorf("snmp: unsupported security level %q", cfg.SecurityLevel)
	}

	auth, err := authProtocol(cfg.AuthProtocol)
	if err != nil {
		return err
	}

	usm.AuthenticationProtocol = auth
	usm.AuthenticationPassphrase = cfg.AuthPassword

	if conn.MsgFlags == gosnmp.AuthPriv {
		priv, err := privProtocol(cfg.PrivProtocol)
		if err != nil {
			return err
		}

		usm.PrivacyProtocol = priv
		usm.PrivacyPassphrase = cfg.PrivPassword
	}

	return nil
}

func authProtocol(name string) (gosnmp.SnmpV3AuthProtocol, error) {
	switch strings.ToUpper(name) {
	case "MD5":
		return gosnmp.MD5, nil
	case "SHA", "SHA1":
		return gosnmp.SHA, nil
	case "SHA224":
		return gosnmp.SHA224, nil
	case "SHA256":
		return gosnmp.SHA256, nil
	case "SHA384":
		return gosnmp.SHA384, nil
	case "SHA512":
		return gosnmp.SHA512, nil
	default:
		return gosnmp.NoAuth, fmt.Errorf("snmp: unsupported auth protocol %q", name)
	}
}

func privProtocol(name string) (gosnmp.SnmpV3PrivProtocol, error) {
	switch strings.ToUpper(name) {
	case "DES":
		return gosnmp.DES, nil
	case "AES", "AES128":
		return gosnmp.AES, nil
	case "AES192":
		return gosnmp.AES192, nil
	case "AES256":
		return gosnmp.AES256, nil
	default:
		return gosnmp.NoPriv, fmt.Errorf("snmp: unsupported privacy protocol %q", name)
	}
}

// Connect opens the UDP session.
func (c *Client) Connect() error {
	if err := c.conn.Connect(); err != nil {
		return fmt.Errorf("snmp: connect %s: %w", c.conn.Target, err)
	}

	return nil
}

// Close releases the socket.
func (c *Client) Close() {
	if c.conn.Conn != nil {
		_ = c.conn.Conn.Close()
	}
}

// Get fetches scalar OIDs in one PDU and returns decoded values keyed by
// OID. Absent objects appear with KindAbsent so callers can distinguish
// "device lacks this MIB" from a transport failure.
func (c *Client) Get(oids []string) (map[string]Value, error) {
	packet, err := c.conn.Get(oids)
	if err != nil {
		return nil, fmt.Errorf("snmp: get %s: %w", c.conn.Target, err)
	}

	out := make(map[string]Value, len(packet.Variables))

	for _, pdu := range packet.Variables {
		out[normalizeOID(pdu.Name)] = decodeValue(pdu)
	}

	return out, nil
}

// Walk iterates a subtree, calling fn per varbind. BulkWalk is used for
// v2c/v3; v1 falls back to Get-Next.
func (c *Client) Walk(baseOID string, fn func(oid string, value Value) error) error {
	walker := func(pdu gosnmp.SnmpPDU) error {
		return fn(normalizeOID(pdu.Name), decodeValue(pdu))
	}

	var err error
	if c.conn.Version == gosnmp.Version1 {
		err = c.conn.Walk(baseOID, walker)
	} else {
		err = c.conn.BulkWalk(baseOID, walker)
	}

	if err != nil {
		return fmt.Errorf("snmp: walk %s on %s: %w", baseOID, c.conn.Target, err)
	}

	return nil
}

// WalkColumn walks one conceptual table column and keys results by the
// trailing index of each instance OID. Varbinds whose suffix is not a
// plain integer (multi-part indexes) are skipped.
func (c *Client) WalkColumn(columnOID string) (map[int]Value, error) {
	out := make(map[int]Value)

	err := c.Walk(columnOID, func(oid string, value Value) error {
		idx, ok := trailingIndex(columnOID, oid)
		if !ok {
			return nil
		}

		out[idx] = value

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// WalkSuffix walks a subtree and keys results by the full OID suffix
// below the base, for tables with composite indexes.
func (c *Client) WalkSuffix(baseOID string) (map[string]Value, error) {
	out := make(map[string]Value)
	prefix := normalizeOID(baseOID) + "."

	err := c.Walk(baseOID, func(oid string, value Value) error {
		if !strings.HasPrefix(oid, prefix) {
			return nil
		}

		out[strings.TrimPrefix(oid, prefix)] = value

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func normalizeOID(oid string) string {
	return strings.TrimPrefix(oid, ".")
}

func trailingIndex(base, oid string) (int, bool) {
	suffix := strings.TrimPrefix(oid, normalizeOID(base))
	suffix = strings.TrimPrefix(suffix, ".")

	if suffix == "" || strings.Contains(suffix, ".") {
		return 0, false
	}

	idx, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}

	return idx, true
}
