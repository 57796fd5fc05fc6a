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

package alerting

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/smtp"
	"time"

	"github.com/carverauto/netpulse/pkg/logger"
	"github.com/carverauto/netpulse/pkg/models"
	"github.com/carverauto/netpulse/pkg/secrets"
)

const webhookTimeout = 10 * time.Second

// Notification is the payload for a first transition into an active
// severity. Type is set for the aggregate engines.
type Notification struct {
	AlertID     int64
	RuleName    string
	Severity    string
	Message     string
	MetricValue float64
	Threshold   float64
	Timestamp   time.Time
	Type        string

	Email   string
	Webhook string
}

// Notifier delivers notifications. Both sinks are fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// SettingsStore resolves SMTP configuration and records failures.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	GetSettingBool(ctx context.Context, key string, fallback bool) bool
	AppendSystemEvent(ctx context.Context, event *models.SystemEvent)
}

type smtpConfig struct {
	host     string
	port     string
	username string
	password string
	useTLS   bool
	fromAddr string
	fromName string
}

// Dispatcher sends email through the SMTP settings and webhooks as a
// single JSON POST. Delivery is never retried; failures land in the
// system event log.
type Dispatcher struct {
	settings SettingsStore
	cipher   *secrets.Cipher
	client   *http.Client
	logger   logger.Logger

	// sendMail is swapped in tests.
	sendMail func(cfg smtpConfig, to string, msg []byte) error
}

// NewDispatcher builds the production notifier.
func NewDispatcher(settings SettingsStore, cipher *secrets.Cipher, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		settings: settings,
		cipher:   cipher,
		client:   &http.Client{Timeout: webhookTimeout},
		logger:   log.WithComponent("notify"),
		sendMail: deliverSMTP,
	}
}

// Notify fans out to the configured sinks.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	if n.Email != "" {
		if err := d.sendEmail(ctx, n); err != nil {
			d.recordFailure(ctx, n, "email_notify_failed", err)
		}
	}

	if n.Webhook != "" {
		if err := d.sendWebhook(ctx, n); err != nil {
			d.recordFailure(ctx, n, "webhook_notify_failed", err)
		}
	}
}

func (d *Dispatcher) sendEmail(ctx context.Context, n Notification) error {
	if !d.settings.GetSettingBool(ctx, models.SettingSMTPEnabled, false) {
		return nil
	}

	cfg, err := d.smtpConfig(ctx)
	if err != nil {
		return err
	}

	from := cfg.fromAddr
	if cfg.fromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.fromName, cfg.fromAddr)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", n.Email)
	fmt.Fprintf(&msg, "Subject: [%s] %s\r\n", n.Severity, n.RuleName)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.WriteString(renderEmailHTML(n))

	return d.sendMail(cfg, n.Email, msg.Bytes())
}

func (d *Dispatcher) smtpConfig(ctx context.Context) (smtpConfig, error) {
	cfg := smtpConfig{port: "587"}

	var err error

	cfg.host, err = d.settings.GetSetting(ctx, models.SettingSMTPHost)
	if err != nil || cfg.host == "" {
		return cfg, fmt.Errorf("alerting: smtp host not configured")
	}

	if port, err := d.settings.GetSetting(ctx, models.SettingSMTPPort); err == nil && port != "" {
		cfg.port = port
	}

	cfg.username, _ = d.settings.GetSetting(ctx, models.SettingSMTPUsername)
	cfg.fromAddr, _ = d.settings.GetSetting(ctx, models.SettingSMTPFromAddress)
	cfg.fromName, _ = d.settings.GetSetting(ctx, models.SettingSMTPFromName)
	cfg.useTLS = d.settings.GetSettingBool(ctx, models.SettingSMTPUseTLS, false)

	if pass, err := d.settings.GetSetting(ctx, models.SettingSMTPPassword); err == nil && pass != "" {
		cfg.password = d.cipher.Decrypt(pass)
	}

	return cfg, nil
}

func renderEmailHTML(n Notification) string {
	return fmt.Sprintf(`<html><body>
<h2>Alert: %s</h2>
<table>
<tr><td>Severity</td><td><b>%s</b></td></tr>
<tr><td>Message</td><td>%s</td></tr>
<tr><td>Value</td><td>%.2f</td></tr>
<tr><td>Threshold</td><td>%.2f</td></tr>
<tr><td>Time</td><td>%s</td></tr>
</table>
</body></html>`,
		n.RuleName, n.Severity, n.Message,
		n.MetricValue, n.Threshold, n.Timestamp.UTC().Format(time.RFC3339))
}

// deliverSMTP speaks implicit TLS when configured, plain with optional
// STARTTLS otherwise.
func deliverSMTP(cfg smtpConfig, to string, msg []byte) error {
	addr := net.JoinHostPort(cfg.host, cfg.port)

	var auth smtp.Auth
	if cfg.username != "" {
		auth = smtp.PlainAuth("", cfg.username, cfg.password, cfg.host)
	}

	if !cfg.useTLS {
		return smtp.SendMail(addr, auth, cfg.fromAddr, []string{to}, msg)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.host})
	if err != nil {
		return fmt.Errorf("smtp tls dial: %w", err)
	}

	client, err := smtp.NewClient(conn, cfg.host)
	if err != nil {
		conn.Close()

		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(cfg.fromAddr); err != nil {
		return err
	}

	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}

	if _, err := w.Write(msg); err != nil {
		return err
	}

	if err := w.Close(); err != nil {
		return err
	}

	return client.Quit()
}

type webhookPayload struct {
	AlertID     int64   `json:"alert_id"`
	RuleName    string  `json:"rule_name"`
	Severity    string  `json:"severity"`
	Message     string  `json:"message"`
	MetricValue float64 `json:"metric_value"`
	Threshold   float64 `json:"threshold"`
	Timestamp   string  `json:"timestamp"`
	Type        string  `json:"type,omitempty"`
}

func (d *Dispatcher) sendWebhook(ctx context.Context, n Notification) error {
	payload := webhookPayload{
		AlertID:     n.AlertID,
		RuleName:    n.RuleName,
		Severity:    n.Severity,
		Message:     n.Message,
		MetricValue: n.MetricValue,
		Threshold:   n.Threshold,
		Timestamp:   n.Timestamp.UTC().Format(time.RFC3339),
		Type:        n.Type,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("alerting: marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("alerting: build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("alerting: post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alerting: webhook returned %d", resp.StatusCode)
	}

	return nil
}

func (d *Dispatcher) recordFailure(ctx context.Context, n Notification, eventType string, err error) {
	d.logger.Warn().Err(err).
		Str("rule", n.RuleName).
		Msg("notification delivery failed")

	d.settings.AppendSystemEvent(ctx, &models.SystemEvent{
		Level:     models.EventLevelWarning,
		Source:    "alerting",
		EventType: eventType,
		Message:   fmt.Sprintf("rule %s: %v", n.RuleName, err),
	})
}
