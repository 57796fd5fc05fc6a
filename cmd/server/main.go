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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/netpulse/pkg/alerting"
	"github.com/carverauto/netpulse/pkg/config"
	"github.com/carverauto/netpulse/pkg/db"
	"github.com/carverauto/netpulse/pkg/flow"
	"github.com/carverauto/netpulse/pkg/kv"
	"github.com/carverauto/netpulse/pkg/logger"
	"github.com/carverauto/netpulse/pkg/models"
	"github.com/carverauto/netpulse/pkg/ping"
	"github.com/carverauto/netpulse/pkg/poller"
	"github.com/carverauto/netpulse/pkg/scheduler"
	"github.com/carverauto/netpulse/pkg/secrets"
)

const (
	metricsRetention = 90 * 24 * time.Hour
	flowRetention    = 30 * 24 * time.Hour
)

// BackupRunner is fulfilled by the external device-config service.
type BackupRunner interface {
	RunBackup(ctx context.Context, scheduleID int64) error
	CleanupOldBackups(ctx context.Context) error
}

// BlockSyncer pulls null-route and flowspec state from spine devices.
// It is fulfilled by the external device client adapters.
type BlockSyncer interface {
	Sync(ctx context.Context) error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()

	log := logger.New(logger.Config{Level: cfg.LogLevel, Debug: cfg.LogDebug})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.New(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Locks fail open when NATS is unreachable; a single replica keeps
	// working without it.
	var locks kv.Store

	natsStore, err := kv.NewNatsStore(ctx, cfg.NatsURL, "netpulse")
	if err != nil {
		log.Warn().Err(err).Msg("kv store unavailable, scheduler locks fail open")
	} else {
		locks = natsStore
		defer natsStore.Close()
	}

	cipher := secrets.NewCipher(cfg.AppSecret)

	eapi := poller.NewEAPI(cipher, cfg.DeviceSSLVerify)
	snmpPoller := poller.New(store, nil, eapi, cfg.SNMPCommunity, log)

	geo, err := flow.NewGeoResolver(cfg.GeoIPDBPath, locks)
	if err != nil {
		log.Warn().Err(err).Msg("geo database unavailable, flows stay unenriched")
	}

	if geo != nil {
		defer geo.Close()
	}

	collector := flow.NewCollector(store, geo, cfg.NetflowPort, cfg.SflowPort, log)
	if err := collector.Start(ctx); err != nil {
		return fmt.Errorf("start flow collector: %w", err)
	}
	defer collector.Stop()

	rollup := flow.NewRollup(store, cfg.FlowBackfillDays, log)

	go func() {
		if err := rollup.Backfill(ctx); err != nil {
			log.Error().Err(err).Msg("flow rollup backfill failed")
		}
	}()

	pinger := ping.NewMonitor(store, nil, log)

	notifier := alerting.NewDispatcher(store, cipher, log)
	alerts := alerting.New(store, notifier, log)

	// The device-config backup service and the null-route device client
	// are separate deployables; their adapters get constructed here when
	// those services are co-deployed. Left nil, registerJobs skips
	// config_backup, backup_cleanup and block_sync.
	var backups BackupRunner

	var blocks BlockSyncer

	sched := scheduler.New(locks, store, log)

	if err := registerJobs(sched, cfg, store, snmpPoller, rollup, pinger, alerts, backups, blocks, log); err != nil {
		return err
	}

	sched.Start(ctx)

	log.Info().Msg("server started")
	<-ctx.Done()
	log.Info().Msg("shutting down")

	// Deferred order: scheduler drains first, then the collector, then
	// the kv store and DB pool close.
	sched.Stop()

	return nil
}

func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	store *db.Store,
	snmpPoller *poller.Poller,
	rollup *flow.Rollup,
	pinger *ping.Monitor,
	alerts *alerting.Engine,
	backups BackupRunner,
	blocks BlockSyncer,
	log logger.Logger,
) error {
	jobs := []scheduler.Job{
		{ID: "snmp_poll", Interval: cfg.SNMPPollInterval, Handler: snmpPoller.PollAll},
		{ID: "pdu_poll", Interval: cfg.SNMPPollInterval, Handler: snmpPoller.PollPDUs},
		{ID: "alert_eval", Interval: time.Minute, Handler: alerts.Run},
		{ID: "ping_monitor", Interval: time.Minute, Handler: pinger.Run},
		{ID: "mlag_discovery", Interval: time.Minute, Handler: snmpPoller.DiscoverMlag},
		{ID: "mac_discovery", Interval: 5 * time.Minute, Handler: snmpPoller.DiscoverMacs},
		{ID: "topology_discovery", Interval: 5 * time.Minute, Handler: snmpPoller.DiscoverTopology},
		{ID: "flow_rollup", Interval: 5 * time.Minute, Handler: rollup.Run},
		{ID: "metrics_cleanup", Interval: 6 * time.Hour, Handler: func(ctx context.Context) error {
			if err := store.PruneOldMetrics(ctx, metricsRetention); err != nil {
				return err
			}

			_, err := store.PruneOldFlows(ctx, flowRetention)

			return err
		}},
	}

	if blocks != nil {
		jobs = append(jobs, scheduler.Job{ID: "block_sync", Interval: time.Minute, Handler: blocks.Sync})
	}

	if backups != nil {
		jobs = append(jobs,
			scheduler.Job{ID: "config_backup", Interval: time.Minute, Handler: func(ctx context.Context) error {
				return runDueBackups(ctx, store, backups, log)
			}},
			scheduler.Job{ID: "backup_cleanup", At: &scheduler.DailyAt{Hour: 3, Minute: 0}, Handler: backups.CleanupOldBackups},
		)
	}

	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			return fmt.Errorf("register job %s: %w", job.ID, err)
		}
	}

	return nil
}

// runDueBackups consults the per-device schedule rows matching the
// current hour and minute and runs each one.
func runDueBackups(ctx context.Context, store *db.Store, backups BackupRunner, log logger.Logger) error {
	now := time.Now().UTC()

	due, err := store.DueBackupSchedules(ctx, now.Hour(), now.Minute())
	if err != nil {
		return err
	}

	for _, scheduleID := range due {
		if err := backups.RunBackup(ctx, scheduleID); err != nil {
			log.Warn().Err(err).Int64("schedule", scheduleID).Msg("config backup failed")

			store.AppendSystemEvent(ctx, &models.SystemEvent{
				Level:     models.EventLevelWarning,
				Source:    "config_backup",
				EventType: "backup_failed",
				Message:   fmt.Sprintf("schedule %d: %v", scheduleID, err),
			})
		}
	}

	return nil
}
