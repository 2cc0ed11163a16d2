// Package scheduler runs the engine's background cadences — TTL eviction
// sweeps and, when persistence is enabled, periodic snapshotting — on top
// of robfig/cron/v3. No teacher file exercises the library directly (it is
// only listed in go.mod, presumably backing a now-deleted automation
// scheduler), so the wiring follows the library's standard cron.New()/
// AddFunc contract.
package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/barterloop/matchingengine/infrastructure/logging"
	"github.com/barterloop/matchingengine/internal/adapters"
	"github.com/barterloop/matchingengine/internal/app"
)

// Scheduler owns the cron runner backing an App's background sweeps.
type Scheduler struct {
	cron        *cron.Cron
	app         *app.App
	persistence adapters.Persistence
	log         *logging.Logger
}

// New builds a Scheduler. persistence may be nil, in which case snapshot
// sweeps are skipped entirely.
func New(a *app.App, persistence adapters.Persistence, log *logging.Logger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		app:         a,
		persistence: persistence,
		log:         log,
	}
}

// Start registers the TTL sweep (every minute) and, if persistence is
// configured, the snapshot sweep (every 5 minutes), then starts the runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every 1m", s.sweepExpiredCycles); err != nil {
		return err
	}
	if s.persistence != nil {
		if _, err := s.cron.AddFunc("@every 5m", s.snapshotTenants); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron runner and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) sweepExpiredCycles() {
	now := time.Now()
	for id, t := range s.app.Tenants() {
		ttl := t.State.Config.CycleTTL
		if ttl <= 0 {
			continue
		}
		evicted := t.Store.EvictExpired(now, ttl)
		if evicted > 0 && s.log != nil {
			s.log.Tenant(string(id)).WithField("evicted", evicted).Info("swept expired cycles")
		}
	}
}

func (s *Scheduler) snapshotTenants() {
	ctx := context.Background()
	for id, t := range s.app.Tenants() {
		if !t.State.Config.EnablePersistence {
			continue
		}
		st := t.Coordinator.State()
		payload, err := json.Marshal(st)
		if err != nil {
			if s.log != nil {
				s.log.Tenant(string(id)).WithError(err).Error("failed to marshal snapshot payload")
			}
			continue
		}
		seq := uint64(time.Now().UnixNano())
		if err := s.persistence.SaveSnapshot(ctx, id, seq, payload); err != nil && s.log != nil {
			s.log.Tenant(string(id)).WithError(err).Error("failed to save snapshot")
		}
	}
}
