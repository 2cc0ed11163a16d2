// Command matchingengine runs the trade-loop matching engine as an HTTP
// service: one coordinator goroutine per tenant, background TTL/snapshot
// sweeps, and an optional event sink and persistence backend selected by
// environment variables.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/infrastructure/config"
	"github.com/barterloop/matchingengine/infrastructure/eventsink/rsink"
	"github.com/barterloop/matchingengine/infrastructure/eventsink/wshub"
	"github.com/barterloop/matchingengine/infrastructure/logging"
	"github.com/barterloop/matchingengine/infrastructure/metrics"
	"github.com/barterloop/matchingengine/infrastructure/persistence/memory"
	"github.com/barterloop/matchingengine/infrastructure/persistence/postgres"
	"github.com/barterloop/matchingengine/infrastructure/scheduler"
	"github.com/barterloop/matchingengine/internal/adapters"
	"github.com/barterloop/matchingengine/internal/app"
	"github.com/barterloop/matchingengine/internal/cycleengine"
	"github.com/barterloop/matchingengine/internal/tenant"
	transporthttp "github.com/barterloop/matchingengine/transport/http"
)

const serviceName = "matchingengine"

func main() {
	log := logging.NewFromEnv(serviceName)
	m := metrics.Init(serviceName)

	var sink adapters.EventSink
	switch strings.ToLower(config.GetEnv("EVENT_SINK", "none")) {
	case "websocket":
		hub := wshub.New(log)
		sink = hub
		http.Handle("/ws", hub)
	case "redis":
		sink = rsink.New(rsink.Config{
			Addr:          config.GetEnv("REDIS_ADDR", "localhost:6379"),
			Password:      config.GetEnv("REDIS_PASSWORD", ""),
			ChannelPrefix: config.GetEnv("REDIS_CHANNEL_PREFIX", "matchingengine"),
		})
	}

	var persistence adapters.Persistence
	switch strings.ToLower(config.GetEnv("PERSISTENCE_BACKEND", "memory")) {
	case "postgres":
		store, err := postgres.New(postgres.ConfigFromEnv())
		if err != nil {
			log.WithComponent().WithError(err).Fatal("failed to initialize postgres persistence")
		}
		persistence = store
	default:
		persistence = memory.New()
	}

	a := app.New(cycleengine.New(), sink, adapters.SystemClock{}, log, m)

	tenantIDs := strings.Split(config.GetEnv("TENANT_IDS", "default"), ",")
	for _, raw := range tenantIDs {
		id := trade.TenantID(strings.TrimSpace(raw))
		if id == "" {
			continue
		}
		cfg := tenant.DefaultConfig()
		cfg.EnablePersistence = config.GetEnvBool("ENABLE_PERSISTENCE", false)
		if _, err := a.CreateTenant(id, cfg); err != nil {
			log.WithComponent().WithError(err).Fatal("failed to create tenant")
		}
		log.WithComponent().WithField("tenantId", id).Info("tenant provisioned")
	}

	sched := scheduler.New(a, persistence, log)
	if err := sched.Start(); err != nil {
		log.WithComponent().WithError(err).Fatal("failed to start scheduler")
	}
	defer sched.Stop()

	router := transporthttp.NewRouter(a, log, m, serviceName)
	addr := config.GetEnv("HTTP_ADDR", ":8080")
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithComponent().WithField("addr", addr).Info("matching engine listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithComponent().WithError(err).Fatal("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.WithComponent().Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithComponent().WithError(err).Error("graceful shutdown failed")
	}
	for _, id := range a.List() {
		if bundle, err := a.Get(id); err == nil {
			bundle.Coordinator.Close()
		}
	}
}
