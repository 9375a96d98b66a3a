// Command watcher launches the auction-intelligence pipeline: browser
// tap ingest, trigger bus, crawler pool, store, enrichment, and the SSE
// surface.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sourcegraph/conc"

	"github.com/pareedo/pigeonwatch/config"
	"github.com/pareedo/pigeonwatch/internal/bus/snapshotbus"
	"github.com/pareedo/pigeonwatch/internal/crawler"
	"github.com/pareedo/pigeonwatch/internal/flow"
	"github.com/pareedo/pigeonwatch/internal/mqtt"
	"github.com/pareedo/pigeonwatch/internal/observability"
	"github.com/pareedo/pigeonwatch/internal/schema"
	httpserver "github.com/pareedo/pigeonwatch/internal/server/http"
	"github.com/pareedo/pigeonwatch/internal/sniffer"
	"github.com/pareedo/pigeonwatch/internal/store"
	"github.com/pareedo/pigeonwatch/internal/telemetry"
)

const (
	loggerPrefix            = "watcher "
	shutdownTimeout         = 30 * time.Second
	serverReadHeaderTimeout = 5 * time.Second
)

func main() {
	spiderPath := flag.String("spider", "", "Path to the spider configuration file")
	dbPath := flag.String("db", "", "Path to the database configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(os.Stdout, loggerPrefix, log.LstdFlags|log.Lmicroseconds)

	envCfg, err := config.LoadFlowEnv()
	if err != nil {
		logger.Fatalf("load environment: %v", err)
	}

	zapLogger, err := observability.NewProductionLogger(envCfg.Debug)
	if err != nil {
		logger.Fatalf("initialise logger: %v", err)
	}
	observability.SetLogger(zapLogger)
	observability.SetMetrics(telemetry.NewPrometheusMetrics("pigeonwatch", nil))

	if *spiderPath == "" {
		*spiderPath = envCfg.SpiderConfigPath
	}
	if *dbPath == "" {
		*dbPath = envCfg.DBConfigPath
	}
	spiderCfg, err := config.LoadSpider(*spiderPath)
	if err != nil {
		logger.Fatalf("load spider config: %v", err)
	}
	dbCfg, err := config.LoadDB(*dbPath)
	if err != nil {
		logger.Fatalf("load db config: %v", err)
	}
	dsn := dbCfg.Database.DSN()

	if err := store.Migrate(ctx, dsn); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}
	pgPool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Fatalf("open database pool: %v", err)
	}
	st := store.New(pgPool)
	defer st.Close()

	var rings *flow.RingTable
	if spiderCfg.Spreadsheet != "" {
		rings, err = flow.LoadRingTable(spiderCfg.Spreadsheet)
		if err != nil {
			logger.Printf("ring table unavailable: %v", err)
			rings = nil
		}
	}

	crawlerPool := crawler.NewPool(envCfg.MaxConcurrency, func() crawler.Scraper {
		return crawler.NewAPIScraper(spiderCfg.Endpoints, spiderCfg.UserAgents, spiderCfg.Proxies)
	})
	defer crawlerPool.Close()

	queue := sniffer.NewDropHeadQueue[schema.Frame](envCfg.QueueCap)
	decoder := mqtt.NewDecoder()
	decoder.MinBinaryLen = envCfg.MinBinLen
	trigger := sniffer.NewTrigger(queue, decoder, envCfg.MaxConcurrency)

	bus := snapshotbus.New()
	defer bus.Close()

	orchestrator := flow.New(flow.Config{
		Pool:                crawlerPool,
		Store:               st,
		Bus:                 bus,
		Rings:               rings,
		Cooldown:            envCfg.Cooldown(),
		SweepInterval:       envCfg.SweepInterval(),
		BootstrapPIDs:       envCfg.BootstrapPIDs,
		BootstrapUseCurrent: envCfg.BootstrapUseCurrent,
	})
	if err := orchestrator.Register(trigger); err != nil {
		logger.Fatalf("register flow: %v", err)
	}

	handler := httpserver.NewHandler(httpserver.Config{
		Bus:         bus,
		Ingest:      sniffer.NewIngest(queue),
		Trigger:     orchestrator.RefreshOnce,
		WaitTimeout: envCfg.SSEWait(),
	})
	server := &http.Server{
		Addr:              envCfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: serverReadHeaderTimeout,
	}

	var lifecycle conc.WaitGroup
	lifecycle.Go(func() { trigger.Run(ctx) })
	lifecycle.Go(func() { orchestrator.SweepLoop(ctx) })
	lifecycle.Go(func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("http server: %v", err)
			cancel()
		}
	})

	logger.Printf("watcher started: listen=%s slots=%d tap=%s",
		envCfg.Listen, envCfg.MaxConcurrency, spiderCfg.TargetURL)
	<-ctx.Done()
	logger.Print("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	shutdownStart := time.Now()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
	bus.Close()
	crawlerPool.Close()
	lifecycle.Wait()
	logger.Printf("shutdown completed in %v", time.Since(shutdownStart))
}
