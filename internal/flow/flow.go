// Package flow wires the reactive chain: bid topics trigger a scrape of
// the live lot, enrichment against stored deal history, and a snapshot
// publish. A slower periodic sweep keeps the auction tables fresh.
package flow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pareedo/pigeonwatch/errs"
	"github.com/pareedo/pigeonwatch/internal/bus/snapshotbus"
	"github.com/pareedo/pigeonwatch/internal/crawler"
	"github.com/pareedo/pigeonwatch/internal/enrich"
	"github.com/pareedo/pigeonwatch/internal/model"
	"github.com/pareedo/pigeonwatch/internal/observability"
	"github.com/pareedo/pigeonwatch/internal/schema"
	"github.com/pareedo/pigeonwatch/internal/sniffer"
	"github.com/pareedo/pigeonwatch/internal/store"
)

// TopicPattern matches the bid-update topics of the auction stream.
const TopicPattern = `^pigeon/auctions/(?P<auction>\d+)/pigeons/(?P<pigeon>\d+)$`

const (
	defaultCooldown      = 2 * time.Second
	defaultSweepInterval = 60 * time.Minute
)

// Scrapers is the slice of the crawler pool the orchestrator uses.
type Scrapers interface {
	RunCurrentOnce(ctx context.Context) (schema.CurrentLot, []map[string]any, error)
	RunPID(ctx context.Context, pid int64) (int, []map[string]any, error)
	CrawlAuctions(ctx context.Context) ([]map[string]any, error)
	FetchAllSections(ctx context.Context, auctionIDs []int64) []map[string]any
	FetchAllPigeons(ctx context.Context, refs []crawler.SectionRef) []map[string]any
}

// Storage is the slice of the store the orchestrator uses.
type Storage interface {
	QueryBidHistory(ctx context.Context, userCodes []string, auctionID int64, opts store.HistoryOptions) (map[string]schema.BidStats, map[string][]*schema.HistoryRow, error)
	UpsertAuctions(ctx context.Context, auctions []*schema.Auction) error
	SweepFinished(ctx context.Context, currentIDs []int64) error
	UnfinishedAuctionIDs(ctx context.Context) ([]int64, error)
	UpsertSections(ctx context.Context, sections []*schema.Section) error
	RunningSectionRefs(ctx context.Context) ([]store.AuctionSection, error)
	UpsertPigeons(ctx context.Context, pigeons []*schema.Pigeon) error
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Pool  Scrapers
	Store Storage
	Bus   *snapshotbus.Bus
	Rings *RingTable

	// Cooldown is the per-pid debounce window; zero keeps the default.
	Cooldown time.Duration
	// SweepInterval is the periodic table-refresh cadence; zero keeps
	// the default.
	SweepInterval time.Duration
	// Threshold is the fuzzy-hit score floor; zero keeps the default.
	Threshold float64

	BootstrapPIDs       []int64
	BootstrapUseCurrent bool
}

// Orchestrator owns the reactive chain and the periodic sweep.
type Orchestrator struct {
	pool      Scrapers
	store     Storage
	bus       *snapshotbus.Bus
	rings     *RingTable
	debounce  *Debounce
	sweepTick time.Duration
	threshold float64

	bootstrapPIDs       []int64
	bootstrapUseCurrent bool
}

// New constructs an orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	o := new(Orchestrator)
	o.pool = cfg.Pool
	o.store = cfg.Store
	o.bus = cfg.Bus
	o.rings = cfg.Rings
	o.debounce = NewDebounce(cfg.Cooldown)
	o.sweepTick = cfg.SweepInterval
	o.threshold = cfg.Threshold
	o.bootstrapPIDs = cfg.BootstrapPIDs
	o.bootstrapUseCurrent = cfg.BootstrapUseCurrent
	return o
}

// Register hooks the orchestrator into the trigger bus: the bid topic
// route plus the startup bootstrap.
func (o *Orchestrator) Register(trigger *sniffer.Trigger) error {
	if err := trigger.OnTopic(TopicPattern, o.handleTopic); err != nil {
		return fmt.Errorf("flow: register topic: %w", err)
	}
	trigger.OnStartup(o.Bootstrap)
	return nil
}

func (o *Orchestrator) handleTopic(ctx context.Context, ev schema.Event, matches []string) error {
	pid, err := strconv.ParseInt(matches[len(matches)-1], 10, 64)
	if err != nil {
		return fmt.Errorf("flow: parse pid from topic %q: %w", ev.Topic, err)
	}
	if !o.debounce.Allow(pid) {
		observability.Log().Debug("trigger dropped in cooldown",
			observability.F("pid", pid))
		observability.Telemetry().IncCounter("flow_triggers_dropped_total", 1, nil)
		return nil
	}
	observability.Telemetry().IncCounter("flow_triggers_total", 1, nil)
	_, err = o.RefreshOnce(ctx)
	return err
}

// RefreshOnce probes the live lot, scrapes its ledger, enriches, and
// publishes one snapshot.
func (o *Orchestrator) RefreshOnce(ctx context.Context) (*schema.Snapshot, error) {
	current, rows, err := o.pool.RunCurrentOnce(ctx)
	if err != nil {
		return nil, errs.New("flow", errs.CodeUpstream,
			errs.WithMessage("scrape current lot"),
			errs.WithCause(err))
	}
	return o.buildAndPublish(ctx, current, rows)
}

// RefreshPID scrapes one explicit lot's ledger and publishes. Used for
// bootstrap pids where no live-lot probe is wanted.
func (o *Orchestrator) RefreshPID(ctx context.Context, pid int64) (*schema.Snapshot, error) {
	_, rows, err := o.pool.RunPID(ctx, pid)
	if err != nil {
		return nil, errs.New("flow", errs.CodeUpstream,
			errs.WithMessage(fmt.Sprintf("scrape pid %d", pid)),
			errs.WithCause(err))
	}
	return o.buildAndPublish(ctx, schema.CurrentLot{ID: &pid}, rows)
}

func (o *Orchestrator) buildAndPublish(ctx context.Context, current schema.CurrentLot, rows []map[string]any) (*schema.Snapshot, error) {
	records := model.BidRecords(rows)

	codes := enrich.UniqueOnlineUserCodes(records)
	if len(codes) == 0 {
		enrich.AttachEmptyResults(records)
	} else {
		var auctionID int64
		if len(records) > 0 {
			auctionID = records[0].AuctionID
		}
		stats, deals, err := o.store.QueryBidHistory(ctx, codes, auctionID, store.HistoryOptions{})
		if err != nil {
			return nil, errs.New("flow", errs.CodeUnavailable,
				errs.WithMessage("deal history"),
				errs.WithCause(err))
		}
		enrich.Enrich(records, current.MatcherNameValue(), stats, deals, o.threshold)
	}

	if current.FootRing != nil {
		if row := o.rings.Lookup(*current.FootRing); row != nil {
			current.Content = row
		}
	}

	snap := schema.NewSnapshot(current, records)
	o.bus.Publish(snap)
	observability.Telemetry().IncCounter("flow_snapshots_published_total", 1, nil)
	observability.Log().Info("snapshot published",
		observability.F("items", len(records)))
	return snap, nil
}

// Bootstrap runs the startup chain: explicit pids first, then the live
// lot unless disabled. Failures are logged, never fatal; subscribers
// just start without an initial snapshot.
func (o *Orchestrator) Bootstrap(ctx context.Context) error {
	for _, pid := range o.bootstrapPIDs {
		if _, err := o.RefreshPID(ctx, pid); err != nil {
			observability.Log().Warn("bootstrap pid failed",
				observability.F("pid", pid),
				observability.F("error", err.Error()))
		}
	}
	if o.bootstrapUseCurrent {
		if _, err := o.RefreshOnce(ctx); err != nil {
			observability.Log().Warn("bootstrap current lot failed",
				observability.F("error", err.Error()))
		}
	}
	return nil
}

// RunSweep refreshes the auction, section, and lot tables end-to-end.
func (o *Orchestrator) RunSweep(ctx context.Context) error {
	rows, err := o.pool.CrawlAuctions(ctx)
	if err != nil {
		return fmt.Errorf("flow: crawl auctions: %w", err)
	}
	auctions := model.Auctions(rows)
	if err := o.store.UpsertAuctions(ctx, auctions); err != nil {
		return fmt.Errorf("flow: store auctions: %w", err)
	}
	ids := make([]int64, 0, len(auctions))
	for _, a := range auctions {
		ids = append(ids, a.ID)
	}
	if err := o.store.SweepFinished(ctx, ids); err != nil {
		return fmt.Errorf("flow: status sweep: %w", err)
	}

	unfinished, err := o.store.UnfinishedAuctionIDs(ctx)
	if err != nil {
		return fmt.Errorf("flow: unfinished auctions: %w", err)
	}
	sections := model.Sections(o.pool.FetchAllSections(ctx, unfinished))
	if err := o.store.UpsertSections(ctx, sections); err != nil {
		return fmt.Errorf("flow: store sections: %w", err)
	}

	running, err := o.store.RunningSectionRefs(ctx)
	if err != nil {
		return fmt.Errorf("flow: running sections: %w", err)
	}
	refs := make([]crawler.SectionRef, 0, len(running))
	for _, r := range running {
		refs = append(refs, crawler.SectionRef{AuctionID: r.AuctionID, SectionID: r.SectionID})
	}
	pigeons := model.Pigeons(o.pool.FetchAllPigeons(ctx, refs))
	if err := o.store.UpsertPigeons(ctx, pigeons); err != nil {
		return fmt.Errorf("flow: store lots: %w", err)
	}

	observability.Log().Info("sweep complete",
		observability.F("auctions", len(auctions)),
		observability.F("sections", len(sections)),
		observability.F("pigeons", len(pigeons)))
	return nil
}

// SweepLoop runs RunSweep once immediately and then on the configured
// cadence until the context ends. Sweep failures never stop the loop.
func (o *Orchestrator) SweepLoop(ctx context.Context) {
	ticker := time.NewTicker(o.sweepTick)
	defer ticker.Stop()

	for {
		if err := o.RunSweep(ctx); err != nil {
			observability.Log().Warn("sweep failed",
				observability.F("error", err.Error()))
			observability.Telemetry().IncCounter("flow_sweep_failures_total", 1, nil)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
