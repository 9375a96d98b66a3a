package crawler

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/pareedo/pigeonwatch/internal/observability"
	"github.com/pareedo/pigeonwatch/internal/schema"
)

const defaultPoolSize = 4

// ErrPoolClosed is returned for submissions after Close.
var ErrPoolClosed = errors.New("crawler: pool closed")

// Factory constructs a fresh scraper instance for a slot.
type Factory func() Scraper

type poolJob struct {
	fn   func(Scraper)
	done chan struct{}
}

type slot struct {
	jobs chan poolJob
}

// Pool is a fixed set of persistent scraper slots. Each slot owns one
// scraper touched only by that slot's worker goroutine, so scrapes on a
// slot are strictly serialized. A dedicated slot serves the current-lot
// probe.
type Pool struct {
	factory Factory
	slots   []*slot
	current *slot
	rr      atomic.Uint64

	closed    chan struct{}
	closeOnce sync.Once
	lifecycle conc.WaitGroup
	rngMu     sync.Mutex
	rng       *rand.Rand
}

// NewPool starts size slot workers plus the current-probe worker.
// size <= 0 falls back to 4.
func NewPool(size int, factory Factory) *Pool {
	if size <= 0 {
		size = defaultPoolSize
	}
	pool := new(Pool)
	pool.factory = factory
	pool.closed = make(chan struct{})
	pool.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	pool.slots = make([]*slot, size)
	for i := range pool.slots {
		sl := &slot{jobs: make(chan poolJob)}
		pool.slots[i] = sl
		idx := i
		pool.lifecycle.Go(func() { pool.slotWorker(sl, idx) })
	}
	pool.current = &slot{jobs: make(chan poolJob)}
	pool.lifecycle.Go(func() { pool.slotWorker(pool.current, -1) })
	return pool
}

// Size reports the number of general-purpose slots.
func (p *Pool) Size() int { return len(p.slots) }

func (p *Pool) slotWorker(sl *slot, idx int) {
	scraper := p.factory()
	defer func() { _ = scraper.Close() }()
	for {
		select {
		case <-p.closed:
			return
		case job := <-sl.jobs:
			p.runJob(&scraper, idx, job)
		}
	}
}

// runJob executes one job; a panic rebuilds the slot's scraper so slot
// faults never surface to callers.
func (p *Pool) runJob(scraper *Scraper, idx int, job poolJob) {
	defer close(job.done)
	defer func() {
		if r := recover(); r != nil {
			observability.Log().Error("slot fault, rebuilding scraper",
				observability.F("slot", idx),
				observability.F("panic", r))
			_ = (*scraper).Close()
			*scraper = p.factory()
		}
	}()
	job.fn(*scraper)
}

func (p *Pool) submit(ctx context.Context, sl *slot, fn func(Scraper)) error {
	job := poolJob{fn: fn, done: make(chan struct{})}
	select {
	case sl.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		return ErrPoolClosed
	}
	select {
	case <-job.done:
		return nil
	case <-p.closed:
		return ErrPoolClosed
	}
}

// pick returns the next slot index round-robin, with a counter-free fast
// path for single-slot pools.
func (p *Pool) pick() int {
	if len(p.slots) == 1 {
		return 0
	}
	return int(p.rr.Add(1)-1) % len(p.slots)
}

// RunPID scrapes the bid ledger of pid on the next slot and reports the
// slot index used.
func (p *Pool) RunPID(ctx context.Context, pid int64) (int, []map[string]any, error) {
	idx := p.pick()
	var rows []map[string]any
	err := p.submit(ctx, p.slots[idx], func(s Scraper) {
		rows = s.RunCrawl(ctx, pid)
	})
	if err != nil {
		return idx, nil, err
	}
	return idx, rows, nil
}

// CurrentPID probes the dedicated current slot for the live lot.
func (p *Pool) CurrentPID(ctx context.Context) (schema.CurrentLot, int64, error) {
	var (
		lot schema.CurrentLot
		pid int64
		ok  bool
	)
	err := p.submit(ctx, p.current, func(s Scraper) {
		lot, pid, ok = s.CurrentInfo(ctx)
	})
	if err != nil {
		return schema.CurrentLot{}, 0, err
	}
	if !ok {
		return schema.CurrentLot{}, 0, nil
	}
	return lot, pid, nil
}

// RunCurrentOnce probes for the current lot, then scrapes its ledger.
// A missing current lot yields the default lot shape and no rows.
func (p *Pool) RunCurrentOnce(ctx context.Context) (schema.CurrentLot, []map[string]any, error) {
	lot, pid, err := p.CurrentPID(ctx)
	if err != nil {
		return lot, nil, err
	}
	if pid == 0 {
		observability.Log().Warn("skip ledger scrape, no current pid")
		return lot, nil, nil
	}
	idx, rows, err := p.RunPID(ctx, pid)
	if err != nil {
		return lot, nil, err
	}
	observability.Log().Info("ledger fetched",
		observability.F("slot", idx),
		observability.F("pid", pid),
		observability.F("rows", len(rows)))
	return lot, rows, nil
}

// CrawlAuctions runs the paginated auction-list crawl on one slot.
func (p *Pool) CrawlAuctions(ctx context.Context) ([]map[string]any, error) {
	var rows []map[string]any
	err := p.submit(ctx, p.slots[p.pick()], func(s Scraper) {
		rows = s.CrawlAuctions(ctx)
	})
	return rows, err
}

// FetchAllSections fans section fetches out across the slots. Inputs are
// shuffled so repeated sweeps do not hammer the same auctions in order.
func (p *Pool) FetchAllSections(ctx context.Context, auctionIDs []int64) []map[string]any {
	ids := p.shuffled(auctionIDs)
	results := make([][]map[string]any, len(ids))
	var fanout conc.WaitGroup
	for i, id := range ids {
		i, id := i, id
		sl := p.slots[i%len(p.slots)]
		fanout.Go(func() {
			_ = p.submit(ctx, sl, func(s Scraper) {
				results[i] = s.FetchSections(ctx, id)
			})
		})
	}
	fanout.Wait()
	return flatten(results)
}

// SectionRef identifies one auction section for the lot-list fan-out.
type SectionRef struct {
	AuctionID int64
	SectionID int64
}

// FetchAllPigeons fans lot-list fetches out across the slots.
func (p *Pool) FetchAllPigeons(ctx context.Context, refs []SectionRef) []map[string]any {
	shuffled := make([]SectionRef, len(refs))
	copy(shuffled, refs)
	p.rngMu.Lock()
	p.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	p.rngMu.Unlock()

	results := make([][]map[string]any, len(shuffled))
	var fanout conc.WaitGroup
	for i, ref := range shuffled {
		i, ref := i, ref
		sl := p.slots[i%len(p.slots)]
		fanout.Go(func() {
			_ = p.submit(ctx, sl, func(s Scraper) {
				results[i] = s.FetchPigeons(ctx, ref.AuctionID, ref.SectionID)
			})
		})
	}
	fanout.Wait()
	return flatten(results)
}

// Close tears the pool down; idempotent. Slot scrapers are closed by
// their workers on the way out.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
	p.lifecycle.Wait()
}

func (p *Pool) shuffled(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	p.rngMu.Lock()
	p.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	p.rngMu.Unlock()
	return out
}

func flatten(results [][]map[string]any) []map[string]any {
	var total int
	for _, r := range results {
		total += len(r)
	}
	out := make([]map[string]any, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}
