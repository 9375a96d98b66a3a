package crawler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pareedo/pigeonwatch/internal/schema"
)

// stubScraper records calls and can detect concurrent entry, which would
// mean a slot ran two jobs at once.
type stubScraper struct {
	id int

	mu        sync.Mutex
	inFlight  bool
	violation *atomic.Bool

	currentPID int64
	ledger     map[int64][]map[string]any
	crawlCalls *atomic.Int32
	closed     *atomic.Int32
	panicOnce  *atomic.Bool
}

func (s *stubScraper) enter() {
	s.mu.Lock()
	if s.inFlight && s.violation != nil {
		s.violation.Store(true)
	}
	s.inFlight = true
	s.mu.Unlock()
}

func (s *stubScraper) leave() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *stubScraper) CrawlAuctions(context.Context) []map[string]any {
	s.enter()
	defer s.leave()
	if s.crawlCalls != nil {
		s.crawlCalls.Add(1)
	}
	return []map[string]any{{"id": float64(1)}}
}

func (s *stubScraper) FetchSections(_ context.Context, auctionID int64) []map[string]any {
	s.enter()
	defer s.leave()
	time.Sleep(2 * time.Millisecond)
	return []map[string]any{{"auctionid": auctionID}}
}

func (s *stubScraper) FetchPigeons(_ context.Context, auctionID, sectionID int64) []map[string]any {
	s.enter()
	defer s.leave()
	time.Sleep(2 * time.Millisecond)
	return []map[string]any{{"auctionid": auctionID, "sectionid": sectionID}}
}

func (s *stubScraper) CurrentInfo(context.Context) (schema.CurrentLot, int64, bool) {
	s.enter()
	defer s.leave()
	if s.currentPID == 0 {
		return schema.CurrentLot{}, 0, true
	}
	pid := s.currentPID
	return schema.CurrentLot{ID: &pid}, pid, true
}

func (s *stubScraper) RunCrawl(_ context.Context, pid int64) []map[string]any {
	s.enter()
	defer s.leave()
	if s.panicOnce != nil && s.panicOnce.CompareAndSwap(false, true) {
		panic("ledger parser blew up")
	}
	return s.ledger[pid]
}

func (s *stubScraper) Close() error {
	if s.closed != nil {
		s.closed.Add(1)
	}
	return nil
}

func TestPoolSlotSerialization(t *testing.T) {
	var violation atomic.Bool
	var next atomic.Int32
	pool := NewPool(2, func() Scraper {
		return &stubScraper{id: int(next.Add(1)), violation: &violation}
	})
	defer pool.Close()

	ctx := context.Background()
	refs := make([]SectionRef, 24)
	for i := range refs {
		refs[i] = SectionRef{AuctionID: int64(i), SectionID: int64(i * 10)}
	}
	rows := pool.FetchAllPigeons(ctx, refs)
	if len(rows) != len(refs) {
		t.Fatalf("rows=%d want %d", len(rows), len(refs))
	}
	if violation.Load() {
		t.Fatal("a scraper was entered concurrently")
	}
}

func TestPoolRunCurrentOnce(t *testing.T) {
	pool := NewPool(1, func() Scraper {
		return &stubScraper{
			currentPID: 187099,
			ledger:     map[int64][]map[string]any{187099: {{"bidid": float64(1)}, {"bidid": float64(2)}}},
		}
	})
	defer pool.Close()

	lot, rows, err := pool.RunCurrentOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if lot.ID == nil || *lot.ID != 187099 {
		t.Fatalf("lot=%+v", lot)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d want 2", len(rows))
	}
}

func TestPoolRunCurrentOnceNoLiveLot(t *testing.T) {
	pool := NewPool(1, func() Scraper { return &stubScraper{} })
	defer pool.Close()

	lot, rows, err := pool.RunCurrentOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if lot.ID != nil {
		t.Fatalf("lot=%+v want empty", lot)
	}
	if rows != nil {
		t.Fatalf("rows=%v want nil", rows)
	}
}

func TestPoolFanOutCollectsAllSections(t *testing.T) {
	pool := NewPool(3, func() Scraper { return &stubScraper{} })
	defer pool.Close()

	ids := []int64{1, 2, 3, 4, 5, 6, 7}
	rows := pool.FetchAllSections(context.Background(), ids)
	if len(rows) != len(ids) {
		t.Fatalf("rows=%d want %d", len(rows), len(ids))
	}
	seen := make(map[int64]bool)
	for _, row := range rows {
		seen[row["auctionid"].(int64)] = true
	}
	for _, id := range ids {
		if !seen[id] {
			t.Fatalf("auction %d missing from fan-out results", id)
		}
	}
}

func TestPoolSelfHealsAfterPanic(t *testing.T) {
	var panicOnce atomic.Bool
	var built atomic.Int32
	pool := NewPool(1, func() Scraper {
		built.Add(1)
		return &stubScraper{
			panicOnce: &panicOnce,
			ledger:    map[int64][]map[string]any{7: {{"bidid": float64(9)}}},
		}
	})
	defer pool.Close()

	ctx := context.Background()
	_, rows, err := pool.RunPID(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if rows != nil {
		t.Fatalf("panicked job should yield no rows, got %v", rows)
	}
	// Same slot serves the next job with a rebuilt scraper.
	_, rows, err = pool.RunPID(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%d want 1", len(rows))
	}
	// One general slot, the probe slot, plus the post-panic rebuild.
	if built.Load() != 3 {
		t.Fatalf("factory calls=%d want 3", built.Load())
	}
}

func TestPoolCloseIsIdempotentAndClosesScrapers(t *testing.T) {
	var closed atomic.Int32
	pool := NewPool(2, func() Scraper { return &stubScraper{closed: &closed} })
	pool.Close()
	pool.Close()
	// 2 slots plus the current-probe slot.
	if closed.Load() != 3 {
		t.Fatalf("closed=%d want 3", closed.Load())
	}
	if _, _, err := pool.RunPID(context.Background(), 1); err != ErrPoolClosed {
		t.Fatalf("err=%v want ErrPoolClosed", err)
	}
}
