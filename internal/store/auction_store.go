package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/pareedo/pigeonwatch/internal/observability"
	"github.com/pareedo/pigeonwatch/internal/schema"
)

const auctionUpsertSQL = `
INSERT INTO gongpeng_info (
    id,
    name,
    organizer_name,
    organizer_phone,
    customer_service_phone,
    start_time,
    end_time,
    status_name,
    live_status_name
)
VALUES (
    @id,
    @name,
    @organizer_name,
    @organizer_phone,
    @customer_service_phone,
    @start_time,
    @end_time,
    @status_name,
    @live_status_name
)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    organizer_name = EXCLUDED.organizer_name,
    organizer_phone = EXCLUDED.organizer_phone,
    customer_service_phone = EXCLUDED.customer_service_phone,
    start_time = EXCLUDED.start_time,
    end_time = EXCLUDED.end_time,
    status_name = EXCLUDED.status_name,
    live_status_name = EXCLUDED.live_status_name;
`

func auctionArgs(a *schema.Auction) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":                     a.ID,
		"name":                   a.Name,
		"organizer_name":         a.OrganizerName,
		"organizer_phone":        a.OrganizerPhone,
		"customer_service_phone": a.CustomerServicePhone,
		"start_time":             a.StartTime,
		"end_time":               a.EndTime,
		"status_name":            a.StatusName,
		"live_status_name":       a.LiveStatusName,
	}
}

// UpsertAuctions writes the auction list in id-sorted chunks so
// repeated sweeps touch rows in a stable order.
func (s *Store) UpsertAuctions(ctx context.Context, auctions []*schema.Auction) error {
	if len(auctions) == 0 {
		return nil
	}
	sorted := make([]*schema.Auction, len(auctions))
	copy(sorted, auctions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for i := 0; i < len(sorted); i += upsertChunkSize {
		chunk := sorted[i:chunkEnd(i, len(sorted), upsertChunkSize)]
		err := s.withWriteRetry(ctx, "upsert auctions", func(ctx context.Context) error {
			batch := new(pgx.Batch)
			for _, a := range chunk {
				batch.Queue(auctionUpsertSQL, auctionArgs(a))
			}
			return s.pool.SendBatch(ctx, batch).Close()
		})
		if err != nil {
			return fmt.Errorf("auction store: upsert batch: %w", err)
		}
	}
	observability.Log().Info("auctions upserted",
		observability.F("count", len(sorted)))
	return nil
}

// SweepFinished marks every auction absent from currentIDs as finished.
// An empty id list is a failed or empty crawl, not an empty site, so it
// skips the sweep.
func (s *Store) SweepFinished(ctx context.Context, currentIDs []int64) error {
	if len(currentIDs) == 0 {
		observability.Log().Info("sweep skipped, empty auction id list")
		return nil
	}
	err := s.withWriteRetry(ctx, "sweep auctions", func(ctx context.Context) error {
		_, execErr := s.pool.Exec(ctx,
			`UPDATE gongpeng_info SET status_name = @finished WHERE NOT (id = ANY(@ids))`,
			pgx.NamedArgs{"finished": StatusFinished, "ids": currentIDs})
		return execErr
	})
	if err != nil {
		return fmt.Errorf("auction store: sweep: %w", err)
	}
	return nil
}

// UnfinishedAuctionIDs lists auctions not yet marked finished; rows
// with no status at all count as unfinished.
func (s *Store) UnfinishedAuctionIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM gongpeng_info WHERE status_name IS DISTINCT FROM $1 ORDER BY id`,
		StatusFinished)
	if err != nil {
		return nil, fmt.Errorf("auction store: unfinished ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("auction store: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auction store: unfinished ids: %w", err)
	}
	return ids, nil
}

// StatusNameMap returns id to status for the given auctions.
func (s *Store) StatusNameMap(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, COALESCE(status_name, '') FROM gongpeng_info WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("auction store: status map: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     int64
			status string
		)
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("auction store: scan status: %w", err)
		}
		out[id] = status
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auction store: status map: %w", err)
	}
	return out, nil
}
