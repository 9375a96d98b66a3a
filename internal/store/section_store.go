package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/pareedo/pigeonwatch/internal/observability"
	"github.com/pareedo/pigeonwatch/internal/schema"
)

const sectionUpsertSQL = `
INSERT INTO section_info (
    id,
    auction_type,
    auction_id,
    name,
    organizer_name,
    organizer_phone,
    customer_service_phone,
    match_id,
    start_ranking,
    end_ranking,
    count,
    sort_type,
    start_price,
    sort,
    create_admin_id,
    create_time,
    status_name
)
VALUES (
    @id,
    @auction_type,
    @auction_id,
    @name,
    @organizer_name,
    @organizer_phone,
    @customer_service_phone,
    @match_id,
    @start_ranking,
    @end_ranking,
    @count,
    @sort_type,
    @start_price,
    @sort,
    @create_admin_id,
    @create_time,
    @status_name
)
ON CONFLICT (id) DO UPDATE SET
    auction_type = EXCLUDED.auction_type,
    auction_id = EXCLUDED.auction_id,
    name = EXCLUDED.name,
    organizer_name = EXCLUDED.organizer_name,
    organizer_phone = EXCLUDED.organizer_phone,
    customer_service_phone = EXCLUDED.customer_service_phone,
    match_id = EXCLUDED.match_id,
    start_ranking = EXCLUDED.start_ranking,
    end_ranking = EXCLUDED.end_ranking,
    count = EXCLUDED.count,
    sort_type = EXCLUDED.sort_type,
    start_price = EXCLUDED.start_price,
    sort = EXCLUDED.sort,
    create_admin_id = EXCLUDED.create_admin_id,
    create_time = EXCLUDED.create_time,
    status_name = EXCLUDED.status_name;
`

func sectionArgs(sec *schema.Section, statusName string) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":                     sec.ID,
		"auction_type":           sec.AuctionType,
		"auction_id":             sec.AuctionID,
		"name":                   sec.Name,
		"organizer_name":         sec.OrganizerName,
		"organizer_phone":        sec.OrganizerPhone,
		"customer_service_phone": sec.CustomerServicePhone,
		"match_id":               sec.MatchID,
		"start_ranking":          sec.StartRanking,
		"end_ranking":            sec.EndRanking,
		"count":                  sec.Count,
		"sort_type":              sec.SortType,
		"start_price":            sec.StartPrice,
		"sort":                   sec.Sort,
		"create_admin_id":        sec.CreateAdminID,
		"create_time":            sec.CreateTime,
		"status_name":            statusName,
	}
}

// UpsertSections writes the section list, stamping each row with its
// parent auction's current status.
func (s *Store) UpsertSections(ctx context.Context, sections []*schema.Section) error {
	if len(sections) == 0 {
		return nil
	}

	auctionIDs := make([]int64, 0, len(sections))
	seen := make(map[int64]bool, len(sections))
	for _, sec := range sections {
		if !seen[sec.AuctionID] {
			seen[sec.AuctionID] = true
			auctionIDs = append(auctionIDs, sec.AuctionID)
		}
	}
	statusMap, err := s.StatusNameMap(ctx, auctionIDs)
	if err != nil {
		return fmt.Errorf("section store: parent status: %w", err)
	}

	sorted := make([]*schema.Section, len(sections))
	copy(sorted, sections)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for i := 0; i < len(sorted); i += upsertChunkSize {
		chunk := sorted[i:chunkEnd(i, len(sorted), upsertChunkSize)]
		err := s.withWriteRetry(ctx, "upsert sections", func(ctx context.Context) error {
			batch := new(pgx.Batch)
			for _, sec := range chunk {
				batch.Queue(sectionUpsertSQL, sectionArgs(sec, statusMap[sec.AuctionID]))
			}
			return s.pool.SendBatch(ctx, batch).Close()
		})
		if err != nil {
			return fmt.Errorf("section store: upsert batch: %w", err)
		}
	}
	observability.Log().Info("sections upserted",
		observability.F("count", len(sorted)))
	return nil
}

// AuctionSection pairs a section with its parent auction.
type AuctionSection struct {
	AuctionID int64
	SectionID int64
}

// RunningSectionRefs lists sections still marked as running, paired
// with their parent auction ids for the lot-list fan-out.
func (s *Store) RunningSectionRefs(ctx context.Context) ([]AuctionSection, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT auction_id, id FROM section_info WHERE status_name = $1 AND auction_id IS NOT NULL ORDER BY id`,
		StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("section store: running refs: %w", err)
	}
	defer rows.Close()

	var refs []AuctionSection
	for rows.Next() {
		var ref AuctionSection
		if err := rows.Scan(&ref.AuctionID, &ref.SectionID); err != nil {
			return nil, fmt.Errorf("section store: scan ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("section store: running refs: %w", err)
	}
	return refs, nil
}
