package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pareedo/pigeonwatch/internal/observability"
	"github.com/pareedo/pigeonwatch/internal/schema"
)

// pigeonColumns is the single source of truth for the pigeon_info
// column order; the upsert SQL is generated from it.
var pigeonColumns = []string{
	"id", "code", "auction_id", "auction_type", "margin_ratio", "section_id",
	"name", "ranking", "competition_id", "competition_name", "match_id", "match_name",
	"gugu_pigeon_id", "foot_ring", "feather_color", "matcher_name", "start_price",
	"image", "sort", "client_sort", "is_current", "status", "create_time", "status_time",
	"view_count", "start_time", "end_time", "status_name", "organizer_name",
	"organizer_phone", "order_status", "order_status_name", "is_watched", "remark",
	"ws_remark", "bid_id", "quote", "bid_type", "bid_time", "bid_user_id",
	"bid_user_code", "bid_user_nickname", "bid_user_avatar", "bid_count", "order_id",
	"create_admin_id", "specified_count", "specified_sync",
}

var pigeonUpsertSQL = buildPigeonUpsertSQL()

func buildPigeonUpsertSQL() string {
	placeholders := make([]string, len(pigeonColumns))
	updates := make([]string, 0, len(pigeonColumns)-1)
	for i, col := range pigeonColumns {
		placeholders[i] = "@" + col
		if col != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return fmt.Sprintf(
		"INSERT INTO pigeon_info (%s)\nVALUES (%s)\nON CONFLICT (id) DO UPDATE SET %s;",
		strings.Join(pigeonColumns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "))
}

func pigeonArgs(p *schema.Pigeon) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":                p.ID,
		"code":              p.Code,
		"auction_id":        p.AuctionID,
		"auction_type":      p.AuctionType,
		"margin_ratio":      p.MarginRatio,
		"section_id":        p.SectionID,
		"name":              p.Name,
		"ranking":           p.Ranking,
		"competition_id":    p.CompetitionID,
		"competition_name":  p.CompetitionName,
		"match_id":          p.MatchID,
		"match_name":        p.MatchName,
		"gugu_pigeon_id":    p.GuguPigeonID,
		"foot_ring":         p.FootRing,
		"feather_color":     p.FeatherColor,
		"matcher_name":      p.MatcherName,
		"start_price":       p.StartPrice,
		"image":             p.Image,
		"sort":              p.Sort,
		"client_sort":       p.ClientSort,
		"is_current":        p.IsCurrent,
		"status":            p.Status,
		"create_time":       p.CreateTime,
		"status_time":       p.StatusTime,
		"view_count":        p.ViewCount,
		"start_time":        p.StartTime,
		"end_time":          p.EndTime,
		"status_name":       p.StatusName,
		"organizer_name":    p.OrganizerName,
		"organizer_phone":   p.OrganizerPhone,
		"order_status":      p.OrderStatus,
		"order_status_name": p.OrderStatusName,
		"is_watched":        p.IsWatched,
		"remark":            p.Remark,
		"ws_remark":         p.WSRemark,
		"bid_id":            p.BidID,
		"quote":             p.Quote,
		"bid_type":          p.BidType,
		"bid_time":          p.BidTime,
		"bid_user_id":       p.BidUserID,
		"bid_user_code":     p.BidUserCode,
		"bid_user_nickname": p.BidUserNickname,
		"bid_user_avatar":   p.BidUserAvatar,
		"bid_count":         p.BidCount,
		"order_id":          p.OrderID,
		"create_admin_id":   p.CreateAdminID,
		"specified_count":   p.SpecifiedCount,
		"specified_sync":    p.SpecifiedSync,
	}
}

// UpsertPigeons writes the lot list in id-sorted chunks.
func (s *Store) UpsertPigeons(ctx context.Context, pigeons []*schema.Pigeon) error {
	if len(pigeons) == 0 {
		return nil
	}
	sorted := make([]*schema.Pigeon, len(pigeons))
	copy(sorted, pigeons)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for i := 0; i < len(sorted); i += upsertChunkSize {
		chunk := sorted[i:chunkEnd(i, len(sorted), upsertChunkSize)]
		err := s.withWriteRetry(ctx, "upsert pigeons", func(ctx context.Context) error {
			batch := new(pgx.Batch)
			for _, p := range chunk {
				batch.Queue(pigeonUpsertSQL, pigeonArgs(p))
			}
			return s.pool.SendBatch(ctx, batch).Close()
		})
		if err != nil {
			return fmt.Errorf("pigeon store: upsert batch: %w", err)
		}
	}
	observability.Log().Info("pigeons upserted",
		observability.F("count", len(sorted)))
	return nil
}

// HistoryOptions tunes the deal-history query.
type HistoryOptions struct {
	// StatusWhitelist restricts rows to completed-like statuses. Nil
	// falls back to the default whitelist; an explicit empty slice
	// disables the filter.
	StatusWhitelist []string
	ChunkSize       int
}

// DefaultStatusWhitelist covers the completed-deal statuses.
var DefaultStatusWhitelist = []string{"已完成", "已结拍"}

const historySelectSQL = `
SELECT
    bid_user_code,
    matcher_name,
    name,
    foot_ring,
    quote,
    auction_id,
    status_name
FROM pigeon_info
WHERE bid_user_code = ANY(@codes)
`

// QueryBidHistory returns, per bidder code, completed-deal statistics
// for the given auction and across all auctions, plus the completed
// rows themselves ordered by code and descending price.
func (s *Store) QueryBidHistory(ctx context.Context, userCodes []string, auctionID int64, opts HistoryOptions) (map[string]schema.BidStats, map[string][]*schema.HistoryRow, error) {
	stats := make(map[string]schema.BidStats)
	deals := make(map[string][]*schema.HistoryRow)

	codes := make([]string, 0, len(userCodes))
	for _, uc := range userCodes {
		if trimmed := strings.TrimSpace(uc); trimmed != "" {
			codes = append(codes, trimmed)
		}
	}
	if len(codes) == 0 {
		return stats, deals, nil
	}

	whitelist := opts.StatusWhitelist
	if whitelist == nil {
		whitelist = DefaultStatusWhitelist
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 100
	}

	sql := historySelectSQL
	if len(whitelist) > 0 {
		sql += "  AND status_name = ANY(@statuses)\n"
	}
	sql += "ORDER BY bid_user_code, quote DESC"

	accum := make(map[string]*historyAccum)
	for i := 0; i < len(codes); i += chunkSize {
		chunk := codes[i:chunkEnd(i, len(codes), chunkSize)]
		args := pgx.NamedArgs{"codes": chunk}
		if len(whitelist) > 0 {
			args["statuses"] = whitelist
		}
		if err := s.historyChunk(ctx, sql, args, auctionID, accum, deals); err != nil {
			return nil, nil, err
		}
	}

	for code, acc := range accum {
		st := acc.stats
		st.TotalPrice = acc.total.InexactFloat64()
		st.TotalPriceAll = acc.totalAll.InexactFloat64()
		stats[code] = st
	}
	return stats, deals, nil
}

type historyAccum struct {
	stats    schema.BidStats
	total    decimal.Decimal
	totalAll decimal.Decimal
}

func (s *Store) historyChunk(ctx context.Context, sql string, args pgx.NamedArgs, auctionID int64, accum map[string]*historyAccum, deals map[string][]*schema.HistoryRow) error {
	rows, err := s.pool.Query(ctx, sql, args)
	if err != nil {
		return fmt.Errorf("pigeon store: history query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			code        string
			matcherName *string
			name        *string
			footRing    *string
			quote       *float64
			rowAuction  *int64
			statusName  *string
		)
		if err := rows.Scan(&code, &matcherName, &name, &footRing, &quote, &rowAuction, &statusName); err != nil {
			return fmt.Errorf("pigeon store: scan history row: %w", err)
		}

		q := 0.0
		if quote != nil {
			q = *quote
		}
		row := &schema.HistoryRow{
			MatcherName: deref(matcherName),
			Name:        deref(name),
			FootRing:    deref(footRing),
			Quote:       q,
			StatusName:  deref(statusName),
		}
		if rowAuction != nil {
			row.AuctionID = *rowAuction
		}
		deals[code] = append(deals[code], row)

		acc := accum[code]
		if acc == nil {
			acc = new(historyAccum)
			accum[code] = acc
		}
		price := decimal.NewFromFloat(q)

		acc.stats.DealCountAll++
		acc.totalAll = acc.totalAll.Add(price)
		if q > acc.stats.HighestPriceAll {
			acc.stats.SecondHighestPriceAll = acc.stats.HighestPriceAll
			acc.stats.HighestPriceAll = q
		} else if q > acc.stats.SecondHighestPriceAll {
			acc.stats.SecondHighestPriceAll = q
		}

		if rowAuction != nil && *rowAuction == auctionID {
			acc.stats.DealCount++
			acc.total = acc.total.Add(price)
			if q > acc.stats.HighestPrice {
				acc.stats.SecondHighestPrice = acc.stats.HighestPrice
				acc.stats.HighestPrice = q
			} else if q > acc.stats.SecondHighestPrice {
				acc.stats.SecondHighestPrice = q
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("pigeon store: history rows: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
