// Package enrich attaches deal history, per-auction aggregates, and
// consignor-similarity rankings to a lot's bid ledger.
package enrich

import (
	"sort"
	"strings"

	"github.com/pareedo/pigeonwatch/internal/schema"
)

// DefaultThreshold is the similarity score at or above which a history
// row counts as a fuzzy hit on the consignor name.
const DefaultThreshold = 0.8

// Normalize collapses internal whitespace, trims, lower-cases, and
// folds the full-width hyphen so consignor names compare cleanly.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "－", "-")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Similarity scores two strings in [0, 1] as 2*LCS/(len(a)+len(b)),
// measured in runes. Either side empty scores zero.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	return 2 * float64(lcsLength(ra, rb)) / float64(len(ra)+len(rb))
}

func lcsLength(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				cur[j] = prev[j+1] + 1
			} else if prev[j] >= cur[j+1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j+1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[0]
}

// LCSHighlightSpans returns the rune indices of a that belong to a
// longest common subsequence with b, merged into half-open [start, end)
// spans. Spans index into a.
func LCSHighlightSpans(a, b string) []schema.Span {
	if a == "" || b == "" {
		return nil
	}
	ra, rb := []rune(a), []rune(b)
	n, m := len(ra), len(rb)

	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if ra[i] == rb[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	var spans []schema.Span
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case ra[i] == rb[j]:
			if len(spans) > 0 && spans[len(spans)-1][1] == i {
				spans[len(spans)-1][1] = i + 1
			} else {
				spans = append(spans, schema.Span{i, i + 1})
			}
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			i++
		default:
			j++
		}
	}
	return spans
}

// UniqueOnlineUserCodes collects the sorted distinct bidder codes of
// online-type records. Offline and code-less rows are skipped.
func UniqueOnlineUserCodes(records []*schema.BidRecord) []string {
	seen := make(map[string]bool)
	for _, rec := range records {
		if rec.TypeValue() != "online" {
			continue
		}
		if code := rec.UserCodeValue(); code != "" {
			seen[code] = true
		}
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// AttachEmptyResults marks every record as having no matching history.
// Used when the ledger carries no online bidders at all.
func AttachEmptyResults(records []*schema.BidRecord) {
	for _, rec := range records {
		rec.Results = map[string][]*schema.HistoryRow{rec.UserCodeValue(): {}}
		rec.History = []*schema.HistoryRow{}
	}
}

type matcherAgg struct {
	count int
	total float64
}

// Enrich wires each record's history rows and auction aggregates, then
// scores and ranks every row against the current lot's consignor name.
// History row slices are shared between records of the same bidder, so
// the per-row match fields are computed once per bidder.
func Enrich(records []*schema.BidRecord, compareName string, stats map[string]schema.BidStats, deals map[string][]*schema.HistoryRow, threshold float64) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	normCompare := Normalize(compareName)
	ranked := make(map[string]bool)

	for _, rec := range records {
		code := rec.UserCodeValue()
		rows := deals[code]
		if rows == nil {
			rows = []*schema.HistoryRow{}
		}
		rec.Results = map[string][]*schema.HistoryRow{code: rows}
		rec.History = rows

		st := stats[code]
		rec.AuctionBidCount = st.DealCount
		rec.AuctionTotalPrice = st.TotalPrice
		rec.AuctionHighestPrice = st.HighestPrice
		rec.AuctionSecondHighestPrice = st.SecondHighestPrice
		rec.AuctionBidCountAll = st.DealCountAll
		rec.AuctionTotalPriceAll = st.TotalPriceAll
		rec.AuctionHighestPriceAll = st.HighestPriceAll
		rec.AuctionSecondHighestPriceAll = st.SecondHighestPriceAll

		if len(rows) == 0 {
			continue
		}
		if !ranked[code] {
			ranked[code] = true
			rankRows(rows, compareName, normCompare, threshold)
		}
		rec.MatchScore = rows[0].MatchScore
		for _, row := range rows[1:] {
			if row.MatchScore > rec.MatchScore {
				rec.MatchScore = row.MatchScore
			}
		}
	}
}

func rankRows(rows []*schema.HistoryRow, compareRaw, compareNorm string, threshold float64) {
	agg := make(map[string]*matcherAgg, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.MatcherName)
		a := agg[name]
		if a == nil {
			a = new(matcherAgg)
			agg[name] = a
		}
		a.count++
		a.total += row.Quote
	}

	for _, row := range rows {
		raw := strings.TrimSpace(row.MatcherName)
		norm := Normalize(raw)
		if norm != "" && compareNorm != "" {
			row.MatchScore = Similarity(norm, compareNorm)
		}
		row.MatchExact = norm != "" && norm == compareNorm
		row.MatchHit = row.MatchScore >= threshold
		row.MatchSpans = LCSHighlightSpans(raw, compareRaw)
		row.AggCount = agg[raw].count
		row.AggTotal = agg[raw].total
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.MatchExact != b.MatchExact {
			return a.MatchExact
		}
		if a.MatchHit != b.MatchHit {
			return a.MatchHit
		}
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		if a.AggCount != b.AggCount {
			return a.AggCount > b.AggCount
		}
		return a.AggTotal > b.AggTotal
	})
}
