package schema

// Span is a half-open highlight interval [start, end) over a string,
// serialized as a two-element array.
type Span [2]int

// HistoryRow is one historical deal returned by the deal-history query.
// The underscore-prefixed fields are attached by the ranking engine for
// front-end rendering.
type HistoryRow struct {
	MatcherName string  `json:"matcher_name"`
	Name        string  `json:"name"`
	FootRing    string  `json:"foot_ring"`
	Quote       float64 `json:"quote"`
	AuctionID   int64   `json:"auction_id"`
	StatusName  string  `json:"status_name"`

	MatchScore float64 `json:"_match_score"`
	MatchExact bool    `json:"_match_exact"`
	MatchHit   bool    `json:"_match_hit"`
	MatchSpans []Span  `json:"_match_spans"`
	AggCount   int     `json:"_agg_count"`
	AggTotal   float64 `json:"_agg_total"`
}

// BidStats aggregates a bidder's completed deals, restricted to the
// current auction plus the *_all variants across all auctions.
type BidStats struct {
	DealCount             int     `json:"deal_count"`
	TotalPrice            float64 `json:"total_price"`
	HighestPrice          float64 `json:"highest_price"`
	SecondHighestPrice    float64 `json:"second_highest_price"`
	DealCountAll          int     `json:"deal_count_all"`
	TotalPriceAll         float64 `json:"total_price_all"`
	HighestPriceAll       float64 `json:"highest_price_all"`
	SecondHighestPriceAll float64 `json:"second_highest_price_all"`
}

// BidRecord is one row of a lot's bid ledger, enriched with intra-batch
// counts, history rows, and per-auction aggregates.
type BidRecord struct {
	ID        int64   `json:"id"`
	Code      string  `json:"code"`
	AuctionID int64   `json:"auction_id"`
	PigeonID  int64   `json:"pigeon_id"`
	Quote     float64 `json:"quote"`

	PigeonCode    *string  `json:"pigeon_code,omitempty"`
	PigeonName    *string  `json:"pigeon_name,omitempty"`
	UserID        *int64   `json:"user_id,omitempty"`
	UserCode      *string  `json:"user_code,omitempty"`
	UserNickname  *string  `json:"user_nickname,omitempty"`
	UserAvatar    *string  `json:"user_avatar,omitempty"`
	Type          *string  `json:"type,omitempty"`
	Margin        *float64 `json:"margin,omitempty"`
	Status        *string  `json:"status,omitempty"`
	StatusTime    *int64   `json:"status_time,omitempty"`
	CreateUserID  *int64   `json:"create_user_id,omitempty"`
	CreateAdminID *int64   `json:"create_admin_id,omitempty"`
	CreateTime    *int64   `json:"create_time,omitempty"`
	CancelUserID  *int64   `json:"cancel_user_id,omitempty"`
	CancelAdminID *int64   `json:"cancel_admin_id,omitempty"`

	// Count is how many times this bidder appears in the current ledger.
	Count int `json:"count"`

	Results map[string][]*HistoryRow `json:"results,omitempty"`
	History []*HistoryRow            `json:"history"`

	AuctionBidCount              int     `json:"auction_bid_count"`
	AuctionTotalPrice            float64 `json:"auction_total_price"`
	AuctionHighestPrice          float64 `json:"auction_highest_price"`
	AuctionSecondHighestPrice    float64 `json:"auction_second_highest_price"`
	AuctionBidCountAll           int     `json:"auction_bid_count_all"`
	AuctionTotalPriceAll         float64 `json:"auction_total_price_all"`
	AuctionHighestPriceAll       float64 `json:"auction_highest_price_all"`
	AuctionSecondHighestPriceAll float64 `json:"auction_second_highest_price_all"`

	MatchScore float64 `json:"match_score"`
}

// UserCodeValue returns the bidder code or the empty string.
func (r *BidRecord) UserCodeValue() string {
	if r == nil || r.UserCode == nil {
		return ""
	}
	return *r.UserCode
}

// TypeValue returns the bid type or the empty string.
func (r *BidRecord) TypeValue() string {
	if r == nil || r.Type == nil {
		return ""
	}
	return *r.Type
}
