package schema

// Auction is a top-level auction event (gongpeng) grouping sections.
type Auction struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	OrganizerName        *string `json:"organizer_name,omitempty"`
	OrganizerPhone       *string `json:"organizer_phone,omitempty"`
	CustomerServicePhone *string `json:"customer_service_phone,omitempty"`
	StartTime            *int64  `json:"start_time,omitempty"`
	EndTime              *int64  `json:"end_time,omitempty"`
	StatusName           *string `json:"status_name,omitempty"`
	LiveStatusName       *string `json:"live_status_name,omitempty"`
}

// Section is a ranked sub-group of lots within an auction.
type Section struct {
	ID        int64  `json:"id"`
	AuctionID int64  `json:"auction_id"`
	Name      string `json:"name"`

	AuctionType          *string  `json:"auction_type,omitempty"`
	OrganizerName        *string  `json:"organizer_name,omitempty"`
	OrganizerPhone       *string  `json:"organizer_phone,omitempty"`
	CustomerServicePhone *string  `json:"customerservice_phone,omitempty"`
	MatchID              *int64   `json:"match_id,omitempty"`
	StartRanking         *int64   `json:"start_ranking,omitempty"`
	EndRanking           *int64   `json:"end_ranking,omitempty"`
	Count                *int64   `json:"count,omitempty"`
	SortType             *string  `json:"sort_type,omitempty"`
	StartPrice           *float64 `json:"start_price,omitempty"`
	Sort                 *int64   `json:"sort,omitempty"`
	CreateAdminID        *int64   `json:"create_admin_id,omitempty"`
	CreateTime           *int64   `json:"create_time,omitempty"`
	StatusName           *string  `json:"status_name,omitempty"`
}

// Pigeon is a single lot, including the denormalized last-bid summary.
type Pigeon struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	AuctionID int64  `json:"auction_id"`
	Name      string `json:"name"`

	AuctionType     *string  `json:"auction_type,omitempty"`
	MarginRatio     *float64 `json:"margin_ratio,omitempty"`
	SectionID       *int64   `json:"section_id,omitempty"`
	Ranking         *int64   `json:"ranking,omitempty"`
	CompetitionID   *int64   `json:"competition_id,omitempty"`
	CompetitionName *string  `json:"competition_name,omitempty"`
	MatchID         *int64   `json:"match_id,omitempty"`
	MatchName       *string  `json:"match_name,omitempty"`
	GuguPigeonID    *string  `json:"gugu_pigeon_id,omitempty"`
	FootRing        *string  `json:"foot_ring,omitempty"`
	FeatherColor    *string  `json:"feather_color,omitempty"`
	MatcherName     *string  `json:"matcher_name,omitempty"`
	StartPrice      *float64 `json:"start_price,omitempty"`
	Image           *string  `json:"image,omitempty"`
	Sort            *int64   `json:"sort,omitempty"`
	ClientSort      *int64   `json:"client_sort,omitempty"`
	IsCurrent       *bool    `json:"is_current,omitempty"`
	Status          *string  `json:"status,omitempty"`
	CreateTime      *int64   `json:"create_time,omitempty"`
	StatusTime      *int64   `json:"status_time,omitempty"`
	ViewCount       *int64   `json:"view_count,omitempty"`
	StartTime       *int64   `json:"start_time,omitempty"`
	EndTime         *int64   `json:"end_time,omitempty"`
	StatusName      *string  `json:"status_name,omitempty"`
	OrganizerName   *string  `json:"organizer_name,omitempty"`
	OrganizerPhone  *string  `json:"organizer_phone,omitempty"`
	OrderStatus     *string  `json:"order_status,omitempty"`
	OrderStatusName *string  `json:"order_status_name,omitempty"`
	IsWatched       *bool    `json:"is_watched,omitempty"`
	Remark          *string  `json:"remark,omitempty"`
	WSRemark        *string  `json:"ws_remark,omitempty"`
	BidID           *int64   `json:"bid_id,omitempty"`
	Quote           *float64 `json:"quote,omitempty"`
	BidType         *string  `json:"bid_type,omitempty"`
	BidTime         *int64   `json:"bid_time,omitempty"`
	BidUserID       *int64   `json:"bid_user_id,omitempty"`
	BidUserCode     *string  `json:"bid_user_code,omitempty"`
	BidUserNickname *string  `json:"bid_user_nickname,omitempty"`
	BidUserAvatar   *string  `json:"bid_user_avatar,omitempty"`
	BidCount        *int64   `json:"bid_count,omitempty"`
	OrderID         *int64   `json:"order_id,omitempty"`
	CreateAdminID   *int64   `json:"create_admin_id,omitempty"`
	SpecifiedCount  *int64   `json:"specified_count,omitempty"`
	SpecifiedSync   *bool    `json:"specified_sync,omitempty"`
}
