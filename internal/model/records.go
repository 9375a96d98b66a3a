package model

import (
	"github.com/pareedo/pigeonwatch/internal/schema"
)

// AuctionDescriptor cleans auction-list rows into schema.Auction.
var AuctionDescriptor = &Descriptor{
	Name:     "auction",
	Required: []string{"id", "name"},
	FieldMapping: map[string]string{
		"id":                   "id",
		"name":                 "name",
		"organizername":        "organizer_name",
		"organizerphone":       "organizer_phone",
		"customerservicephone": "customer_service_phone",
		"starttime":            "start_time",
		"endtime":              "end_time",
		"statusname":           "status_name",
		"livestatusname":       "live_status_name",
	},
	Defaults: map[string]any{
		"organizer_name":         nil,
		"organizer_phone":        nil,
		"customer_service_phone": nil,
		"start_time":             nil,
		"end_time":               nil,
		"status_name":            nil,
		"live_status_name":       nil,
	},
	Converters: map[string]Converter{
		"id":                     IntOrNil,
		"name":                   EmptyToNil,
		"organizer_name":         EmptyToNil,
		"organizer_phone":        EmptyToNil,
		"customer_service_phone": EmptyToNil,
		"status_name":            EmptyToNil,
		"live_status_name":       EmptyToNil,
		"start_time":             TimestampSeconds,
		"end_time":               TimestampSeconds,
	},
	Validators: []Validator{
		EndAfterStart("start_time", "end_time"),
	},
}

// SectionDescriptor cleans section-list rows into schema.Section.
var SectionDescriptor = &Descriptor{
	Name:     "section",
	Required: []string{"id", "auction_id", "name"},
	FieldMapping: map[string]string{
		"id":                   "id",
		"name":                 "name",
		"auctionid":            "auction_id",
		"auctiontype":          "auction_type",
		"organizername":        "organizer_name",
		"organizerphone":       "organizer_phone",
		"customerservicephone": "customerservice_phone",
		"matchid":              "match_id",
		"startranking":         "start_ranking",
		"endranking":           "end_ranking",
		"count":                "count",
		"sorttype":             "sort_type",
		"startprice":           "start_price",
		"sort":                 "sort",
		"createadminid":        "create_admin_id",
		"createtime":           "create_time",
		"statusname":           "status_name",
	},
	Defaults: map[string]any{
		"auction_type":          nil,
		"organizer_name":        nil,
		"organizer_phone":       nil,
		"customerservice_phone": nil,
		"match_id":              nil,
		"start_ranking":         nil,
		"end_ranking":           nil,
		"count":                 nil,
		"sort_type":             nil,
		"start_price":           nil,
		"sort":                  nil,
		"create_admin_id":       nil,
		"create_time":           nil,
		"status_name":           nil,
	},
	Converters: map[string]Converter{
		"id":                    IntOrNil,
		"auction_id":            IntOrNil,
		"match_id":              IntOrNil,
		"start_ranking":         IntOrNil,
		"end_ranking":           IntOrNil,
		"count":                 IntOrNil,
		"sort":                  IntOrNil,
		"create_admin_id":       IntOrNil,
		"start_price":           FloatOrNil,
		"name":                  EmptyToNil,
		"auction_type":          EmptyToNil,
		"organizer_name":        EmptyToNil,
		"organizer_phone":       EmptyToNil,
		"customerservice_phone": EmptyToNil,
		"sort_type":             EmptyToNil,
		"status_name":           EmptyToNil,
		"create_time":           TimestampSeconds,
	},
	Validators: []Validator{
		RankingOrdered,
		NonNegative("count"),
		NonNegative("start_price"),
		SortTypeValid,
	},
}

// PigeonDescriptor cleans lot rows into schema.Pigeon.
var PigeonDescriptor = &Descriptor{
	Name:     "pigeon",
	Required: []string{"id", "code", "auction_id", "name"},
	FieldMapping: map[string]string{
		"id":              "id",
		"code":            "code",
		"name":            "name",
		"auctionid":       "auction_id",
		"auctiontype":     "auction_type",
		"marginratio":     "margin_ratio",
		"sectionid":       "section_id",
		"ranking":         "ranking",
		"competitionid":   "competition_id",
		"competitionname": "competition_name",
		"matchid":         "match_id",
		"matchname":       "match_name",
		"gugupigeonid":    "gugu_pigeon_id",
		"footring":        "foot_ring",
		"feathercolor":    "feather_color",
		"matchername":     "matcher_name",
		"startprice":      "start_price",
		"image":           "image",
		"sort":            "sort",
		"clientsort":      "client_sort",
		"iscurrent":       "is_current",
		"status":          "status",
		"createtime":      "create_time",
		"statustime":      "status_time",
		"viewcount":       "view_count",
		"starttime":       "start_time",
		"endtime":         "end_time",
		"statusname":      "status_name",
		"organizername":   "organizer_name",
		"organizerphone":  "organizer_phone",
		"orderstatus":     "order_status",
		"orderstatusname": "order_status_name",
		"iswatched":       "is_watched",
		"remark":          "remark",
		"wsremark":        "ws_remark",
		"bidid":           "bid_id",
		"quote":           "quote",
		"bidtype":         "bid_type",
		"bidtime":         "bid_time",
		"biduserid":       "bid_user_id",
		"bidusercode":     "bid_user_code",
		"bidusernickname": "bid_user_nickname",
		"biduseravatar":   "bid_user_avatar",
		"bidcount":        "bid_count",
		"orderid":         "order_id",
		"createadminid":   "create_admin_id",
		"specifiedcount":  "specified_count",
		"specifiedsync":   "specified_sync",
	},
	Defaults: map[string]any{
		"auction_type":      nil,
		"margin_ratio":      nil,
		"section_id":        nil,
		"ranking":           nil,
		"competition_id":    nil,
		"competition_name":  nil,
		"match_id":          nil,
		"match_name":        nil,
		"gugu_pigeon_id":    nil,
		"foot_ring":         nil,
		"feather_color":     nil,
		"matcher_name":      nil,
		"start_price":       nil,
		"image":             nil,
		"sort":              nil,
		"client_sort":       nil,
		"is_current":        nil,
		"status":            nil,
		"create_time":       nil,
		"status_time":       nil,
		"view_count":        nil,
		"start_time":        nil,
		"end_time":          nil,
		"status_name":       nil,
		"organizer_name":    nil,
		"organizer_phone":   nil,
		"order_status":      nil,
		"order_status_name": nil,
		"is_watched":        nil,
		"remark":            nil,
		"ws_remark":         nil,
		"bid_id":            nil,
		"quote":             nil,
		"bid_type":          nil,
		"bid_time":          nil,
		"bid_user_id":       nil,
		"bid_user_code":     nil,
		"bid_user_nickname": nil,
		"bid_user_avatar":   nil,
		"bid_count":         nil,
		"order_id":          nil,
		"create_admin_id":   nil,
		"specified_count":   nil,
		"specified_sync":    nil,
	},
	Converters: map[string]Converter{
		"id":                IntOrNil,
		"auction_id":        IntOrNil,
		"section_id":        IntOrNil,
		"ranking":           IntOrNil,
		"competition_id":    IntOrNil,
		"match_id":          IntOrNil,
		"view_count":        IntOrNil,
		"bid_id":            IntOrNil,
		"bid_user_id":       IntOrNil,
		"bid_count":         IntOrNil,
		"order_id":          IntOrNil,
		"create_admin_id":   IntOrNil,
		"specified_count":   IntOrNil,
		"sort":              IntOrNil,
		"client_sort":       IntOrNil,
		"code":              EmptyToNil,
		"name":              EmptyToNil,
		"auction_type":      EmptyToNil,
		"competition_name":  EmptyToNil,
		"match_name":        EmptyToNil,
		"gugu_pigeon_id":    EmptyToNil,
		"foot_ring":         EmptyToNil,
		"feather_color":     EmptyToNil,
		"matcher_name":      EmptyToNil,
		"image":             EmptyToNil,
		"status":            EmptyToNil,
		"status_name":       EmptyToNil,
		"organizer_name":    EmptyToNil,
		"organizer_phone":   EmptyToNil,
		"order_status":      EmptyToNil,
		"order_status_name": EmptyToNil,
		"remark":            EmptyToNil,
		"ws_remark":         EmptyToNil,
		"bid_type":          EmptyToNil,
		"bid_user_code":     EmptyToNil,
		"bid_user_nickname": EmptyToNil,
		"bid_user_avatar":   EmptyToNil,
		"margin_ratio":      FloatOrNil,
		"start_price":       FloatOrNil,
		"quote":             FloatOrNil,
		"is_current":        BoolOrNil,
		"is_watched":        BoolOrNil,
		"specified_sync":    BoolOrNil,
		"create_time":       TimestampSeconds,
		"status_time":       TimestampSeconds,
		"start_time":        TimestampSeconds,
		"end_time":          TimestampSeconds,
		"bid_time":          TimestampSeconds,
	},
	Validators: []Validator{
		EndAfterStart("start_time", "end_time"),
		NonNegative("start_price"),
		RatioBounded("margin_ratio"),
	},
}

// BidDescriptor cleans bid-ledger rows into schema.BidRecord.
var BidDescriptor = &Descriptor{
	Name:     "bid",
	Required: []string{"id", "code", "auction_id", "pigeon_id", "quote"},
	FieldMapping: map[string]string{
		"id":            "id",
		"code":          "code",
		"auctionid":     "auction_id",
		"pigeonid":      "pigeon_id",
		"pigeoncode":    "pigeon_code",
		"pigeonname":    "pigeon_name",
		"userid":        "user_id",
		"usercode":      "user_code",
		"usernickname":  "user_nickname",
		"useravatar":    "user_avatar",
		"type":          "type",
		"quote":         "quote",
		"margin":        "margin",
		"status":        "status",
		"statustime":    "status_time",
		"createuserid":  "create_user_id",
		"createadminid": "create_admin_id",
		"createtime":    "create_time",
		"canceluserid":  "cancel_user_id",
		"canceladminid": "cancel_admin_id",
	},
	Defaults: map[string]any{
		"pigeon_code":     nil,
		"pigeon_name":     nil,
		"user_id":         nil,
		"user_code":       nil,
		"user_nickname":   nil,
		"user_avatar":     nil,
		"type":            nil,
		"margin":          nil,
		"status":          nil,
		"status_time":     nil,
		"create_user_id":  nil,
		"create_admin_id": nil,
		"create_time":     nil,
		"cancel_user_id":  nil,
		"cancel_admin_id": nil,
	},
	Converters: map[string]Converter{
		"id":              IntOrNil,
		"auction_id":      IntOrNil,
		"pigeon_id":       IntOrNil,
		"user_id":         IntOrNil,
		"create_user_id":  IntOrNil,
		"create_admin_id": IntOrNil,
		"cancel_user_id":  IntOrNil,
		"cancel_admin_id": IntOrNil,
		"quote":           FloatOrNil,
		"margin":          FloatOrNil,
		"create_time":     TimestampSeconds,
		"status_time":     TimestampSeconds,
		"code":            EmptyToNil,
		"pigeon_code":     EmptyToNil,
		"pigeon_name":     EmptyToNil,
		"user_code":       EmptyToNil,
		"user_nickname":   EmptyToNil,
		"user_avatar":     EmptyToNil,
		"type":            EmptyToNil,
		"status":          EmptyToNil,
	},
}

// Auctions builds auction records from raw rows, skipping bad rows.
func Auctions(rows []map[string]any) []*schema.Auction {
	out, _ := BuildAll[schema.Auction](AuctionDescriptor, rows, false)
	return out
}

// Sections builds section records from raw rows, skipping bad rows.
func Sections(rows []map[string]any) []*schema.Section {
	out, _ := BuildAll[schema.Section](SectionDescriptor, rows, false)
	return out
}

// Pigeons builds lot records from raw rows, skipping bad rows.
func Pigeons(rows []map[string]any) []*schema.Pigeon {
	out, _ := BuildAll[schema.Pigeon](PigeonDescriptor, rows, false)
	return out
}

// BidRecords builds ledger records and stamps each with how many times
// its bidder appears in the batch.
func BidRecords(rows []map[string]any) []*schema.BidRecord {
	records, _ := BuildAll[schema.BidRecord](BidDescriptor, rows, false)
	counts := make(map[string]int, len(records))
	for _, rec := range records {
		if code := rec.UserCodeValue(); code != "" {
			counts[code]++
		}
	}
	for _, rec := range records {
		rec.Count = counts[rec.UserCodeValue()]
	}
	return records
}
