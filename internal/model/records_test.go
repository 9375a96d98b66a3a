package model

import "testing"

func TestBidRecordsFromLedgerRows(t *testing.T) {
	rows := []map[string]any{
		{
			"id": float64(615399), "code": "JJ1", "auctionid": float64(314),
			"pigeonid": float64(187862), "quote": float64(1500),
			"usercode": "GUGU007", "type": "online", "createtime": float64(1761292654000),
		},
		{
			"id": float64(615400), "code": "JJ2", "auctionid": float64(314),
			"pigeonid": float64(187862), "quote": float64(1600),
			"usercode": "GUGU007", "type": "online",
		},
		{
			"id": float64(615401), "code": "JJ3", "auctionid": float64(314),
			"pigeonid": float64(187862), "quote": float64(1700),
			"usercode": "GUGU008", "type": "offline",
		},
	}
	records := BidRecords(rows)
	if len(records) != 3 {
		t.Fatalf("records=%d want 3", len(records))
	}
	if records[0].Count != 2 || records[1].Count != 2 {
		t.Fatalf("repeat bidder counts: %d, %d", records[0].Count, records[1].Count)
	}
	if records[2].Count != 1 {
		t.Fatalf("single bidder count: %d", records[2].Count)
	}
	if records[0].CreateTime == nil || *records[0].CreateTime != 1761292654 {
		t.Fatalf("create_time=%v, millisecond input not folded to seconds", records[0].CreateTime)
	}
	if records[0].Margin != nil {
		t.Fatal("absent margin should stay nil")
	}
}

func TestBidRecordsSkipsRowsMissingCore(t *testing.T) {
	rows := []map[string]any{
		{"id": 1, "code": "A", "auctionid": 2, "pigeonid": 3, "quote": 100},
		{"code": "B", "auctionid": 2, "pigeonid": 3, "quote": 200},
	}
	records := BidRecords(rows)
	if len(records) != 1 {
		t.Fatalf("records=%d want 1", len(records))
	}
	if records[0].ID != 1 {
		t.Fatalf("id=%d", records[0].ID)
	}
}

func TestAuctionsMapsFlatKeys(t *testing.T) {
	rows := []map[string]any{{
		"id": float64(245), "name": "Spring Shed", "organizername": "",
		"starttime": float64(1700000000), "endtime": float64(1700090000),
		"statusname": "进行中",
	}}
	auctions := Auctions(rows)
	if len(auctions) != 1 {
		t.Fatalf("auctions=%d", len(auctions))
	}
	a := auctions[0]
	if a.ID != 245 || a.Name != "Spring Shed" {
		t.Fatalf("auction=%+v", a)
	}
	if a.OrganizerName != nil {
		t.Fatal("blank organizer should stay nil")
	}
	if a.StatusName == nil || *a.StatusName != "进行中" {
		t.Fatalf("status=%v", a.StatusName)
	}
}

func TestAuctionsRejectInvertedTimes(t *testing.T) {
	rows := []map[string]any{{
		"id": 1, "name": "x",
		"starttime": float64(200), "endtime": float64(100),
	}}
	if auctions := Auctions(rows); len(auctions) != 0 {
		t.Fatalf("inverted time range should drop the row, got %d", len(auctions))
	}
}

func TestSectionsValidation(t *testing.T) {
	good := map[string]any{
		"id": 11, "auctionid": 245, "name": "Section A",
		"startranking": 1, "endranking": 50, "startprice": 300, "sorttype": "asc",
	}
	bad := map[string]any{
		"id": 12, "auctionid": 245, "name": "Section B",
		"startranking": 50, "endranking": 1,
	}
	sections := Sections([]map[string]any{good, bad})
	if len(sections) != 1 {
		t.Fatalf("sections=%d want 1", len(sections))
	}
	s := sections[0]
	if s.AuctionID != 245 || s.StartPrice == nil || *s.StartPrice != 300 {
		t.Fatalf("section=%+v", s)
	}
}

func TestPigeonsValidation(t *testing.T) {
	rows := []map[string]any{
		{
			"id": 187099, "code": "SG1", "auctionid": 245, "name": "Lot 1",
			"marginratio": 0.2, "iscurrent": "1", "bidusercode": "GUGU007",
			"footring": "2024-01-12345",
		},
		{
			"id": 187100, "code": "SG2", "auctionid": 245, "name": "Lot 2",
			"marginratio": 1.5,
		},
	}
	pigeons := Pigeons(rows)
	if len(pigeons) != 1 {
		t.Fatalf("pigeons=%d want 1, ratio above 1 should drop the row", len(pigeons))
	}
	p := pigeons[0]
	if p.IsCurrent == nil || !*p.IsCurrent {
		t.Fatalf("is_current=%v", p.IsCurrent)
	}
	if p.BidUserCode == nil || *p.BidUserCode != "GUGU007" {
		t.Fatalf("bid_user_code=%v", p.BidUserCode)
	}
}
