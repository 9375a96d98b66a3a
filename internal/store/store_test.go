package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pareedo/pigeonwatch/internal/schema"
)

func TestRetryableWrite(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: "40P01"}, true},
		{&pgconn.PgError{Code: "55P03"}, true},
		{&pgconn.PgError{Code: "23505"}, false},
		{errors.New("plain"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := retryableWrite(tc.err); got != tc.want {
			t.Errorf("retryableWrite(%v)=%v want %v", tc.err, got, tc.want)
		}
	}
}

func TestChunkEnd(t *testing.T) {
	if got := chunkEnd(0, 5, 3); got != 3 {
		t.Fatalf("got %d", got)
	}
	if got := chunkEnd(3, 5, 3); got != 5 {
		t.Fatalf("got %d", got)
	}
}

func TestPigeonUpsertSQLGenerated(t *testing.T) {
	sql := pigeonUpsertSQL
	if !strings.HasPrefix(sql, "INSERT INTO pigeon_info (id, code, auction_id") {
		t.Fatalf("sql prefix: %s", sql[:60])
	}
	if !strings.Contains(sql, "ON CONFLICT (id) DO UPDATE SET") {
		t.Fatal("missing conflict clause")
	}
	if strings.Contains(sql, "id = EXCLUDED.id") {
		t.Fatal("primary key must not be updated")
	}
	for _, col := range pigeonColumns {
		if col == "id" {
			continue
		}
		if !strings.Contains(sql, col+" = EXCLUDED."+col) {
			t.Fatalf("column %s missing from update clause", col)
		}
		if !strings.Contains(sql, "@"+col) {
			t.Fatalf("column %s missing named placeholder", col)
		}
	}
}

func TestPigeonArgsCoverEveryColumn(t *testing.T) {
	args := pigeonArgs(&schema.Pigeon{ID: 1, Code: "X", AuctionID: 2, Name: "n"})
	if len(args) != len(pigeonColumns) {
		t.Fatalf("args=%d columns=%d", len(args), len(pigeonColumns))
	}
	for _, col := range pigeonColumns {
		if _, ok := args[col]; !ok {
			t.Fatalf("column %s missing from args", col)
		}
	}
}

func TestAuctionArgsNilOptionals(t *testing.T) {
	args := auctionArgs(&schema.Auction{ID: 245, Name: "Spring"})
	if args["id"] != int64(245) || args["name"] != "Spring" {
		t.Fatalf("args=%v", args)
	}
	if v, ok := args["organizer_name"]; !ok || v.(*string) != nil {
		t.Fatalf("nil optional should pass through as nil pointer, got %v", v)
	}
}

func TestSectionArgsStampStatus(t *testing.T) {
	args := sectionArgs(&schema.Section{ID: 9, AuctionID: 245, Name: "A"}, "进行中")
	if args["status_name"] != "进行中" {
		t.Fatalf("status=%v", args["status_name"])
	}
	if args["auction_id"] != int64(245) {
		t.Fatalf("auction_id=%v", args["auction_id"])
	}
}
