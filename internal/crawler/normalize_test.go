package crawler

import "testing"

func TestExtractRowsTopLevelArray(t *testing.T) {
	rows := ExtractRows([]byte(`[{"id":1},{"id":2}]`))
	if len(rows) != 2 {
		t.Fatalf("rows=%d want 2", len(rows))
	}
}

func TestExtractRowsWrappedObject(t *testing.T) {
	for _, body := range []string{
		`{"data":[{"id":1}]}`,
		`{"list":[{"id":1}]}`,
		`{"records":[{"id":1}]}`,
	} {
		rows := ExtractRows([]byte(body))
		if len(rows) != 1 {
			t.Fatalf("body %s: rows=%d want 1", body, len(rows))
		}
	}
}

func TestExtractRowsDropsNonObjects(t *testing.T) {
	rows := ExtractRows([]byte(`[{"id":1},"junk",42,{"id":2}]`))
	if len(rows) != 2 {
		t.Fatalf("rows=%d want 2", len(rows))
	}
}

func TestExtractRowsInvalidJSON(t *testing.T) {
	if rows := ExtractRows([]byte(`{"data": [`)); rows != nil {
		t.Fatalf("rows=%v want nil", rows)
	}
}

func TestExtractRowsUnrecognizedShape(t *testing.T) {
	if rows := ExtractRows([]byte(`{"payload":[{"id":1}]}`)); rows != nil {
		t.Fatalf("rows=%v want nil", rows)
	}
}

func TestExtractLedgerRowsEnvelope(t *testing.T) {
	rows := ExtractLedgerRows([]byte(`{"code":0,"data":[{"bidid":7}]}`))
	if len(rows) != 1 {
		t.Fatalf("rows=%d want 1", len(rows))
	}
	if _, ok := rows[0]["bidid"]; !ok {
		t.Fatal("row lost its fields")
	}
}

func TestExtractLedgerRowsBidsKey(t *testing.T) {
	rows := ExtractLedgerRows([]byte(`{"bids":[{"bidid":7},{"bidid":8}]}`))
	if len(rows) != 2 {
		t.Fatalf("rows=%d want 2", len(rows))
	}
}

func TestExtractLedgerRowsNestedDict(t *testing.T) {
	rows := ExtractLedgerRows([]byte(`{"data":{"pigeon":{"id":1},"bids":[{"bidid":7}]}}`))
	if len(rows) != 1 {
		t.Fatalf("rows=%d want 1", len(rows))
	}
}

func TestExtractLedgerRowsEmptyBody(t *testing.T) {
	if rows := ExtractLedgerRows(nil); rows != nil {
		t.Fatalf("rows=%v want nil", rows)
	}
}
