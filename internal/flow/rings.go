package flow

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/pareedo/pigeonwatch/internal/enrich"
	"github.com/pareedo/pigeonwatch/internal/observability"
)

// ringKeyHeaders are the header names recognised as the foot-ring
// column, already normalized. The first column is the fallback.
var ringKeyHeaders = map[string]bool{
	"footring":  true,
	"foot_ring": true,
	"ring":      true,
	"足环":        true,
	"足环号":       true,
}

// RingTable is the side context table keyed by normalized foot-ring
// number. A matching row is attached to the snapshot's current lot.
type RingTable struct {
	headers []string
	rows    map[string]map[string]string
}

// LoadRingTable reads the CSV side table once. The first row is the
// header; the ring column is detected by name, defaulting to column 0.
func LoadRingTable(path string) (*RingTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("flow: open ring table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("flow: parse ring table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("flow: ring table %s is empty", path)
	}

	headers := records[0]
	keyCol := 0
	for i, h := range headers {
		if ringKeyHeaders[enrich.Normalize(h)] {
			keyCol = i
			break
		}
	}

	table := new(RingTable)
	table.headers = headers
	table.rows = make(map[string]map[string]string, len(records)-1)
	for _, rec := range records[1:] {
		if keyCol >= len(rec) {
			continue
		}
		key := enrich.Normalize(rec[keyCol])
		if key == "" {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		table.rows[key] = row
	}
	observability.Log().Info("ring table loaded",
		observability.F("path", path),
		observability.F("rows", len(table.rows)))
	return table, nil
}

// Lookup returns the context row for a foot-ring number, or nil.
func (t *RingTable) Lookup(footRing string) map[string]string {
	if t == nil {
		return nil
	}
	return t.rows[enrich.Normalize(footRing)]
}

// Len reports how many rows the table holds.
func (t *RingTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}
