package crawler

import (
	json "github.com/goccy/go-json"

	"github.com/pareedo/pigeonwatch/internal/observability"
)

// listKeys are the object fields that may wrap the row array.
var listKeys = []string{"data", "list", "records"}

// ledgerKeys extend listKeys for the per-pigeon bid ledger.
var ledgerKeys = []string{"data", "bids", "records", "list"}

// ExtractRows normalizes a list-style response: either a top-level array
// or an object with one of data/list/records holding the array.
func ExtractRows(body []byte) []map[string]any {
	return extract(body, listKeys, false)
}

// ExtractLedgerRows normalizes the bid-ledger response, additionally
// tolerating {code, data:[...]} envelopes and objects whose data is a
// dict whose values may contain the array (first array wins).
func ExtractLedgerRows(body []byte) []map[string]any {
	return extract(body, ledgerKeys, true)
}

func extract(body []byte, keys []string, nestedDict bool) []map[string]any {
	if len(body) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		observability.Log().Warn("response parse failed",
			observability.F("error", err.Error()),
			observability.F("snippet", snippet(body)))
		return nil
	}

	switch v := decoded.(type) {
	case []any:
		return castRows(v)
	case map[string]any:
		for _, key := range keys {
			inner, ok := v[key]
			if !ok {
				continue
			}
			if rows, ok := inner.([]any); ok {
				return castRows(rows)
			}
			if nestedDict {
				if dict, ok := inner.(map[string]any); ok {
					if rows := firstArrayValue(dict); rows != nil {
						observability.Log().Warn("non-canonical ledger shape accepted",
							observability.F("key", key))
						return castRows(rows)
					}
				}
			}
		}
	}
	observability.Log().Warn("unrecognized response shape",
		observability.F("snippet", snippet(body)))
	return nil
}

// firstArrayValue scans dict values in key order and returns the first
// array found.
func firstArrayValue(dict map[string]any) []any {
	for _, v := range dict {
		if rows, ok := v.([]any); ok {
			return rows
		}
	}
	return nil
}

func castRows(rows []any) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		if m, ok := r.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func snippet(body []byte) string {
	const limit = 128
	if len(body) > limit {
		body = body[:limit]
	}
	return string(body)
}
