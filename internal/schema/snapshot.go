package schema

import "time"

const (
	// SnapshotType is the stable payload type tag for bid snapshots.
	SnapshotType = "pigeon/bids"
	// SnapshotSchemaVersion is the published payload schema version.
	SnapshotSchemaVersion = "1.0"
)

// CurrentLot describes the lot currently being auctioned live.
// Content, when present, is the matching row of the side context table
// keyed by foot-ring number.
type CurrentLot struct {
	ID          *int64            `json:"id"`
	FootRing    *string           `json:"footring"`
	MatcherName *string           `json:"matchername"`
	Content     map[string]string `json:"content,omitempty"`
}

// MatcherNameValue returns the consignor name or the empty string.
func (c CurrentLot) MatcherNameValue() string {
	if c.MatcherName == nil {
		return ""
	}
	return *c.MatcherName
}

// Snapshot is one published enrichment result covering the current lot
// and its bidders.
type Snapshot struct {
	Type          string       `json:"type"`
	SchemaVersion string       `json:"schema_version"`
	TS            int64        `json:"ts"`
	Current       CurrentLot   `json:"current_id"`
	Items         []*BidRecord `json:"items"`
}

// NewSnapshot stamps a snapshot with the stable type tag and the current
// millisecond timestamp.
func NewSnapshot(current CurrentLot, items []*BidRecord) *Snapshot {
	if items == nil {
		items = []*BidRecord{}
	}
	return &Snapshot{
		Type:          SnapshotType,
		SchemaVersion: SnapshotSchemaVersion,
		TS:            time.Now().UnixMilli(),
		Current:       current,
		Items:         items,
	}
}

// ErrorDetail carries a structured error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorPayload is the structured error frame pushed to clients when the
// reactive path fails; it is framed as data, never as a protocol error.
type ErrorPayload struct {
	Type          string      `json:"type"`
	SchemaVersion string      `json:"schema_version"`
	TS            int64       `json:"ts"`
	Error         ErrorDetail `json:"error"`
}

// NewErrorPayload builds an error payload with the current timestamp.
func NewErrorPayload(code, message string) ErrorPayload {
	if code == "" {
		code = "INTERNAL"
	}
	return ErrorPayload{
		Type:          "error",
		SchemaVersion: SnapshotSchemaVersion,
		TS:            time.Now().UnixMilli(),
		Error:         ErrorDetail{Code: code, Message: message},
	}
}
