// Package schema defines canonical domain types shared across layers.
package schema

import "time"

// FrameKind distinguishes raw websocket frame flavours at the ingest boundary.
type FrameKind string

const (
	// FrameText marks a UTF-8 text frame.
	FrameText FrameKind = "text"
	// FrameBinary marks an opaque binary frame.
	FrameBinary FrameKind = "binary"
)

// Frame is one raw websocket frame pushed by the browser tap.
type Frame struct {
	URL  string    `json:"url"`
	Kind FrameKind `json:"kind"`
	Data []byte    `json:"data"`
}

// EventKind enumerates decoded event categories.
type EventKind string

const (
	// EventMQTTPublish identifies a decoded MQTT PUBLISH frame.
	EventMQTTPublish EventKind = "mqtt_publish"
	// EventBinary identifies an undecoded binary frame surfaced as-is.
	EventBinary EventKind = "binary"
	// EventWSText identifies a websocket text frame.
	EventWSText EventKind = "ws_text"
)

// Event is the routed domain event produced by the frame decoder.
type Event struct {
	TS             time.Time `json:"ts"`
	Kind           EventKind `json:"kind"`
	URL            string    `json:"url"`
	Topic          string    `json:"topic,omitempty"`
	PayloadPreview string    `json:"payload_preview,omitempty"`
	Length         int       `json:"length,omitempty"`
}
