// Package mqtt decodes the MQTT-over-WebSocket frame subset tapped from
// the auction site's messaging stream.
package mqtt

import (
	"encoding/binary"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pareedo/pigeonwatch/internal/observability"
	"github.com/pareedo/pigeonwatch/internal/schema"
)

const (
	packetTypePublish  = 0x3
	heartbeatPingReq   = 0xC0
	heartbeatPingResp  = 0xD0
	maxVarintBytes     = 4
	topicPreviewLimit  = 64
	textPreviewLimit   = 256
	defaultMinBinLen   = 10
	continuationBit    = 0x80
	varintPayloadMask  = 0x7F
	maxRemainingLength = 268435455
)

var (
	errTruncated       = errors.New("mqtt: truncated frame")
	errMalformedVarint = errors.New("mqtt: malformed remaining length")
)

// Decoder turns raw tapped frames into routed domain events.
type Decoder struct {
	// MinBinaryLen drops binary frames shorter than this bound.
	MinBinaryLen int
	// SurfaceBinary emits non-PUBLISH binary frames as EventBinary.
	SurfaceBinary bool
	// SurfaceText emits text frames as EventWSText.
	SurfaceText bool
}

// NewDecoder constructs a decoder with default bounds.
func NewDecoder() *Decoder {
	decoder := new(Decoder)
	decoder.MinBinaryLen = defaultMinBinLen
	return decoder
}

// Decode parses one raw frame. The second return is false when the frame
// yields no event (heartbeats, undersized or malformed buffers).
func (d *Decoder) Decode(frame schema.Frame) (schema.Event, bool) {
	if frame.Kind == schema.FrameText {
		if !d.SurfaceText {
			return schema.Event{}, false
		}
		preview := string(frame.Data)
		if len(preview) > textPreviewLimit {
			preview = preview[:textPreviewLimit]
		}
		return schema.Event{
			TS:             time.Now(),
			Kind:           schema.EventWSText,
			URL:            frame.URL,
			PayloadPreview: preview,
			Length:         len(frame.Data),
		}, true
	}

	data := frame.Data
	if isHeartbeat(data) {
		return schema.Event{}, false
	}
	minLen := d.MinBinaryLen
	if minLen <= 0 {
		minLen = defaultMinBinLen
	}
	if len(data) < minLen {
		return schema.Event{}, false
	}

	if data[0]>>4 == packetTypePublish {
		topic, payload, err := decodePublish(data)
		if err != nil {
			observability.Log().Debug("mqtt publish decode failed",
				observability.F("error", err.Error()),
				observability.F("len", len(data)))
			return schema.Event{}, false
		}
		return schema.Event{
			TS:             time.Now(),
			Kind:           schema.EventMQTTPublish,
			URL:            frame.URL,
			Topic:          topic,
			PayloadPreview: previewPayload(payload),
			Length:         len(data),
		}, true
	}

	if d.SurfaceBinary {
		return schema.Event{
			TS:     time.Now(),
			Kind:   schema.EventBinary,
			URL:    frame.URL,
			Length: len(data),
		}, true
	}
	return schema.Event{}, false
}

func isHeartbeat(data []byte) bool {
	return len(data) >= 2 &&
		data[1] == 0x00 &&
		(data[0] == heartbeatPingReq || data[0] == heartbeatPingResp)
}

// DecodeRemainingLength parses the MQTT varint starting at data[offset].
// It returns the value and the number of bytes consumed.
func DecodeRemainingLength(data []byte, offset int) (int, int, error) {
	value := 0
	multiplier := 1
	consumed := 0
	for {
		if offset+consumed >= len(data) {
			return 0, 0, errTruncated
		}
		if consumed >= maxVarintBytes {
			return 0, 0, errMalformedVarint
		}
		b := data[offset+consumed]
		value += int(b&varintPayloadMask) * multiplier
		consumed++
		if b&continuationBit == 0 {
			return value, consumed, nil
		}
		multiplier *= 128
	}
}

// EncodeRemainingLength emits the canonical varint encoding of n.
func EncodeRemainingLength(n int) []byte {
	if n < 0 || n > maxRemainingLength {
		return nil
	}
	out := make([]byte, 0, maxVarintBytes)
	for {
		b := byte(n % 128)
		n /= 128
		if n > 0 {
			b |= continuationBit
		}
		out = append(out, b)
		if n == 0 {
			return out
		}
	}
}

func decodePublish(data []byte) (string, []byte, error) {
	flags := data[0] & 0x0F
	qos := (flags >> 1) & 0x03

	remaining, consumed, err := DecodeRemainingLength(data, 1)
	if err != nil {
		return "", nil, err
	}
	pos := 1 + consumed
	end := pos + remaining
	if end > len(data) {
		end = len(data)
	}

	if pos+2 > end {
		return "", nil, errTruncated
	}
	topicLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
	pos += 2
	if pos+topicLen > end {
		return "", nil, errTruncated
	}
	topicRaw := data[pos : pos+topicLen]
	if !utf8.Valid(topicRaw) {
		return "", nil, errors.New("mqtt: invalid utf-8 topic")
	}
	topic := string(topicRaw)
	pos += topicLen

	if qos > 0 {
		if pos+2 > end {
			return "", nil, errTruncated
		}
		pos += 2
	}

	return topic, data[pos:end], nil
}

func previewPayload(payload []byte) string {
	if len(payload) > topicPreviewLimit {
		payload = payload[:topicPreviewLimit]
	}
	lenient := strings.ToValidUTF8(string(payload), "")
	return strings.TrimSpace(lenient)
}
