package sniffer

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/coder/websocket"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/pareedo/pigeonwatch/internal/observability"
	"github.com/pareedo/pigeonwatch/internal/schema"
)

// ingestMessage is the wire form posted by the browser tap. Data carries
// base64 for binary frames and the raw text otherwise.
type ingestMessage struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
	Data string `json:"data"`
}

// Ingest accepts the browser tap's websocket connection and feeds tapped
// frames into the drop-head queue.
type Ingest struct {
	queue *DropHeadQueue[schema.Frame]
}

// NewIngest wires an ingest endpoint to the frame queue.
func NewIngest(queue *DropHeadQueue[schema.Frame]) *Ingest {
	ingest := new(Ingest)
	ingest.queue = queue
	return ingest
}

// ServeHTTP upgrades the request and pumps frames until the peer closes
// or the request context is cancelled.
func (in *Ingest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		observability.Log().Warn("ingest accept failed",
			observability.F("error", err.Error()))
		return
	}
	session := uuid.NewString()
	observability.Log().Info("ingest session opened",
		observability.F("session", session),
		observability.F("remote", r.RemoteAddr))
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	in.pump(r.Context(), conn, session)
}

func (in *Ingest) pump(ctx context.Context, conn *websocket.Conn, session string) {
	for {
		_, payload, err := conn.Read(ctx)
		if err != nil {
			observability.Log().Info("ingest session closed",
				observability.F("session", session),
				observability.F("reason", err.Error()))
			return
		}
		frame, ok := decodeIngestMessage(payload)
		if !ok {
			continue
		}
		in.queue.Put(frame)
		observability.Telemetry().IncCounter("sniffer_frames_total", 1,
			map[string]string{"kind": string(frame.Kind)})
	}
}

func decodeIngestMessage(payload []byte) (schema.Frame, bool) {
	var msg ingestMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		observability.Log().Warn("ingest message parse failed",
			observability.F("error", err.Error()))
		return schema.Frame{}, false
	}
	switch msg.Kind {
	case string(schema.FrameBinary):
		data, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			observability.Log().Warn("ingest base64 decode failed",
				observability.F("error", err.Error()))
			return schema.Frame{}, false
		}
		return schema.Frame{URL: msg.URL, Kind: schema.FrameBinary, Data: data}, true
	case string(schema.FrameText):
		return schema.Frame{URL: msg.URL, Kind: schema.FrameText, Data: []byte(msg.Data)}, true
	default:
		return schema.Frame{}, false
	}
}
