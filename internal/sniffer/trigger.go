package sniffer

import (
	"context"
	"regexp"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/pareedo/pigeonwatch/internal/mqtt"
	"github.com/pareedo/pigeonwatch/internal/observability"
	"github.com/pareedo/pigeonwatch/internal/schema"
)

const defaultWorkerCount = 4

// Handler consumes a decoded event; matches holds the regexp submatch
// slice of the topic pattern that selected it.
type Handler func(ctx context.Context, ev schema.Event, matches []string) error

// StartupHook runs once after workers start and before traffic is served.
type StartupHook func(ctx context.Context) error

type route struct {
	pattern *regexp.Regexp
	handler Handler
}

// Trigger pulls raw frames off the queue, decodes them, and fans decoded
// publish events out to every handler whose pattern matches the topic.
type Trigger struct {
	queue   *DropHeadQueue[schema.Frame]
	decoder *mqtt.Decoder
	workers int

	mu       sync.Mutex
	routes   []route
	startups []StartupHook
}

// NewTrigger wires a trigger to the frame queue. workers <= 0 falls back
// to 4.
func NewTrigger(queue *DropHeadQueue[schema.Frame], decoder *mqtt.Decoder, workers int) *Trigger {
	if workers <= 0 {
		workers = defaultWorkerCount
	}
	if decoder == nil {
		decoder = mqtt.NewDecoder()
	}
	trigger := new(Trigger)
	trigger.queue = queue
	trigger.decoder = decoder
	trigger.workers = workers
	return trigger
}

// OnTopic registers a handler for topics matching pattern. The pattern
// is compiled eagerly; an invalid pattern returns the compile error.
func (t *Trigger) OnTopic(pattern string, h Handler) error {
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.routes = append(t.routes, route{pattern: compiled, handler: h})
	t.mu.Unlock()
	return nil
}

// OnStartup registers a one-shot hook invoked after workers start.
func (t *Trigger) OnStartup(h StartupHook) {
	t.mu.Lock()
	t.startups = append(t.startups, h)
	t.mu.Unlock()
}

// Run starts the worker loops and fires startup hooks, then blocks until
// ctx is cancelled and all workers have drained.
func (t *Trigger) Run(ctx context.Context) {
	var wg conc.WaitGroup
	for i := 0; i < t.workers; i++ {
		worker := i
		wg.Go(func() { t.workerLoop(ctx, worker) })
	}

	for _, hook := range t.snapshotStartups() {
		h := hook
		wg.Go(func() {
			if err := h(ctx); err != nil {
				observability.Log().Warn("startup hook failed",
					observability.F("error", err.Error()))
			}
		})
	}

	wg.Wait()
}

func (t *Trigger) workerLoop(ctx context.Context, worker int) {
	for {
		frame, ok := t.queue.Get(ctx)
		if !ok {
			return
		}
		ev, ok := t.decoder.Decode(frame)
		if !ok {
			continue
		}
		observability.Telemetry().IncCounter("sniffer_events_total", 1,
			map[string]string{"kind": string(ev.Kind)})
		if ev.Kind != schema.EventMQTTPublish {
			continue
		}
		t.dispatch(ctx, ev, worker)
	}
}

func (t *Trigger) dispatch(ctx context.Context, ev schema.Event, worker int) {
	var fanout conc.WaitGroup
	for _, r := range t.snapshotRoutes() {
		matches := r.pattern.FindStringSubmatch(ev.Topic)
		if matches == nil {
			continue
		}
		handler := r.handler
		fanout.Go(func() {
			if err := handler(ctx, ev, matches); err != nil {
				observability.Log().Warn("handler failed",
					observability.F("topic", ev.Topic),
					observability.F("worker", worker),
					observability.F("error", err.Error()))
			}
		})
	}
	fanout.Wait()
}

func (t *Trigger) snapshotRoutes() []route {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]route, len(t.routes))
	copy(out, t.routes)
	return out
}

func (t *Trigger) snapshotStartups() []StartupHook {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StartupHook, len(t.startups))
	copy(out, t.startups)
	return out
}
