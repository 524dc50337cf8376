// Package monitor implements the Monitoring Bridge (C12, spec §4.12): an
// attach-/detach-able event sink that fans every subsystem event out to an
// in-memory ring buffer (for GET /api/events and DB-backed-snapshot
// fallback) and a WebSocket hub, under the topic prefixes the spec names
// (metrics:, pipeline:, tool:).
package monitor

import (
	"sync"
	"time"

	"github.com/flexicli/flexicli/internal/secrets"
)

// Event is one subsystem occurrence recorded by the bus.
type Event struct {
	Seq       uint64         `json:"seq"`
	Topic     string         `json:"topic"`
	Name      string         `json:"event"`
	Payload   map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Critical  bool           `json:"-"`
}

// criticalEvents are never dropped under back-pressure (spec §4.12).
var criticalEvents = map[string]bool{
	"error":         true,
	"turn-complete": true,
	"state-change":  true, // covers "aborting" transitions, session-end adjacent
}

// defaultRingSize bounds the in-memory event buffer GET /api/events serves
// from.
const defaultRingSize = 2000

// Bus is the Monitoring Bridge's event sink. It satisfies
// executor.EventSink (and the same shape is reused by the Orchestrator and
// Mini-Agent Spawner) without importing those packages, avoiding an import
// cycle: monitor sits above every other component in the dependency graph.
type Bus struct {
	mu       sync.Mutex
	seq      uint64
	ring     []Event
	head     int
	size     int
	hub      *Hub
	scrubber secrets.Scrubber
}

// scrubbedTopics names the events whose payloads can carry raw tool/shell
// output, the only place secrets could leak into the ring buffer or the
// WebSocket hub.
var scrubbedTopics = map[string]bool{
	"tool-result":  true,
	"tool-execute": true,
}

// NewBus creates an event bus with no WebSocket hub attached (DB-backed
// snapshot mode only, per spec §4.12 "with no agent attached it serves
// DB-backed snapshots only"). Falls back to a no-op scrubber (events pass
// through unredacted) if the default rule set fails to compile, which
// never happens for secrets.DefaultConfig().
func NewBus() *Bus {
	scrubber, err := secrets.New(nil)
	if err != nil {
		scrubber = &secrets.NoopScrubber{}
	}
	return &Bus{ring: make([]Event, defaultRingSize), scrubber: scrubber}
}

// Attach wires a Hub so future events are also broadcast over WebSocket.
func (b *Bus) Attach(h *Hub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hub = h
}

// Detach removes the WebSocket hub, reverting to DB-backed snapshots only.
func (b *Bus) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hub = nil
}

// Emit implements the EventSink interface consumed by
// internal/executor, internal/orchestrator, and internal/miniagent.
func (b *Bus) Emit(event string, payload map[string]any) {
	if scrubbedTopics[event] {
		payload = b.scrubPayload(payload)
	}

	b.mu.Lock()
	b.seq++
	e := Event{
		Seq:       b.seq,
		Topic:     topicFor(event),
		Name:      event,
		Payload:   payload,
		Timestamp: time.Now(),
		Critical:  criticalEvents[event],
	}
	b.ring[b.head] = e
	b.head = (b.head + 1) % len(b.ring)
	if b.size < len(b.ring) {
		b.size++
	}
	hub := b.hub
	b.mu.Unlock()

	if hub != nil {
		hub.Broadcast(e)
	}
}

// scrubPayload redacts secrets from every string-valued field of a
// tool-execute/tool-result payload (command lines, shell output, file
// contents) before the event reaches the ring buffer or WebSocket hub.
// Non-string fields (durations, exit codes, booleans) pass through as-is.
func (b *Bus) scrubPayload(payload map[string]any) map[string]any {
	if len(payload) == 0 {
		return payload
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if s, ok := v.(string); ok {
			out[k] = b.scrubber.Scrub(s).Scrubbed
		} else {
			out[k] = v
		}
	}
	return out
}

// topicFor maps an event name onto the spec §4.12 WebSocket topic prefixes:
// metrics: (token/usage counters), pipeline: (plan/task/agent-progress
// shape), tool: (tool-execute/tool-result).
func topicFor(event string) string {
	switch {
	case event == "token-usage" || event == "turn-complete":
		return "metrics:" + event
	case event == "tool-execute" || event == "tool-result":
		return "tool:" + event
	case event == "plan" || event == "agent-progress" || event == "state-change":
		return "pipeline:" + event
	default:
		return "metrics:" + event
	}
}

// Recent returns up to limit most-recent events, oldest first. limit <= 0
// returns everything buffered.
func (b *Bus) Recent(limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, 0, b.size)
	start := (b.head - b.size + len(b.ring)) % len(b.ring)
	for i := 0; i < b.size; i++ {
		out = append(out, b.ring[(start+i)%len(b.ring)])
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Clear resets the in-memory ring buffer (spec §4.12 POST
// /api/metrics/clear "reset in-memory counters"). DB-backed counts are
// unaffected — they remain the source of truth per spec §9's open-question
// resolution.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ring = make([]Event, len(b.ring))
	b.head = 0
	b.size = 0
}
