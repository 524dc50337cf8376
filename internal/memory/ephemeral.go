// Package memory implements the Memory Layers (C3, spec §4.3): ephemeral
// conversation LRU, retrieved chunks, knowledge facts, and git context,
// composed into a bounded prompt by buildPrompt.
package memory

import (
	"container/list"
	"sync"
	"time"
)

// Turn is one conversation exchange held in the Ephemeral layer.
type Turn struct {
	Role      string
	Content   string
	At        time.Time
	TokenCost int
}

const ephemeralTTL = 15 * time.Minute

// Ephemeral is an LRU of conversation turns bounded by both byte/token
// budget and a 15-minute TTL (spec §4.3).
type Ephemeral struct {
	mu        sync.Mutex
	order     *list.List // front = most recent
	byteCap   int
	tokenCap  int
	bytesUsed int
	tokensUsed int
	opsSinceCheckpoint int
}

// NewEphemeral builds an Ephemeral layer with the given byte and token caps.
func NewEphemeral(byteCap, tokenCap int) *Ephemeral {
	return &Ephemeral{order: list.New(), byteCap: byteCap, tokenCap: tokenCap}
}

// Add appends a turn, evicting the oldest entries (by insertion order) to
// stay within byteCap/tokenCap, and drops anything already past its TTL.
// It returns true when the caller should checkpoint (every N=3 ops).
func (e *Ephemeral) Add(turn Turn) (checkpoint bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.evictExpiredLocked()

	e.order.PushFront(turn)
	e.bytesUsed += len(turn.Content)
	e.tokensUsed += turn.TokenCost

	for e.order.Len() > 0 && (e.bytesUsed > e.byteCap || e.tokensUsed > e.tokenCap) {
		back := e.order.Back()
		t := back.Value.(Turn)
		e.bytesUsed -= len(t.Content)
		e.tokensUsed -= t.TokenCost
		e.order.Remove(back)
	}

	e.opsSinceCheckpoint++
	if e.opsSinceCheckpoint >= 3 {
		e.opsSinceCheckpoint = 0
		checkpoint = true
	}
	return checkpoint
}

func (e *Ephemeral) evictExpiredLocked() {
	now := time.Now()
	for el := e.order.Back(); el != nil; {
		t := el.Value.(Turn)
		if now.Sub(t.At) <= ephemeralTTL {
			break
		}
		prev := el.Prev()
		e.bytesUsed -= len(t.Content)
		e.tokensUsed -= t.TokenCost
		e.order.Remove(el)
		el = prev
	}
}

// Turns returns the current turns, oldest first, after pruning expired ones.
func (e *Ephemeral) Turns() []Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evictExpiredLocked()

	out := make([]Turn, 0, e.order.Len())
	for el := e.order.Back(); el != nil; el = el.Prev() {
		out = append(out, el.Value.(Turn))
	}
	return out
}

// Clear drops every turn, e.g. on the REPL's /clear command.
func (e *Ephemeral) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.order.Init()
	e.bytesUsed = 0
	e.tokensUsed = 0
	e.opsSinceCheckpoint = 0
}

// TokensUsed reports the current token footprint of the layer.
func (e *Ephemeral) TokensUsed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tokensUsed
}
