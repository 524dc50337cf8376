package miniagent

import (
	"time"
)

// staleTimeout is how long an instance may go without a heartbeat before
// the Lifecycle Manager times it out (spec §4.11, default 5 min).
const staleTimeout = 5 * time.Minute

// maxActiveAlerts is the health-alert threshold past which an instance is
// force-terminated regardless of heartbeat (spec §4.11).
const maxActiveAlerts = 3

// finishedRetention is how long a terminal instance's record is kept
// before being pruned (spec §4.11, default 24 h).
const finishedRetention = 24 * time.Hour

// lifecycleTick is how often the Lifecycle Manager checks heartbeats,
// health, and retention.
const lifecycleTick = 30 * time.Second

// Lifecycle tracks heartbeats and health for a Spawner's instances, times
// out or force-terminates unhealthy ones, and prunes terminal records past
// their retention window (spec §4.11).
type Lifecycle struct {
	spawner *Spawner
	stop    chan struct{}
}

// NewLifecycle builds a Lifecycle bound to spawner. Call Start to begin the
// background sweep.
func NewLifecycle(spawner *Spawner) *Lifecycle {
	return &Lifecycle{spawner: spawner}
}

// Start begins the background sweep goroutine: ticker-driven,
// panic-recovering, exits when stop is closed.
func (l *Lifecycle) Start(stop chan struct{}) {
	l.stop = stop
	l.spawner.wg.Add(1)
	go l.run(stop)
}

// Stop is a no-op placeholder for symmetry with Spawner.Stop; the sweep
// goroutine exits when the shared stop channel closes.
func (l *Lifecycle) Stop() {}

func (l *Lifecycle) run(stop chan struct{}) {
	defer l.spawner.wg.Done()
	defer func() {
		_ = recover() // a single sweep panic must not take down the process
	}()

	ticker := time.NewTicker(lifecycleTick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Lifecycle) sweep() {
	now := time.Now()
	s := l.spawner

	s.mu.Lock()
	var toTimeout, toForceTerminate, toPrune []string
	for id, inst := range s.active {
		if inst.terminal() {
			if now.Sub(inst.FinishedAt) > finishedRetention {
				toPrune = append(toPrune, id)
			}
			continue
		}
		if inst.Health.ActiveAlerts > maxActiveAlerts {
			toForceTerminate = append(toForceTerminate, id)
		} else if now.Sub(inst.Heartbeat) > staleTimeout {
			toTimeout = append(toTimeout, id)
		}
	}
	s.mu.Unlock()

	for _, id := range toTimeout {
		s.Cancel(id)
		s.emit("agent-progress", map[string]any{"task_id": id, "status": string(StatusTimeout), "reason": "stale heartbeat"})
	}
	for _, id := range toForceTerminate {
		s.Cancel(id)
		s.emit("agent-progress", map[string]any{"task_id": id, "status": string(StatusFailed), "reason": "force-terminated: unhealthy"})
	}
	if len(toPrune) > 0 {
		s.mu.Lock()
		for _, id := range toPrune {
			delete(s.active, id)
		}
		s.mu.Unlock()
	}
}

// recordFinished is called by Spawner once an instance reaches a terminal
// state; it exists to keep the "an agent reaching terminal state is
// recorded for pruning" concern named separately from run-loop bookkeeping,
// even though the instance already lives in s.active.
func (l *Lifecycle) recordFinished(inst *Instance) {
	if inst.FinishedAt.IsZero() {
		inst.FinishedAt = time.Now()
	}
}
