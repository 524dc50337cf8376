package miniagent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/flexicli/flexicli/internal/errs"
	"github.com/flexicli/flexicli/internal/executor"
	"github.com/flexicli/flexicli/internal/memory"
	"github.com/flexicli/flexicli/internal/orchestrator"
	"github.com/flexicli/flexicli/internal/tools"
)

// queueTick is how often the queue processor pulls a waiting task once a
// concurrency slot frees (spec §4.11: "ticks every 1 s").
const queueTick = 1 * time.Second

// Spawner is the Mini-Agent Spawner & Lifecycle (C11). It validates and
// merges permissions for incoming tasks, runs up to maxConcurrent agents at
// once via a weighted semaphore, queues the rest in priority order, and
// hands each accepted task to an Orchestrator running in scoped mode.
type Spawner struct {
	orch      *orchestrator.Orchestrator
	templates map[TaskType]Template
	queue     *Queue
	sem       *semaphore.Weighted
	sink      executor.EventSink

	mu      sync.Mutex
	active  map[string]*Instance
	cancels map[string]context.CancelFunc

	lifecycle *Lifecycle

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSpawner builds a Spawner. maxConcurrent bounds simultaneous mini-agents
// (spec §5 resource limit: default 10); queueCapacity bounds the pending
// queue (default 100, spec §4.11).
func NewSpawner(orch *orchestrator.Orchestrator, maxConcurrent, queueCapacity int, sink executor.EventSink) *Spawner {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	s := &Spawner{
		orch:      orch,
		templates: DefaultTemplates(),
		queue:     NewQueue(queueCapacity),
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
		sink:      sink,
		active:    make(map[string]*Instance),
		cancels:   make(map[string]context.CancelFunc),
	}
	s.lifecycle = NewLifecycle(s)
	return s
}

// Start begins the background queue processor and the lifecycle manager:
// idempotent, panic-recovering background goroutines signalled by a
// re-created stop channel.
func (s *Spawner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return fmt.Errorf("miniagent: spawner already started")
	}
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runQueueProcessor(ctx, stop)
	s.lifecycle.Start(stop)
	return nil
}

// Stop signals the background goroutines to exit and waits for them.
func (s *Spawner) Stop() {
	s.mu.Lock()
	stop := s.stopCh
	s.stopCh = nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	s.wg.Wait()
	s.lifecycle.Stop()
}

func (s *Spawner) runQueueProcessor(ctx context.Context, stop chan struct{}) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.emit("spawner-panic", map[string]any{"panic": fmt.Sprint(r)})
		}
	}()

	ticker := time.NewTicker(queueTick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.sem.TryAcquire(1) {
				continue
			}
			task, ok := s.queue.Pop()
			if !ok {
				s.sem.Release(1)
				continue
			}
			s.runInstance(ctx, task)
		}
	}
}

// Spawn validates task, merges its permissions with its template's
// defaults, and either runs it immediately (a concurrency slot is free) or
// enqueues it (spec §4.11 steps 1-3).
func (s *Spawner) Spawn(ctx context.Context, task Task) (*Instance, error) {
	tmpl, ok := s.templates[task.Type]
	if !ok {
		return nil, errs.Validation("miniagent.Spawn", "unknown mini-agent task type: "+string(task.Type), nil)
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}

	task.Permissions = tools.Intersect(tmpl.Permissions, task.Permissions)
	if task.Prompt == "" {
		task.Prompt = tmpl.PromptPrefix
	} else {
		task.Prompt = tmpl.PromptPrefix + task.Prompt
	}
	task.EnqueuedAt = time.Now()

	if s.sem.TryAcquire(1) {
		return s.runInstance(ctx, task), nil
	}

	if err := s.queue.Enqueue(task); err != nil {
		return nil, err
	}
	inst := &Instance{TaskID: task.ID, Task: task, Status: StatusSpawning}
	s.mu.Lock()
	s.active[task.ID] = inst
	s.mu.Unlock()
	return inst, nil
}

func validateTask(task Task) error {
	if task.ID == "" {
		return errs.Validation("miniagent.Spawn", "task id is required", nil)
	}
	if task.Prompt == "" && task.Type == "" {
		return errs.Validation("miniagent.Spawn", "task prompt or type is required", nil)
	}
	if task.MaxIterations < 0 {
		return errs.Validation("miniagent.Spawn", "max_iterations must be positive", nil)
	}
	if task.TimeoutMS < 0 {
		return errs.Validation("miniagent.Spawn", "timeout_ms must be positive", nil)
	}
	return nil
}

// runInstance instantiates an Orchestrator in scoped mode and calls
// executeAsAgent, releasing the semaphore slot on completion regardless of
// outcome (spec §4.11 step 4).
func (s *Spawner) runInstance(ctx context.Context, task Task) *Instance {
	inst := &Instance{TaskID: task.ID, Task: task, Status: StatusSpawning, Heartbeat: time.Now(), StartedAt: time.Now()}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.active[task.ID] = inst
	s.cancels[task.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)
		defer cancel()

		inst.Status = StatusRunning
		s.emit("agent-progress", map[string]any{"task_id": task.ID, "status": string(StatusRunning)})

		timeout := time.Duration(task.TimeoutMS) * time.Millisecond
		layers := memory.Layers{Ephemeral: memory.NewEphemeral(20_000, 20_000)}
		result, err := s.orch.ExecuteAsAgent(runCtx, orchestrator.AgentOptions{
			Prompt:       task.Prompt,
			ScopedMemory: layers,
			Permissions:  task.Permissions,
			Timeout:      timeout,
			Depth:        1,
		})

		inst.Heartbeat = time.Now()
		inst.FinishedAt = time.Now()
		for _, tr := range result.ToolResults {
			inst.ToolsUsed = append(inst.ToolsUsed, tr.CallName)
		}
		switch {
		case err != nil && runCtx.Err() == context.DeadlineExceeded:
			inst.Status = StatusTimeout
		case err != nil && runCtx.Err() == context.Canceled:
			inst.Status = StatusCancelled
		case err != nil:
			inst.Status = StatusFailed
			inst.Err = err
		default:
			inst.Status = StatusCompleted
			inst.FinalAnswer = result.FinalAnswer
		}

		s.emit("agent-progress", map[string]any{"task_id": task.ID, "status": string(inst.Status)})
		s.mu.Lock()
		delete(s.cancels, task.ID)
		s.mu.Unlock()
		s.lifecycle.recordFinished(inst)
	}()

	return inst
}

// Cancel force-terminates a running instance, releasing its orchestrator
// and removing it from the active set (spec §4.11 Lifecycle Manager).
func (s *Spawner) Cancel(taskID string) {
	s.mu.Lock()
	cancel, ok := s.cancels[taskID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// Get returns the current instance for taskID, if any (active or recently
// finished).
func (s *Spawner) Get(taskID string) (*Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.active[taskID]
	return inst, ok
}

// Active returns a snapshot of all non-terminal instances.
func (s *Spawner) Active() []*Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Instance
	for _, inst := range s.active {
		if !inst.terminal() {
			out = append(out, inst)
		}
	}
	return out
}

func (s *Spawner) emit(event string, payload map[string]any) {
	if s.sink != nil {
		s.sink.Emit(event, payload)
	}
}
