// Package engine drives deskmate's tick loop: once per tick it decides
// which tasks run, assembles and dispatches at most one model call, and
// routes the bracket commands embedded in the reply.
package engine

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"deskmate/internal/action"
	"deskmate/internal/bracket"
	"deskmate/internal/config"
	"deskmate/internal/levels"
	"deskmate/internal/logging"
	"deskmate/internal/memory"
	"deskmate/internal/perception"
	"deskmate/internal/persona"
	"deskmate/internal/trace"
)

// memoryTaskCadence runs the memory task every Nth tick, independent of the
// chat cadence.
const memoryTaskCadence = 5

// Speaker vocalizes a spoken line. Speak blocks until the line has been
// delivered; Speaking reports whether a line is currently playing.
type Speaker interface {
	Speak(ctx context.Context, text, voice string, speed float64, language string) error
	Speaking() bool
}

// Deps holds everything the engine is wired with at construction.
type Deps struct {
	Capturer perception.Capturer
	Client   perception.ModelClient
	Speaker  Speaker
	Personas *persona.Manager
	Levels   *levels.Manager
	Memory   *memory.Store
	Prompts  *config.Prompts
	Settings *config.UserSettings
	Tracer   *trace.Store // optional
	Provider string
	Interval time.Duration
}

// ThinkingEngine owns the tick counter, the throttle decision, and the
// per-tick orchestration of contributor and chat actions.
type ThinkingEngine struct {
	registry *action.Registry
	capturer perception.Capturer
	client   perception.ModelClient
	prompts  *config.Prompts
	settings *config.UserSettings
	tracer   *trace.Store
	provider string
	interval time.Duration

	analysis *ScreenAnalysisAction
	speaker  Speaker

	tick      atomic.Uint64
	running   atomic.Bool
	thinking  atomic.Bool
	tasksBusy atomic.Bool
	phase     atomic.Int32
}

// New wires the engine and registers its actions. Contributor actions are
// registered before the chat action so routing order is deterministic.
func New(deps Deps) *ThinkingEngine {
	e := &ThinkingEngine{
		registry: action.NewRegistry(),
		capturer: deps.Capturer,
		client:   deps.Client,
		prompts:  deps.Prompts,
		settings: deps.Settings,
		tracer:   deps.Tracer,
		provider: deps.Provider,
		interval: deps.Interval,
		speaker:  deps.Speaker,
	}

	e.analysis = &ScreenAnalysisAction{
		client:   deps.Client,
		speaker:  deps.Speaker,
		personas: deps.Personas,
		memory:   deps.Memory,
		prompts:  deps.Prompts,
		settings: deps.Settings,
		tracer:   deps.Tracer,
		provider: deps.Provider,
		running:  &e.running,
		phase:    &e.phase,
		tick:     &e.tick,
	}

	e.registry.Register(NewLevelsTaskAction(deps.Levels, deps.Prompts))
	e.registry.Register(NewMemoryTaskAction(deps.Memory, deps.Personas, deps.Prompts))
	e.registry.Register(e.analysis)

	e.registry.Global().Put(action.KeyOutputQueue, &action.OutputQueue{})
	e.registry.Global().Put(action.KeyRegistry, e.registry)
	return e
}

// Registry exposes the action registry.
func (e *ThinkingEngine) Registry() *action.Registry {
	return e.registry
}

// Phase returns the observable pipeline phase. Read-only.
func (e *ThinkingEngine) Phase() Phase {
	return Phase(e.phase.Load())
}

// TickCount returns the number of ticks processed so far.
func (e *ThinkingEngine) TickCount() uint64 {
	return e.tick.Load()
}

// Run drives the tick loop until the context is cancelled. An in-flight
// model call is not aborted; it finishes and releases its latch.
func (e *ThinkingEngine) Run(ctx context.Context) error {
	e.running.Store(true)
	defer e.running.Store(false)

	logging.Engine("engine started (interval %s)", e.interval)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Engine("engine stopped after %d ticks", e.tick.Load())
			return nil
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick processes one scheduler tick. Safe to call directly in tests.
func (e *ThinkingEngine) Tick() {
	// Backpressure: never start a new cycle while the previous chat
	// pipeline, a tasks-only call, or speech is still alive.
	if e.analysis.InFlight() {
		logging.EngineDebug("tick skipped: analysis in flight")
		return
	}
	if e.tasksBusy.Load() {
		logging.EngineDebug("tick skipped: tasks-only call in flight")
		return
	}
	if e.speaker != nil && e.speaker.Speaking() {
		logging.EngineDebug("tick skipped: speech playing")
		return
	}

	if !e.thinking.CompareAndSwap(false, true) {
		logging.EngineDebug("tick skipped: already thinking")
		return
	}
	defer e.thinking.Store(false)

	e.flushQueuedOutputs()

	tick := e.tick.Add(1)
	divisor := e.settings.ChatFrequencyDivisor()
	shouldChat := divisor <= 1 || tick%uint64(divisor) == 0
	logging.Engine("tick %d (divisor=%d chat=%v)", tick, divisor, shouldChat)

	tickCtx := action.NewContext()
	tickCtx.Put(action.KeyGlobal, e.registry.Global())

	chatBlocked := false
	shot, err := e.capturer.Capture(context.Background())
	if err != nil {
		logging.EngineWarn("screenshot capture failed: %v", err)
		chatBlocked = true
	} else {
		tickCtx.Put(action.KeyScreenshot, shot)
	}

	var expected []string
	expected = e.runContributor("levels_task", tickCtx, expected)
	if tick%memoryTaskCadence == 0 {
		expected = e.runContributor("memory_task", tickCtx, expected)
	}
	tickCtx.Put(action.KeyExpected, expected)

	taskContent := strings.TrimSpace(tickCtx.TaskContent().String())

	switch {
	case shouldChat && !chatBlocked:
		go func() {
			res := e.registry.Execute("screen_analysis", tickCtx)
			logging.Engine("screen analysis finished: %s (%s)", res.Status, res.Message)
		}()
	case taskContent != "":
		e.tasksBusy.Store(true)
		go func() {
			defer e.tasksBusy.Store(false)
			e.runTasksOnly(tick, taskContent, expected)
		}()
	default:
		logging.EngineDebug("tick %d: nothing to do", tick)
	}
}

// runContributor executes one task contributor and collects its bracket
// prefixes as expected for this tick.
func (e *ThinkingEngine) runContributor(id string, tickCtx *action.Context, expected []string) []string {
	res := e.registry.Execute(id, tickCtx)
	if !res.IsSuccess() {
		logging.EngineWarn("contributor %s did not run: %s (%s)", id, res.Status, res.Message)
		return expected
	}
	if a, ok := e.registry.Get(id); ok {
		if ba, isAware := a.(action.BracketAware); isAware {
			expected = append(expected, ba.BracketPrefixes()...)
		}
	}
	return expected
}

// runTasksOnly issues the cheaper text-only call that realizes skill and
// memory side effects on ticks where the chat cadence throttles speech.
func (e *ThinkingEngine) runTasksOnly(tick uint64, taskContent string, expected []string) {
	prompt := e.prompts.TasksInstruction + "\n\n" + taskContent

	start := time.Now()
	reply, err := e.client.GenerateResponse(context.Background(), prompt)
	e.record(tick, len(prompt), len(reply), start, err)
	if err != nil {
		logging.EngineError("tasks-only call failed: %v", err)
		return
	}

	reply = stripThinking(reply)
	if reply == "" {
		logging.EngineDebug("tasks-only call produced no reply")
		return
	}
	// Side effects only; the reply is never spoken.
	bracket.Route(reply, e.registry.BracketAware(), e.registry.Global(), expected)
}

// flushQueuedOutputs routes any raw model outputs queued for deferred
// routing. Routing normally happens inline; this is a safety net.
func (e *ThinkingEngine) flushQueuedOutputs() {
	q, ok := e.registry.Global().Get(action.KeyOutputQueue).(*action.OutputQueue)
	if !ok {
		return
	}
	for _, raw := range q.Drain() {
		logging.Engine("routing queued output (%d chars)", len(raw))
		bracket.Route(raw, e.registry.BracketAware(), e.registry.Global(), nil)
	}
}

func (e *ThinkingEngine) record(tick uint64, promptLen, replyLen int, start time.Time, err error) {
	if e.tracer == nil {
		return
	}
	rec := &trace.Record{
		Tick:       tick,
		Kind:       trace.KindTasks,
		Provider:   e.provider,
		PromptLen:  promptLen,
		ReplyLen:   replyLen,
		DurationMs: time.Since(start).Milliseconds(),
		Success:    err == nil,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if storeErr := e.tracer.Append(rec); storeErr != nil {
		logging.StoreWarn("failed to record model call: %v", storeErr)
	}
}
