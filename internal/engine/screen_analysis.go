package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"deskmate/internal/action"
	"deskmate/internal/bracket"
	"deskmate/internal/config"
	"deskmate/internal/logging"
	"deskmate/internal/memory"
	"deskmate/internal/perception"
	"deskmate/internal/persona"
	"deskmate/internal/trace"
)

// screenshotBufferSize caps how many recent captures are retained. Only the
// most recent one is consumed per run.
const screenshotBufferSize = 4

// ScreenAnalysisAction is the one action that calls the model: it assembles
// the composite prompt, dispatches the vision/multimodal calls, routes the
// reply's bracket commands, and speaks the extracted speak: payload.
type ScreenAnalysisAction struct {
	client   perception.ModelClient
	speaker  Speaker
	personas *persona.Manager
	memory   *memory.Store
	prompts  *config.Prompts
	settings *config.UserSettings
	tracer   *trace.Store
	provider string

	running *atomic.Bool
	phase   *atomic.Int32
	tick    *atomic.Uint64

	// Single-flight latch: overlapping invocations skip, never queue.
	inFlight atomic.Bool

	shotMu sync.Mutex
	shots  []*perception.Screenshot
}

func (a *ScreenAnalysisAction) ID() string { return "screen_analysis" }

func (a *ScreenAnalysisAction) Description() string {
	return "Observes the screen, asks the model for a reaction, routes bracket commands and speaks"
}

// CanRun requires the engine running flag and a free latch.
func (a *ScreenAnalysisAction) CanRun(ctx *action.Context) bool {
	return a.running.Load() && !a.inFlight.Load()
}

// InFlight reports whether an invocation is currently executing.
func (a *ScreenAnalysisAction) InFlight() bool {
	return a.inFlight.Load()
}

// pushScreenshot retains a capture, keeping the newest screenshotBufferSize.
func (a *ScreenAnalysisAction) pushScreenshot(shot *perception.Screenshot) {
	if shot == nil {
		return
	}
	a.shotMu.Lock()
	defer a.shotMu.Unlock()
	a.shots = append(a.shots, shot)
	if len(a.shots) > screenshotBufferSize {
		a.shots = a.shots[len(a.shots)-screenshotBufferSize:]
	}
}

// latestScreenshot consumes the most recent buffered capture.
func (a *ScreenAnalysisAction) latestScreenshot() *perception.Screenshot {
	a.shotMu.Lock()
	defer a.shotMu.Unlock()
	if len(a.shots) == 0 {
		return nil
	}
	shot := a.shots[len(a.shots)-1]
	a.shots = a.shots[:len(a.shots)-1]
	return shot
}

// Execute runs one full observe-prompt-route-speak cycle.
func (a *ScreenAnalysisAction) Execute(ctx *action.Context) action.Result {
	if !a.inFlight.CompareAndSwap(false, true) {
		return action.Skipped("screen analysis already in flight")
	}
	defer func() {
		a.phase.Store(int32(PhaseIdle))
		a.inFlight.Store(false)
	}()

	a.phase.Store(int32(PhaseCapturing))
	if shot, ok := ctx.Get(action.KeyScreenshot).(*perception.Screenshot); ok {
		a.pushScreenshot(shot)
	}
	shot := a.latestScreenshot()
	if shot == nil {
		return action.Failure("no screenshot available")
	}

	a.phase.Store(int32(PhasePrompting))
	taskContent := strings.TrimSpace(ctx.TaskContent().String())
	expected, _ := ctx.Get(action.KeyExpected).([]string)

	var reply string
	var err error
	if a.settings.UseMultimodal {
		reply, err = a.runMultimodal(shot, taskContent)
	} else {
		reply, err = a.runVisionThenText(shot, taskContent)
	}
	if err != nil {
		logging.ActionsError("screen analysis model call failed: %v", err)
		return action.Failure(fmt.Sprintf("model call failed: %v", err))
	}

	reply = stripThinking(reply)
	if reply == "" {
		logging.Actions("model produced no reply this tick")
		return action.Success("no reply")
	}

	// Route before speaking so skill/memory side effects survive a
	// speech failure.
	a.phase.Store(int32(PhaseRouting))
	owners := a.owners(ctx)
	bracket.Route(reply, owners, ctx.Global(), expected)

	speech := bracket.ExtractSpeech(reply)
	if speech == "" {
		logging.Actions("reply carried no speak: token, nothing spoken")
		return action.Success("side effects only")
	}

	a.phase.Store(int32(PhaseSpeaking))
	if err := a.speaker.Speak(context.Background(), speech, a.settings.TTSVoice, a.settings.TTSSpeed, a.settings.Language); err != nil {
		// Only delivered lines enter the no-repeat history.
		logging.SpeechError("speech failed: %v", err)
		return action.Success("side effects applied, speech failed")
	}
	a.personas.RecordUtterance(speech)

	return action.SuccessWithPayload("spoke", speech)
}

func (a *ScreenAnalysisAction) owners(ctx *action.Context) []action.BracketAware {
	reg, _ := ctx.Global().Get(action.KeyRegistry).(*action.Registry)
	if reg == nil {
		return nil
	}
	return reg.BracketAware()
}

// runMultimodal sends the screenshot and the full composite prompt in one
// call.
func (a *ScreenAnalysisAction) runMultimodal(shot *perception.Screenshot, taskContent string) (string, error) {
	prompt := a.buildPrompt(taskContent, "", true)
	a.phase.Store(int32(PhaseAwaitingModel))
	start := time.Now()
	reply, err := a.client.AnalyzeImageMultimodal(context.Background(), shot.PNG, prompt)
	a.record(trace.KindChat, len(prompt), len(reply), start, err)
	return reply, err
}

// runVisionThenText describes the screenshot with the vision model, then
// sends the description inside the composite prompt as a text-only call. An
// empty description falls back to the text prompt without one.
func (a *ScreenAnalysisAction) runVisionThenText(shot *perception.Screenshot, taskContent string) (string, error) {
	a.phase.Store(int32(PhaseAwaitingModel))
	start := time.Now()
	description, err := a.client.AnalyzeImage(context.Background(), shot.PNG, a.prompts.VisionPrompt)
	a.record(trace.KindVision, len(a.prompts.VisionPrompt), len(description), start, err)
	if err != nil {
		return "", err
	}
	description = stripThinking(description)
	if description == "" {
		logging.ActionsWarn("vision call returned no description, continuing without one")
	}

	prompt := a.buildPrompt(taskContent, description, false)
	start = time.Now()
	reply, err := a.client.GenerateResponse(context.Background(), prompt)
	a.record(trace.KindChat, len(prompt), len(reply), start, err)
	return reply, err
}

// buildPrompt assembles the composite prompt: task-format instruction, task
// contributions, personality template, speak formatting instruction, recent
// lines, then the memory slots.
func (a *ScreenAnalysisAction) buildPrompt(taskContent, description string, multimodal bool) string {
	var sb strings.Builder

	if taskContent != "" {
		sb.WriteString(a.prompts.TasksInstruction)
		sb.WriteString("\n\n")
		sb.WriteString(taskContent)
		sb.WriteString("\n\n")
	}

	if multimodal {
		tmpl := a.personas.MultimodalTemplate()
		if tmpl == "" {
			tmpl = fmt.Sprintf(a.prompts.FallbackPrompt, "the attached screenshot")
		}
		sb.WriteString(tmpl)
	} else {
		tmpl := a.personas.PromptTemplate()
		if tmpl == "" {
			tmpl = a.prompts.FallbackPrompt
		}
		sb.WriteString(fmt.Sprintf(tmpl, flattenQuotes(description)))
	}
	sb.WriteString("\n\n")

	sb.WriteString(a.prompts.SpeakInstruction)
	sb.WriteString("\n")

	if recent := a.personas.RecentUtterances(); len(recent) > 0 {
		sb.WriteString("\nYou must not repeat any of these previous lines:\n")
		for _, line := range recent {
			sb.WriteString("- ")
			sb.WriteString(flattenQuotes(line))
			sb.WriteString("\n")
		}
	}

	if st := a.memory.ShortTerm(); st != "" {
		sb.WriteString("\nShort-term memory: ")
		sb.WriteString(st)
		sb.WriteString("\n")
	}
	if lt := a.memory.LongTerm(); lt != "" {
		sb.WriteString("\nLong-term memory: ")
		sb.WriteString(lt)
		sb.WriteString("\n")
	}

	return sb.String()
}

func (a *ScreenAnalysisAction) record(kind string, promptLen, replyLen int, start time.Time, err error) {
	if a.tracer == nil {
		return
	}
	rec := &trace.Record{
		Tick:       a.tick.Load(),
		Kind:       kind,
		Provider:   a.provider,
		PromptLen:  promptLen,
		ReplyLen:   replyLen,
		DurationMs: time.Since(start).Milliseconds(),
		Success:    err == nil,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if storeErr := a.tracer.Append(rec); storeErr != nil {
		logging.StoreWarn("failed to record model call: %v", storeErr)
	}
}

// flattenQuotes replaces double quotes with apostrophes so injected text
// cannot break the prompt's own quoting.
func flattenQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, "'")
}

// stripThinking removes a reasoning model's thinking block, keeping only
// the text after the final closing tag.
func stripThinking(reply string) string {
	if idx := strings.LastIndex(reply, "</think>"); idx >= 0 {
		reply = reply[idx+len("</think>"):]
	}
	return strings.TrimSpace(reply)
}
