package engine

// Phase is the observable state of the chat pipeline. The engine owns the
// value; collaborators only ever read it.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseCapturing
	PhasePrompting
	PhaseAwaitingModel
	PhaseRouting
	PhaseSpeaking
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCapturing:
		return "capturing"
	case PhasePrompting:
		return "prompting"
	case PhaseAwaitingModel:
		return "awaiting_model"
	case PhaseRouting:
		return "routing"
	case PhaseSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}
