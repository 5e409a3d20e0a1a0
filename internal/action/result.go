package action

// Status is the tri-state outcome of an action execution.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result is the immutable outcome of one action execution. Created via the
// factory functions below and consumed immediately by the caller.
type Result struct {
	Status  Status
	Message string
	Payload interface{}
}

// Success returns a successful result with an optional message.
func Success(message string) Result {
	return Result{Status: StatusSuccess, Message: message}
}

// SuccessWithPayload returns a successful result carrying data for the caller.
func SuccessWithPayload(message string, payload interface{}) Result {
	return Result{Status: StatusSuccess, Message: message, Payload: payload}
}

// Failure returns a failed result.
func Failure(message string) Result {
	return Result{Status: StatusFailure, Message: message}
}

// Skipped returns a skipped result. Skips are expected steady-state behavior
// (busy latches, guards), not faults.
func Skipped(reason string) Result {
	return Result{Status: StatusSkipped, Message: reason}
}

func (r Result) IsSuccess() bool { return r.Status == StatusSuccess }
func (r Result) IsFailure() bool { return r.Status == StatusFailure }
func (r Result) IsSkipped() bool { return r.Status == StatusSkipped }
