// Package perception connects deskmate to the outside world: the screen
// capture used to observe the user's activity and the model clients that
// turn an observation into a reply.
package perception

import (
	"context"
	"time"
)

// Screenshot is one captured frame of the user's screen.
type Screenshot struct {
	PNG        []byte
	CapturedAt time.Time
}

// Capturer produces screenshots of the primary display.
type Capturer interface {
	Capture(ctx context.Context) (*Screenshot, error)
}

// ModelClient defines the interface for model providers.
//
// All three calls return the raw model text. An empty string with a nil
// error means the call succeeded but the model produced no usable text;
// callers treat that as "no reply", not as a failure.
type ModelClient interface {
	// AnalyzeImage sends an image with a prompt to a vision model and
	// returns the textual description.
	AnalyzeImage(ctx context.Context, image []byte, prompt string) (string, error)

	// GenerateResponse sends a text-only prompt to the generation model.
	GenerateResponse(ctx context.Context, prompt string) (string, error)

	// AnalyzeImageMultimodal sends the image and the full composite prompt
	// in a single call to the multimodal model.
	AnalyzeImageMultimodal(ctx context.Context, image []byte, prompt string) (string, error)
}
