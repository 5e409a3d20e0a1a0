package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var captionStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("229")).
	Background(lipgloss.Color("57")).
	Padding(0, 1)

// captionSpeaker prints spoken lines as styled terminal captions when TTS
// is disabled. It never reports itself as speaking, so captions apply no
// backpressure to the tick loop.
type captionSpeaker struct{}

func newCaptionSpeaker() *captionSpeaker {
	return &captionSpeaker{}
}

func (c *captionSpeaker) Speak(ctx context.Context, text, voice string, speed float64, language string) error {
	fmt.Println(captionStyle.Render("deskmate: " + text))
	return nil
}

func (c *captionSpeaker) Speaking() bool { return false }
