package chat

import (
	"context"
	"strings"
	"time"
)

// FallbackText is the fixed response streamed when a request is off-topic or
// the upstream provider cannot serve it.
const FallbackText = "🐟 Oops! Just a heads-up: **SORRY**\n" +
	"I'm trained specifically in **aquaculture, agriculture, fish, and poultry** topics.\n" +
	"I was developed by **Aquanex Systems**, so that's my specialty!\n" +
	"Please ask me something in those areas, I'd love to help! 🙏"

const defaultFallbackDelay = 15 * time.Millisecond

// FallbackSource replays a fixed text word by word at a slow simulated
// streaming pace. Every call to Stream starts a fresh replay.
type FallbackSource struct {
	Text  string
	Delay time.Duration
}

// NewFallbackSource returns the standard fallback source.
func NewFallbackSource() *FallbackSource {
	return &FallbackSource{Text: FallbackText, Delay: defaultFallbackDelay}
}

// Stream emits each word of the text with a trailing space, pausing Delay
// between words. Cancellation is observed between emissions, so the replay
// stops within one interval of the context ending.
func (f *FallbackSource) Stream(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		delay := f.Delay
		if delay <= 0 {
			delay = defaultFallbackDelay
		}
		for _, word := range strings.Fields(f.Text) {
			select {
			case out <- word + " ":
			case <-ctx.Done():
				return
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
