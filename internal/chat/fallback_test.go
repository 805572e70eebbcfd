package chat

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestFallbackSourceDeterministic(t *testing.T) {
	src := &FallbackSource{Text: "sorry I only know fish farming", Delay: time.Millisecond}

	replay := func() string {
		var b strings.Builder
		for word := range src.Stream(context.Background()) {
			b.WriteString(word)
		}
		return b.String()
	}

	first := replay()
	want := "sorry I only know fish farming "
	if first != want {
		t.Errorf("replay = %q, want %q", first, want)
	}

	// Restartable: a second run yields the identical sequence.
	if second := replay(); second != first {
		t.Errorf("second replay = %q, want %q", second, first)
	}
}

func TestFallbackSourceDefaultText(t *testing.T) {
	src := NewFallbackSource()

	var b strings.Builder
	for word := range src.Stream(context.Background()) {
		b.WriteString(word)
	}

	want := strings.Join(strings.Fields(FallbackText), " ") + " "
	if b.String() != want {
		t.Errorf("replay does not reconstruct fallback text\ngot:  %q\nwant: %q", b.String(), want)
	}
}

func TestFallbackSourceCancellation(t *testing.T) {
	src := &FallbackSource{Text: strings.Repeat("word ", 1000), Delay: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	out := src.Stream(ctx)

	// Consume a couple of words, then walk away.
	<-out
	<-out
	cancel()

	deadline := time.After(500 * time.Millisecond)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("fallback stream did not stop promptly after cancellation")
		}
	}
}
