package chat

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aquanex/aquachat/internal/models"
	"github.com/aquanex/aquachat/internal/provider"
)

const (
	defaultBufferSize    = 48
	defaultFlushInterval = 50 * time.Millisecond
	defaultGrace         = time.Second
	defaultRetryAttempts = 3
	defaultBackoffBase   = time.Second
	defaultBackoffCap    = 8 * time.Second

	// Slack between the producer goroutine and the consumer loop. The
	// producer blocks (never drops) when full, preserving order.
	tokenQueueSize = 64
)

// Chunk is one caller-visible unit of output. Text chunks carry coalesced
// tokens; a terminal failure is delivered as the final chunk's Err.
type Chunk struct {
	Text string
	Err  error
}

// Opener establishes one streaming completion call. *provider.Client
// satisfies this; tests substitute doubles.
type Opener interface {
	Open(ctx context.Context, msgs []provider.Message, model string) (provider.TokenStream, error)
}

// StreamerConfig tunes the orchestration loop. Zero values mean defaults.
type StreamerConfig struct {
	BufferSize    int           // flush once this many bytes are buffered
	FlushInterval time.Duration // flush a non-empty buffer at least this often
	Grace         time.Duration // how long to wait for the producer to stop
	RetryAttempts int           // attempts at establishing the upstream call
}

// Streamer drives one upstream streaming call per request: it establishes the
// call with bounded retry, coalesces incoming tokens into latency-bounded
// chunks, and switches to the fallback source on transient failure.
type Streamer struct {
	client   Opener
	fallback *FallbackSource

	bufferSize    int
	flushInterval time.Duration
	grace         time.Duration
	retryAttempts int
	backoffBase   time.Duration
	backoffCap    time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewStreamer builds a Streamer around the given provider client and fallback
// source.
func NewStreamer(client Opener, fallback *FallbackSource, cfg StreamerConfig) *Streamer {
	s := &Streamer{
		client:        client,
		fallback:      fallback,
		bufferSize:    cfg.BufferSize,
		flushInterval: cfg.FlushInterval,
		grace:         cfg.Grace,
		retryAttempts: cfg.RetryAttempts,
		backoffBase:   defaultBackoffBase,
		backoffCap:    defaultBackoffCap,
		sleep:         sleepCtx,
	}
	if s.bufferSize <= 0 {
		s.bufferSize = defaultBufferSize
	}
	if s.flushInterval <= 0 {
		s.flushInterval = defaultFlushInterval
	}
	if s.grace <= 0 {
		s.grace = defaultGrace
	}
	if s.retryAttempts <= 0 {
		s.retryAttempts = defaultRetryAttempts
	}
	return s
}

// Stream runs one chat request against the upstream provider and returns the
// resulting chunk sequence. The channel is closed once the stream is
// exhausted; by then the background provider call has reached a terminal
// state. An invalid role fails synchronously before any upstream work.
//
// Cancelling ctx abandons the stream promptly, including any fallback replay.
func (s *Streamer) Stream(ctx context.Context, messages []models.Message, model string) (<-chan Chunk, error) {
	adapted, err := AdaptMessages(messages)
	if err != nil {
		return nil, err
	}

	out := make(chan Chunk)
	go s.run(ctx, adapted, model, out)
	return out, nil
}

func (s *Streamer) run(ctx context.Context, msgs []provider.Message, model string, out chan<- Chunk) {
	defer close(out)

	stream, err := s.openWithRetry(ctx, msgs, model)
	if err != nil {
		// Establishment exhausted: same path as an unexpected mid-stream
		// failure, so the caller still gets a warning plus fallback.
		log.WithFields(log.Fields{
			"event": "open_exhausted",
			"error": err.Error(),
		}).Error("Could not establish upstream call")
		if !s.emit(ctx, out, Chunk{Text: provider.WarnUnexpected}) {
			return
		}
		s.replayFallback(ctx, out)
		return
	}

	tokens := make(chan string, tokenQueueSize)
	outcomeCh := make(chan provider.Outcome, 1)
	producerDone := make(chan struct{})

	go func() {
		defer close(producerDone)
		outcomeCh <- stream.Consume(tokens)
		close(tokens)
	}()

	// The producer call must never outlive this request. Cancel it and wait
	// out the grace period; a producer that still won't stop is logged, never
	// surfaced (the caller-visible stream is already settled).
	defer func() {
		stream.Close()
		select {
		case <-producerDone:
		case <-time.After(s.grace):
			log.WithFields(log.Fields{
				"event": "producer_leak",
				"grace": s.grace.String(),
			}).Warn("Provider call did not stop within grace period")
		}
	}()

	var buf strings.Builder
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	flush := func() bool {
		if buf.Len() == 0 {
			return true
		}
		chunk := Chunk{Text: buf.String()}
		buf.Reset()
		return s.emit(ctx, out, chunk)
	}

drain:
	for {
		select {
		case tok, ok := <-tokens:
			if !ok {
				break drain
			}
			buf.WriteString(tok)
			if buf.Len() >= s.bufferSize {
				if !flush() {
					return
				}
			}
		case <-ticker.C:
			// Periodic flush keeps worst-case latency bounded even when
			// tokens trickle in slowly.
			if !flush() {
				return
			}
		case <-ctx.Done():
			return
		}
	}

	if !flush() {
		return
	}

	outcome := <-outcomeCh
	switch outcome {
	case provider.OutcomeSuccess:
		return
	case provider.OutcomeAuthError:
		// Fallback would mask a credential misconfiguration; escalate.
		s.emit(ctx, out, Chunk{Err: ErrPermissionDenied})
		return
	default:
		log.WithFields(log.Fields{
			"event":  "falling_back",
			"reason": outcome.String(),
		}).Warn("Switching to fallback stream")
		s.replayFallback(ctx, out)
	}
}

// openWithRetry establishes the upstream call, retrying transport-level
// failures with exponential backoff. Retry never applies to mid-stream
// failures, only to getting the call started.
func (s *Streamer) openWithRetry(ctx context.Context, msgs []provider.Message, model string) (provider.TokenStream, error) {
	backoff := s.backoffBase
	var lastErr error

	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		stream, err := s.client.Open(ctx, msgs, model)
		if err == nil {
			return stream, nil
		}
		lastErr = err

		log.WithFields(log.Fields{
			"event":   "open_failed",
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Upstream call failed to start")

		if attempt == s.retryAttempts {
			break
		}
		if err := s.sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
		if backoff > s.backoffCap {
			backoff = s.backoffCap
		}
	}
	return nil, lastErr
}

func (s *Streamer) replayFallback(ctx context.Context, out chan<- Chunk) {
	for word := range s.fallback.Stream(ctx) {
		if !s.emit(ctx, out, Chunk{Text: word}) {
			return
		}
	}
}

func (s *Streamer) emit(ctx context.Context, out chan<- Chunk, chunk Chunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
