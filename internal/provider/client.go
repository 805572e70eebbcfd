package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultTimeout = 60 * time.Second

// Message is a chat message in the upstream provider's wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAI-compatible request/response wire types
type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type streamResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// TokenStream is one in-flight streaming completion call. Consume drains it
// into the given channel and reports the terminal outcome; Close cancels the
// call unconditionally.
type TokenStream interface {
	Consume(tokens chan<- string) Outcome
	Close()
}

// Client issues streaming chat completion calls against an OpenAI-compatible
// upstream. Zero-value fields fall back to sane defaults.
type Client struct {
	BaseURL      string
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// NewClient creates a provider client for the given upstream endpoint.
func NewClient(baseURL, apiKey, defaultModel string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		DefaultModel: defaultModel,
		Timeout:      timeout,
		HTTPClient:   &http.Client{},
	}
}

// Open starts exactly one streaming completion call. A transport-level failure
// (connection refused, DNS, etc.) is returned as an error and is safe to
// retry; once an HTTP response exists, classification happens in Consume.
// The call runs under its own deadline and is cancelled by Close at the
// latest.
func (c *Client) Open(ctx context.Context, msgs []Message, model string) (TokenStream, error) {
	if model == "" {
		model = c.DefaultModel
	}

	body, err := json.Marshal(completionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: 0.7,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout())

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open completion stream: %w", err)
	}

	return &httpStream{resp: resp, parent: ctx, callCtx: callCtx, cancel: cancel}, nil
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// httpStream consumes one SSE response body.
type httpStream struct {
	resp    *http.Response
	parent  context.Context
	callCtx context.Context
	cancel  context.CancelFunc
}

// Consume reads the call to its terminal state, pushing each incremental token
// into tokens in arrival order. On RateLimited, TimedOut, or UnexpectedError
// one warning token is pushed before returning so the caller-visible stream
// can explain the switch to fallback.
func (s *httpStream) Consume(tokens chan<- string) Outcome {
	defer s.cancel()
	defer s.resp.Body.Close()

	if s.resp.StatusCode != http.StatusOK {
		return s.classifyStatus(tokens)
	}

	reader := bufio.NewReader(s.resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return OutcomeSuccess
			}
			return s.classifyReadError(err, tokens)
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return OutcomeSuccess
		}

		var chunk streamResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed chunks rather than killing the stream.
			log.WithFields(log.Fields{
				"event": "malformed_chunk",
				"error": err.Error(),
			}).Debug("Skipping malformed stream chunk")
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		if content := chunk.Choices[0].Delta.Content; content != "" {
			if !s.send(tokens, content) {
				return OutcomeUnexpectedError
			}
		}
		if chunk.Choices[0].FinishReason != nil {
			return OutcomeSuccess
		}
	}
}

// Close abandons the call. Any blocked read or send unblocks promptly.
func (s *httpStream) Close() {
	s.cancel()
}

func (s *httpStream) classifyStatus(tokens chan<- string) Outcome {
	raw, _ := io.ReadAll(io.LimitReader(s.resp.Body, 4096))
	msg := upstreamMessage(raw)

	switch s.resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		log.WithFields(log.Fields{
			"event":   "upstream_auth_error",
			"status":  s.resp.StatusCode,
			"message": msg,
		}).Error("Upstream rejected credentials")
		return OutcomeAuthError
	case http.StatusTooManyRequests:
		log.WithFields(log.Fields{
			"event":   "upstream_rate_limited",
			"message": msg,
		}).Error("Upstream rate limit hit")
		s.send(tokens, WarnRateLimited)
		return OutcomeRateLimited
	default:
		log.WithFields(log.Fields{
			"event":   "upstream_error",
			"status":  s.resp.StatusCode,
			"message": msg,
		}).Error("Upstream returned an error")
		s.send(tokens, WarnUnexpected)
		return OutcomeUnexpectedError
	}
}

func (s *httpStream) classifyReadError(err error, tokens chan<- string) Outcome {
	if errors.Is(s.callCtx.Err(), context.DeadlineExceeded) {
		log.WithFields(log.Fields{
			"event": "upstream_timeout",
			"error": err.Error(),
		}).Error("Upstream call exceeded timeout budget")
		s.send(tokens, WarnTimedOut)
		return OutcomeTimedOut
	}
	if errors.Is(s.parent.Err(), context.Canceled) {
		// Caller went away; nobody is listening for a warning.
		return OutcomeUnexpectedError
	}
	log.WithFields(log.Fields{
		"event": "upstream_read_error",
		"error": err.Error(),
	}).Error("Failed reading upstream stream")
	s.send(tokens, WarnUnexpected)
	return OutcomeUnexpectedError
}

// send delivers one token unless the request context is gone. It deliberately
// ignores the per-call deadline: warning tokens must still reach the consumer
// after a timeout.
func (s *httpStream) send(tokens chan<- string, tok string) bool {
	select {
	case tokens <- tok:
		return true
	case <-s.parent.Done():
		return false
	}
}

func upstreamMessage(raw []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return env.Error.Message
}
