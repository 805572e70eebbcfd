package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func sseBody(tokens ...string) string {
	var body string
	for _, tok := range tokens {
		data, _ := json.Marshal(map[string]any{
			"object": "chat.completion.chunk",
			"choices": []map[string]any{
				{"index": 0, "delta": map[string]string{"content": tok}, "finish_reason": nil},
			},
		})
		body += fmt.Sprintf("data: %s\n\n", data)
	}
	body += `data: {"object":"chat.completion.chunk","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}` + "\n\n"
	body += "data: [DONE]\n\n"
	return body
}

func drain(t *testing.T, stream TokenStream) ([]string, Outcome) {
	t.Helper()
	tokens := make(chan string, 256)
	outcome := stream.Consume(tokens)
	close(tokens)
	var got []string
	for tok := range tokens {
		got = append(got, tok)
	}
	return got, outcome
}

func TestClientStreamSuccess(t *testing.T) {
	var gotBody completionRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q, want bearer key", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseBody("Hello", " pond", " keeper!"))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "sk-test", "gpt-test", time.Second)
	stream, err := c.Open(context.Background(), []Message{{Role: "user", Content: "hi"}}, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	tokens, outcome := drain(t, stream)
	if outcome != OutcomeSuccess {
		t.Errorf("outcome = %v, want success", outcome)
	}
	want := []string{"Hello", " pond", " keeper!"}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens %v, want %d", len(tokens), tokens, len(want))
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("tokens[%d] = %q, want %q", i, tokens[i], want[i])
		}
	}

	if !gotBody.Stream {
		t.Error("request did not ask for streaming")
	}
	if gotBody.Model != "gpt-test" {
		t.Errorf("model = %q, want default model substituted", gotBody.Model)
	}
}

func TestClientModelOverride(t *testing.T) {
	var gotBody completionRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody) //nolint:errcheck
		fmt.Fprint(w, sseBody("ok"))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "sk-test", "gpt-default", time.Second)
	stream, err := c.Open(context.Background(), nil, "gpt-custom")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	drain(t, stream)

	if gotBody.Model != "gpt-custom" {
		t.Errorf("model = %q, want %q", gotBody.Model, "gpt-custom")
	}
}

func TestClientAuthError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided.","type":"invalid_request_error"}}`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "sk-bad", "gpt-test", time.Second)
	stream, err := c.Open(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	tokens, outcome := drain(t, stream)
	if outcome != OutcomeAuthError {
		t.Errorf("outcome = %v, want auth_error", outcome)
	}
	if len(tokens) != 0 {
		t.Errorf("auth failure emitted tokens %v, want none (no warning either)", tokens)
	}
}

func TestClientRateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Rate limit exceeded","type":"rate_limit_error"}}`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "sk-test", "gpt-test", time.Second)
	stream, err := c.Open(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	tokens, outcome := drain(t, stream)
	if outcome != OutcomeRateLimited {
		t.Errorf("outcome = %v, want rate_limited", outcome)
	}
	if len(tokens) != 1 || tokens[0] != WarnRateLimited {
		t.Errorf("tokens = %v, want exactly one rate-limit warning", tokens)
	}
}

func TestClientServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "sk-test", "gpt-test", time.Second)
	stream, err := c.Open(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	tokens, outcome := drain(t, stream)
	if outcome != OutcomeUnexpectedError {
		t.Errorf("outcome = %v, want unexpected_error", outcome)
	}
	if len(tokens) != 1 || tokens[0] != WarnUnexpected {
		t.Errorf("tokens = %v, want exactly one warning", tokens)
	}
}

func TestClientTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hi\"},\"finish_reason\":null}]}\n\n")
		w.(http.Flusher).Flush()
		time.Sleep(300 * time.Millisecond) // client gives up first
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "sk-test", "gpt-test", 50*time.Millisecond)
	stream, err := c.Open(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	tokens, outcome := drain(t, stream)
	if outcome != OutcomeTimedOut {
		t.Errorf("outcome = %v, want timed_out", outcome)
	}
	if len(tokens) != 2 || tokens[0] != "Hi" || tokens[1] != WarnTimedOut {
		t.Errorf("tokens = %v, want partial output followed by timeout warning", tokens)
	}
}

func TestClientMalformedChunksSkipped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {not json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"ok\"},\"finish_reason\":null}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "sk-test", "gpt-test", time.Second)
	stream, err := c.Open(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	tokens, outcome := drain(t, stream)
	if outcome != OutcomeSuccess {
		t.Errorf("outcome = %v, want success", outcome)
	}
	if len(tokens) != 1 || tokens[0] != "ok" {
		t.Errorf("tokens = %v, want the valid chunk only", tokens)
	}
}

func TestClientTransportErrorIsRetryable(t *testing.T) {
	// Nothing listens here; Open must fail before any outcome exists.
	c := NewClient("http://127.0.0.1:1", "sk-test", "gpt-test", time.Second)
	stream, err := c.Open(context.Background(), nil, "")
	if err == nil {
		stream.Close()
		t.Fatal("Open() succeeded against a dead endpoint")
	}
}

func TestClientCloseUnblocksConsume(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer ts.Close()
	defer close(release)

	c := NewClient(ts.URL, "sk-test", "gpt-test", time.Minute)
	stream, err := c.Open(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		tokens := make(chan string, 16)
		stream.Consume(tokens)
	}()

	time.Sleep(20 * time.Millisecond)
	stream.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Consume did not return after Close")
	}
}
