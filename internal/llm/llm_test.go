package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

func fastRetries(t *testing.T) {
	t.Helper()
	oldDelay, oldPause := RetryBaseDelay, BatchPause
	RetryBaseDelay = time.Millisecond
	BatchPause = time.Millisecond
	t.Cleanup(func() {
		RetryBaseDelay = oldDelay
		BatchPause = oldPause
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &openai.APIError{HTTPStatusCode: 429}, true},
		{"server error", &openai.APIError{HTTPStatusCode: 500}, true},
		{"bad gateway", &openai.APIError{HTTPStatusCode: 502}, true},
		{"unauthorized", &openai.APIError{HTTPStatusCode: 401}, false},
		{"bad request", &openai.APIError{HTTPStatusCode: 400}, false},
		{"request error retryable", &openai.RequestError{HTTPStatusCode: 503}, true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"io timeout", errors.New("read tcp: i/o timeout"), true},
		{"plain failure", errors.New("model exploded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestSleepBackoffHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepBackoff(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepBackoff on canceled context = %v", err)
	}
}

// chatServer returns a test server speaking just enough of the chat
// completions API, and a client pointed at it.
func chatServer(t *testing.T, handle http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handle)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-key", "test-model")
}

func chatResponse(content, finishReason string) string {
	return fmt.Sprintf(`{
		"choices": [{"message": {"role": "assistant", "content": %q}, "finish_reason": %q}],
		"usage": {"total_tokens": 7}
	}`, content, finishReason)
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	fastRetries(t)

	var calls int
	client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"error": {"message": "upstream unavailable", "type": "server_error"}}`)
			return
		}
		fmt.Fprint(w, chatResponse("All clear.", "stop"))
	})

	comp, err := client.Complete(context.Background(), "say something", Options{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if comp.Text != "All clear." || comp.Tokens != 7 {
		t.Errorf("unexpected completion: %+v", comp)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	fastRetries(t)

	var calls int
	client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "bad key", "type": "invalid_request_error"}}`)
	})

	if _, err := client.Complete(context.Background(), "hi", Options{}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCompleteMaxLengthCarriesPartial(t *testing.T) {
	client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatResponse("The passage was cut off mid", "length"))
	})

	comp, err := client.Complete(context.Background(), "write a lot", Options{MaxOutputTokens: 10})
	var mle *MaxLengthError
	if !errors.As(err, &mle) {
		t.Fatalf("expected MaxLengthError, got %v", err)
	}
	if !errors.Is(err, ErrMaxLengthExceeded) {
		t.Error("MaxLengthError should unwrap to ErrMaxLengthExceeded")
	}
	if mle.Partial != "The passage was cut off mid" || comp.Text != mle.Partial {
		t.Errorf("partial text lost: %+v / %q", comp, mle.Partial)
	}
}

func TestCompleteNoCandidates(t *testing.T) {
	client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": [], "usage": {"total_tokens": 0}}`)
	})

	if _, err := client.Complete(context.Background(), "hi", Options{}); !errors.Is(err, ErrNoCandidates) {
		t.Errorf("expected ErrNoCandidates, got %v", err)
	}
}

func TestCompleteEmptyText(t *testing.T) {
	client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatResponse("   ", "stop"))
	})

	if _, err := client.Complete(context.Background(), "hi", Options{}); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestCompleteBatchAwaitsAll(t *testing.T) {
	fastRetries(t)

	client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatResponse("ok", "stop"))
	})

	prompts := make([]string, 7) // spans two batches of width 5
	for i := range prompts {
		prompts[i] = fmt.Sprintf("prompt %d", i)
	}
	results := client.CompleteBatch(context.Background(), prompts, Options{})
	if len(results) != len(prompts) {
		t.Fatalf("got %d results, want %d", len(results), len(prompts))
	}
	for i, res := range results {
		if res.Err != nil || !strings.Contains(res.Text, "ok") {
			t.Errorf("result %d: %+v", i, res)
		}
	}
}
