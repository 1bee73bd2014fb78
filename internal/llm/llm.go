package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// RetryBaseDelay is the starting backoff delay for retryable transport
// errors. The delay doubles on each attempt, gets up to 25% jitter and is
// capped at maxRetryDelay. Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// BatchPause is the fixed pause between concurrent batches, to respect
// external rate limits. Tests override this.
var BatchPause = 1 * time.Second

const (
	defaultMaxRetries = 3
	maxRetryDelay     = 8 * time.Second
	batchWidth        = 5
)

// Retryable HTTP statuses per the API contract.
var retryableStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// Recognized transient network failure fragments.
var retryableSubstrings = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"unexpected eof",
}

var (
	// ErrNoCandidates indicates the model returned no completion choices.
	ErrNoCandidates = errors.New("model returned no candidates")

	// ErrInvalidResponse indicates the response structure was unusable
	// (e.g. an empty message where text was expected).
	ErrInvalidResponse = errors.New("invalid model response structure")

	// ErrMaxLengthExceeded indicates the completion was cut off at the
	// output length limit. The returned text may still be usable.
	ErrMaxLengthExceeded = errors.New("max output length exceeded")
)

// MaxLengthError wraps ErrMaxLengthExceeded and carries the partial text
// the model produced before hitting the limit.
type MaxLengthError struct {
	Partial string
}

func (e *MaxLengthError) Error() string { return ErrMaxLengthExceeded.Error() }
func (e *MaxLengthError) Unwrap() error { return ErrMaxLengthExceeded }

// Options are per-request generation parameters. Zero values fall back to
// the model defaults.
type Options struct {
	Temperature     float32
	TopP            float32
	MaxOutputTokens int
}

// Completion is the result of a single model call.
type Completion struct {
	Text   string
	Tokens int
}

// Completer is the boundary the pipeline depends on; tests substitute a
// scripted fake.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (Completion, error)
}

// Client wraps an OpenAI-compatible API client with transport-level retry.
type Client struct {
	api        *openai.Client
	model      string
	maxRetries int
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:        openai.NewClientWithConfig(config),
		model:      modelName,
		maxRetries: defaultMaxRetries,
	}
}

// Ping verifies the endpoint is reachable and the model list responds.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	return nil
}

// Complete sends a single prompt and returns the completion text. Retryable
// transport failures are retried with capped exponential backoff and jitter;
// non-retryable errors propagate immediately. A completion truncated at the
// output limit returns the partial text alongside a MaxLengthError.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (Completion, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		MaxTokens:   opts.MaxOutputTokens,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return Completion{}, err
			}
			slog.Debug("retrying completion", "attempt", attempt)
		}

		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			if !IsRetryable(err) {
				return Completion{}, fmt.Errorf("completion request: %w", err)
			}
			lastErr = err
			continue
		}

		if len(resp.Choices) == 0 {
			return Completion{}, ErrNoCandidates
		}

		choice := resp.Choices[0]
		text := strings.TrimSpace(choice.Message.Content)
		result := Completion{Text: text, Tokens: resp.Usage.TotalTokens}

		if choice.FinishReason == openai.FinishReasonLength {
			return result, &MaxLengthError{Partial: text}
		}
		if text == "" {
			return Completion{}, ErrInvalidResponse
		}
		return result, nil
	}

	return Completion{}, fmt.Errorf("completion request after %d attempts: %w", c.maxRetries+1, lastErr)
}

// BatchResult reports the outcome of one prompt in a batch.
type BatchResult struct {
	Text   string
	Tokens int
	Err    error
}

// CompleteBatch runs independent prompts through a fixed-width pool of
// batchWidth concurrent calls, pausing between batches. All calls are
// awaited; each result carries its own error. This path is unrelated to
// per-lesson section ordering, which stays strictly sequential.
func (c *Client) CompleteBatch(ctx context.Context, prompts []string, opts Options) []BatchResult {
	results := make([]BatchResult, len(prompts))

	for start := 0; start < len(prompts); start += batchWidth {
		end := min(start+batchWidth, len(prompts))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				comp, err := c.Complete(ctx, prompts[i], opts)
				results[i] = BatchResult{Text: comp.Text, Tokens: comp.Tokens, Err: err}
			}(i)
		}
		wg.Wait()

		if end < len(prompts) {
			select {
			case <-ctx.Done():
				for i := end; i < len(prompts); i++ {
					results[i] = BatchResult{Err: ctx.Err()}
				}
				return results
			case <-time.After(BatchPause):
			}
		}
	}
	return results
}

// IsRetryable classifies an error as a transient transport failure: a
// retryable HTTP status from the API, or a recognized network error.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatuses[apiErr.HTTPStatusCode]
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if retryableStatuses[reqErr.HTTPStatusCode] {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func sleepBackoff(ctx context.Context, attempt int) error {
	delay := RetryBaseDelay << (attempt - 1)
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	// Up to 25% jitter so concurrent callers do not retry in lockstep.
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay + jitter):
		return nil
	}
}
