// Package llmclient fronts a remote Ollama-compatible model server for
// embeddings and chat completions (spec.md §4.4).
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/maypok86/otter"

	"github.com/sourcelens/coderag/internal/config"
)

const healthCacheKey = "healthy"

// fallbackChatResponse and emptyChatResponse are the fixed strings the spec
// requires on chat failure and on an empty-but-successful response body.
const (
	fallbackChatResponse = "I'm unable to reach the language model right now. Please try again shortly."
	emptyChatResponse    = "The model returned an empty response."
)

// Client is the embedding/chat HTTP client contract used by the indexer and
// the retriever. Expressed as an interface so both can depend on a small
// capability bundle rather than a concrete struct (spec.md §9).
type Client interface {
	Embed(ctx context.Context, text string) []float32
	EmbedBatch(ctx context.Context, texts []string) [][]float32
	Chat(ctx context.Context, userPrompt, systemPrompt string) string
	IsHealthy(ctx context.Context) bool
}

// OllamaClient is the HTTP-backed reference implementation of Client.
type OllamaClient struct {
	cfg        config.OllamaConfig
	httpClient *http.Client
	healthTTL  otter.Cache[string, bool]
}

// New builds an OllamaClient with a 30-second TTL health cache (spec.md
// §4.4: "cached for 30 seconds when the last check returned healthy").
func New(cfg config.OllamaConfig) (*OllamaClient, error) {
	cache, err := otter.MustBuilder[string, bool](16).
		WithTTL(30 * time.Second).
		Build()
	if err != nil {
		return nil, fmt.Errorf("llmclient: building health cache: %w", err)
	}
	return &OllamaClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		healthTTL:  cache,
	}, nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the model's embedding vector for text, retrying transient
// failures with exponential backoff and falling back to a zero vector of
// the configured dimension on exhaustion (spec.md §4.4).
func (c *OllamaClient) Embed(ctx context.Context, text string) []float32 {
	vec, err := c.embedWithRetry(ctx, text)
	if err != nil {
		log.Printf("llmclient: embed failed, falling back to zero vector: %v", err)
		c.markUnhealthy()
		return zeroVector(c.cfg.FallbackEmbeddingDim)
	}
	if len(vec) == 0 {
		log.Printf("llmclient: embed returned an empty vector, falling back")
		c.markUnhealthy()
		return zeroVector(c.cfg.FallbackEmbeddingDim)
	}
	return vec
}

func (c *OllamaClient) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, float64(c.cfg.RetryDelaySeconds), attempt); err != nil {
				return nil, err
			}
		}

		vec, err := c.doEmbed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *OllamaClient) doEmbed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.cfg.EmbeddingModel, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transientError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &transientError{err: fmt.Errorf("embed: server error %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("embed: client error %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	return out.Embedding, nil
}

// EmbedBatch embeds each text independently and in order; a failure on one
// input substitutes a zero vector without aborting the remaining inputs
// (spec.md §4.4).
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = c.Embed(ctx, text)
	}
	return out
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Chat asks the chat model userPrompt under systemPrompt, retrying
// transient failures and falling back to a fixed apology string on
// exhaustion (spec.md §4.4).
func (c *OllamaClient) Chat(ctx context.Context, userPrompt, systemPrompt string) string {
	reply, err := c.chatWithRetry(ctx, userPrompt, systemPrompt)
	if err != nil {
		log.Printf("llmclient: chat failed, returning fallback reply: %v", err)
		c.markUnhealthy()
		return fallbackChatResponse
	}
	if reply == "" {
		return emptyChatResponse
	}
	return reply
}

func (c *OllamaClient) chatWithRetry(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, float64(c.cfg.RetryDelaySeconds), attempt); err != nil {
				return "", err
			}
		}

		reply, err := c.doChat(ctx, userPrompt, systemPrompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return "", err
		}
	}
	return "", lastErr
}

func (c *OllamaClient) doChat(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.cfg.ChatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &transientError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", &transientError{err: fmt.Errorf("chat: server error %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("chat: client error %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return out.Message.Content, nil
}

// IsHealthy reports server liveness, reusing a cached "healthy" verdict for
// up to 30 seconds and re-probing GET /api/tags otherwise (spec.md §4.4).
func (c *OllamaClient) IsHealthy(ctx context.Context) bool {
	if healthy, ok := c.healthTTL.Get(healthCacheKey); ok && healthy {
		return true
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.HealthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode >= 200 && resp.StatusCode < 300
	if healthy {
		c.healthTTL.Set(healthCacheKey, true)
	}
	return healthy
}

func (c *OllamaClient) markUnhealthy() {
	// An unhealthy probe is never cached (spec.md §4.4): the next
	// IsHealthy call always re-probes rather than serving a stale verdict.
	c.healthTTL.Delete(healthCacheKey)
}

func zeroVector(dim int) []float32 {
	return make([]float32, dim)
}

// transientError marks a failure as retry-eligible (connection errors and
// 5xx responses); 4xx and decode errors are permanent (spec.md §7).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// sleepBackoff waits base^attempt seconds, honoring ctx cancellation.
func sleepBackoff(ctx context.Context, base float64, attempt int) error {
	delay := time.Duration(math.Pow(base, float64(attempt))) * time.Second
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
