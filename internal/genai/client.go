// Package genai wraps the text-generation backend behind a single
// Generate capability. Only the general-knowledge branch of the agent
// depends on it; everything else answers from structured fleet state.
package genai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/cache"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
)

const systemPrompt = "Anda adalah asisten AI untuk Predictive Maintenance Copilot. " +
	"Jawab pertanyaan tentang perawatan mesin industri secara jelas dan profesional, " +
	"dan gunakan data armada yang diberikan tanpa membuat asumsi di luar data."

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	cacheStore cache.Provider
	cacheTTL   time.Duration
}

// NewClient constructs a client targeting the configured backend. The
// cache provider memoises answers per prompt so repeated general
// questions do not burn backend quota; pass a NoopProvider to disable.
func NewClient(baseURL, apiKey, model string, timeout time.Duration, cacheStore cache.Provider, cacheTTL time.Duration) *Client {
	if cacheStore == nil {
		cacheStore = cache.NoopProvider{}
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		cacheStore: cacheStore,
		cacheTTL:   cacheTTL,
	}
}

// Generate sends the prompt to the backend and returns the completion
// text. All failures are reported as ErrGenerationBackend so the agent
// can fall back to a structured-data-only answer.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("%w: backend not configured", models.ErrGenerationBackend)
	}

	cacheKey := promptCacheKey(prompt)
	if cached, err := c.cacheStore.Get(ctx, cacheKey); err == nil && len(cached) > 0 {
		return string(cached), nil
	}

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": 0.1,
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := c.postJSON(ctx, c.baseURL+"/v1/chat/completions", payload, &response); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGenerationBackend, err)
	}
	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrGenerationBackend)
	}

	answer := response.Choices[0].Message.Content
	if c.cacheTTL > 0 {
		// Best effort: a failed cache write never fails the chat.
		_ = c.cacheStore.Set(ctx, cacheKey, []byte(answer), c.cacheTTL)
	}
	return answer, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func promptCacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return "genai:completion:" + hex.EncodeToString(sum[:])
}
