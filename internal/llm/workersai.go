package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/config"
)

// Client runs text generation on Cloudflare Workers AI through its REST API.
type Client struct {
	endpoint  string
	apiToken  string
	maxTokens int
	http      *http.Client
}

// New builds a client for cfg.Model; a zero timeout defaults to 60s.
func New(cfg config.AI) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	endpoint := fmt.Sprintf("%s/accounts/%s/ai/run/%s",
		strings.TrimSuffix(cfg.BaseURL, "/"),
		url.PathEscape(cfg.AccountID),
		cfg.Model,
	)
	return &Client{
		endpoint:  endpoint,
		apiToken:  cfg.APIToken,
		maxTokens: cfg.MaxTokens,
		http:      &http.Client{Timeout: timeout},
	}
}

type runRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

// Complete sends prompt and returns the model output as a single string.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(runRequest{Prompt: prompt, MaxTokens: c.maxTokens})
	if err != nil {
		return "", fmt.Errorf("marshal workers ai payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("workers ai request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read workers ai response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		snippet := data
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return "", fmt.Errorf("workers ai error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	return Normalize(unwrapResult(data)), nil
}

// unwrapResult returns the "result" member of the REST envelope, or the whole
// body when there is none.
func unwrapResult(body []byte) json.RawMessage {
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Result) > 0 && string(envelope.Result) != "null" {
		return envelope.Result
	}
	return json.RawMessage(body)
}
