package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/config"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/models"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/processing"
)

// ResultCount is the number of hits requested from the provider.
const ResultCount = 10

// ErrSearchUnavailable wraps every failure to obtain search results.
var ErrSearchUnavailable = errors.New("search unavailable")

// Client queries the Serper news endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// New builds a client; a zero timeout defaults to 15s.
func New(cfg config.Search) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type newsRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type newsResponse struct {
	News []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
		Source  string `json:"source"`
		Date    string `json:"date"`
	} `json:"news"`
}

// Search returns up to ResultCount hits for topic in provider order.
func (c *Client) Search(ctx context.Context, topic string) ([]models.RawHit, error) {
	body, err := json.Marshal(newsRequest{Q: topic, Num: ResultCount})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrSearchUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSearchUnavailable, err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: serper returned %s: %s", ErrSearchUnavailable, resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchUnavailable, err)
	}

	n := len(parsed.News)
	if n > ResultCount {
		n = ResultCount
	}
	hits := make([]models.RawHit, 0, n)
	for _, item := range parsed.News[:n] {
		hits = append(hits, models.RawHit{
			Title:   processing.StripMarkup(item.Title),
			Snippet: processing.StripMarkup(item.Snippet),
			Link:    strings.TrimSpace(item.Link),
			Source:  strings.TrimSpace(item.Source),
			Date:    strings.TrimSpace(item.Date),
		})
	}
	return hits, nil
}
