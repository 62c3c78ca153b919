// Package detectlanguage provides a langdetect.Provider backed by the
// detectlanguage.com v0.2 REST API.
//
// The client POSTs {"q": text} to /0.2/detect with a Bearer API key and
// returns the language of the first (highest ranked) detection.
package detectlanguage

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

	"github.com/MrWong99/livespell/pkg/provider/langdetect"
)

const (
	defaultBaseURL = "https://ws.detectlanguage.com"
	defaultTimeout = 10 * time.Second
	detectEndpoint = "/0.2/detect"
)

// ErrUndetermined is returned when the service answers without any
// detection.
var ErrUndetermined = errors.New("detectlanguage: language could not be determined")

var _ langdetect.Provider = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL overrides the API root. Defaults to https://ws.detectlanguage.com.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 10 s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// Client implements langdetect.Provider. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a Client. apiKey must not be empty.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("detectlanguage: API key must not be empty")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type detectRequest struct {
	Q string `json:"q"`
}

type detectResponse struct {
	Data struct {
		Detections []struct {
			Language   string  `json:"language"`
			IsReliable bool    `json:"isReliable"`
			Confidence float64 `json:"confidence"`
		} `json:"detections"`
	} `json:"data"`
}

// Detect implements langdetect.Provider.
func (c *Client) Detect(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(detectRequest{Q: text})
	if err != nil {
		return "", fmt.Errorf("detectlanguage: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+detectEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("detectlanguage: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("detectlanguage: detect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("detectlanguage: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("detectlanguage: decode response: %w", err)
	}
	if len(out.Data.Detections) == 0 || out.Data.Detections[0].Language == "" {
		return "", ErrUndetermined
	}
	return out.Data.Detections[0].Language, nil
}
