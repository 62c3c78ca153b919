// Package httpapi provides an analysis provider that talks to the spell
// checking back-end over its JSON/multipart REST API.
//
// Endpoints:
//
//   - POST /check-text with {"text": "..."} returns {"results": [...]} where
//     every element carries word, is_correct, suggestions and start_index.
//   - POST /check-file with a multipart "file" field returns
//     {"corrections_count": n, "download_url": "/download-corrected/<name>", ...}.
//   - GET <download_url> streams the corrected artifact.
//
// Usage:
//
//	c, err := httpapi.New(httpapi.Config{BaseURL: "http://localhost:8000"},
//	    httpapi.WithTimeout(5*time.Second),
//	)
//	findings, err := c.Analyze(ctx, "helo wrold ")
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrWong99/livespell/pkg/provider/analysis"
	"github.com/MrWong99/livespell/pkg/types"
)

const (
	defaultTimeout = 15 * time.Second

	checkTextEndpoint = "/check-text"
	checkFileEndpoint = "/check-file"

	// maxErrorBody bounds how much of a failed response body is quoted in
	// the returned error.
	maxErrorBody = 512
)

// Compile-time interface assertions.
var (
	_ analysis.Provider     = (*Client)(nil)
	_ analysis.FileProvider = (*Client)(nil)
)

// ErrForeignLocator is returned by Download when a locator points outside the
// configured back-end.
var ErrForeignLocator = errors.New("httpapi: download locator does not belong to the configured back-end")

// StatusError describes a non-2xx response from the back-end.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpapi: %s: unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Config is the explicit connection configuration for the back-end.
type Config struct {
	// BaseURL is the back-end root, e.g. "http://localhost:8000".
	BaseURL string

	// APIKey, when non-empty, is sent as a Bearer token on every request.
	APIKey string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithTimeout sets the per-request HTTP timeout. Defaults to 15 s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Client implements analysis.Provider and analysis.FileProvider against the
// REST back-end. It is safe for concurrent use.
type Client struct {
	base       *url.URL
	apiKey     string
	httpClient *http.Client
}

// New creates a Client. cfg.BaseURL must be an absolute http(s) URL.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("httpapi: base URL must not be empty")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("httpapi: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("httpapi: base URL scheme %q is not http(s)", base.Scheme)
	}
	c := &Client{
		base:       base,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// checkTextRequest is the JSON body of POST /check-text.
type checkTextRequest struct {
	Text string `json:"text"`
}

// checkTextResponse is the JSON body returned by POST /check-text.
type checkTextResponse struct {
	Results []struct {
		Word        string   `json:"word"`
		IsCorrect   bool     `json:"is_correct"`
		Suggestions []string `json:"suggestions"`
		StartIndex  int      `json:"start_index"`
	} `json:"results"`
}

// Analyze implements analysis.Provider.
func (c *Client) Analyze(ctx context.Context, text string) ([]types.WordFinding, error) {
	if text == "" {
		return nil, nil
	}
	body, err := json.Marshal(checkTextRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("httpapi: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(checkTextEndpoint), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out checkTextResponse
	if err := c.doJSON(req, checkTextEndpoint, &out); err != nil {
		return nil, err
	}

	findings := make([]types.WordFinding, 0, len(out.Results))
	for _, r := range out.Results {
		findings = append(findings, types.WordFinding{
			Word:        r.Word,
			IsCorrect:   r.IsCorrect,
			Suggestions: r.Suggestions,
		})
	}
	return findings, nil
}

// AnalyzeFile implements analysis.FileProvider.
func (c *Client) AnalyzeFile(ctx context.Context, data []byte, filename string) (*types.FileReport, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("httpapi: create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("httpapi: write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("httpapi: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(checkFileEndpoint), &buf)
	if err != nil {
		return nil, fmt.Errorf("httpapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var report types.FileReport
	if err := c.doJSON(req, checkFileEndpoint, &report); err != nil {
		return nil, err
	}
	if report.DownloadLocator == "" {
		return nil, fmt.Errorf("httpapi: %s: response carries no download locator", checkFileEndpoint)
	}
	return &report, nil
}

// Download implements analysis.FileProvider. Relative locators are resolved
// against the base URL; absolute locators must share its scheme and host.
func (c *Client) Download(ctx context.Context, locator string) (io.ReadCloser, error) {
	ref, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("httpapi: parse locator: %w", err)
	}
	target := c.base.ResolveReference(ref)
	if target.Scheme != c.base.Scheme || target.Host != c.base.Host {
		return nil, ErrForeignLocator
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("httpapi: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpapi: download: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError("download", resp)
	}
	return resp.Body, nil
}

// endpoint joins the base URL and an absolute endpoint path.
func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// doJSON sends req and decodes a 2xx JSON response into out.
func (c *Client) doJSON(req *http.Request, endpoint string, out any) error {
	c.authorize(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpapi: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(endpoint, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpapi: %s: decode response: %w", endpoint, err)
	}
	return nil
}

func statusError(endpoint string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(b)),
	}
}
