// Package translate sends text through a LibreTranslate instance. The
// pipeline never depends on translation succeeding: any failure, and an
// unconfigured instance URL, return the input text unchanged.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one LibreTranslate instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New creates a translate client. An empty baseURL disables translation.
func New(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// NewWithTransport creates a client with the supplied HTTP client. Used
// by tests.
func NewWithTransport(httpClient *http.Client, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Enabled reports whether an instance URL is configured.
func (c *Client) Enabled() bool { return c.baseURL != "" }

// Translate returns text translated from source to target. On any
// failure the original text comes back, so callers can assign the
// result unconditionally.
func (c *Client) Translate(ctx context.Context, text, source, target string) string {
	if !c.Enabled() || strings.TrimSpace(text) == "" || source == target {
		return text
	}

	translated, err := c.doTranslate(ctx, text, source, target)
	if err != nil {
		slog.Warn("Translation failed, keeping original text", "source", source, "target", target, "error", err)
		return text
	}
	if translated == "" {
		return text
	}
	return translated
}

func (c *Client) doTranslate(ctx context.Context, text, source, target string) (string, error) {
	form := url.Values{}
	form.Set("q", text)
	form.Set("source", source)
	form.Set("target", target)
	form.Set("format", "text")
	if c.apiKey != "" {
		form.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate server returned status %d", resp.StatusCode)
	}

	var parsed struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding translate response: %w", err)
	}
	return parsed.TranslatedText, nil
}
