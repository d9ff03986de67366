// Package covers resolves and downloads book cover images. The resolver
// service maps an ISBN-13 to a cover URL; downloads are normalized to
// JPEG so storage holds one predictable format.
package covers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"

	"github.com/avelardo/librario/internal/ratelimit"
)

const (
	defaultBaseURL = "https://bookcover.longitood.com"

	// maxWidth bounds stored covers. Larger images are resized down.
	maxWidth = 1000

	jpegQuality = 85
)

// Client resolves cover URLs and downloads the images.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	baseURL    string
}

// New creates a cover client.
func New() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    ratelimit.New("Covers", 1),
		baseURL:    defaultBaseURL,
	}
}

// NewWithTransport creates a client with the supplied HTTP client and
// resolver base URL. Used by tests.
func NewWithTransport(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		limiter:    ratelimit.New("Covers", 1),
		baseURL:    baseURL,
	}
}

// ResolveURL asks the resolver service for the cover URL of an ISBN-13.
// Returns "" without error when the service knows no cover.
func (c *Client) ResolveURL(ctx context.Context, isbn13 string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/bookcover/"+isbn13, nil)
	if err != nil {
		return "", fmt.Errorf("creating cover resolver request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cover resolver request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cover resolver returned status %d", resp.StatusCode)
	}

	var parsed struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding cover resolver response: %w", err)
	}
	return parsed.URL, nil
}

// Download fetches an image URL and returns it re-encoded as JPEG,
// resized down when wider than maxWidth. An image that cannot be
// decoded is returned as-is rather than lost.
func (c *Client) Download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating cover download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cover download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d downloading cover", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading cover image: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		// An undecodable payload still gets stored rather than lost.
		return raw, nil
	}

	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encoding cover as JPEG: %w", err)
	}
	return out.Bytes(), nil
}

// Fetch resolves and downloads the cover for an ISBN-13 in one call.
// Returns nil without error when no cover exists.
func (c *Client) Fetch(ctx context.Context, isbn13 string) ([]byte, error) {
	coverURL, err := c.ResolveURL(ctx, isbn13)
	if err != nil {
		return nil, err
	}
	if coverURL == "" {
		return nil, nil
	}
	return c.Download(ctx, coverURL)
}
