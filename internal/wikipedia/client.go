// Package wikipedia resolves short author biographies from Wikipedia's
// search and page-summary APIs. Biographies are decoration on the final
// record, so every failure degrades to an empty result instead of an
// error.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avelardo/librario/internal/cache"
	"github.com/avelardo/librario/internal/ratelimit"
	"github.com/avelardo/librario/internal/textutil"
)

// Client queries per-language Wikipedia instances.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	// baseURLFor builds the instance URL for a language code. Tests
	// override it to point every language at one fixture server.
	baseURLFor func(lang string) string
}

// New creates a Wikipedia client.
func New() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    ratelimit.New("Wikipedia", 2),
		baseURLFor: func(lang string) string {
			return fmt.Sprintf("https://%s.wikipedia.org", lang)
		},
	}
}

// NewWithTransport creates a client that sends every language's requests
// to the same base URL. Used by tests.
func NewWithTransport(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		limiter:    ratelimit.New("Wikipedia", 2),
		baseURLFor: func(string) string { return baseURL },
	}
}

// AuthorBio returns a short biography for an author, preferring the
// given language and falling back to English. Returns "" when no
// biography can be found for any reason.
func (c *Client) AuthorBio(ctx context.Context, author, lang string) string {
	if strings.TrimSpace(author) == "" {
		return ""
	}

	langs := []string{lang}
	if lang != "en" {
		langs = append(langs, "en")
	}
	for _, l := range langs {
		if l == "" {
			continue
		}
		bio, err := c.bioInLanguage(ctx, author, l)
		if err != nil {
			slog.Warn("Wikipedia lookup failed", "author", author, "lang", l, "error", err)
			continue
		}
		if bio != "" {
			return bio
		}
	}
	return ""
}

func (c *Client) bioInLanguage(ctx context.Context, author, lang string) (string, error) {
	key := "bio|" + lang + "|" + author
	bio, _, err := cache.GetOrFetchWithPolicy("wikipedia_cache", key, func() (string, error) {
		return c.fetchBio(ctx, author, lang)
	}, func(s string) bool { return s != "" })
	return bio, err
}

func (c *Client) fetchBio(ctx context.Context, author, lang string) (string, error) {
	title, err := c.searchTitle(ctx, author, lang)
	if err != nil {
		return "", err
	}
	if title == "" {
		return "", nil
	}
	return c.pageSummary(ctx, title, lang)
}

// searchTitle resolves the page title that best matches the author name.
func (c *Client) searchTitle(ctx context.Context, author, lang string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", author)
	params.Set("srlimit", "1")
	params.Set("format", "json")

	var parsed struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	reqURL := c.baseURLFor(lang) + "/w/api.php?" + params.Encode()
	if err := c.getJSON(ctx, reqURL, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Query.Search) == 0 {
		return "", nil
	}
	return parsed.Query.Search[0].Title, nil
}

// pageSummary fetches the REST summary extract for a page title.
func (c *Client) pageSummary(ctx context.Context, title, lang string) (string, error) {
	var parsed struct {
		Extract string `json:"extract"`
	}
	reqURL := c.baseURLFor(lang) + "/api/rest_v1/page/summary/" + url.PathEscape(title)
	if err := c.getJSON(ctx, reqURL, &parsed); err != nil {
		return "", err
	}
	return textutil.StripHTML(parsed.Extract), nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating Wikipedia request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Wikipedia request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Wikipedia returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding Wikipedia response: %w", err)
	}
	return nil
}
