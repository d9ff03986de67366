// Package googlebooks turns Google Books volume lookups into candidate
// records for the reconciliation pipeline.
package googlebooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avelardo/librario/internal/cache"
	"github.com/avelardo/librario/internal/isbn"
	"github.com/avelardo/librario/internal/metadata"
	"github.com/avelardo/librario/internal/ratelimit"
)

const (
	defaultBaseURL = "https://www.googleapis.com/books/v1"

	// SourcePriority ranks Google Books above OpenLibrary when candidate
	// completeness ties.
	SourcePriority = 2

	// volumeFields keeps the response payload down to the fields the
	// pipeline consumes.
	volumeFields = "items(id,volumeInfo(title,subtitle,authors,description,categories,industryIdentifiers,language,publishedDate))"
)

// Client queries the Google Books volumes API.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	baseURL    string
	apiKey     string
}

// New creates a Google Books client. The API key is optional; anonymous
// requests work with tighter quotas.
func New(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    ratelimit.New("GoogleBooks", 2),
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
	}
}

// NewWithTransport creates a client with the supplied HTTP client and
// base URL. Used by tests and callers that own the transport.
func NewWithTransport(httpClient *http.Client, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		limiter:    ratelimit.New("GoogleBooks", 2),
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Name returns the source name attached to candidates.
func (c *Client) Name() string { return "GoogleBooks" }

// FetchByISBN returns the candidates Google Books holds for an ISBN-13,
// preferring the configured language and retrying without a language
// restriction if that turns up nothing.
func (c *Client) FetchByISBN(ctx context.Context, isbn13, lang string) ([]*metadata.Candidate, error) {
	query := "isbn:" + isbn13

	items, err := c.search(ctx, query, lang)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 && lang != "" {
		if items, err = c.search(ctx, query, ""); err != nil {
			return nil, err
		}
	}
	return c.toCandidates(items), nil
}

// FetchByTitle searches by title (author optional) across the query
// variants that recover editions the strict phrase search misses:
// quoted and unquoted intitle, with and without the language restriction.
// Duplicate volumes are collapsed by volume id, first appearance wins.
func (c *Client) FetchByTitle(ctx context.Context, title, author, lang string) ([]*metadata.Candidate, error) {
	queries := []struct {
		q    string
		lang string
	}{
		{buildTitleQuery(title, author), lang},
		{fmt.Sprintf("intitle:%q", title), lang},
		{"intitle:" + title, lang},
		{"intitle:" + title, ""},
	}

	var items []volumeItem
	seen := make(map[string]bool)
	for _, q := range queries {
		found, err := c.search(ctx, q.q, q.lang)
		if err != nil {
			return nil, err
		}
		for _, it := range found {
			if it.ID == "" || !seen[it.ID] {
				seen[it.ID] = true
				items = append(items, it)
			}
		}
	}
	return c.toCandidates(items), nil
}

func buildTitleQuery(title, author string) string {
	q := fmt.Sprintf("intitle:%q", title)
	if author != "" {
		q += fmt.Sprintf(" inauthor:%q", author)
	}
	return q
}

func (c *Client) search(ctx context.Context, query, lang string) ([]volumeItem, error) {
	cacheKey := query + "|" + lang
	result, _, err := cache.GetOrFetch("googlebooks_cache", cacheKey, func() (*volumesResponse, error) {
		return c.fetchFromAPI(ctx, query, lang)
	})
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (c *Client) fetchFromAPI(ctx context.Context, query, lang string) (*volumesResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("printType", "books")
	params.Set("projection", "full")
	params.Set("maxResults", "20")
	params.Set("fields", volumeFields)
	if lang != "" {
		params.Set("langRestrict", lang)
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	reqURL := c.baseURL + "/volumes?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Google Books request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Google Books request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Google Books returned status %d", resp.StatusCode)
	}

	var parsed volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding Google Books response: %w", err)
	}
	return &parsed, nil
}

// toCandidates converts raw volume items into candidate records.
func (c *Client) toCandidates(items []volumeItem) []*metadata.Candidate {
	candidates := make([]*metadata.Candidate, 0, len(items))
	for _, it := range items {
		vi := it.VolumeInfo

		author := ""
		if len(vi.Authors) > 0 {
			author = vi.Authors[0]
		}

		candidates = append(candidates, &metadata.Candidate{
			Source:        c.Name(),
			Priority:      SourcePriority,
			Title:         vi.Title,
			Author:        author,
			Synopsis:      vi.Description,
			Categories:    vi.Categories,
			Language:      vi.Language,
			ISBN13s:       extractISBN13s(vi.IndustryIdentifiers),
			PublishedDate: vi.PublishedDate,
		})
	}
	return candidates
}

// extractISBN13s pulls the validated ISBN-13 identifiers out of a
// volume's industry identifier list, deduplicated in source order.
func extractISBN13s(ids []industryIdentifier) []string {
	var out []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if id.Type != "ISBN_13" {
			continue
		}
		normalized := isbn.Normalize(id.Identifier)
		if isbn.IsValid13(normalized) && !seen[normalized] {
			seen[normalized] = true
			out = append(out, normalized)
		}
	}
	return out
}
