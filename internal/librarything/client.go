// Package librarything fetches character and place mentions for a work
// from the LibraryThing common knowledge service.
//
// The client is strictly best-effort: it never returns an error. Missing
// preconditions, transport failures and malformed responses all degrade
// to empty facts, which the pipeline treats as "nothing known".
package librarything

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/viper"

	"github.com/avelardo/librario/internal/cache"
	"github.com/avelardo/librario/internal/isbn"
	"github.com/avelardo/librario/internal/metadata"
	"github.com/avelardo/librario/internal/ratelimit"
	"github.com/avelardo/librario/internal/textutil"
)

const defaultBaseURL = "https://www.librarything.com/services/rest/1.1/"

// DefaultFactsMax caps each fact list (characters, places).
const DefaultFactsMax = 5

// Client calls the LibraryThing REST endpoint.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	baseURL    string
}

// New creates a LibraryThing client with its own pacing.
func New() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		limiter:    ratelimit.New("LibraryThing", 1),
		baseURL:    defaultBaseURL,
	}
}

// NewWithTransport creates a client using the supplied HTTP client and
// base URL. Used by tests and callers that own the transport.
func NewWithTransport(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		limiter:    ratelimit.New("LibraryThing", 1),
		baseURL:    baseURL,
	}
}

// cachedFacts wraps a response for the cache, marking empty results so
// they are not stored.
type cachedFacts struct {
	Characters []string `json:"characters"`
	Places     []string `json:"places"`
}

// FetchFacts returns the deduplicated, capped character and place lists
// for a validated ISBN-13. It never returns an error: when the ISBN is
// not valid, the API key is empty, or the lookup fails in any way, the
// result is simply empty. No network call is attempted when a
// precondition fails.
func (c *Client) FetchFacts(ctx context.Context, isbn13, apiKey string) metadata.Facts {
	if !isbn.IsValid13(isbn13) {
		slog.Debug("Skipping facts lookup for invalid ISBN", "isbn", isbn13)
		return metadata.Facts{}
	}
	if apiKey == "" {
		slog.Debug("Skipping facts lookup, no API key configured", "isbn", isbn13)
		return metadata.Facts{}
	}

	result, _, err := cache.GetOrFetchWithPolicy("librarything_cache", isbn13, func() (*cachedFacts, error) {
		return c.fetchFromAPI(ctx, isbn13, apiKey)
	}, func(r *cachedFacts) bool {
		// Only keep responses that actually carried facts; a transient
		// empty answer should be retried on the next ingest.
		return len(r.Characters) > 0 || len(r.Places) > 0
	})
	if err != nil {
		slog.Warn("LibraryThing lookup degraded to empty facts", "isbn", isbn13, "error", err)
		return metadata.Facts{}
	}

	max := factsMax()
	return metadata.Facts{
		Characters: capList(textutil.Dedup(result.Characters), max),
		Places:     capList(textutil.Dedup(result.Places), max),
	}
}

func (c *Client) fetchFromAPI(ctx context.Context, isbn13, apiKey string) (*cachedFacts, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("method", "librarything.ck.getwork")
	params.Set("isbn", isbn13)
	params.Set("apikey", apiKey)

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating LibraryThing request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("LibraryThing request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LibraryThing returned status %d", resp.StatusCode)
	}

	characters, places, err := parseWorkXML(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing LibraryThing response: %w", err)
	}
	return &cachedFacts{Characters: characters, Places: places}, nil
}

func factsMax() int {
	if max := viper.GetInt("facts.max"); max > 0 {
		return max
	}
	return DefaultFactsMax
}

func capList(list []string, max int) []string {
	if len(list) > max {
		return list[:max]
	}
	return list
}
