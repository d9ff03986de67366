// Package openlibrary turns OpenLibrary edition and work lookups into
// candidate records for the reconciliation pipeline.
package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avelardo/librario/internal/cache"
	"github.com/avelardo/librario/internal/metadata"
	"github.com/avelardo/librario/internal/ratelimit"
	"github.com/avelardo/librario/internal/textutil"
)

const (
	defaultBaseURL = "https://openlibrary.org"

	// SourcePriority ranks OpenLibrary below Google Books when candidate
	// completeness ties.
	SourcePriority = 1
)

// Client queries the OpenLibrary books API.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	baseURL    string
}

// New creates an OpenLibrary client. OpenLibrary asks clients to stay
// under one request per second.
func New() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    ratelimit.New("OpenLibrary", 1),
		baseURL:    defaultBaseURL,
	}
}

// NewWithTransport creates a client with the supplied HTTP client and
// base URL. Used by tests.
func NewWithTransport(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		limiter:    ratelimit.New("OpenLibrary", 1),
		baseURL:    baseURL,
	}
}

// Name returns the source name attached to candidates.
func (c *Client) Name() string { return "OpenLibrary" }

// FetchByISBN returns the candidate OpenLibrary holds for an ISBN-13, or
// nil when the edition is unknown. A missing synopsis is filled from the
// edition's work record when one is linked.
func (c *Client) FetchByISBN(ctx context.Context, isbn13 string) (*metadata.Candidate, error) {
	data, err := c.fetchBookData(ctx, isbn13)
	if err != nil {
		return nil, err
	}
	edition, err := c.fetchEdition(ctx, isbn13)
	if err != nil {
		return nil, err
	}
	if data == nil && edition == nil {
		return nil, nil
	}

	cand := &metadata.Candidate{
		Source:   c.Name(),
		Priority: SourcePriority,
		ISBN13s:  []string{isbn13},
	}
	if data != nil {
		cand.Title = data.Title
		if len(data.Authors) > 0 {
			cand.Author = data.Authors[0].Name
		}
		cand.PublishedDate = data.PublishDate
		for _, s := range data.Subjects {
			if s.Name != "" {
				cand.Categories = append(cand.Categories, s.Name)
			}
		}
	}
	if edition != nil {
		if cand.Title == "" {
			cand.Title = edition.Title
		}
		if cand.PublishedDate == "" {
			cand.PublishedDate = edition.PublishDate
		}
		if len(edition.Languages) > 0 {
			cand.Language = languageCode(edition.Languages[0].Key)
		}
		if cand.Synopsis == "" {
			if workID := edition.workID(); workID != "" {
				work, err := c.fetchWork(ctx, workID)
				if err == nil && work != nil {
					cand.Synopsis = work.Description.Value
				}
			}
		}
	}
	return cand, nil
}

// WorkSubjects returns the subject list of the work linked to an
// ISBN-13's edition. Used as a category fallback when the selected
// candidate carries none.
func (c *Client) WorkSubjects(ctx context.Context, isbn13 string) ([]string, error) {
	edition, err := c.fetchEdition(ctx, isbn13)
	if err != nil {
		return nil, err
	}
	if edition == nil {
		return nil, nil
	}
	workID := edition.workID()
	if workID == "" {
		return nil, nil
	}
	work, err := c.fetchWork(ctx, workID)
	if err != nil || work == nil {
		return nil, err
	}
	return textutil.Dedup(work.Subjects), nil
}

// fetchBookData queries the jscmd=data books API, which carries the
// human-curated title, author and subject fields.
func (c *Client) fetchBookData(ctx context.Context, isbn13 string) (*bookData, error) {
	bibkey := "ISBN:" + isbn13
	params := url.Values{}
	params.Set("bibkeys", bibkey)
	params.Set("format", "json")
	params.Set("jscmd", "data")

	result, _, err := cache.GetOrFetch("openlibrary_cache", "data|"+isbn13, func() (map[string]*bookData, error) {
		var parsed map[string]*bookData
		if err := c.getJSON(ctx, "/api/books?"+params.Encode(), &parsed); err != nil {
			return nil, err
		}
		return parsed, nil
	})
	if err != nil {
		return nil, err
	}
	return result[bibkey], nil
}

// fetchEdition queries the raw edition record, which links the work and
// carries language codes.
func (c *Client) fetchEdition(ctx context.Context, isbn13 string) (*edition, error) {
	result, _, err := cache.GetOrFetchWithPolicy("openlibrary_cache", "edition|"+isbn13, func() (*edition, error) {
		var parsed edition
		err := c.getJSON(ctx, "/isbn/"+isbn13+".json", &parsed)
		if err == errNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &parsed, nil
	}, func(e *edition) bool { return e != nil })
	return result, err
}

func (c *Client) fetchWork(ctx context.Context, workID string) (*work, error) {
	result, _, err := cache.GetOrFetchWithPolicy("openlibrary_cache", "work|"+workID, func() (*work, error) {
		var parsed work
		err := c.getJSON(ctx, "/works/"+workID+".json", &parsed)
		if err == errNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &parsed, nil
	}, func(w *work) bool { return w != nil })
	return result, err
}

var errNotFound = fmt.Errorf("OpenLibrary: not found")

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating OpenLibrary request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("OpenLibrary request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("OpenLibrary returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding OpenLibrary response: %w", err)
	}
	return nil
}

// languageCode maps an OpenLibrary language key like /languages/spa to a
// two-letter code where one is known.
func languageCode(key string) string {
	code := strings.TrimPrefix(key, "/languages/")
	switch code {
	case "spa":
		return "es"
	case "eng":
		return "en"
	case "fre":
		return "fr"
	case "ger":
		return "de"
	case "ita":
		return "it"
	case "por":
		return "pt"
	}
	return code
}
