package openlibrary

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/avelardo/librario/internal/cache"
)

// newIPv4TestServer creates a test server bound to 127.0.0.1 to avoid
// IPv6 issues in restricted environments.
func newIPv4TestServer(handler http.Handler) *httptest.Server {
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		panic("failed to listen on IPv4: " + err.Error())
	}
	server := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	server.Start()
	return server
}

func setupTestCache(t *testing.T) {
	t.Helper()
	cache.ResetGlobal()
	viper.Reset()
	viper.Set("cache.dbfile", filepath.Join(t.TempDir(), "cache.db"))
	t.Cleanup(func() {
		cache.ResetGlobal()
		viper.Reset()
	})
}

const (
	bookDataJSON = `{"ISBN:9780306406157": {
		"title": "El camino de los reyes",
		"publish_date": "2015",
		"authors": [{"name": "Brandon Sanderson"}],
		"subjects": [{"name": "Fantasy fiction"}, {"name": "Epic fiction"}]
	}}`

	editionJSON = `{
		"title": "El camino de los reyes",
		"publish_date": "2015",
		"works": [{"key": "/works/OL8479867W"}],
		"languages": [{"key": "/languages/spa"}]
	}`

	workJSON = `{
		"subjects": ["Fantasy", "Epic", "Fantasy"],
		"description": {"type": "/type/text", "value": "La guerra arrasa Roshar."}
	}`
)

func newFixtureServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := newIPv4TestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/books":
			_, _ = w.Write([]byte(bookDataJSON))
		case "/isbn/9780306406157.json":
			_, _ = w.Write([]byte(editionJSON))
		case "/works/OL8479867W.json":
			_, _ = w.Write([]byte(workJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchByISBNBuildsCandidate(t *testing.T) {
	setupTestCache(t)
	server := newFixtureServer(t, nil)

	client := NewWithTransport(server.Client(), server.URL)
	got, err := client.FetchByISBN(context.Background(), "9780306406157")
	require.NoError(t, err)
	require.NotNil(t, got)

	require.Equal(t, "OpenLibrary", got.Source)
	require.Equal(t, SourcePriority, got.Priority)
	require.Equal(t, "El camino de los reyes", got.Title)
	require.Equal(t, "Brandon Sanderson", got.Author)
	require.Equal(t, "La guerra arrasa Roshar.", got.Synopsis)
	require.Equal(t, []string{"Fantasy fiction", "Epic fiction"}, got.Categories)
	require.Equal(t, "es", got.Language)
	require.Equal(t, []string{"9780306406157"}, got.ISBN13s)
}

func TestFetchByISBNUnknownEdition(t *testing.T) {
	setupTestCache(t)
	server := newIPv4TestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/books" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewWithTransport(server.Client(), server.URL)
	got, err := client.FetchByISBN(context.Background(), "9780975229804")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestWorkSubjectsDeduplicates(t *testing.T) {
	setupTestCache(t)
	server := newFixtureServer(t, nil)

	client := NewWithTransport(server.Client(), server.URL)
	subjects, err := client.WorkSubjects(context.Background(), "9780306406157")
	require.NoError(t, err)
	require.Equal(t, []string{"Fantasy", "Epic"}, subjects)
}

func TestFetchByISBNUsesCache(t *testing.T) {
	setupTestCache(t)
	var hits atomic.Int32
	server := newFixtureServer(t, &hits)

	client := NewWithTransport(server.Client(), server.URL)
	for range 2 {
		got, err := client.FetchByISBN(context.Background(), "9780306406157")
		require.NoError(t, err)
		require.NotNil(t, got)
	}
	// One request each for book data, edition and work.
	require.Equal(t, int32(3), hits.Load())
}

func TestFetchByISBNServerError(t *testing.T) {
	setupTestCache(t)
	server := newIPv4TestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewWithTransport(server.Client(), server.URL)
	_, err := client.FetchByISBN(context.Background(), "9780306406157")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 500")
}

func TestFlexDescriptionShapes(t *testing.T) {
	var w1 work
	require.NoError(t, json.Unmarshal([]byte(`{"description": "plain text"}`), &w1))
	require.Equal(t, "plain text", w1.Description.Value)

	var w2 work
	require.NoError(t, json.Unmarshal([]byte(`{"description": {"type": "/type/text", "value": "typed text"}}`), &w2))
	require.Equal(t, "typed text", w2.Description.Value)
}
