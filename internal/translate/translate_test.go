package translate

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
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

func TestTranslate(t *testing.T) {
	server := newIPv4TestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "The war ravages Roshar.", r.PostForm.Get("q"))
		require.Equal(t, "en", r.PostForm.Get("source"))
		require.Equal(t, "es", r.PostForm.Get("target"))
		require.Equal(t, "secret", r.PostForm.Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translatedText": "La guerra arrasa Roshar."}`))
	}))
	defer server.Close()

	client := NewWithTransport(server.Client(), server.URL, "secret")
	got := client.Translate(context.Background(), "The war ravages Roshar.", "en", "es")
	require.Equal(t, "La guerra arrasa Roshar.", got)
}

func TestTranslateDisabledWithoutURL(t *testing.T) {
	client := New("", "")
	require.False(t, client.Enabled())
	require.Equal(t, "hello", client.Translate(context.Background(), "hello", "en", "es"))
}

func TestTranslateSkipsSameLanguage(t *testing.T) {
	var hits atomic.Int32
	server := newIPv4TestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := NewWithTransport(server.Client(), server.URL, "")
	require.Equal(t, "hola", client.Translate(context.Background(), "hola", "es", "es"))
	require.Equal(t, int32(0), hits.Load())
}

func TestTranslateKeepsOriginalOnError(t *testing.T) {
	server := newIPv4TestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewWithTransport(server.Client(), server.URL, "")
	got := client.Translate(context.Background(), "The war ravages Roshar.", "en", "es")
	require.Equal(t, "The war ravages Roshar.", got)
}

func TestTranslateKeepsOriginalOnEmptyResult(t *testing.T) {
	server := newIPv4TestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"translatedText": ""}`))
	}))
	defer server.Close()

	client := NewWithTransport(server.Client(), server.URL, "")
	require.Equal(t, "texto", client.Translate(context.Background(), "texto", "en", "es"))
}
