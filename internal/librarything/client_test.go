package librarything

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/avelardo/librario/internal/cache"
)

const workXML = `<?xml version="1.0" encoding="UTF-8"?>
<response stat="ok">
 <ltml xmlns="http://www.librarything.com/" version="1.1">
  <item id="3026095" type="work">
   <commonknowledge>
    <fieldList>
     <field type="16" name="characternames" displayName="People/Characters">
      <versionList>
       <version id="1" archived="0" lang="eng">
        <factList>
         <fact><![CDATA[Kaladin]]></fact>
         <fact><![CDATA[Shallan Davar]]></fact>
         <fact><![CDATA[Dalinar Kholin]]></fact>
         <fact><![CDATA[Szeth]]></fact>
         <fact><![CDATA[Adolin Kholin]]></fact>
         <fact><![CDATA[Navani Kholin]]></fact>
         <fact><![CDATA[Jasnah Kholin]]></fact>
         <fact><![CDATA[Kaladin]]></fact>
        </factList>
       </version>
      </versionList>
     </field>
     <field type="43" name="placesmentioned" displayName="Important places">
      <versionList>
       <version id="2" archived="0" lang="eng">
        <factList>
         <fact><![CDATA[Roshar]]></fact>
         <fact><![CDATA[Alethkar]]></fact>
         <fact><![CDATA[The Shattered Plains]]></fact>
         <fact><![CDATA[Kharbranth]]></fact>
         <fact><![CDATA[Urithiru]]></fact>
         <fact><![CDATA[Shadesmar]]></fact>
        </factList>
       </version>
      </versionList>
     </field>
    </fieldList>
   </commonknowledge>
  </item>
 </ltml>
</response>`

// newIPv4TestServer starts a test server bound to IPv4 loopback to avoid IPv6 listener issues.
func newIPv4TestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)

	server := httptest.NewUnstartedServer(handler)
	server.Listener = listener
	server.Start()

	t.Cleanup(server.Close)
	return server
}

func setupTestCache(t *testing.T) {
	t.Helper()

	require.NoError(t, cache.ResetGlobal())
	viper.Reset()
	viper.Set("cache.dbfile", filepath.Join(t.TempDir(), "cache.db"))
	t.Cleanup(func() {
		_ = cache.ResetGlobal()
		viper.Reset()
	})
}

func TestFetchFactsParsesAndCaps(t *testing.T) {
	setupTestCache(t)

	var hits int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits++
		require.Equal(t, "librarything.ck.getwork", r.URL.Query().Get("method"))
		require.Equal(t, "9780306406157", r.URL.Query().Get("isbn"))
		require.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(workXML))
	})
	server := newIPv4TestServer(t, mux)

	c := NewWithTransport(server.Client(), server.URL+"/")
	facts := c.FetchFacts(context.Background(), "9780306406157", "test-key")

	require.Equal(t, []string{"Kaladin", "Shallan Davar", "Dalinar Kholin", "Szeth", "Adolin Kholin"}, facts.Characters)
	require.Equal(t, []string{"Roshar", "Alethkar", "The Shattered Plains", "Kharbranth", "Urithiru"}, facts.Places)
	require.Equal(t, 1, hits)
}

func TestFetchFactsUsesCacheOnSecondCall(t *testing.T) {
	setupTestCache(t)

	var hits int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(workXML))
	})
	server := newIPv4TestServer(t, mux)

	c := NewWithTransport(server.Client(), server.URL+"/")
	first := c.FetchFacts(context.Background(), "9780306406157", "test-key")
	second := c.FetchFacts(context.Background(), "9780306406157", "test-key")

	require.Equal(t, first, second)
	require.Equal(t, 1, hits)
}

func TestFetchFactsEmptyAPIKeySkipsNetwork(t *testing.T) {
	setupTestCache(t)

	var hits int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits++
	})
	server := newIPv4TestServer(t, mux)

	c := NewWithTransport(server.Client(), server.URL+"/")
	facts := c.FetchFacts(context.Background(), "9780306406157", "")

	require.True(t, facts.Empty())
	require.Equal(t, 0, hits)
}

func TestFetchFactsInvalidISBNSkipsNetwork(t *testing.T) {
	setupTestCache(t)

	var hits int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits++
	})
	server := newIPv4TestServer(t, mux)

	c := NewWithTransport(server.Client(), server.URL+"/")
	require.True(t, c.FetchFacts(context.Background(), "9780306406158", "key").Empty())
	require.True(t, c.FetchFacts(context.Background(), "not-an-isbn", "key").Empty())
	require.Equal(t, 0, hits)
}

func TestFetchFactsServerErrorDegrades(t *testing.T) {
	setupTestCache(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	server := newIPv4TestServer(t, mux)

	c := NewWithTransport(server.Client(), server.URL+"/")
	require.True(t, c.FetchFacts(context.Background(), "9780306406157", "key").Empty())
}

func TestFetchFactsMalformedXMLDegrades(t *testing.T) {
	setupTestCache(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<response><unclosed"))
	})
	server := newIPv4TestServer(t, mux)

	c := NewWithTransport(server.Client(), server.URL+"/")
	require.True(t, c.FetchFacts(context.Background(), "9780306406157", "key").Empty())
}

func TestFetchFactsMissingFacetIsValid(t *testing.T) {
	setupTestCache(t)

	onlyCharacters := `<response stat="ok"><ltml><item><commonknowledge><fieldList>
     <field type="16" name="characternames"><versionList><version><factList>
      <fact>Vin</fact><fact>Kelsier</fact>
     </factList></version></versionList></field>
    </fieldList></commonknowledge></item></ltml></response>`

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(onlyCharacters))
	})
	server := newIPv4TestServer(t, mux)

	c := NewWithTransport(server.Client(), server.URL+"/")
	facts := c.FetchFacts(context.Background(), "9780306406157", "key")

	require.Equal(t, []string{"Vin", "Kelsier"}, facts.Characters)
	require.Empty(t, facts.Places)
}
