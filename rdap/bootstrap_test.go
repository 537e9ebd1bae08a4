package rdap

import (
	"context"
	"errors"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bootstrapFixture = `{
	"description": "RDAP bootstrap file for Domain Name System registrations",
	"services": [
		[["COM", "net"], ["https://rdap.verisign.example/", "https://backup.verisign.example/"]],
		[["com"], ["https://never-reached.example/"]],
		[["guru"], ["https://rdap.donuts.example"]]
	]
}`

func TestParseBootstrapMalformed(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":        "<html>nope</html>",
		"no services":     `{"description": "empty"}`,
		"services map":    `{"services": {"com": "https://x.example"}}`,
		"nested non-list": `{"services": [[{"tld": "com"}, ["https://x.example"]]]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBootstrap([]byte(payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedSource), "want ErrMalformedSource, got %v", err)
		})
	}
}

func TestResolveNormalization(t *testing.T) {
	b, err := ParseBootstrap([]byte(bootstrapFixture))
	require.NoError(t, err)

	want := "https://rdap.verisign.example/"
	for _, tld := range []string{"COM", ".com", "com", ".CoM"} {
		got, ok := b.Resolve(tld)
		require.True(t, ok, "tld %q", tld)
		assert.Equal(t, want, got, "tld %q", tld)
	}
}

func TestResolveFirstEntryFirstURLWins(t *testing.T) {
	b, err := ParseBootstrap([]byte(bootstrapFixture))
	require.NoError(t, err)

	got, ok := b.Resolve("com")
	require.True(t, ok)
	// Not the backup URL and not the later duplicate entry.
	assert.Equal(t, "https://rdap.verisign.example/", got)
}

func TestResolveNoCoverage(t *testing.T) {
	b, err := ParseBootstrap([]byte(bootstrapFixture))
	require.NoError(t, err)

	got, ok := b.Resolve("zz")
	assert.False(t, ok)
	assert.Equal(t, "", got)
}

func TestResolveDomain(t *testing.T) {
	b, err := ParseBootstrap([]byte(bootstrapFixture))
	require.NoError(t, err)

	got, ok := b.ResolveDomain("example.guru")
	require.True(t, ok)
	assert.Equal(t, "https://rdap.donuts.example", got)
}

func TestTLDs(t *testing.T) {
	b, err := ParseBootstrap([]byte(bootstrapFixture))
	require.NoError(t, err)

	assert.Equal(t, []string{"com", "guru", "net"}, b.TLDs())
}

func TestLoaderSourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := &Loader{URL: srv.URL, Timeout: time.Second}
	_, err := l.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable), "want ErrSourceUnavailable, got %v", err)
}

func TestLoaderCachesPayload(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte(bootstrapFixture))
	}))
	defer srv.Close()

	dir, err := ioutil.TempDir("", "bootstrap")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	l := &Loader{
		URL:       srv.URL,
		Timeout:   time.Second,
		CachePath: filepath.Join(dir, "dns.json"),
		CacheTTL:  time.Hour,
	}

	b, err := l.Load(context.Background())
	require.NoError(t, err)
	_, ok := b.Resolve("guru")
	assert.True(t, ok)

	b, err = l.Load(context.Background())
	require.NoError(t, err)
	_, ok = b.Resolve("net")
	assert.True(t, ok)

	assert.Equal(t, int64(1), atomic.LoadInt64(&hits), "second load should come from cache")
}
