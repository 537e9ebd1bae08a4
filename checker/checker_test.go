package checker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osiloke/rdapwatch/rdap"
)

// memorySink collects saved lookups for assertions.
type memorySink struct {
	mu      sync.Mutex
	lookups map[string]rdap.Record
}

func newMemorySink() *memorySink {
	return &memorySink{lookups: map[string]rdap.Record{}}
}

func (m *memorySink) SaveLookup(domain string, checkedAt time.Time, rec rdap.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups[domain] = rec
	return nil
}

func testBootstrap(t *testing.T, endpoint string, tlds ...string) *rdap.Bootstrap {
	labels := ""
	for i, tld := range tlds {
		if i > 0 {
			labels += ", "
		}
		labels += fmt.Sprintf("%q", tld)
	}
	payload := fmt.Sprintf(`{"services": [[[%s], [%q]]]}`, labels, endpoint)
	b, err := rdap.ParseBootstrap([]byte(payload))
	require.NoError(t, err)
	return b
}

func fastOptions() Options {
	return Options{Workers: 4, RatePerHost: 1000, RateEvery: time.Second, Timeout: time.Second}
}

func TestCheckInvalidDomain(t *testing.T) {
	chk := New(testBootstrap(t, "https://rdap.example", "com"), fastOptions())
	_, err := chk.Check(context.Background(), "nodots")
	require.Error(t, err)
	assert.True(t, errors.Is(err, rdap.ErrInvalidDomain))
}

func TestCheckNoCoverage(t *testing.T) {
	chk := New(testBootstrap(t, "https://rdap.example", "com"), fastOptions())
	res, err := chk.Check(context.Background(), "mybrand.zz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, rdap.ErrNoCoverage))
	assert.True(t, res.Skipped)
	// Never available just because nobody answers for the TLD.
	assert.NotEqual(t, rdap.Available, res.Record.Available)
}

func TestScan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/domain/mybrand.com":
			w.Write([]byte(`{"status": ["active"], "events": [{"eventAction": "expiration", "eventDate": "2030-01-01T00:00:00Z"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	bootstrap := testBootstrap(t, srv.URL, "com", "net")
	chk := New(bootstrap, fastOptions())
	sink := newMemorySink()

	report, err := chk.Scan(context.Background(), "mybrand", []string{"com", "net", "zz"}, sink, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Completed)
	assert.Equal(t, 1, report.Available)
	assert.Equal(t, 1, report.Registered)
	assert.Equal(t, 1, report.Skipped)
	assert.False(t, report.Interrupted)

	// Skipped domains are not recorded, probed ones are.
	assert.Len(t, sink.lookups, 2)
	assert.Equal(t, rdap.Registered, sink.lookups["mybrand.com"].Available)
	assert.Equal(t, rdap.Available, sink.lookups["mybrand.net"].Available)
}

func TestScanFaultsContained(t *testing.T) {
	// Endpoint that refuses connections: server started then closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	chk := New(testBootstrap(t, endpoint, "com"), fastOptions())
	sink := newMemorySink()

	report, err := chk.Scan(context.Background(), "mybrand", []string{"com"}, sink, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 1, report.Unknown)
	rec := sink.lookups["mybrand.com"]
	assert.Equal(t, rdap.Unknown, rec.Available)
	assert.NotEmpty(t, rec.Err)
}

func TestScanInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(cancel)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	opts := fastOptions()
	opts.Workers = 1
	chk := New(testBootstrap(t, srv.URL, "com", "net", "org", "dev"), opts)

	report, err := chk.Scan(ctx, "mybrand", []string{"com", "net", "org", "dev"}, newMemorySink(), nil)
	require.NoError(t, err)
	assert.True(t, report.Interrupted)
	assert.True(t, report.Completed < report.Total,
		"completed %d of %d, expected an early stop", report.Completed, report.Total)
}

func TestExpiringSorted(t *testing.T) {
	report := &ScanReport{}
	report.add(Result{Domain: "a.com", Record: rdap.Record{
		Domain: "a.com", Available: rdap.Registered, ExpirationDate: "2031-01-01T00:00:00Z",
	}})
	report.add(Result{Domain: "b.com", Record: rdap.Record{
		Domain: "b.com", Available: rdap.Registered, ExpirationDate: "2026-06-01T00:00:00Z",
	}})
	report.add(Result{Domain: "c.com", Record: rdap.Record{
		Domain: "c.com", Available: rdap.Registered, ExpirationDate: "not a date",
	}})
	report.add(Result{Domain: "d.com", Record: rdap.Record{Domain: "d.com", Available: rdap.Available}})

	expiring := report.Expiring()
	require.Len(t, expiring, 2)
	assert.Equal(t, "b.com", expiring[0].Domain)
	assert.Equal(t, "a.com", expiring[1].Domain)
}
