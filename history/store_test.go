package history

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osiloke/rdapwatch/rdap"
)

func tempStore(t *testing.T) (*Store, func()) {
	dir, err := ioutil.TempDir("", "history")
	require.NoError(t, err)
	store, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	return store, func() {
		store.Close()
		os.RemoveAll(dir)
	}
}

func seed(t *testing.T, store *Store) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []struct {
		domain string
		rec    rdap.Record
	}{
		{"mybrand.com", rdap.Record{Domain: "mybrand.com", Available: rdap.Available}},
		{"mybrand.com", rdap.Record{
			Domain: "mybrand.com", Available: rdap.Registered,
			ExpirationDate: "2031-02-01T00:00:00Z", Registrar: "late registrar",
		}},
		{"mybrand.net", rdap.Record{Domain: "mybrand.net", Available: rdap.Available}},
		{"mybrand.guru", rdap.Record{
			Domain: "mybrand.guru", Available: rdap.Registered,
			ExpirationDate: "2026-01-01T00:00:00Z", Registrar: "soon registrar",
		}},
		{"mybrand.dev", rdap.Record{Domain: "mybrand.dev", Available: rdap.Unknown, Err: "timeout"}},
	}
	for i, e := range entries {
		require.NoError(t, store.SaveLookup(e.domain, base.Add(time.Duration(i)*time.Minute), e.rec))
	}
}

func TestDomains(t *testing.T) {
	store, cleanup := tempStore(t)
	defer cleanup()
	seed(t, store)

	domains, err := store.Domains()
	require.NoError(t, err)
	require.Len(t, domains, 4)
	assert.Equal(t, DomainCount{Domain: "mybrand.com", Count: 2}, domains[0])
}

func TestHistoryMostRecentFirst(t *testing.T) {
	store, cleanup := tempStore(t)
	defer cleanup()
	seed(t, store)

	entries, err := store.History("mybrand.com")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, rdap.Registered, entries[0].Record.Available)
	assert.Equal(t, rdap.Available, entries[1].Record.Available)
	assert.True(t, entries[0].ID > entries[1].ID)
}

func TestAvailableUsesLatestLookup(t *testing.T) {
	store, cleanup := tempStore(t)
	defer cleanup()
	seed(t, store)

	entries, err := store.Available()
	require.NoError(t, err)
	// mybrand.com was available once but registered on its latest check.
	require.Len(t, entries, 1)
	assert.Equal(t, "mybrand.net", entries[0].Domain)
}

func TestExpiringSoonAscending(t *testing.T) {
	store, cleanup := tempStore(t)
	defer cleanup()
	seed(t, store)

	entries, err := store.ExpiringSoon(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "mybrand.guru", entries[0].Domain)
	assert.Equal(t, "mybrand.com", entries[1].Domain)

	limited, err := store.ExpiringSoon(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "mybrand.guru", limited[0].Domain)
}

func TestRecent(t *testing.T) {
	store, cleanup := tempStore(t)
	defer cleanup()
	seed(t, store)

	entries, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "mybrand.dev", entries[0].Domain)
	assert.Equal(t, "mybrand.guru", entries[1].Domain)
}

func TestSummary(t *testing.T) {
	store, cleanup := tempStore(t)
	defer cleanup()
	seed(t, store)

	stats, err := store.Summary()
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalLookups)
	assert.Equal(t, 4, stats.UniqueDomains)
	assert.Equal(t, 2, stats.Available)
	assert.Equal(t, 2, stats.Registered)
	assert.Equal(t, 1, stats.Unknown)
	assert.True(t, stats.Last.After(stats.First))
}

func TestSummaryEmpty(t *testing.T) {
	store, cleanup := tempStore(t)
	defer cleanup()

	stats, err := store.Summary()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalLookups)
	assert.True(t, stats.First.IsZero())
}
