// Package history is the persistence collaborator: an append-only log of
// availability records backed by bolt, queryable by domain, availability,
// expiration and recency.
package history

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"github.com/bradfitz/slice"
	"github.com/jinzhu/now"

	"github.com/osiloke/rdapwatch/rdap"
)

var lookupsBucket = []byte("lookups")

func init() {
	// RDAP event dates are RFC 3339.
	now.TimeFormats = append(now.TimeFormats, "2006-01-02T15:04:05.999999999Z07:00")
}

// Entry is one recorded lookup.
type Entry struct {
	ID        uint64      `json:"id"`
	Domain    string      `json:"domain"`
	CheckedAt time.Time   `json:"checked_at"`
	Record    rdap.Record `json:"record"`
}

// DomainCount pairs a domain with how many times it was looked up.
type DomainCount struct {
	Domain string
	Count  int
}

// Stats summarizes the whole log.
type Stats struct {
	TotalLookups  int
	UniqueDomains int
	Available     int
	Registered    int
	Unknown       int
	First         time.Time
	Last          time.Time
}

// Store is a bolt backed history log. Open it once per run and close it on
// every exit path.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(lookupsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveLookup appends one record to the log.
func (s *Store) SaveLookup(domain string, checkedAt time.Time, rec rdap.Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(lookupsBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		entry := Entry{ID: seq, Domain: domain, CheckedAt: checkedAt, Record: rec}
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
}

// Domains lists every domain in the log with its lookup count, most looked up
// first.
func (s *Store) Domains() ([]DomainCount, error) {
	counts := map[string]int{}
	var order []string
	err := s.scan(func(e Entry) {
		if counts[e.Domain] == 0 {
			order = append(order, e.Domain)
		}
		counts[e.Domain]++
	})
	if err != nil {
		return nil, err
	}
	out := make([]DomainCount, 0, len(order))
	for _, d := range order {
		out = append(out, DomainCount{Domain: d, Count: counts[d]})
	}
	slice.Sort(out[:], func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out, nil
}

// History returns every lookup of a domain, most recent first.
func (s *Store) History(domain string) ([]Entry, error) {
	var out []Entry
	err := s.scan(func(e Entry) {
		if e.Domain == domain {
			out = append(out, e)
		}
	})
	if err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

// Available returns the domains whose most recent lookup found them
// available, most recently checked first.
func (s *Store) Available() ([]Entry, error) {
	latest, err := s.latestPerDomain()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range latest {
		if e.Record.Available == rdap.Available {
			out = append(out, e)
		}
	}
	slice.Sort(out[:], func(i, j int) bool {
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// ExpiringSoon returns registered domains ordered by expiration date
// ascending, considering only each domain's latest lookup. limit <= 0 means
// no limit.
func (s *Store) ExpiringSoon(limit int) ([]Entry, error) {
	latest, err := s.latestPerDomain()
	if err != nil {
		return nil, err
	}
	type dated struct {
		entry   Entry
		expires time.Time
	}
	var expiring []dated
	for _, e := range latest {
		if e.Record.Available != rdap.Registered || e.Record.ExpirationDate == "" {
			continue
		}
		t, err := now.Parse(e.Record.ExpirationDate)
		if err != nil {
			continue
		}
		expiring = append(expiring, dated{entry: e, expires: t})
	}
	slice.Sort(expiring[:], func(i, j int) bool {
		return expiring[i].expires.Before(expiring[j].expires)
	})
	if limit > 0 && len(expiring) > limit {
		expiring = expiring[:limit]
	}
	out := make([]Entry, 0, len(expiring))
	for _, d := range expiring {
		out = append(out, d.entry)
	}
	return out, nil
}

// Recent returns the last limit lookups, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(lookupsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			out = append(out, e)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Summary computes statistics over the whole log.
func (s *Store) Summary() (Stats, error) {
	var st Stats
	domains := map[string]bool{}
	err := s.scan(func(e Entry) {
		st.TotalLookups++
		domains[e.Domain] = true
		switch e.Record.Available {
		case rdap.Available:
			st.Available++
		case rdap.Registered:
			st.Registered++
		default:
			st.Unknown++
		}
		if st.First.IsZero() || e.CheckedAt.Before(st.First) {
			st.First = e.CheckedAt
		}
		if e.CheckedAt.After(st.Last) {
			st.Last = e.CheckedAt
		}
	})
	if err != nil {
		return Stats{}, err
	}
	st.UniqueDomains = len(domains)
	return st, nil
}

func (s *Store) latestPerDomain() (map[string]Entry, error) {
	latest := map[string]Entry{}
	err := s.scan(func(e Entry) {
		if prev, ok := latest[e.Domain]; !ok || e.ID > prev.ID {
			latest[e.Domain] = e
		}
	})
	if err != nil {
		return nil, err
	}
	return latest, nil
}

func (s *Store) scan(fn func(Entry)) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(lookupsBucket).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			fn(e)
			return nil
		})
	})
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func reverse(entries []Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
