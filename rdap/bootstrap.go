package rdap

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	logxi "github.com/mgutz/logxi/v1"
)

// DefaultBootstrapURL is the IANA registry discovery map for the DNS.
const DefaultBootstrapURL = "https://data.iana.org/rdap/dns.json"

// DefaultBootstrapTimeout bounds the bootstrap fetch.
const DefaultBootstrapTimeout = 10 * time.Second

var blog = logxi.New("bootstrap")

// service is one bootstrap entry: a list of TLDs answered by a list of
// candidate endpoint base URLs. Order matters on both sides, resolution
// takes the first URL of the first matching entry.
type service struct {
	tlds []string
	urls []string
}

// Bootstrap is the registry discovery map, immutable after load.
type Bootstrap struct {
	services []service
}

// Loader fetches and parses the bootstrap map, with an optional short-lived
// disk cache so repeated invocations do not hammer IANA.
type Loader struct {
	URL       string
	Timeout   time.Duration
	CachePath string
	CacheTTL  time.Duration
	Client    *http.Client
}

// NewLoader returns a Loader for the IANA DNS bootstrap with defaults applied.
func NewLoader() *Loader {
	return &Loader{URL: DefaultBootstrapURL, Timeout: DefaultBootstrapTimeout}
}

// Load retrieves the discovery map. A fresh cache file short-circuits the
// network fetch; otherwise the fetch is retried with exponential backoff and
// the payload cached best-effort. Returns ErrSourceUnavailable when the
// source cannot be reached and ErrMalformedSource when the payload does not
// have the expected services shape.
func (l *Loader) Load(ctx context.Context) (*Bootstrap, error) {
	if data, ok := l.fromCache(); ok {
		if b, err := ParseBootstrap(data); err == nil {
			blog.Debug("loaded bootstrap from cache", "path", l.CachePath)
			return b, nil
		}
		blog.Warn("stale bootstrap cache unparseable, refetching", "path", l.CachePath)
	}

	var data []byte
	fetch := func() error {
		var err error
		data, err = l.fetch(ctx)
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(fetch, bo); err != nil {
		return nil, err
	}

	b, err := ParseBootstrap(data)
	if err != nil {
		return nil, err
	}
	l.toCache(data)
	return b, nil
}

func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	url := l.URL
	if url == "" {
		url = DefaultBootstrapURL
	}
	timeout := l.Timeout
	if timeout == 0 {
		timeout = DefaultBootstrapTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req = req.WithContext(ctx)

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrSourceUnavailable, url, resp.Status)
	}
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return data, nil
}

func (l *Loader) fromCache() ([]byte, bool) {
	if l.CachePath == "" || l.CacheTTL <= 0 {
		return nil, false
	}
	fi, err := os.Stat(l.CachePath)
	if err != nil || time.Since(fi.ModTime()) > l.CacheTTL {
		return nil, false
	}
	data, err := ioutil.ReadFile(l.CachePath)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (l *Loader) toCache(data []byte) {
	if l.CachePath == "" {
		return
	}
	if err := ioutil.WriteFile(l.CachePath, data, 0644); err != nil {
		blog.Warn("could not write bootstrap cache", "path", l.CachePath, "err", err.Error())
	}
}

// ParseBootstrap parses the IANA payload, shaped as
// {"services": [[[tld, ...], [url, ...]], ...]}.
func ParseBootstrap(data []byte) (*Bootstrap, error) {
	var doc struct {
		Services [][][]string `json:"services"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	if doc.Services == nil {
		return nil, fmt.Errorf("%w: no services key", ErrMalformedSource)
	}
	b := &Bootstrap{}
	for _, svc := range doc.Services {
		if len(svc) < 2 {
			continue
		}
		b.services = append(b.services, service{tlds: svc[0], urls: svc[1]})
	}
	return b, nil
}

// Resolve returns the endpoint base URL for a top level domain. The label is
// normalized (leading dot stripped, lowercased) and matched case-insensitively
// against each entry in order; the first URL of the first matching entry wins.
// A false return means the TLD has no RDAP coverage, which is a legitimate
// outcome the caller must handle, not an error and not "available".
func (b *Bootstrap) Resolve(tld string) (string, bool) {
	tld = strings.ToLower(strings.TrimPrefix(tld, "."))
	for _, svc := range b.services {
		for _, t := range svc.tlds {
			if strings.ToLower(t) == tld {
				if len(svc.urls) == 0 {
					return "", false
				}
				return svc.urls[0], true
			}
		}
	}
	return "", false
}

// ResolveDomain resolves the endpoint for a full domain name by its rightmost
// label.
func (b *Bootstrap) ResolveDomain(domain string) (string, bool) {
	parts := strings.Split(domain, ".")
	return b.Resolve(parts[len(parts)-1])
}

// TLDs returns every covered top level domain, lowercased, sorted and
// deduplicated. Used as the default scan list when no tlds file is given.
func (b *Bootstrap) TLDs() []string {
	seen := map[string]bool{}
	var out []string
	for _, svc := range b.services {
		for _, t := range svc.tlds {
			t = strings.ToLower(t)
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}
