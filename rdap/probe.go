package rdap

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/cstockton/go-conv"
	logxi "github.com/mgutz/logxi/v1"
)

// ProbeTimeout bounds a single registry query. Probes are never retried,
// retry policy belongs to the caller.
const ProbeTimeout = 12 * time.Second

// maxDiagnosticBody caps how much of an error response body is kept for
// diagnostics.
const maxDiagnosticBody = 300

var plog = logxi.New("probe")

// Prober issues RDAP domain queries against a resolved registry endpoint and
// normalizes the heterogeneous responses into Records. A zero Prober is
// usable; Timeout defaults to ProbeTimeout.
type Prober struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewProber returns a Prober using the default HTTP client and timeout.
func NewProber() *Prober {
	return &Prober{}
}

// Probe checks one fully qualified domain against an endpoint base URL.
// It returns an error only for precondition violations (ErrInvalidDomain,
// empty endpoint) detected before any network access. Every runtime failure,
// from connection errors to malformed registry JSON, is contained in the
// returned Record as Available == Unknown with Err describing the fault.
func (p *Prober) Probe(ctx context.Context, domain, endpoint string) (Record, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if !strings.Contains(domain, ".") {
		return Record{}, fmt.Errorf("%w: %q has no tld", ErrInvalidDomain, domain)
	}
	if endpoint == "" {
		return Record{}, fmt.Errorf("%w: empty endpoint for %q", ErrInvalidDomain, domain)
	}
	return p.probe(ctx, domain, endpoint), nil
}

func (p *Prober) probe(ctx context.Context, domain, endpoint string) (rec Record) {
	// Registry payloads are loosely typed; if traversal ever panics the
	// contract still holds: the probe yields an unknown record, not a crash.
	defer func() {
		if r := recover(); r != nil {
			rec = Record{Domain: domain, Available: Unknown, Err: fmt.Sprintf("probe panic: %v", r)}
		}
	}()

	timeout := p.Timeout
	if timeout == 0 {
		timeout = ProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := strings.TrimRight(endpoint, "/") + "/domain/" + domain
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return Record{Domain: domain, Available: Unknown, Err: err.Error()}
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/rdap+json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	plog.Debug("querying registry", "url", url)
	resp, err := client.Do(req)
	if err != nil {
		return Record{Domain: domain, Available: Unknown, Err: err.Error()}
	}
	defer resp.Body.Close()

	// 404 is the standard RDAP "no such object" signal and takes precedence
	// over anything in the body.
	if resp.StatusCode == http.StatusNotFound {
		return Record{Domain: domain, Available: Available}
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return Record{Domain: domain, Available: Unknown, Err: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw := string(body)
		if len(raw) > maxDiagnosticBody {
			raw = raw[:maxDiagnosticBody]
		}
		plog.Debug("registry error response", "domain", domain, "status", resp.Status, "body", raw)
		return Record{Domain: domain, Available: Registered, Err: "HTTP " + resp.Status}
	}

	return normalize(domain, body)
}

// normalize interprets a successful registry response body.
func normalize(domain string, body []byte) Record {
	obj, err := gabs.ParseJSON(body)
	if err != nil {
		return Record{Domain: domain, Available: Unknown, Err: fmt.Sprintf("parse rdap body: %v", err)}
	}

	statuses := stringList(obj, "status")
	events := childList(obj, "events")

	if hasAvailableStatus(statuses) {
		return Record{Domain: domain, Available: Available}
	}
	if len(events) == 0 {
		// Weak signal: some registries omit events for reasons other than
		// availability. Flagged so batch users can treat it with suspicion.
		plog.Warn("no events in response, assuming available", "domain", domain)
		return Record{Domain: domain, Available: Available}
	}

	// eventAction -> eventDate, last occurrence wins.
	dates := map[string]string{}
	for _, ev := range events {
		action, err := conv.String(ev.Path("eventAction").Data())
		if err != nil || action == "" {
			continue
		}
		date, err := conv.String(ev.Path("eventDate").Data())
		if err != nil {
			continue
		}
		dates[action] = date
	}

	return Record{
		Domain:         domain,
		Available:      Registered,
		RegisteredDate: dates["registration"],
		ExpirationDate: dates["expiration"],
		LastChanged:    dates["last update of RDAP database"],
		Statuses:       statuses,
		Registrar:      registrarFromEntities(obj.S("entities").Data()),
	}
}

func hasAvailableStatus(statuses []string) bool {
	for _, s := range statuses {
		if strings.Contains(strings.ToLower(s), "available") {
			return true
		}
	}
	return false
}

func stringList(obj *gabs.Container, path string) []string {
	if !obj.Exists(path) {
		return nil
	}
	children, err := obj.S(path).Children()
	if err != nil {
		return nil
	}
	var out []string
	for _, c := range children {
		s, err := conv.String(c.Data())
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

func childList(obj *gabs.Container, path string) []*gabs.Container {
	if !obj.Exists(path) {
		return nil
	}
	children, err := obj.S(path).Children()
	if err != nil {
		return nil
	}
	return children
}

// registrarFromEntities scans the raw entities value for the first entity
// whose vcardArray carries a usable "fn" field. Registries differ in how
// strictly they follow the jCard shape, so this walks plain interface values
// instead of assuming a schema.
func registrarFromEntities(v interface{}) string {
	entities, ok := v.([]interface{})
	if !ok {
		return ""
	}
	for _, e := range entities {
		entity, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		if name := vcardFullName(entity["vcardArray"]); name != "" {
			return name
		}
	}
	return ""
}

// vcardFullName walks a jCard value, ["vcard", [[tag, params, type, value],
// ...]], and returns the value of the first "fn" field with at least four
// positional elements.
func vcardFullName(v interface{}) string {
	card, ok := v.([]interface{})
	if !ok || len(card) < 2 {
		return ""
	}
	fields, ok := card[1].([]interface{})
	if !ok {
		return ""
	}
	for _, f := range fields {
		field, ok := f.([]interface{})
		if !ok || len(field) < 4 {
			continue
		}
		tag, ok := field[0].(string)
		if !ok || tag != "fn" {
			continue
		}
		if name, err := conv.String(field[3]); err == nil && name != "" {
			return name
		}
	}
	return ""
}
