package rdap

// Availability is the outcome of a registration probe. Network and parse
// failures are reported as Unknown, never as Available.
type Availability string

const (
	Available  Availability = "available"
	Registered Availability = "registered"
	Unknown    Availability = "unknown"
)

// Record is the normalized result of probing one domain against its registry.
// A Record is created once per probe and not mutated after it is returned.
type Record struct {
	Domain         string       `json:"domain"`
	Available      Availability `json:"available"`
	RegisteredDate string       `json:"registeredDate,omitempty"`
	ExpirationDate string       `json:"expirationDate,omitempty"`
	LastChanged    string       `json:"lastChanged,omitempty"`
	Registrar      string       `json:"registrar,omitempty"`
	Statuses       []string     `json:"statuses,omitempty"`
	Err            string       `json:"error,omitempty"`
}

// IsAvailable reports whether the registry positively signalled availability.
func (r Record) IsAvailable() bool {
	return r.Available == Available
}
