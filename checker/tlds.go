package checker

import (
	"strings"
	"time"

	"github.com/ungerik/go-dry"
)

// LoadTLDs reads a TLD list from a file or URL in the IANA tlds-alpha format:
// one label per line, # comments, any casing.
func LoadTLDs(pathOrURL string) ([]string, error) {
	content, err := dry.FileGetString(pathOrURL, 30*time.Second)
	if err != nil {
		return nil, err
	}
	var tlds []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tlds = append(tlds, strings.ToLower(line))
	}
	return tlds, nil
}

// LoadDomains reads a fully qualified domain list in the same format.
func LoadDomains(pathOrURL string) ([]string, error) {
	return LoadTLDs(pathOrURL)
}
