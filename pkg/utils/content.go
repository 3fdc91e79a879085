package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// ErrNotSiteList is returned when a payload is not a JSON array of strings.
var ErrNotSiteList = errors.New("content must be a JSON array of strings")

// HashContent creates a SHA256 hash of raw document bytes.
// The file backend uses it as the document version.
func HashContent(data []byte) string {
	h := sha256.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DecodeSites parses a JSON array of strings. A top-level value other than an
// array (including null) or any non-string element, null included, is rejected.
func DecodeSites(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotSiteList
	}
	var raw []*string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, ErrNotSiteList
	}
	sites := make([]string, 0, len(raw))
	for _, s := range raw {
		if s == nil {
			return nil, ErrNotSiteList
		}
		sites = append(sites, *s)
	}
	return sites, nil
}

// EncodeSites renders sites as compact JSON. A nil slice is written as [].
func EncodeSites(sites []string) ([]byte, error) {
	if sites == nil {
		sites = []string{}
	}
	return json.Marshal(sites)
}

// CloneSites returns a copy of sites that never aliases the input.
func CloneSites(sites []string) []string {
	out := make([]string, len(sites))
	copy(out, sites)
	return out
}
