package entity

import (
	"errors"
	"strings"
)

// ErrUnknownDocument is returned when a document name is outside the allow-list.
var ErrUnknownDocument = errors.New("unknown document")

// DocumentKind identifies one of the persisted site lists.
type DocumentKind string

const (
	DocumentDetected DocumentKind = "detected"
	DocumentBlocked  DocumentKind = "blocked"
)

// DocumentKinds lists every kind the service persists.
var DocumentKinds = []DocumentKind{DocumentDetected, DocumentBlocked}

// FileName returns the fixed on-disk name of the document.
func (k DocumentKind) FileName() string {
	return string(k) + ".json"
}

// Valid reports whether k is a known document kind.
func (k DocumentKind) Valid() bool {
	return k == DocumentDetected || k == DocumentBlocked
}

// ParseDocumentName resolves a caller-supplied name ("blocked" or "blocked.json")
// to a document kind.
func ParseDocumentName(name string) (DocumentKind, error) {
	kind := DocumentKind(strings.TrimSuffix(name, ".json"))
	if !kind.Valid() {
		return "", ErrUnknownDocument
	}
	return kind, nil
}

// Document is a whole persisted site list. Version is an opaque token owned by
// the storage backend; an empty Version means the document does not exist yet.
type Document struct {
	Kind    DocumentKind `json:"kind"`
	Sites   []string     `json:"sites"`
	Version string       `json:"version"`
}

// Contains reports whether site is present in the document.
func (d *Document) Contains(site string) bool {
	for _, s := range d.Sites {
		if s == site {
			return true
		}
	}
	return false
}
