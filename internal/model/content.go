package model

import (
	"strings"
	"time"
)

// ContentKind tells which repository a content URL resolves against.
type ContentKind string

const (
	ContentBinary  ContentKind = "binary"
	ContentPayload ContentKind = "payload"
)

// BinaryURL is the slot URL for a Binary Content Object.
func BinaryURL(id string) string { return string(ContentBinary) + "/" + id }

// PayloadURL is the slot URL for a Structured Invoice Payload.
func PayloadURL(id string) string { return string(ContentPayload) + "/" + id }

// ParseContentURL splits a slot URL produced by BinaryURL or PayloadURL.
func ParseContentURL(u string) (ContentKind, string, bool) {
	kind, id, found := strings.Cut(u, "/")
	if !found || id == "" {
		return "", "", false
	}
	switch ContentKind(kind) {
	case ContentBinary, ContentPayload:
		return ContentKind(kind), id, true
	}
	return "", "", false
}

// Binary is a raw byte object stored outside the document record.
type Binary struct {
	ID          string    `json:"id"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	Data        []byte    `json:"data,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Payload is a persisted Structured Invoice Payload. Raw keeps the submitted
// bytes verbatim so that retrieval is byte-identical.
type Payload struct {
	ID          string    `json:"id"`
	ContentType string    `json:"contentType"`
	Raw         []byte    `json:"raw"`
	Invoice     *Invoice  `json:"invoice,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
