package model

import (
	"strings"
	"time"
)

// RecordKind distinguishes the flavors of DocumentRecord kept in the store.
type RecordKind string

const (
	KindOriginal    RecordKind = "original"
	KindTransformed RecordKind = "transformed"
	KindAttachment  RecordKind = "attachment"
)

// Status is the retention state of a transformed record.
type Status string

const (
	StatusOpen    Status = "open"
	StatusDone    Status = "done"
	StatusTrashed Status = "trashed"
)

// Valid reports whether s is one of the recognized states.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusDone, StatusTrashed:
		return true
	}
	return false
}

const (
	// StatusSystem identifies the status tag among a record's meta tags.
	StatusSystem = "urn:invoicevault:status"

	// TypeInvoice is the document type code that triggers sealing.
	TypeInvoice = "invoice"

	ProfileSubmission  = "urn:invoicevault:profile:submission"
	ProfileTransformed = "urn:invoicevault:profile:transformed"
	ProfileAttachment  = "urn:invoicevault:profile:attachment"

	// ExtensionPrefix marks extensions written by the transformation pipeline.
	ExtensionPrefix = "urn:invoicevault:ext:"
	ExtSignature    = ExtensionPrefix + "signature"
	ExtSourcePDF    = ExtensionPrefix + "source-pdf"

	LinkTransforms = "transforms"
	LinkAttachment = "attachment"
)

// Coding is a code within a code system.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

// Reference points at another entity, e.g. "Patient/123".
type Reference struct {
	Reference string `json:"reference"`
	Display   string `json:"display,omitempty"`
}

// ContentSlot holds either inline Data or a URL to an externally stored object.
type ContentSlot struct {
	ContentType string `json:"contentType"`
	Title       string `json:"title,omitempty"`
	Data        []byte `json:"data,omitempty"`
	URL         string `json:"url,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Inline reports whether the slot carries its bytes directly.
func (c ContentSlot) Inline() bool { return len(c.Data) > 0 }

// MediaType returns the lower-cased content type without parameters.
func (c ContentSlot) MediaType() string {
	mt := c.ContentType
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// Link is a typed relationship to another record.
type Link struct {
	Code   string    `json:"code"`
	Target Reference `json:"target"`
}

// Extension carries pipeline-specific data on a record.
type Extension struct {
	URL         string `json:"url"`
	ValueString string `json:"valueString,omitempty"`
	ValueBase64 []byte `json:"valueBase64Binary,omitempty"`
}

// Retention holds the two retention-date annotations of a status change.
type Retention struct {
	ChangedDate    time.Time `json:"changedDate"`
	NextChangeDate time.Time `json:"nextChangeDate"`
}

// Meta is the versioning and tagging block of a record.
type Meta struct {
	VersionID   int        `json:"versionId"`
	LastUpdated time.Time  `json:"lastUpdated"`
	Profile     []string   `json:"profile,omitempty"`
	Tags        []Coding   `json:"tag,omitempty"`
	Retention   *Retention `json:"retention,omitempty"`
}

// DocumentRecord is a versioned document entity. Transformed records use their
// public token as ID; every other kind uses a store-assigned UUID.
type DocumentRecord struct {
	ID         string        `json:"id,omitempty"`
	Kind       RecordKind    `json:"kind,omitempty"`
	Type       Coding        `json:"type"`
	Subject    *Reference    `json:"subject,omitempty"`
	Author     *Reference    `json:"author,omitempty"`
	Content    []ContentSlot `json:"content"`
	RelatesTo  []Link        `json:"relatesTo,omitempty"`
	Extensions []Extension   `json:"extension,omitempty"`
	Meta       Meta          `json:"meta"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// IsInvoice reports whether the declared type classifies as an invoice.
func (d *DocumentRecord) IsInvoice() bool {
	return strings.EqualFold(d.Type.Code, TypeInvoice)
}

// StatusTag returns the active status code. ok is false when no tag is set.
func (d *DocumentRecord) StatusTag() (Status, bool) {
	for _, t := range d.Meta.Tags {
		if t.System == StatusSystem {
			return Status(t.Code), true
		}
	}
	return "", false
}

// CurrentStatus returns the active status, treating an absent tag as open.
func (d *DocumentRecord) CurrentStatus() Status {
	if s, ok := d.StatusTag(); ok {
		return s
	}
	return StatusOpen
}

// SetStatusTag removes every existing status tag and installs s.
func (d *DocumentRecord) SetStatusTag(s Status) {
	d.RemoveStatusTags()
	d.Meta.Tags = append(d.Meta.Tags, Coding{System: StatusSystem, Code: string(s)})
}

// RemoveStatusTags drops all status tags.
func (d *DocumentRecord) RemoveStatusTags() {
	tags := d.Meta.Tags[:0]
	for _, t := range d.Meta.Tags {
		if t.System != StatusSystem {
			tags = append(tags, t)
		}
	}
	d.Meta.Tags = tags
}

// Extension returns the first extension with the given URL.
func (d *DocumentRecord) Extension(url string) (Extension, bool) {
	for _, e := range d.Extensions {
		if e.URL == url {
			return e, true
		}
	}
	return Extension{}, false
}

// LinksWith returns the targets of all links with the given code.
func (d *DocumentRecord) LinksWith(code string) []Reference {
	var out []Reference
	for _, l := range d.RelatesTo {
		if l.Code == code {
			out = append(out, l.Target)
		}
	}
	return out
}

// Clone returns a deep copy that shares no slices or pointers with d.
func (d DocumentRecord) Clone() DocumentRecord {
	out := d
	if d.Subject != nil {
		s := *d.Subject
		out.Subject = &s
	}
	if d.Author != nil {
		a := *d.Author
		out.Author = &a
	}
	if d.Content != nil {
		out.Content = make([]ContentSlot, len(d.Content))
		for i, c := range d.Content {
			c.Data = cloneBytes(c.Data)
			out.Content[i] = c
		}
	}
	if d.RelatesTo != nil {
		out.RelatesTo = append([]Link(nil), d.RelatesTo...)
	}
	if d.Extensions != nil {
		out.Extensions = make([]Extension, len(d.Extensions))
		for i, e := range d.Extensions {
			e.ValueBase64 = cloneBytes(e.ValueBase64)
			out.Extensions[i] = e
		}
	}
	if d.Meta.Profile != nil {
		out.Meta.Profile = append([]string(nil), d.Meta.Profile...)
	}
	if d.Meta.Tags != nil {
		out.Meta.Tags = append([]Coding(nil), d.Meta.Tags...)
	}
	if d.Meta.Retention != nil {
		r := *d.Meta.Retention
		out.Meta.Retention = &r
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// RecordReference builds the reference used in links between records.
func RecordReference(id string) Reference {
	return Reference{Reference: "DocumentRecord/" + id}
}

// ReferencedID extracts the record id from a DocumentRecord reference.
func ReferencedID(r Reference) string {
	return strings.TrimPrefix(r.Reference, "DocumentRecord/")
}
