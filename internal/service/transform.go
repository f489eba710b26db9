package service

import (
	"strings"

	"invoicevault/internal/model"
)

// newTransformed derives the public record from a snapshot of the persisted
// original. The result shares no memory with original and has no identity yet.
func newTransformed(original model.DocumentRecord) model.DocumentRecord {
	t := original.Clone()
	t.ID = ""
	t.Kind = model.KindTransformed
	t.CreatedAt = original.CreatedAt

	var tags []model.Coding
	for _, tag := range t.Meta.Tags {
		if tag.System != model.StatusSystem {
			tags = append(tags, tag)
		}
	}
	t.Meta = model.Meta{
		Profile: []string{model.ProfileTransformed},
		Tags:    tags,
	}
	t.SetStatusTag(model.StatusOpen)

	var exts []model.Extension
	for _, e := range t.Extensions {
		if !strings.HasPrefix(e.URL, model.ExtensionPrefix) {
			exts = append(exts, e)
		}
	}
	t.Extensions = exts

	var links []model.Link
	for _, l := range t.RelatesTo {
		if l.Code != model.LinkTransforms && l.Code != model.LinkAttachment {
			links = append(links, l)
		}
	}
	t.RelatesTo = append(links, model.Link{Code: model.LinkTransforms, Target: model.RecordReference(original.ID)})
	return t
}

// newOriginal is the verbatim copy of the submitted main document.
func newOriginal(submitted model.DocumentRecord, id string) model.DocumentRecord {
	o := submitted.Clone()
	o.ID = id
	o.Kind = model.KindOriginal
	o.Meta.VersionID = 0
	if len(o.Meta.Profile) == 0 {
		o.Meta.Profile = []string{model.ProfileSubmission}
	}
	return o
}

// setExtension replaces any extension with the same URL.
func setExtension(d *model.DocumentRecord, e model.Extension) {
	out := d.Extensions[:0]
	for _, cur := range d.Extensions {
		if cur.URL != e.URL {
			out = append(out, cur)
		}
	}
	d.Extensions = append(out, e)
}

// pointSlotAt replaces the inline bytes of slot i with a reference.
func pointSlotAt(d *model.DocumentRecord, i int, url string, size int64) {
	d.Content[i].Data = nil
	d.Content[i].URL = url
	d.Content[i].Size = size
}
