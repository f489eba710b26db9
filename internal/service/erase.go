package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoicevault/internal/audit"
	"invoicevault/internal/model"
	"invoicevault/internal/repository"
	"invoicevault/internal/token"
)

// EraseResult confirms a cascading erase.
type EraseResult struct {
	Token    string    `json:"token"`
	Erased   []string  `json:"erased"`
	ErasedAt time.Time `json:"erasedAt"`
}

// Erase removes leaves before the records that reference them and the
// transformed record last, so an interrupted erase can be repeated.
func (s *invoiceService) Erase(ctx context.Context, tok string) (res *EraseResult, err error) {
	var recordID string
	defer func() {
		s.metrics.erasure(err)
		s.record(ctx, audit.ActionErase, tok, recordID, err)
	}()

	if !token.Valid(tok) {
		return nil, ErrInvalidToken
	}
	rec, err := s.find(ctx, tok)
	if err != nil {
		return nil, err
	}
	recordID = rec.ID
	if rec.CurrentStatus() != model.StatusTrashed {
		return nil, &ConflictError{Rule: RuleEraseRequiresTrashed}
	}

	var erased []string
	if err := s.eraseContent(ctx, rec, &erased); err != nil {
		return nil, err
	}
	for _, ref := range append(rec.LinksWith(model.LinkAttachment), rec.LinksWith(model.LinkTransforms)...) {
		if err := s.eraseLinked(ctx, model.ReferencedID(ref), &erased); err != nil {
			return nil, err
		}
	}

	if err := s.docs.Delete(ctx, rec.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, internal("erase record", err)
	}
	erased = append(erased, model.RecordReference(rec.ID).Reference)

	s.log.Info().Str("token", tok).Int("objects", len(erased)).Msg("invoice erased")
	return &EraseResult{Token: tok, Erased: erased, ErasedAt: s.now()}, nil
}

// eraseLinked deletes a linked record and its content. A record that is
// already gone is skipped.
func (s *invoiceService) eraseLinked(ctx context.Context, id string, erased *[]string) error {
	rec, err := s.docs.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return internal("load linked record", err)
	}
	if err := s.eraseContent(ctx, rec, erased); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return internal("erase linked record", err)
	}
	*erased = append(*erased, model.RecordReference(id).Reference)
	return nil
}

// eraseContent deletes every payload and binary reachable from rec.
func (s *invoiceService) eraseContent(ctx context.Context, rec *model.DocumentRecord, erased *[]string) error {
	urls := make([]string, 0, len(rec.Content)+1)
	for _, c := range rec.Content {
		urls = append(urls, c.URL)
	}
	// Only the pipeline stamps source-pdf, and only on transformed records.
	if e, ok := rec.Extension(model.ExtSourcePDF); ok && rec.Kind == model.KindTransformed {
		urls = append(urls, e.ValueString)
	}
	for _, u := range urls {
		if _, _, ok := model.ParseContentURL(u); !ok {
			continue
		}
		if err := s.deleteContent(ctx, u); err != nil {
			return internal("erase content", err)
		}
		*erased = append(*erased, u)
	}
	return nil
}

// deleteContent removes the object behind a content URL. Missing objects are not an error.
func (s *invoiceService) deleteContent(ctx context.Context, url string) error {
	kind, id, ok := model.ParseContentURL(url)
	if !ok {
		return fmt.Errorf("not a content url: %q", url)
	}
	var err error
	switch kind {
	case model.ContentPayload:
		err = s.payloads.Delete(ctx, id)
	case model.ContentBinary:
		err = s.binaries.Delete(ctx, id)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}
