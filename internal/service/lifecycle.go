package service

import (
	"context"
	"errors"
	"time"

	"invoicevault/internal/audit"
	"invoicevault/internal/model"
	"invoicevault/internal/repository"
	"invoicevault/internal/token"
)

const maxUpdateAttempts = 3

// NextChangeDate is the retention date recorded when a record moves to target
// on changed. The time of day is dropped.
//
//	open:    changed + 3 years, end of that year
//	done:    changed + 1 year, end of that month
//	trashed: changed + 3 months, end of that month
func NextChangeDate(target model.Status, changed time.Time) time.Time {
	y, m, _ := changed.Date()
	loc := changed.Location()
	switch target {
	case model.StatusOpen:
		return time.Date(y+3, time.December, 31, 0, 0, 0, 0, loc)
	case model.StatusDone:
		// day 0 of the following month is the last day of the month
		return time.Date(y+1, m+1, 0, 0, 0, 0, 0, loc)
	case model.StatusTrashed:
		return time.Date(y, m+4, 0, 0, 0, 0, 0, loc)
	}
	return time.Time{}
}

func (s *invoiceService) ChangeStatus(ctx context.Context, tok string, target model.Status) (meta *model.Meta, err error) {
	label := string(target)
	if !target.Valid() {
		label = "invalid"
	}
	var recordID string
	defer func() {
		s.metrics.statusChange(label, err)
		s.record(ctx, audit.ActionChangeStatus, tok, recordID, err)
	}()

	if !token.Valid(tok) {
		return nil, ErrInvalidToken
	}
	if !target.Valid() {
		return nil, ErrInvalidStatus
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		rec, err := s.find(ctx, tok)
		if err != nil {
			return nil, err
		}
		recordID = rec.ID

		current := model.StatusOpen
		if code, ok := rec.StatusTag(); ok {
			current = code
		}
		if current == target {
			return nil, &ConflictError{Rule: RuleSameStatus}
		}
		if current == model.StatusTrashed {
			return nil, &ConflictError{Rule: RuleTrashedTerminal}
		}

		now := s.now()
		rec.Meta.Retention = &model.Retention{ChangedDate: now, NextChangeDate: NextChangeDate(target, now)}
		rec.SetStatusTag(target)

		// The tag swap and both dates go out in a single versioned write.
		saved, err := s.docs.Update(ctx, rec)
		switch {
		case err == nil:
			s.log.Info().Str("token", tok).Str("from", string(current)).Str("to", string(target)).Msg("status changed")
			return &saved.Meta, nil
		case errors.Is(err, repository.ErrVersionConflict):
			continue
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		default:
			return nil, internal("update status", err)
		}
	}
	return nil, &ConflictError{Rule: RuleConcurrentUpdate}
}
