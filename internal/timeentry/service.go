// Package timeentry records employee work hours and the manager review flow.
package timeentry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/store"
)

// Service manages work hour records.
type Service struct {
	St  store.Store
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// CreateInput submits a work record for review.
type CreateInput struct {
	WorkDate  string `json:"workDate" validate:"required"`
	StartHour string `json:"startHour" validate:"required"`
	EndHour   string `json:"endHour" validate:"required"`
	Notes     string `json:"notes" validate:"max=500"`
}

// ReviewInput accepts or rejects a pending record.
type ReviewInput struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected"`
	Reason string `json:"reason" validate:"max=500"`
}

// Create records a pending work entry for the acting employee. Hours are
// derived from the interval, rounded half up to two decimals.
func (s *Service) Create(ctx context.Context, in CreateInput, actor common.Actor) (store.TimeEntry, error) {
	if s == nil || s.St == nil {
		return store.TimeEntry{}, errors.New("timeentry service not configured")
	}
	workDate, err := time.ParseInLocation("2006-01-02", in.WorkDate, time.UTC)
	if err != nil {
		return store.TimeEntry{}, common.Validation("invalid workDate, expected YYYY-MM-DD")
	}
	start, err := parseHour(workDate, in.StartHour)
	if err != nil {
		return store.TimeEntry{}, common.Validation("invalid startHour, expected HH:MM")
	}
	end, err := parseHour(workDate, in.EndHour)
	if err != nil {
		return store.TimeEntry{}, common.Validation("invalid endHour, expected HH:MM")
	}
	if !end.After(start) {
		return store.TimeEntry{}, common.Validation("endHour must be after startHour")
	}
	hours := decimal.NewFromFloat(end.Sub(start).Hours()).Round(2)
	return s.St.CreateTimeEntry(ctx, store.TimeEntry{
		EmployeeID:  actor.ID,
		WorkDate:    workDate,
		StartHour:   start,
		EndHour:     end,
		HoursWorked: hours,
		Notes:       strings.TrimSpace(in.Notes),
		Status:      store.TimeEntryPending,
	})
}

func parseHour(day time.Time, value string) (time.Time, error) {
	t, err := time.ParseInLocation("15:04", strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

// Get returns one record. Employees may only read their own.
func (s *Service) Get(ctx context.Context, id int64, actor common.Actor) (store.TimeEntry, error) {
	if s == nil || s.St == nil {
		return store.TimeEntry{}, errors.New("timeentry service not configured")
	}
	entry, err := s.St.GetTimeEntry(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.TimeEntry{}, common.NotFound("time entry not found")
		}
		return store.TimeEntry{}, err
	}
	if !actor.Role.Manager() && entry.EmployeeID != actor.ID {
		return store.TimeEntry{}, common.Forbidden("not your time entry")
	}
	return entry, nil
}

// ListMine returns the acting employee's records, newest first.
func (s *Service) ListMine(ctx context.Context, actor common.Actor) ([]store.TimeEntry, error) {
	if s == nil || s.St == nil {
		return nil, errors.New("timeentry service not configured")
	}
	return s.St.ListTimeEntriesByEmployee(ctx, actor.ID)
}

// ListRange returns every record on [from, to] for managers. Zero bounds
// default to the trailing seven days.
func (s *Service) ListRange(ctx context.Context, from, to time.Time) ([]store.TimeEntry, error) {
	if s == nil || s.St == nil {
		return nil, errors.New("timeentry service not configured")
	}
	if to.IsZero() {
		to = store.DateOnly(s.now())
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -7)
	}
	if from.After(to) {
		return nil, common.Validation("from must not be after to")
	}
	return s.St.ListTimeEntriesByRange(ctx, store.DateOnly(from), store.DateOnly(to).Add(24*time.Hour))
}

// Review accepts or rejects a pending record. Rejections require a reason
// and a record may only be reviewed once.
func (s *Service) Review(ctx context.Context, id int64, in ReviewInput, actor common.Actor) (store.TimeEntry, error) {
	if s == nil || s.St == nil {
		return store.TimeEntry{}, errors.New("timeentry service not configured")
	}
	status := store.TimeEntryStatus(in.Status)
	reason := strings.TrimSpace(in.Reason)
	if status == store.TimeEntryRejected && reason == "" {
		return store.TimeEntry{}, common.Validation("rejection requires a reason")
	}
	var reviewed store.TimeEntry
	err := s.St.Atomic(ctx, func(tx store.Store) error {
		entry, err := tx.GetTimeEntry(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return common.NotFound("time entry not found")
			}
			return err
		}
		if entry.Status != store.TimeEntryPending {
			return common.Conflict("time entry is already " + string(entry.Status))
		}
		var reasonPtr *string
		if status == store.TimeEntryRejected {
			reasonPtr = &reason
		}
		reviewed, err = tx.ReviewTimeEntry(ctx, id, status, actor.ID, reasonPtr)
		return err
	})
	if err != nil {
		return store.TimeEntry{}, err
	}
	return reviewed, nil
}
