package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kasapos/backend-kasa/internal/store"
)

const timeEntryColumns = `id, employee_id, work_date, start_hour, end_hour, hours_worked::text, notes,
	status, reviewed_by, reviewed_at, rejection_reason, created_at, updated_at`

func scanTimeEntry(row rowScanner) (store.TimeEntry, error) {
	var (
		e     store.TimeEntry
		hours string
	)
	err := row.Scan(&e.ID, &e.EmployeeID, &e.WorkDate, &e.StartHour, &e.EndHour, &hours, &e.Notes,
		&e.Status, &e.ReviewedBy, &e.ReviewedAt, &e.RejectionReason, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return store.TimeEntry{}, mapErr(err)
	}
	e.WorkDate = store.DateOnly(e.WorkDate)
	if e.HoursWorked, err = parseDec(hours); err != nil {
		return store.TimeEntry{}, err
	}
	return e, nil
}

func (s *Store) CreateTimeEntry(ctx context.Context, e store.TimeEntry) (store.TimeEntry, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO time_entries (employee_id, work_date, start_hour, end_hour, hours_worked, notes, status)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
		RETURNING `+timeEntryColumns,
		e.EmployeeID, store.DateOnly(e.WorkDate), e.StartHour, e.EndHour, e.HoursWorked.String(), e.Notes, e.Status)
	return scanTimeEntry(row)
}

func (s *Store) GetTimeEntry(ctx context.Context, id int64) (store.TimeEntry, error) {
	row := s.db.QueryRow(ctx, `SELECT `+timeEntryColumns+` FROM time_entries WHERE id = $1`, id)
	return scanTimeEntry(row)
}

func (s *Store) ListTimeEntriesByEmployee(ctx context.Context, employeeID int64) ([]store.TimeEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+timeEntryColumns+` FROM time_entries
		WHERE employee_id = $1
		ORDER BY work_date DESC, id DESC`, employeeID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectTimeEntries(rows)
}

func (s *Store) ListTimeEntriesByRange(ctx context.Context, from, to time.Time) ([]store.TimeEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+timeEntryColumns+` FROM time_entries
		WHERE work_date >= $1 AND work_date <= $2
		ORDER BY work_date, employee_id`,
		store.DateOnly(from), store.DateOnly(to))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return collectTimeEntries(rows)
}

func collectTimeEntries(rows pgx.Rows) ([]store.TimeEntry, error) {
	var out []store.TimeEntry
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) ReviewTimeEntry(ctx context.Context, id int64, status store.TimeEntryStatus, reviewer int64, reason *string) (store.TimeEntry, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE time_entries SET
			status           = $2,
			reviewed_by      = $3,
			reviewed_at      = now(),
			rejection_reason = $4,
			updated_at       = now()
		WHERE id = $1
		RETURNING `+timeEntryColumns,
		id, status, reviewer, reason)
	return scanTimeEntry(row)
}
