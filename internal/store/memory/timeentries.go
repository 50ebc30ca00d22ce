package memory

import (
	"context"
	"sort"
	"time"

	"github.com/kasapos/backend-kasa/internal/store"
)

func (m *Memory) CreateTimeEntry(ctx context.Context, e store.TimeEntry) (store.TimeEntry, error) {
	m.lock()
	defer m.unlock()
	if _, ok := m.d.users[e.EmployeeID]; !ok {
		return store.TimeEntry{}, store.ErrNotFound
	}
	e.ID = m.d.next("time_entries")
	e.WorkDate = store.DateOnly(e.WorkDate)
	e.CreatedAt = now()
	e.UpdatedAt = e.CreatedAt
	m.d.timeEntries[e.ID] = e
	return e, nil
}

func (m *Memory) GetTimeEntry(ctx context.Context, id int64) (store.TimeEntry, error) {
	m.lock()
	defer m.unlock()
	e, ok := m.d.timeEntries[id]
	if !ok {
		return store.TimeEntry{}, store.ErrNotFound
	}
	return e, nil
}

func (m *Memory) ListTimeEntriesByEmployee(ctx context.Context, employeeID int64) ([]store.TimeEntry, error) {
	m.lock()
	defer m.unlock()
	var out []store.TimeEntry
	for _, e := range m.d.timeEntries {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].WorkDate.Equal(out[j].WorkDate) {
			return out[i].WorkDate.After(out[j].WorkDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) ListTimeEntriesByRange(ctx context.Context, from, to time.Time) ([]store.TimeEntry, error) {
	m.lock()
	defer m.unlock()
	from, to = store.DateOnly(from), store.DateOnly(to)
	var out []store.TimeEntry
	for _, e := range m.d.timeEntries {
		if e.WorkDate.Before(from) || e.WorkDate.After(to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].WorkDate.Equal(out[j].WorkDate) {
			return out[i].WorkDate.Before(out[j].WorkDate)
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}

func (m *Memory) ReviewTimeEntry(ctx context.Context, id int64, status store.TimeEntryStatus, reviewer int64, reason *string) (store.TimeEntry, error) {
	m.lock()
	defer m.unlock()
	e, ok := m.d.timeEntries[id]
	if !ok {
		return store.TimeEntry{}, store.ErrNotFound
	}
	at := now()
	e.Status = status
	e.ReviewedBy = &reviewer
	e.ReviewedAt = &at
	e.RejectionReason = reason
	e.UpdatedAt = at
	m.d.timeEntries[id] = e
	return e, nil
}
