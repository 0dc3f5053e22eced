package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeEntry is one row within a timecard. Entry ids are assigned server-side
// and are not stable across updates: the entries column is always replaced
// wholesale, never patched per entry.
type TimeEntry struct {
	ID          string `json:"id"`
	Day         string `json:"day" binding:"required"`
	JobName     string `json:"jobName" binding:"required"`
	StartTime   string `json:"startTime" binding:"required"`
	EndTime     string `json:"endTime" binding:"required"`
	Description string `json:"description"`
}

// Timecard is one user's work record for a calendar week. OwnerID and ID are
// immutable after insert. TotalHours is caller-supplied, never derived from
// the entries.
type Timecard struct {
	ID            string      `json:"id"`
	OwnerID       string      `json:"ownerId"`
	WeekStartDate time.Time   `json:"weekStartDate"`
	Entries       []TimeEntry `json:"entries"`
	TotalHours    float64     `json:"totalHours"`
	Completed     bool        `json:"completed"`
}

// TimecardWithOwner is a timecard joined with its owner's display fields, one
// flat row of the manager listing.
type TimecardWithOwner struct {
	Timecard
	OwnerName  string `json:"ownerName"`
	OwnerEmail string `json:"ownerEmail"`
}

const timecardColumns = `id, owner_id, week_start_date, entries, total_hours, completed`

func scanTimecard(row interface{ Scan(...any) error }) (Timecard, error) {
	var tc Timecard
	var entries []byte
	err := row.Scan(&tc.ID, &tc.OwnerID, &tc.WeekStartDate, &entries, &tc.TotalHours, &tc.Completed)
	if err != nil {
		return tc, err
	}
	if err := json.Unmarshal(entries, &tc.Entries); err != nil {
		return tc, fmt.Errorf("error unmarshalling entries column: %w", err)
	}
	if tc.Entries == nil {
		tc.Entries = []TimeEntry{}
	}
	return tc, nil
}

// FindByOwner returns every timecard owned by ownerID, most recent week first.
func (s *Store) FindByOwner(ctx context.Context, ownerID string) ([]Timecard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+timecardColumns+` FROM timecards WHERE owner_id = $1 ORDER BY week_start_date DESC;`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("error querying timecards: %w", err)
	}
	defer rows.Close()

	timecards := []Timecard{}
	for rows.Next() {
		tc, err := scanTimecard(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning timecard row: %w", err)
		}
		timecards = append(timecards, tc)
	}
	return timecards, rows.Err()
}

// FindByID returns the timecard with the given id or ErrNotFound.
func (s *Store) FindByID(ctx context.Context, id string) (Timecard, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+timecardColumns+` FROM timecards WHERE id = $1;`, id)
	tc, err := scanTimecard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tc, ErrNotFound
	}
	if err != nil {
		return tc, fmt.Errorf("error querying timecard %s: %w", id, err)
	}
	return tc, nil
}

// FindAllWithOwner returns every timecard in the store joined with its
// owner's name and email, sorted by owner then by week descending. The
// grouping itself happens in the handler, this is just the flat feed for it.
func (s *Store) FindAllWithOwner(ctx context.Context) ([]TimecardWithOwner, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.owner_id, t.week_start_date, t.entries, t.total_hours, t.completed, u.name, u.email
		FROM timecards t
		JOIN timecard_users u ON u.id = t.owner_id
		ORDER BY u.name, t.owner_id, t.week_start_date DESC;`)
	if err != nil {
		return nil, fmt.Errorf("error querying timecards with owners: %w", err)
	}
	defer rows.Close()

	result := []TimecardWithOwner{}
	for rows.Next() {
		var row TimecardWithOwner
		var entries []byte
		err := rows.Scan(&row.ID, &row.OwnerID, &row.WeekStartDate, &entries,
			&row.TotalHours, &row.Completed, &row.OwnerName, &row.OwnerEmail)
		if err != nil {
			return nil, fmt.Errorf("error scanning joined timecard row: %w", err)
		}
		if err := json.Unmarshal(entries, &row.Entries); err != nil {
			return nil, fmt.Errorf("error unmarshalling entries column: %w", err)
		}
		if row.Entries == nil {
			row.Entries = []TimeEntry{}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Insert persists a new timecard, assigning its id, and returns the stored
// record.
func (s *Store) Insert(ctx context.Context, tc Timecard) (Timecard, error) {
	if tc.ID == "" {
		tc.ID = uuid.NewString()
	}
	if tc.Entries == nil {
		tc.Entries = []TimeEntry{}
	}
	entries, err := json.Marshal(tc.Entries)
	if err != nil {
		return tc, fmt.Errorf("error marshalling entries: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO timecards (id, owner_id, week_start_date, entries, total_hours, completed)
		VALUES ($1, $2, $3, $4, $5, $6);`,
		tc.ID, tc.OwnerID, tc.WeekStartDate, entries, tc.TotalHours, tc.Completed)
	if err != nil {
		return tc, fmt.Errorf("error inserting timecard: %w", err)
	}
	return tc, nil
}

// Save updates an existing timecard in place. Owner and id never change.
func (s *Store) Save(ctx context.Context, tc Timecard) error {
	entries, err := json.Marshal(tc.Entries)
	if err != nil {
		return fmt.Errorf("error marshalling entries: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE timecards SET week_start_date = $2, entries = $3, total_hours = $4, completed = $5
		WHERE id = $1;`,
		tc.ID, tc.WeekStartDate, entries, tc.TotalHours, tc.Completed)
	if err != nil {
		return fmt.Errorf("error updating timecard %s: %w", tc.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByID removes a timecard permanently. There is no soft delete.
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM timecards WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("error deleting timecard %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsInWindow reports whether ownerID has a timecard whose week start date
// falls inside [start, end], bounds included.
func (s *Store) ExistsInWindow(ctx context.Context, ownerID string, start, end time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM timecards
			WHERE owner_id = $1 AND week_start_date >= $2 AND week_start_date <= $3
		);`,
		ownerID, start, end).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking timecards in window: %w", err)
	}
	return exists, nil
}
