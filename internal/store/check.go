package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Outcome mirrors the scorer's verdict categories.
type Outcome string

const (
	OutcomeCorrect       Outcome = "correct"
	OutcomeIncorrect     Outcome = "incorrect"
	OutcomeIndeterminate Outcome = "indeterminate"
)

// ReferenceFile is a dataset file consulted while building a check's reference.
type ReferenceFile struct {
	Path           string
	Used           bool
	FramesDetected int
}

// Check represents one scored upload stored in the database.
type Check struct {
	ID             string
	Asana          string
	Upload         string
	Outcome        Outcome
	Distance       float64
	Reason         string
	FramesRead     int
	FramesDetected int
	References     []ReferenceFile
	CreatedAt      time.Time
}

// CheckRepository provides access to stored checks.
type CheckRepository struct {
	db *sql.DB
}

// Checks returns the check repository for this store.
func (s *Store) Checks() *CheckRepository {
	return &CheckRepository{db: s.db}
}

// Create inserts a check and its reference files in a single transaction.
// A missing ID is filled with a new UUID; CreatedAt is set to now.
func (r *CheckRepository) Create(c *Check) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO checks (id, asana, upload, outcome, distance, reason, frames_read, frames_detected, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Asana, c.Upload, string(c.Outcome), c.Distance, c.Reason, c.FramesRead, c.FramesDetected, c.CreatedAt,
	)
	if err != nil {
		return err
	}

	if len(c.References) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO check_references (check_id, path, used, frames_detected) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, ref := range c.References {
			if _, err := stmt.Exec(c.ID, ref.Path, boolToInt(ref.Used), ref.FramesDetected); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// GetByID retrieves a check and its reference files by ID.
func (r *CheckRepository) GetByID(id string) (*Check, error) {
	c := &Check{}
	var outcome string

	err := r.db.QueryRow(
		`SELECT id, asana, upload, outcome, distance, reason, frames_read, frames_detected, created_at
		 FROM checks WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.Asana, &c.Upload, &outcome, &c.Distance, &c.Reason, &c.FramesRead, &c.FramesDetected, &c.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.Outcome = Outcome(outcome)

	refs, err := r.references(id)
	if err != nil {
		return nil, err
	}
	c.References = refs

	return c, nil
}

// List retrieves the most recent checks, newest first.
// If asana is non-empty only checks for that asana are returned (case-insensitive).
// A limit of zero or less returns every row.
func (r *CheckRepository) List(asana string, limit int) ([]*Check, error) {
	query := `SELECT id, asana, upload, outcome, distance, reason, frames_read, frames_detected, created_at FROM checks`
	var args []interface{}

	if asana != "" {
		query += ` WHERE asana = ? COLLATE NOCASE`
		args = append(args, asana)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []*Check
	for rows.Next() {
		c := &Check{}
		var outcome string

		err := rows.Scan(&c.ID, &c.Asana, &c.Upload, &outcome, &c.Distance, &c.Reason, &c.FramesRead, &c.FramesDetected, &c.CreatedAt)
		if err != nil {
			return nil, err
		}

		c.Outcome = Outcome(outcome)
		checks = append(checks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return checks, nil
}

// Delete removes a check and its reference files.
func (r *CheckRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM checks WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *CheckRepository) references(checkID string) ([]ReferenceFile, error) {
	rows, err := r.db.Query(
		`SELECT path, used, frames_detected FROM check_references WHERE check_id = ? ORDER BY id`,
		checkID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []ReferenceFile
	for rows.Next() {
		var ref ReferenceFile
		var used int
		if err := rows.Scan(&ref.Path, &used, &ref.FramesDetected); err != nil {
			return nil, err
		}
		ref.Used = used != 0
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
