package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dalmaki/when2meet/internal/models"
	"github.com/dalmaki/when2meet/internal/storage"
)

const (
	participantColumns = "id, name, disabled, created_at, updated_at, deleted_at"
	// fixed-width so timestamps sort as text
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (models.Participant, error) {
	var (
		p                    models.Participant
		disabled             int
		createdAt, updatedAt string
		deletedAt            sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &disabled, &createdAt, &updatedAt, &deletedAt); err != nil {
		return models.Participant{}, err
	}
	p.Disabled = disabled != 0

	var err error
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return models.Participant{}, fmt.Errorf("parsing created_at for %s: %w", p.ID, err)
	}
	p.UpdatedAt = p.CreatedAt
	if updatedAt != "" {
		if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return models.Participant{}, fmt.Errorf("parsing updated_at for %s: %w", p.ID, err)
		}
	}
	if deletedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, deletedAt.String)
		if err != nil {
			return models.Participant{}, fmt.Errorf("parsing deleted_at for %s: %w", p.ID, err)
		}
		p.DeletedAt = &t
	}
	return p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nameTaken reports whether an active participant other than exceptID uses name
func nameTaken(q interface {
	QueryRow(string, ...any) *sql.Row
}, name, exceptID string) (bool, error) {
	var count int
	err := q.QueryRow(
		"SELECT count(*) FROM participants WHERE name = ? AND deleted_at IS NULL AND id != ?",
		name, exceptID,
	).Scan(&count)
	return count > 0, err
}

func (s *Store) AddParticipant(p models.Participant) error {
	if s.db == nil {
		return storage.ErrNotLoaded
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	taken, err := nameTaken(tx, p.Name, p.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateName, p.Name)
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err = tx.Exec(
		"INSERT INTO participants ("+participantColumns+") VALUES (?, ?, ?, ?, ?, NULL)",
		p.ID, p.Name, boolToInt(p.Disabled), formatTime(p.CreatedAt), formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}

	return tx.Commit()
}

func (s *Store) GetParticipant(id string) (models.Participant, error) {
	if s.db == nil {
		return models.Participant{}, storage.ErrNotLoaded
	}

	row := s.db.QueryRow("SELECT "+participantColumns+" FROM participants WHERE id = ? AND deleted_at IS NULL", id)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Participant{}, fmt.Errorf("participant %s: %w", id, storage.ErrNotFound)
	}
	return p, err
}

func (s *Store) GetParticipantByName(name string) (models.Participant, error) {
	if s.db == nil {
		return models.Participant{}, storage.ErrNotLoaded
	}

	row := s.db.QueryRow("SELECT "+participantColumns+" FROM participants WHERE name = ? AND deleted_at IS NULL", name)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Participant{}, fmt.Errorf("participant %q: %w", name, storage.ErrNotFound)
	}
	return p, err
}

func (s *Store) GetAllParticipants(includeDeleted bool) ([]models.Participant, error) {
	if s.db == nil {
		return nil, storage.ErrNotLoaded
	}

	query := "SELECT " + participantColumns + " FROM participants"
	if !includeDeleted {
		query += " WHERE deleted_at IS NULL"
	}
	query += " ORDER BY created_at, name"

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (s *Store) UpdateParticipant(p models.Participant) error {
	if s.db == nil {
		return storage.ErrNotLoaded
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	taken, err := nameTaken(tx, p.Name, p.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateName, p.Name)
	}

	res, err := tx.Exec(
		"UPDATE participants SET name = ?, disabled = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		p.Name, boolToInt(p.Disabled), formatTime(time.Now()), p.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("participant %s: %w", p.ID, storage.ErrNotFound)
	}

	return tx.Commit()
}

func (s *Store) DeleteParticipant(id string) error {
	if s.db == nil {
		return storage.ErrNotLoaded
	}

	// Soft delete: intervals are kept so the sheet comes back on restore
	now := formatTime(time.Now())
	res, err := s.db.Exec("UPDATE participants SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL", now, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("participant %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) RestoreParticipant(id string) error {
	if s.db == nil {
		return storage.ErrNotLoaded
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		name      string
		deletedAt sql.NullString
	)
	err = tx.QueryRow("SELECT name, deleted_at FROM participants WHERE id = ?", id).Scan(&name, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("participant %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if !deletedAt.Valid {
		return fmt.Errorf("participant %s is not deleted", id)
	}

	taken, err := nameTaken(tx, name, id)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateName, name)
	}

	if _, err := tx.Exec("UPDATE participants SET deleted_at = NULL, updated_at = ? WHERE id = ?", formatTime(time.Now()), id); err != nil {
		return err
	}
	return tx.Commit()
}
