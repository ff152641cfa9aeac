package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/dalmaki/when2meet/internal/models"
	"github.com/dalmaki/when2meet/internal/storage"
)

const (
	participantColumns = "id, name, disabled, created_at, updated_at, deleted_at"
	timeLayout         = "2006-01-02T15:04:05.000000000Z07:00"
	uniqueViolation    = "23505"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (models.Participant, error) {
	var (
		p                    models.Participant
		createdAt, updatedAt string
		deletedAt            sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Disabled, &createdAt, &updatedAt, &deletedAt); err != nil {
		return models.Participant{}, err
	}

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

// translate maps a unique-name violation raised by the partial index
func translate(err error, name string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateName, name)
	}
	return err
}

func nameTaken(tx *sql.Tx, name, exceptID string) (bool, error) {
	var taken bool
	err := tx.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM participants WHERE name = $1 AND deleted_at IS NULL AND id != $2)",
		name, exceptID,
	).Scan(&taken)
	return taken, err
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
		"INSERT INTO participants ("+participantColumns+") VALUES ($1, $2, $3, $4, $5, NULL)",
		p.ID, p.Name, p.Disabled, formatTime(p.CreatedAt), formatTime(p.CreatedAt),
	)
	if err != nil {
		return translate(fmt.Errorf("failed to insert participant: %w", err), p.Name)
	}

	return tx.Commit()
}

func (s *Store) GetParticipant(id string) (models.Participant, error) {
	if s.db == nil {
		return models.Participant{}, storage.ErrNotLoaded
	}

	row := s.db.QueryRow("SELECT "+participantColumns+" FROM participants WHERE id = $1 AND deleted_at IS NULL", id)
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

	row := s.db.QueryRow("SELECT "+participantColumns+" FROM participants WHERE name = $1 AND deleted_at IS NULL", name)
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
		"UPDATE participants SET name = $1, disabled = $2, updated_at = $3 WHERE id = $4 AND deleted_at IS NULL",
		p.Name, p.Disabled, formatTime(time.Now()), p.ID,
	)
	if err != nil {
		return translate(err, p.Name)
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

	now := formatTime(time.Now())
	res, err := s.db.Exec("UPDATE participants SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL", now, id)
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
	err = tx.QueryRow("SELECT name, deleted_at FROM participants WHERE id = $1 FOR UPDATE", id).Scan(&name, &deletedAt)
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

	if _, err := tx.Exec("UPDATE participants SET deleted_at = NULL, updated_at = $1 WHERE id = $2", formatTime(time.Now()), id); err != nil {
		return translate(err, name)
	}
	return tx.Commit()
}
