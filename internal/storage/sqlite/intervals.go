package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/storage"
)

func (s *Store) participantExists(q interface {
	QueryRow(string, ...any) *sql.Row
}, id string, activeOnly bool) (bool, error) {
	query := "SELECT count(*) FROM participants WHERE id = ?"
	if activeOnly {
		query += " AND deleted_at IS NULL"
	}
	var count int
	err := q.QueryRow(query, id).Scan(&count)
	return count > 0, err
}

func (s *Store) GetIntervals(participantID string) ([]interval.Interval, error) {
	if s.db == nil {
		return nil, storage.ErrNotLoaded
	}

	exists, err := s.participantExists(s.db, participantID, false)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("participant %s: %w", participantID, storage.ErrNotFound)
	}

	rows, err := s.db.Query(
		"SELECT day, start_time, end_time FROM intervals WHERE participant_id = ? ORDER BY position",
		participantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intervals := []interval.Interval{}
	for rows.Next() {
		var iv interval.Interval
		if err := rows.Scan(&iv.Day, &iv.Start, &iv.End); err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

func (s *Store) ReplaceIntervals(participantID string, intervals []interval.Interval) error {
	if s.db == nil {
		return storage.ErrNotLoaded
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	exists, err := s.participantExists(tx, participantID, true)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("participant %s: %w", participantID, storage.ErrNotFound)
	}

	if _, err := tx.Exec("DELETE FROM intervals WHERE participant_id = ?", participantID); err != nil {
		return fmt.Errorf("failed to clear intervals: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO intervals (participant_id, position, day, start_time, end_time) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, iv := range intervals {
		if _, err := stmt.Exec(participantID, i, int(iv.Day), iv.Start, iv.End); err != nil {
			return fmt.Errorf("failed to insert interval %d: %w", i, err)
		}
	}

	if _, err := tx.Exec("UPDATE participants SET updated_at = ? WHERE id = ?", formatTime(time.Now()), participantID); err != nil {
		return err
	}

	return tx.Commit()
}
