package postgres

import (
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/storage"
)

func (s *Store) GetIntervals(participantID string) ([]interval.Interval, error) {
	if s.db == nil {
		return nil, storage.ErrNotLoaded
	}

	var exists bool
	if err := s.db.QueryRow("SELECT EXISTS (SELECT 1 FROM participants WHERE id = $1)", participantID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("participant %s: %w", participantID, storage.ErrNotFound)
	}

	rows, err := s.db.Query(
		"SELECT day, start_time, end_time FROM intervals WHERE participant_id = $1 ORDER BY position",
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

// ReplaceIntervals rewrites the sheet with one INSERT over unnested arrays
func (s *Store) ReplaceIntervals(participantID string, intervals []interval.Interval) error {
	if s.db == nil {
		return storage.ErrNotLoaded
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"UPDATE participants SET updated_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		formatTime(time.Now()), participantID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("participant %s: %w", participantID, storage.ErrNotFound)
	}

	if _, err := tx.Exec("DELETE FROM intervals WHERE participant_id = $1", participantID); err != nil {
		return fmt.Errorf("failed to clear intervals: %w", err)
	}

	if len(intervals) > 0 {
		positions := make([]int64, len(intervals))
		days := make([]int64, len(intervals))
		starts := make([]int64, len(intervals))
		ends := make([]int64, len(intervals))
		for i, iv := range intervals {
			positions[i] = int64(i)
			days[i] = int64(iv.Day)
			starts[i] = iv.Start
			ends[i] = iv.End
		}

		_, err := tx.Exec(`
			INSERT INTO intervals (participant_id, position, day, start_time, end_time)
			SELECT $1, u.position, u.day, u.start_time, u.end_time
			FROM unnest($2::integer[], $3::smallint[], $4::bigint[], $5::bigint[])
				AS u(position, day, start_time, end_time)`,
			participantID, pq.Array(positions), pq.Array(days), pq.Array(starts), pq.Array(ends),
		)
		if err != nil {
			return fmt.Errorf("failed to insert intervals: %w", err)
		}
	}

	return tx.Commit()
}
