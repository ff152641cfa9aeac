package sqlite

import (
	"fmt"
	"strconv"

	"github.com/dalmaki/when2meet/internal/constants"
	"github.com/dalmaki/when2meet/internal/models"
	"github.com/dalmaki/when2meet/internal/storage"
)

func (s *Store) GetSettings() (models.Settings, error) {
	if s.db == nil {
		return models.Settings{}, storage.ErrNotLoaded
	}

	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return models.Settings{}, err
	}
	defer rows.Close()

	settings := models.Settings{}
	count := 0
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, err
		}
		switch key {
		case constants.SettingAxisStart:
			if settings.AxisStart, err = strconv.ParseInt(value, 10, 64); err != nil {
				return models.Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
		case constants.SettingAxisEnd:
			if settings.AxisEnd, err = strconv.ParseInt(value, 10, 64); err != nil {
				return models.Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, err
	}

	if count == 0 {
		return models.Settings{}, fmt.Errorf("settings: %w", storage.ErrNotFound)
	}

	return settings, nil
}

func (s *Store) SaveSettings(settings models.Settings) error {
	if s.db == nil {
		return storage.ErrNotLoaded
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(constants.SettingAxisStart, strconv.FormatInt(settings.AxisStart, 10)); err != nil {
		return err
	}
	if _, err := stmt.Exec(constants.SettingAxisEnd, strconv.FormatInt(settings.AxisEnd, 10)); err != nil {
		return err
	}

	return tx.Commit()
}
