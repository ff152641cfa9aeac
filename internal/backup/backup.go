package backup

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dalmaki/when2meet/internal/constants"
	"github.com/dalmaki/when2meet/internal/logger"
)

const (
	minuteLayout = "20060102-1504"
	secondLayout = "20060102-150405"
)

// BackupInfo describes one backup file
type BackupInfo struct {
	Path      string
	Timestamp time.Time
	Size      int64

	seq int // collision counter within the same second
}

// Manager creates, lists, rotates and restores SQLite backups of a grid
// database. Backups live in a "backups" directory next to the database.
type Manager struct {
	dbPath     string
	backupDir  string
	maxBackups int
	now        func() time.Time
}

// NewManager creates a new backup manager
func NewManager(dbPath string) *Manager {
	return &Manager{
		dbPath:     dbPath,
		backupDir:  filepath.Join(filepath.Dir(dbPath), constants.BackupDirName),
		maxBackups: constants.MaxBackups,
		now:        time.Now,
	}
}

// GetBackupDir returns the backup directory path
func (m *Manager) GetBackupDir() string {
	return m.backupDir
}

// CreateBackup writes a new backup and prunes the oldest beyond the retention limit
func (m *Manager) CreateBackup() (string, error) {
	path, err := m.createBackup()
	if err != nil {
		return "", err
	}
	if err := m.rotateBackups(); err != nil {
		logger.Warn("Failed to rotate old backups", "dir", m.backupDir, "error", err)
	}
	return path, nil
}

func (m *Manager) createBackup() (string, error) {
	if err := os.MkdirAll(m.backupDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return "", fmt.Errorf("database does not exist: %s", m.dbPath)
	}

	backupPath, err := m.nextBackupPath()
	if err != nil {
		return "", err
	}

	if err := m.backupDatabase(backupPath); err != nil {
		return "", fmt.Errorf("failed to backup database: %w", err)
	}

	logger.Info("Backup created", "path", backupPath)
	return backupPath, nil
}

// nextBackupPath picks an unused name: minute precision, then seconds, then a counter
func (m *Manager) nextBackupPath() (string, error) {
	now := m.now()
	name := func(stamp string) string {
		return filepath.Join(m.backupDir, constants.BackupFilePrefix+stamp+constants.BackupFileSuffix)
	}

	candidate := name(now.Format(minuteLayout))
	if !exists(candidate) {
		return candidate, nil
	}

	stamp := now.Format(secondLayout)
	candidate = name(stamp)
	for counter := 1; exists(candidate); counter++ {
		if counter > 100 {
			return "", fmt.Errorf("failed to generate unique backup filename")
		}
		candidate = name(fmt.Sprintf("%s-%d", stamp, counter))
	}
	return candidate, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// backupDatabase copies the live database with VACUUM INTO, falling back to a
// plain file copy when the engine refuses
func (m *Manager) backupDatabase(destPath string) error {
	srcDB, err := sql.Open("sqlite", m.dbPath+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer srcDB.Close()

	var count int
	if err := srcDB.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&count); err != nil {
		return fmt.Errorf("source database appears to be corrupted: %w", err)
	}

	if _, err := srcDB.Exec("VACUUM INTO ?", destPath); err != nil {
		logger.Debug("VACUUM INTO failed, copying file", "error", err)
		srcDB.Close()
		return copyFile(m.dbPath, destPath)
	}

	return nil
}

// parseBackupName extracts the timestamp and collision counter from a backup filename
func parseBackupName(name string) (time.Time, int, bool) {
	if !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, constants.BackupFileSuffix) {
		return time.Time{}, 0, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), constants.BackupFileSuffix)

	// YYYYMMDD-HHMMSS-N carries a counter
	seq := 0
	if parts := strings.Split(stamp, "-"); len(parts) == 3 {
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return time.Time{}, 0, false
		}
		seq = n
		stamp = parts[0] + "-" + parts[1]
	}

	for _, layout := range []string{minuteLayout, secondLayout} {
		if ts, err := time.ParseInLocation(layout, stamp, time.Local); err == nil {
			return ts, seq, true
		}
	}
	return time.Time{}, 0, false
}

// ListBackups returns all backups, newest first
func (m *Manager) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(m.backupDir)
	if os.IsNotExist(err) {
		return []BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []BackupInfo{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, seq, ok := parseBackupName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Path:      filepath.Join(m.backupDir, entry.Name()),
			Timestamp: ts,
			Size:      info.Size(),
			seq:       seq,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].seq > backups[j].seq
		}
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// rotateBackups removes old backups beyond the retention limit
func (m *Manager) rotateBackups() error {
	backups, err := m.ListBackups()
	if err != nil {
		return err
	}

	for i := m.maxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

// RestoreBackup replaces the database with a backup. The current database is
// backed up first; its path is returned (empty when there was nothing to save).
func (m *Manager) RestoreBackup(backupPath string) (string, error) {
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return "", fmt.Errorf("backup file does not exist: %s", backupPath)
	}

	if err := verifyBackup(backupPath); err != nil {
		return "", fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var preRestore string
	if exists(m.dbPath) {
		var err error
		// No rotation here: the pre-restore copy must survive
		preRestore, err = m.createBackup()
		if err != nil {
			return "", fmt.Errorf("failed to backup current database before restore: %w", err)
		}
	}

	tempPath := m.dbPath + ".restore.tmp"
	if err := copyFile(backupPath, tempPath); err != nil {
		return preRestore, fmt.Errorf("failed to copy backup file: %w", err)
	}

	if err := os.Rename(tempPath, m.dbPath); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			logger.Warn("Failed to remove temporary file", "path", tempPath, "error", removeErr)
		}
		return preRestore, fmt.Errorf("failed to restore database: %w", err)
	}

	logger.Info("Database restored", "from", backupPath, "pre_restore", preRestore)
	return preRestore, nil
}

// verifyBackup checks that a file is a SQLite database holding a grid
func verifyBackup(path string) error {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return err
	}
	defer db.Close()

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'participants'").Scan(&count)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("not a w2m database: participants table missing")
	}
	return nil
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := destFile.ReadFrom(sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}
