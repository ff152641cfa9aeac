package backup

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dalmaki/when2meet/internal/constants"
	"github.com/dalmaki/when2meet/internal/models"
	"github.com/dalmaki/when2meet/internal/storage/sqlite"
)

// setupTestDB creates a grid database holding the given participants
func setupTestDB(t *testing.T, names ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "w2m.db")

	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init test database: %v", err)
	}
	defer store.Close()

	for i, name := range names {
		p := models.Participant{ID: fmt.Sprintf("p-%d", i), Name: name}
		if err := store.AddParticipant(p); err != nil {
			t.Fatalf("failed to add participant: %v", err)
		}
	}
	return dbPath
}

func countParticipants(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM participants").Scan(&count); err != nil {
		t.Fatalf("failed to query database: %v", err)
	}
	return count
}

// steppingClock advances one minute per call so every backup gets its own name
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		t := current
		current = current.Add(time.Minute)
		return t
	}
}

func newTestManager(dbPath string) *Manager {
	m := NewManager(dbPath)
	m.now = steppingClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.Local))
	return m
}

func TestCreateBackup(t *testing.T) {
	dbPath := setupTestDB(t, "alice", "bob")

	mgr := newTestManager(dbPath)
	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	if want := filepath.Join(filepath.Dir(dbPath), "backups", "w2m-20240601-0900.db"); backupPath != want {
		t.Errorf("backup path = %s, want %s", backupPath, want)
	}
	if got := countParticipants(t, backupPath); got != 2 {
		t.Errorf("expected 2 participants in backup, got %d", got)
	}
}

func TestBackupRotation(t *testing.T) {
	dbPath := setupTestDB(t, "alice")
	mgr := newTestManager(dbPath)

	for i := 0; i < constants.MaxBackups+5; i++ {
		if _, err := mgr.CreateBackup(); err != nil {
			t.Fatalf("CreateBackup #%d failed: %v", i, err)
		}
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != constants.MaxBackups {
		t.Errorf("expected %d backups after rotation, got %d", constants.MaxBackups, len(backups))
	}

	for i := 1; i < len(backups); i++ {
		if backups[i].Timestamp.After(backups[i-1].Timestamp) {
			t.Errorf("backups are not sorted newest first at index %d", i)
		}
	}
	// The oldest five were pruned
	if oldest := backups[len(backups)-1].Timestamp; oldest.Minute() != 5 {
		t.Errorf("oldest remaining backup = %v, want 09:05", oldest)
	}
}

func TestListBackups(t *testing.T) {
	dbPath := setupTestDB(t, "alice")
	mgr := newTestManager(dbPath)

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected 0 backups initially, got %d", len(backups))
	}

	for i := 0; i < 3; i++ {
		if _, err := mgr.CreateBackup(); err != nil {
			t.Fatalf("CreateBackup #%d failed: %v", i, err)
		}
	}
	// Unrelated files are ignored
	if err := os.WriteFile(filepath.Join(mgr.GetBackupDir(), "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	backups, err = mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(backups))
	}
	for _, b := range backups {
		if b.Path == "" || b.Size == 0 || b.Timestamp.IsZero() {
			t.Errorf("incomplete backup info: %+v", b)
		}
	}
}

func TestParseBackupName(t *testing.T) {
	tests := []struct {
		name    string
		wantOK  bool
		wantSeq int
		wantSec int
	}{
		{"w2m-20240601-0900.db", true, 0, 0},
		{"w2m-20240601-090012.db", true, 0, 12},
		{"w2m-20240601-090012-3.db", true, 3, 12},
		{"w2m-20240601-090012-x.db", false, 0, 0},
		{"other-20240601-0900.db", false, 0, 0},
		{"w2m-garbage.db", false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, seq, ok := parseBackupName(tt.name)
			if ok != tt.wantOK {
				t.Fatalf("parseBackupName() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (seq != tt.wantSeq || ts.Second() != tt.wantSec) {
				t.Errorf("parseBackupName() = %v seq %d", ts, seq)
			}
		})
	}
}

func TestRestoreBackup(t *testing.T) {
	dbPath := setupTestDB(t, "alice", "bob")
	mgr := newTestManager(dbPath)

	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	store := sqlite.NewStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	if err := store.AddParticipant(models.Participant{ID: "p-9", Name: "carol"}); err != nil {
		t.Fatal(err)
	}
	store.Close()
	if got := countParticipants(t, dbPath); got != 3 {
		t.Fatalf("expected 3 participants before restore, got %d", got)
	}

	preRestore, err := mgr.RestoreBackup(backupPath)
	if err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}

	if got := countParticipants(t, dbPath); got != 2 {
		t.Errorf("expected 2 participants after restore, got %d", got)
	}
	if preRestore == "" {
		t.Fatal("RestoreBackup should report the pre-restore backup")
	}
	if got := countParticipants(t, preRestore); got != 3 {
		t.Errorf("pre-restore backup has %d participants, want 3", got)
	}
}

func TestRestoreBackupRejectsInvalid(t *testing.T) {
	dbPath := setupTestDB(t, "alice")
	mgr := newTestManager(dbPath)

	if err := os.MkdirAll(mgr.GetBackupDir(), 0700); err != nil {
		t.Fatal(err)
	}

	garbage := filepath.Join(mgr.GetBackupDir(), "garbage.db")
	if err := os.WriteFile(garbage, []byte("not a database"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.RestoreBackup(garbage); err == nil {
		t.Error("RestoreBackup should fail for a corrupted file")
	}

	// A valid SQLite file that is not a grid database
	foreign := filepath.Join(mgr.GetBackupDir(), "foreign.db")
	db, err := sql.Open("sqlite", foreign)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE tasks (id INTEGER)"); err != nil {
		t.Fatal(err)
	}
	db.Close()
	_, err = mgr.RestoreBackup(foreign)
	if err == nil || !strings.Contains(err.Error(), "not a w2m database") {
		t.Errorf("RestoreBackup(foreign) error = %v", err)
	}

	if _, err := mgr.RestoreBackup(filepath.Join(mgr.GetBackupDir(), "missing.db")); err == nil {
		t.Error("RestoreBackup should fail for a missing file")
	}

	if got := countParticipants(t, dbPath); got != 1 {
		t.Errorf("database changed after failed restores: %d participants", got)
	}
}

func TestUniqueBackupFilenames(t *testing.T) {
	dbPath := setupTestDB(t, "alice")
	mgr := NewManager(dbPath)
	frozen := time.Date(2024, 6, 1, 9, 0, 30, 0, time.Local)
	mgr.now = func() time.Time { return frozen }

	paths := make(map[string]bool)
	for i := 0; i < 5; i++ {
		backupPath, err := mgr.CreateBackup()
		if err != nil {
			t.Fatalf("CreateBackup #%d failed: %v", i, err)
		}
		name := filepath.Base(backupPath)
		if paths[name] {
			t.Errorf("duplicate backup filename: %s", name)
		}
		paths[name] = true
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 5 {
		t.Fatalf("expected 5 backups, got %d", len(backups))
	}
	// Counter breaks ties: the last one written lists first
	if want := "w2m-20240601-090030-3.db"; filepath.Base(backups[0].Path) != want {
		t.Errorf("newest backup = %s, want %s", filepath.Base(backups[0].Path), want)
	}
}

func TestBackupWithNoDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "absent.db"))
	if _, err := mgr.CreateBackup(); err == nil {
		t.Error("CreateBackup should fail when the database does not exist")
	}
}
