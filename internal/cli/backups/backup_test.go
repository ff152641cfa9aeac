package backups

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/dalmaki/when2meet/internal/backup"
	"github.com/dalmaki/when2meet/internal/cli"
	"github.com/dalmaki/when2meet/internal/cli/clitest"
	"github.com/dalmaki/when2meet/internal/config"
	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/storage"
)

func TestBackupCreateListRestore(t *testing.T) {
	ctx, out := clitest.New(t)
	alice := clitest.AddParticipant(t, ctx, "alice", interval.Interval{Day: interval.Monday, Start: 9 * 3600, End: 10 * 3600})

	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No backups found") {
		t.Errorf("list output = %q", out.String())
	}

	out.Reset()
	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(out.String(), "✓ Backup created: w2m-") {
		t.Errorf("create output = %q", out.String())
	}

	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	list, err := mgr.ListBackups()
	if err != nil || len(list) != 1 {
		t.Fatalf("ListBackups() = %v, %v", list, err)
	}

	// Change the grid after the backup, then roll back
	if err := ctx.Store.ReplaceIntervals(alice.ID, nil); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := (&BackupRestoreCmd{BackupFile: filepath.Base(list[0].Path)}).Run(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !strings.Contains(out.String(), "restored successfully") {
		t.Errorf("restore output = %q", out.String())
	}
	ivs, err := ctx.Store.GetIntervals(alice.ID)
	if err != nil {
		t.Fatalf("store not reloaded after restore: %v", err)
	}
	if len(ivs) != 1 {
		t.Errorf("restored intervals = %v, want the backed up sheet", ivs)
	}
}

func TestBackupRestoreMissing(t *testing.T) {
	ctx, _ := clitest.New(t)
	if err := (&BackupRestoreCmd{BackupFile: "w2m-19990101-0000.db", Yes: true}).Run(ctx); err == nil {
		t.Error("restoring a missing backup should fail")
	}
}

func TestBackupRequiresSQLite(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewJSONStore(filepath.Join(dir, "w2m.json"))
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	ctx := cli.NewContext(store, config.Config{}, dir)

	for _, cmd := range []interface{ Run(*cli.Context) error }{
		&BackupCreateCmd{}, &BackupListCmd{}, &BackupRestoreCmd{BackupFile: "x.db"},
	} {
		if err := cmd.Run(ctx); err != errNotSQLite {
			t.Errorf("%T error = %v, want errNotSQLite", cmd, err)
		}
	}
}
