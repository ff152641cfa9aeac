package backups

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dalmaki/when2meet/internal/backup"
	"github.com/dalmaki/when2meet/internal/cli"
	"github.com/dalmaki/when2meet/internal/constants"
)

var errNotSQLite = errors.New("backups are only supported for SQLite storage")

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	if !ctx.IsSQLite() {
		return errNotSQLite
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backupPath, err := mgr.CreateBackup()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	ctx.Printf("✓ Backup created: %s\n", filepath.Base(backupPath))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	if !ctx.IsSQLite() {
		return errNotSQLite
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(backups) == 0 {
		ctx.Println("No backups found.")
		ctx.Printf("Backups are stored in: %s\n", mgr.GetBackupDir())
		return nil
	}

	ctx.Printf("Available backups (%d total, keeping most recent %d):\n\n", len(backups), constants.MaxBackups)
	for _, b := range backups {
		sizeKB := float64(b.Size) / 1024.0
		ctx.Printf("  %s  %s  (%.1f KB)\n", b.Timestamp.Format("2006-01-02 15:04:05"), filepath.Base(b.Path), sizeKB)
	}
	ctx.Printf("\nBackup directory: %s\n", mgr.GetBackupDir())
	return nil
}

type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore."`
	Yes        bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	if !ctx.IsSQLite() {
		return errNotSQLite
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())

	backupPath, err := resolveBackupPath(c.BackupFile, mgr.GetBackupDir())
	if err != nil {
		return err
	}

	if !c.Yes {
		ctx.Println("⚠ This will replace the current grid with the backup.")
		ctx.Println("A backup of the current database is created first.")
		ok, err := ctx.Confirm(fmt.Sprintf("Restore from %s?", filepath.Base(backupPath)))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Restore cancelled.")
			return nil
		}
	}

	// Hold the lock so no mark/unmark writes while the file is swapped
	return ctx.WithLock(func() error {
		if err := ctx.Store.Close(); err != nil {
			ctx.Printf("Warning: failed to close database connection: %v\n", err)
		}
		preRestore, err := mgr.RestoreBackup(backupPath)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		if preRestore != "" {
			ctx.Printf("Previous database saved as: %s\n", filepath.Base(preRestore))
		}
		ctx.Println("✓ Database restored successfully!")
		return ctx.Store.Load()
	})
}

// resolveBackupPath accepts an absolute path, a path relative to the working
// directory, or a bare filename inside the backup directory.
func resolveBackupPath(name, backupDir string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("backup file not found: %s", name)
		}
		return name, nil
	}
	if _, err := os.Stat(name); err == nil {
		abs, err := filepath.Abs(name)
		if err != nil {
			return "", fmt.Errorf("failed to resolve backup path: %w", err)
		}
		return abs, nil
	}
	candidate := filepath.Join(backupDir, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", fmt.Errorf("backup file not found: tried current directory and %s", backupDir)
}
