package system

import (
	"errors"
	"fmt"
	"os"

	"github.com/dalmaki/when2meet/internal/backup"
	"github.com/dalmaki/when2meet/internal/cli"
	"github.com/dalmaki/when2meet/internal/constants"
	"github.com/dalmaki/when2meet/internal/keyring"
	"github.com/dalmaki/when2meet/internal/lock"
	"github.com/dalmaki/when2meet/internal/storage/postgres"
	"github.com/dalmaki/when2meet/internal/storage/sqlite"
	"github.com/dalmaki/when2meet/internal/validation"
)

type DoctorCmd struct{}

// errWarning marks a check result that is reported but does not fail doctor
type errWarning struct{ msg string }

func (w errWarning) Error() string { return w.msg }

func warnf(format string, args ...interface{}) error {
	return errWarning{msg: fmt.Sprintf(format, args...)}
}

type check struct {
	name  string
	needs bool // needs a reachable database
	run   func(*cli.Context) error
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	checks := []check{
		{name: "Database reachable", run: checkDBReachable},
		{name: "Schema version", needs: true, run: checkSchemaVersion},
		{name: "Migrations complete", needs: true, run: checkMigrationsComplete},
		{name: "Backups present", run: checkBackupsPresent},
		{name: "Data validation", needs: true, run: checkValidation},
		{name: "Edit lock", run: checkLock},
		{name: "OS keyring", run: checkKeyring},
	}

	hasError := false
	dbReachable := false
	for i, c := range checks {
		if c.needs && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		var warn errWarning
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
			if i == 0 {
				dbReachable = true
			}
		case errors.As(err, &warn):
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %s\n", warn.msg)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	if s, ok := ctx.Store.(*sqlite.Store); ok {
		db := s.GetDB()
		if db == nil {
			return fmt.Errorf("database connection is nil")
		}
		var result int
		if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	current, latest, err := ctx.Store.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	return nil
}

func checkMigrationsComplete(ctx *cli.Context) error {
	current, latest, err := ctx.Store.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d - run 'w2m migrate'", current, latest)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if !ctx.IsSQLite() {
		return nil
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return warnf("no backups found - consider creating one with 'w2m backup create'")
	}
	return nil
}

func checkValidation(ctx *cli.Context) error {
	sheets, axis, err := loadSheets(ctx)
	if err != nil {
		return err
	}
	result := validation.New().ValidateSheets(sheets, axis)
	if !result.HasConflicts() {
		return nil
	}
	if !result.Fixable() {
		return warnf("%d interval(s) lie outside the axis", len(result.Conflicts))
	}
	return fmt.Errorf("found %d conflict(s) - run 'w2m validate' for details", len(result.Conflicts))
}

func checkLock(ctx *cli.Context) error {
	holder, alive, err := lock.Inspect(ctx.LockPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return warnf("unreadable lockfile %s will be replaced on the next edit", ctx.LockPath())
	}
	if alive {
		return warnf("held by %s (pid %d)", holder.Executable, holder.PID)
	}
	return warnf("stale lock from pid %d will be taken over on the next edit", holder.PID)
}

func checkKeyring(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*postgres.Store); !ok {
		return nil
	}
	if os.Getenv(constants.EnvDBConnection) != "" {
		return nil
	}
	if !keyring.IsAvailable() {
		return warnf("OS keyring is not available; use %s or .pgpass for credentials", constants.EnvDBConnection)
	}
	return nil
}
