package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dalmaki/when2meet/internal/cli"
	"github.com/dalmaki/when2meet/internal/models"
	"github.com/dalmaki/when2meet/internal/storage"
	"github.com/dalmaki/when2meet/internal/storage/postgres"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to copy the grid from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized w2m storage at: %s\n", ctx.Store.GetConfigPath())

	if err := seedAxis(ctx); err != nil {
		return err
	}

	if c.Source != "" {
		ctx.Printf("Copying grid from: %s\n", c.Source)
		if err := c.copyFrom(ctx, c.Source); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		ctx.Println("Migration completed successfully!")
	}
	return nil
}

func (c *InitCmd) reset(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*postgres.Store); ok {
		return fmt.Errorf("--force is not supported for PostgreSQL, drop the %q schema instead", "w2m")
	}

	dbPath := ctx.Store.GetConfigPath()
	if c.Source != "" {
		absDB, err := filepath.Abs(dbPath)
		if err == nil {
			dbPath = absDB
		}
		absSource, err := filepath.Abs(c.Source)
		if err == nil && absSource == dbPath {
			return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
		}
	}

	if _, err := os.Stat(dbPath); err == nil {
		if err := ctx.Store.Close(); err != nil {
			return fmt.Errorf("failed to close existing database: %w", err)
		}
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		ctx.Printf("Deleted existing database at: %s\n", dbPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access existing database: %w", err)
	}
	return nil
}

// seedAxis stores the configured axis on a grid that still has the defaults
func seedAxis(ctx *cli.Context) error {
	if ctx.Config.AxisStart == "" && ctx.Config.AxisEnd == "" {
		return nil
	}
	axis, err := ctx.Config.Axis()
	if err != nil {
		return fmt.Errorf("invalid axis in config: %w", err)
	}
	current, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if current != models.DefaultSettings() || axis == current.Axis() {
		return nil
	}
	if err := ctx.Store.SaveSettings(models.SettingsFromAxis(axis)); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (c *InitCmd) copyFrom(ctx *cli.Context, source string) error {
	src, err := cli.OpenStore(source)
	if err != nil {
		return err
	}
	if err := src.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer src.Close()

	ctx.Println("  Copying settings...")
	settings, err := src.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings from source: %w", err)
	}
	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings to destination: %w", err)
	}

	ctx.Println("  Copying participants...")
	participants, err := src.GetAllParticipants(true)
	if err != nil {
		return fmt.Errorf("failed to get participants from source: %w", err)
	}

	// Deleted participants go first and are deleted right away, so a name
	// reused by an active participant never collides.
	var ordered []models.Participant
	for _, p := range participants {
		if p.IsDeleted() {
			ordered = append(ordered, p)
		}
	}
	for _, p := range participants {
		if !p.IsDeleted() {
			ordered = append(ordered, p)
		}
	}

	intervals := 0
	for _, p := range ordered {
		n, err := copyParticipant(src, ctx.Store, p)
		if err != nil {
			return err
		}
		intervals += n
	}
	ctx.Printf("    Copied %d participants and %d intervals\n", len(ordered), intervals)
	return nil
}

func copyParticipant(src, dst storage.Provider, p models.Participant) (int, error) {
	if err := dst.AddParticipant(p); err != nil {
		return 0, fmt.Errorf("failed to add participant %s: %w", p.ID, err)
	}
	ivs, err := src.GetIntervals(p.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to get intervals of %s: %w", p.ID, err)
	}
	if len(ivs) > 0 {
		if err := dst.ReplaceIntervals(p.ID, ivs); err != nil {
			return 0, fmt.Errorf("failed to save intervals of %s: %w", p.ID, err)
		}
	}
	if p.IsDeleted() {
		if err := dst.DeleteParticipant(p.ID); err != nil {
			return 0, fmt.Errorf("failed to delete participant %s: %w", p.ID, err)
		}
	}
	return len(ivs), nil
}
