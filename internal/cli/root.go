package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/dalmaki/when2meet/internal/backup"
	"github.com/dalmaki/when2meet/internal/config"
	"github.com/dalmaki/when2meet/internal/constants"
	apperrors "github.com/dalmaki/when2meet/internal/errors"
	"github.com/dalmaki/when2meet/internal/grid"
	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/keyring"
	"github.com/dalmaki/when2meet/internal/lock"
	"github.com/dalmaki/when2meet/internal/logger"
	"github.com/dalmaki/when2meet/internal/models"
	"github.com/dalmaki/when2meet/internal/notifier"
	"github.com/dalmaki/when2meet/internal/storage"
	"github.com/dalmaki/when2meet/internal/storage/postgres"
	"github.com/dalmaki/when2meet/internal/storage/sqlite"
)

type Context struct {
	Store     storage.Provider
	Config    config.Config
	ConfigDir string
	Out       io.Writer
	// Emit prints the full host value after every applied mutation
	Emit bool
	// Confirm asks a yes/no question; tests replace it
	Confirm func(title string) (bool, error)
}

// NewContext wires a context writing to stdout and prompting with huh
func NewContext(store storage.Provider, cfg config.Config, configDir string) *Context {
	return &Context{
		Store:     store,
		Config:    cfg,
		ConfigDir: configDir,
		Out:       os.Stdout,
		Emit:      cfg.Emit,
		Confirm:   PromptConfirm,
	}
}

// PromptConfirm asks on the terminal. It defaults to "No".
func PromptConfirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) Print(args ...interface{}) {
	fmt.Fprint(c.Out, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.Out, args...)
}

// OpenStore picks the storage backend for a configured database value: a
// PostgreSQL URL, a .json file, or a SQLite file.
func OpenStore(database string) (storage.Provider, error) {
	database = strings.TrimSpace(database)
	if database == "" {
		return nil, errors.New("no database configured")
	}

	if postgres.IsConnString(database) || strings.Contains(database, "host=") {
		connStr, source := keyring.ResolveConnectionString(database)
		logger.Debug("Using PostgreSQL storage", "source", source)
		if source == keyring.SourceConfig {
			if err := postgres.ValidateConnString(connStr); err != nil {
				if errors.Is(err, postgres.ErrEmbeddedCredentials) {
					return nil, apperrors.WithHint(err,
						"store the connection string with 'w2m keyring set', export "+constants.EnvDBConnection+", or use .pgpass")
				}
				return nil, err
			}
		}
		return postgres.New(connStr), nil
	}

	path, err := ExpandPath(database)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return storage.NewJSONStore(path), nil
	}
	return sqlite.NewStore(path), nil
}

// ExpandPath resolves a leading ~ to the home directory
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// IsSQLite reports whether the store is a SQLite file, the only backend
// with file backups.
func (c *Context) IsSQLite() bool {
	_, ok := c.Store.(*sqlite.Store)
	return ok
}

// LockPath returns the lockfile guarding the current store
func (c *Context) LockPath() string {
	if _, ok := c.Store.(*postgres.Store); ok {
		return filepath.Join(c.ConfigDir, "postgresql"+constants.LockFileSuffix)
	}
	return lock.PathFor(c.Store.GetConfigPath())
}

// WithLock runs fn while holding the single-writer lock
func (c *Context) WithLock(fn func() error) error {
	l, err := lock.Acquire(c.LockPath())
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return apperrors.WithHint(err, "wait for the other w2m command to finish, or remove "+c.LockPath()+" if it crashed")
		}
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			logger.Warn("Failed to release lock", "path", c.LockPath(), "error", err)
		}
	}()
	return fn()
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if !c.IsSQLite() {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.CreateBackup(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Participant looks up an active participant by name
func (c *Context) Participant(name string) (models.Participant, error) {
	p, err := c.Store.GetParticipantByName(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Participant{}, fmt.Errorf("no participant named %q", name)
		}
		return models.Participant{}, fmt.Errorf("failed to find participant %q: %w", name, err)
	}
	return p, nil
}

// Axis returns the grid's time axis from the stored settings
func (c *Context) Axis() (interval.Axis, error) {
	settings, err := c.Store.GetSettings()
	if err != nil {
		return interval.Axis{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings.Axis(), nil
}

// Notifier persists every applied mutation, and prints it too when Emit is set
func (c *Context) Notifier() notifier.Notifier {
	sinks := notifier.Multi{notifier.NewStoreSink(c.Store)}
	if c.Emit {
		sinks = append(sinks, notifier.NewWriterSink(c.Out))
	}
	return sinks
}

// OpenSession loads a participant's sheet into an edit session
func (c *Context) OpenSession(p models.Participant) (*grid.Session, error) {
	ivs, err := c.Store.GetIntervals(p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load intervals for %q: %w", p.Name, err)
	}
	store, err := interval.NewStore(ivs)
	if err != nil {
		return nil, apperrors.WithHint(fmt.Errorf("stored sheet of %q is invalid: %w", p.Name, err), "run 'w2m validate --fix'")
	}
	axis, err := c.Axis()
	if err != nil {
		return nil, err
	}
	session, err := grid.NewSession(p.ID, store, axis, c.Notifier())
	if err != nil {
		return nil, err
	}
	session.SetDisabled(p.Disabled)
	return session, nil
}

// Sheets returns every active participant (in creation order) with their intervals
func (c *Context) Sheets() ([]models.Participant, map[string][]interval.Interval, error) {
	participants, err := c.Store.GetAllParticipants(false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list participants: %w", err)
	}
	sheets := make(map[string][]interval.Interval, len(participants))
	for _, p := range participants {
		ivs, err := c.Store.GetIntervals(p.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load intervals for %q: %w", p.Name, err)
		}
		sheets[p.ID] = ivs
	}
	return participants, sheets, nil
}
