// Package lock guards a grid database with a single-writer lockfile placed
// next to it. The file records "pid|executable"; a lock whose process is
// gone, or whose pid now belongs to a different executable, is stale and
// gets taken over.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ps "github.com/mitchellh/go-ps"

	"github.com/dalmaki/when2meet/internal/constants"
	"github.com/dalmaki/when2meet/internal/logger"
)

var (
	// ErrLocked is returned when another live w2m process holds the lock
	ErrLocked = errors.New("grid is locked by another w2m process")

	findProcessFunc = ps.FindProcess
	getpid          = os.Getpid
)

// Lock is a held lockfile
type Lock struct {
	path    string
	content string
}

// Holder describes the process recorded in a lockfile
type Holder struct {
	PID        int
	Executable string
}

// PathFor returns the lockfile path guarding dbPath
func PathFor(dbPath string) string {
	return dbPath + constants.LockFileSuffix
}

func selfExecutable() string {
	if p, err := findProcessFunc(getpid()); err == nil && p != nil {
		return p.Executable()
	}
	return filepath.Base(os.Args[0])
}

func parse(content string) (Holder, error) {
	parts := strings.Split(strings.TrimSpace(content), "|")
	if len(parts) != 2 {
		return Holder{}, errors.New("lockfile is malformed")
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 {
		return Holder{}, errors.New("invalid process ID in lockfile")
	}
	if strings.TrimSpace(parts[1]) == "" {
		return Holder{}, errors.New("executable in lockfile is empty")
	}
	return Holder{PID: pid, Executable: parts[1]}, nil
}

// alive reports whether the recorded holder is still running
func (h Holder) alive() bool {
	process, err := findProcessFunc(h.PID)
	if err != nil || process == nil {
		return false
	}
	return process.Executable() == h.Executable
}

// Inspect reads the lockfile at path. It returns the holder and whether that
// holder is still running; a missing file yields os.ErrNotExist.
func Inspect(path string) (Holder, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Holder{}, false, err
	}
	h, err := parse(string(data))
	if err != nil {
		return Holder{}, false, err
	}
	return h, h.alive(), nil
}

// Acquire takes the lock at path, replacing a stale one
func Acquire(path string) (*Lock, error) {
	content := fmt.Sprintf("%d|%s", getpid(), selfExecutable())

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			_, werr := f.WriteString(content)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("failed to write lockfile: %w", errors.Join(werr, cerr))
			}
			logger.Debug("Lock acquired", "path", path)
			return &Lock{path: path, content: content}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lockfile: %w", err)
		}

		holder, alive, err := Inspect(path)
		if err == nil && alive && holder.PID != getpid() {
			return nil, fmt.Errorf("%w (pid %d)", ErrLocked, holder.PID)
		}

		logger.Warn("Taking over stale lock", "path", path, "holder", holder.PID, "reason", err)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lockfile: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: lockfile keeps reappearing at %s", ErrLocked, path)
}

// Release removes the lockfile if it is still ours
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if string(data) != l.content {
		logger.Warn("Lockfile changed hands, leaving it in place", "path", l.path)
		return nil
	}
	return os.Remove(l.path)
}
