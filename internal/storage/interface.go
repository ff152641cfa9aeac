package storage

import (
	"errors"
	"strings"

	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/models"
)

var (
	// ErrNotFound is returned when a participant does not exist or is deleted
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName is returned when an active participant already uses the name
	ErrDuplicateName = errors.New("participant name already in use")
	// ErrNotLoaded is returned when the store is used before Init or Load
	ErrNotLoaded = errors.New("storage not loaded")
)

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error
	// Migrate applies pending schema migrations and returns how many ran
	Migrate(logFn func(string)) (int, error)
	// SchemaVersion reports the applied and the newest known schema version
	SchemaVersion() (current, latest int, err error)

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Participants
	AddParticipant(models.Participant) error
	GetParticipant(id string) (models.Participant, error)
	GetParticipantByName(name string) (models.Participant, error)
	GetAllParticipants(includeDeleted bool) ([]models.Participant, error)
	UpdateParticipant(models.Participant) error
	DeleteParticipant(id string) error
	RestoreParticipant(id string) error

	// Intervals. The sequence is stored and returned in the order given.
	GetIntervals(participantID string) ([]interval.Interval, error)
	ReplaceIntervals(participantID string, intervals []interval.Interval) error

	// Utils
	GetConfigPath() string
}

// ValidName reports whether a participant name can be stored: non-empty,
// no surrounding whitespace, at most 64 bytes
func ValidName(name string) bool {
	return name != "" && strings.TrimSpace(name) == name && len(name) <= 64
}
