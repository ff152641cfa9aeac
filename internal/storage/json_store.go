package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/models"
)

const jsonStoreVersion = 1

// Document is the on-disk layout of a JSON store
type Document struct {
	Version      int                            `json:"version"`
	Settings     models.Settings                `json:"settings"`
	Participants map[string]models.Participant  `json:"participants"`
	Intervals    map[string][]interval.Interval `json:"intervals"` // participant id -> [[day,start,end],...]
}

// JSONStore keeps the whole grid in a single JSON file. Every mutation
// rewrites the file.
type JSONStore struct {
	path string
	doc  *Document
	now  func() time.Time
}

func NewJSONStore(configPath string) *JSONStore {
	return &JSONStore{
		path: configPath,
		now:  time.Now,
	}
}

func (s *JSONStore) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("storage already initialized at %s", s.path)
	}

	s.doc = &Document{
		Version:      jsonStoreVersion,
		Settings:     models.DefaultSettings(),
		Participants: make(map[string]models.Participant),
		Intervals:    make(map[string][]interval.Interval),
	}

	return s.save()
}

func (s *JSONStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run 'w2m init' first")
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("failed to parse storage: %w", err)
	}
	if doc.Version > jsonStoreVersion {
		return fmt.Errorf("storage version (%d) is newer than supported version (%d) - please upgrade w2m", doc.Version, jsonStoreVersion)
	}

	if doc.Participants == nil {
		doc.Participants = make(map[string]models.Participant)
	}
	if doc.Intervals == nil {
		doc.Intervals = make(map[string][]interval.Interval)
	}
	s.doc = doc

	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

// Migrate upgrades the document version in place. There is no schema to
// migrate yet, so only an unversioned file is touched.
func (s *JSONStore) Migrate(logFn func(string)) (int, error) {
	if s.doc == nil {
		return 0, ErrNotLoaded
	}
	if logFn == nil {
		logFn = func(string) {}
	}
	if s.doc.Version == jsonStoreVersion {
		logFn(fmt.Sprintf("Storage is up to date (version %d)", jsonStoreVersion))
		return 0, nil
	}
	s.doc.Version = jsonStoreVersion
	if err := s.save(); err != nil {
		return 0, err
	}
	logFn(fmt.Sprintf("Storage upgraded to version %d", jsonStoreVersion))
	return 1, nil
}

func (s *JSONStore) SchemaVersion() (int, int, error) {
	if s.doc == nil {
		return 0, 0, ErrNotLoaded
	}
	return s.doc.Version, jsonStoreVersion, nil
}

// save writes the document to a temp file and renames it over the store
func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write storage: %w", err)
	}

	return nil
}

func (s *JSONStore) GetSettings() (models.Settings, error) {
	if s.doc == nil {
		return models.Settings{}, ErrNotLoaded
	}
	return s.doc.Settings, nil
}

func (s *JSONStore) SaveSettings(settings models.Settings) error {
	if s.doc == nil {
		return ErrNotLoaded
	}
	s.doc.Settings = settings
	return s.save()
}

func (s *JSONStore) activeByName(name string) (models.Participant, bool) {
	for _, p := range s.doc.Participants {
		if p.Name == name && !p.IsDeleted() {
			return p, true
		}
	}
	return models.Participant{}, false
}

func (s *JSONStore) AddParticipant(p models.Participant) error {
	if s.doc == nil {
		return ErrNotLoaded
	}
	if _, exists := s.doc.Participants[p.ID]; exists {
		return fmt.Errorf("participant %s already exists", p.ID)
	}
	if _, taken := s.activeByName(p.Name); taken {
		return fmt.Errorf("%w: %s", ErrDuplicateName, p.Name)
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	p.UpdatedAt = p.CreatedAt
	s.doc.Participants[p.ID] = p
	return s.save()
}

func (s *JSONStore) GetParticipant(id string) (models.Participant, error) {
	if s.doc == nil {
		return models.Participant{}, ErrNotLoaded
	}

	p, ok := s.doc.Participants[id]
	if !ok || p.IsDeleted() {
		return models.Participant{}, fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func (s *JSONStore) GetParticipantByName(name string) (models.Participant, error) {
	if s.doc == nil {
		return models.Participant{}, ErrNotLoaded
	}

	p, ok := s.activeByName(name)
	if !ok {
		return models.Participant{}, fmt.Errorf("participant %q: %w", name, ErrNotFound)
	}
	return p, nil
}

func (s *JSONStore) GetAllParticipants(includeDeleted bool) ([]models.Participant, error) {
	if s.doc == nil {
		return nil, ErrNotLoaded
	}

	participants := make([]models.Participant, 0, len(s.doc.Participants))
	for _, p := range s.doc.Participants {
		if includeDeleted || !p.IsDeleted() {
			participants = append(participants, p)
		}
	}
	sort.Slice(participants, func(i, j int) bool {
		if !participants[i].CreatedAt.Equal(participants[j].CreatedAt) {
			return participants[i].CreatedAt.Before(participants[j].CreatedAt)
		}
		return participants[i].Name < participants[j].Name
	})

	return participants, nil
}

func (s *JSONStore) UpdateParticipant(p models.Participant) error {
	if s.doc == nil {
		return ErrNotLoaded
	}

	current, ok := s.doc.Participants[p.ID]
	if !ok || current.IsDeleted() {
		return fmt.Errorf("participant %s: %w", p.ID, ErrNotFound)
	}
	if other, taken := s.activeByName(p.Name); taken && other.ID != p.ID {
		return fmt.Errorf("%w: %s", ErrDuplicateName, p.Name)
	}

	p.CreatedAt = current.CreatedAt
	p.DeletedAt = current.DeletedAt
	p.UpdatedAt = s.now().UTC()
	s.doc.Participants[p.ID] = p
	return s.save()
}

func (s *JSONStore) DeleteParticipant(id string) error {
	if s.doc == nil {
		return ErrNotLoaded
	}

	p, ok := s.doc.Participants[id]
	if !ok || p.IsDeleted() {
		return fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}

	// Soft delete: the sheet stays on disk until the participant is restored
	now := s.now().UTC()
	p.DeletedAt = &now
	s.doc.Participants[id] = p
	return s.save()
}

func (s *JSONStore) RestoreParticipant(id string) error {
	if s.doc == nil {
		return ErrNotLoaded
	}

	p, ok := s.doc.Participants[id]
	if !ok {
		return fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}
	if !p.IsDeleted() {
		return fmt.Errorf("participant %s is not deleted", id)
	}
	if _, taken := s.activeByName(p.Name); taken {
		return fmt.Errorf("%w: %s", ErrDuplicateName, p.Name)
	}

	p.DeletedAt = nil
	p.UpdatedAt = s.now().UTC()
	s.doc.Participants[id] = p
	return s.save()
}

func (s *JSONStore) GetIntervals(participantID string) ([]interval.Interval, error) {
	if s.doc == nil {
		return nil, ErrNotLoaded
	}
	if _, ok := s.doc.Participants[participantID]; !ok {
		return nil, fmt.Errorf("participant %s: %w", participantID, ErrNotFound)
	}

	stored := s.doc.Intervals[participantID]
	out := make([]interval.Interval, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *JSONStore) ReplaceIntervals(participantID string, intervals []interval.Interval) error {
	if s.doc == nil {
		return ErrNotLoaded
	}

	p, ok := s.doc.Participants[participantID]
	if !ok || p.IsDeleted() {
		return fmt.Errorf("participant %s: %w", participantID, ErrNotFound)
	}

	stored := make([]interval.Interval, len(intervals))
	copy(stored, intervals)
	s.doc.Intervals[participantID] = stored

	p.UpdatedAt = s.now().UTC()
	s.doc.Participants[participantID] = p
	return s.save()
}

func (s *JSONStore) GetConfigPath() string {
	return s.path
}
