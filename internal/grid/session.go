// Package grid connects gesture-completion events to one participant's
// interval store and forwards the resulting sequence to a notifier.
package grid

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/logger"
	"github.com/dalmaki/when2meet/internal/notifier"
)

// Gesture is a completed press-drag-release on one day column. The raw
// endpoints are in axis seconds and may lie outside the visible window.
type Gesture struct {
	Day      interval.Day
	RawStart int64
	RawEnd   int64
	Removing bool
}

// Session owns one participant's sheet for the duration of an edit
type Session struct {
	mu            sync.Mutex
	participantID string
	store         *interval.Store
	axis          interval.Axis
	notifier      notifier.Notifier
}

// NewSession binds a store to the axis it is edited on. A nil notifier is
// allowed; mutations are then only kept in memory.
func NewSession(participantID string, store *interval.Store, axis interval.Axis, n notifier.Notifier) (*Session, error) {
	if err := axis.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = &interval.Store{}
	}
	return &Session{
		participantID: participantID,
		store:         store,
		axis:          axis,
		notifier:      n,
	}, nil
}

func (s *Session) ParticipantID() string {
	return s.participantID
}

func (s *Session) Axis() interval.Axis {
	return s.axis
}

// Intervals returns a copy of the current sequence
func (s *Session) Intervals() []interval.Interval {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Intervals()
}

func (s *Session) SetDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetDisabled(disabled)
}

func (s *Session) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Disabled()
}

// Apply registers a gesture. Both endpoints are clamped into the axis before
// the store sees them. The notifier is called with the full sequence only
// when the store reports the mutation as applied.
func (s *Session) Apply(ctx context.Context, g Gesture) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, end := s.axis.Clamp(g.RawStart), s.axis.Clamp(g.RawEnd)
	applied, err := s.store.Apply(g.Day, start, end, g.Removing)
	if err != nil {
		return false, fmt.Errorf("participant %s: %w", s.participantID, err)
	}
	if !applied {
		logger.Debug("Gesture ignored", "participant", s.participantID, "day", g.Day,
			"start", start, "end", end, "disabled", s.store.Disabled())
		return false, nil
	}

	logger.Debug("Gesture applied", "participant", s.participantID, "day", g.Day,
		"start", start, "end", end, "removing", g.Removing, "count", s.store.Len())
	return true, s.notify(ctx)
}

// Clear removes everything on the given days, or on every day when none
// are given. Intervals outside the axis are removed too. One notification
// covers the whole clear.
func (s *Session) Clear(ctx context.Context, days ...interval.Day) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(days) == 0 {
		for d := interval.Monday; d <= interval.Sunday; d++ {
			days = append(days, d)
		}
	}

	before := s.store.Len()
	for _, d := range days {
		applied, err := s.store.Remove(d, math.MinInt64, math.MaxInt64)
		if err != nil {
			return false, fmt.Errorf("participant %s: %w", s.participantID, err)
		}
		if !applied {
			return false, nil
		}
	}
	if s.store.Len() == before {
		return false, nil
	}
	return true, s.notify(ctx)
}

func (s *Session) notify(ctx context.Context) error {
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.Notify(ctx, s.participantID, s.store.Intervals()); err != nil {
		return fmt.Errorf("participant %s: notify: %w", s.participantID, err)
	}
	return nil
}
