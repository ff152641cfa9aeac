// Package notifier delivers a participant's full interval sequence to the
// outside world after a mutation has been applied.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/logger"
)

// Notifier receives the complete sequence for one participant
type Notifier interface {
	Notify(ctx context.Context, participantID string, intervals []interval.Interval) error
}

// Func adapts a plain function to Notifier
type Func func(ctx context.Context, participantID string, intervals []interval.Interval) error

func (f Func) Notify(ctx context.Context, participantID string, intervals []interval.Interval) error {
	return f(ctx, participantID, intervals)
}

// Saver is the part of storage.Provider a StoreSink needs
type Saver interface {
	ReplaceIntervals(participantID string, intervals []interval.Interval) error
}

// StoreSink persists every notification
type StoreSink struct {
	store Saver
}

func NewStoreSink(store Saver) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Notify(ctx context.Context, participantID string, intervals []interval.Interval) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.ReplaceIntervals(participantID, intervals); err != nil {
		return fmt.Errorf("failed to save intervals: %w", err)
	}
	logger.Debug("Intervals saved", "participant", participantID, "count", len(intervals))
	return nil
}

// WriterSink writes each sequence as one line of [[day,start,end],...]
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Notify(ctx context.Context, participantID string, intervals []interval.Interval) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if intervals == nil {
		intervals = []interval.Interval{}
	}
	data, err := json.Marshal(intervals)
	if err != nil {
		return fmt.Errorf("failed to encode intervals: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write intervals: %w", err)
	}
	return nil
}

// Multi fans a notification out to every sink in order. All sinks are
// tried; their errors are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, participantID string, intervals []interval.Interval) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, participantID, intervals); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
