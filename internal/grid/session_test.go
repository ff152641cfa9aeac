package grid

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/notifier"
)

type capture struct {
	calls [][]interval.Interval
	err   error
}

func (c *capture) Notify(ctx context.Context, id string, ivs []interval.Interval) error {
	c.calls = append(c.calls, ivs)
	return c.err
}

const h = 3600

func newTestSession(t *testing.T, seed []interval.Interval, n notifier.Notifier) *Session {
	t.Helper()
	store, err := interval.NewStore(seed)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewSession("p-1", store, interval.DefaultAxis(), n)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestApplyNotifiesFullSequence(t *testing.T) {
	c := &capture{}
	s := newTestSession(t, []interval.Interval{{Day: interval.Tuesday, Start: 9 * h, End: 10 * h}}, c)

	applied, err := s.Apply(context.Background(), Gesture{Day: interval.Monday, RawStart: 12 * h, RawEnd: 14 * h})
	if err != nil || !applied {
		t.Fatalf("Apply() = %v, %v", applied, err)
	}
	if len(c.calls) != 1 {
		t.Fatalf("notifier called %d times, want 1", len(c.calls))
	}
	want := []interval.Interval{
		{Day: interval.Tuesday, Start: 9 * h, End: 10 * h},
		{Day: interval.Monday, Start: 12 * h, End: 14 * h},
	}
	if !reflect.DeepEqual(c.calls[0], want) {
		t.Errorf("notified %v, want %v", c.calls[0], want)
	}
}

func TestApplyClampsIntoAxis(t *testing.T) {
	c := &capture{}
	s := newTestSession(t, nil, c)

	// Dragged above the first row and past the last one
	if _, err := s.Apply(context.Background(), Gesture{Day: interval.Friday, RawStart: 28 * h, RawEnd: 3 * h}); err != nil {
		t.Fatal(err)
	}
	want := []interval.Interval{{Day: interval.Friday, Start: 7 * h, End: 27 * h}}
	if got := s.Intervals(); !reflect.DeepEqual(got, want) {
		t.Errorf("Intervals() = %v, want %v", got, want)
	}
}

func TestApplyWhollyOutsideAxisIsDegenerate(t *testing.T) {
	c := &capture{}
	s := newTestSession(t, nil, c)

	applied, err := s.Apply(context.Background(), Gesture{Day: interval.Friday, RawStart: 1 * h, RawEnd: 2 * h})
	if err != nil {
		t.Fatal(err)
	}
	if applied || len(c.calls) != 0 {
		t.Errorf("gesture clamped to zero length should not notify (applied=%v, calls=%d)", applied, len(c.calls))
	}
}

func TestApplyRemoving(t *testing.T) {
	c := &capture{}
	s := newTestSession(t, []interval.Interval{{Day: interval.Monday, Start: 9 * h, End: 17 * h}}, c)

	applied, err := s.Apply(context.Background(), Gesture{Day: interval.Monday, RawStart: 12 * h, RawEnd: 13 * h, Removing: true})
	if err != nil || !applied {
		t.Fatalf("Apply() = %v, %v", applied, err)
	}
	want := []interval.Interval{
		{Day: interval.Monday, Start: 9 * h, End: 12 * h},
		{Day: interval.Monday, Start: 13 * h, End: 17 * h},
	}
	if !reflect.DeepEqual(c.calls[0], want) {
		t.Errorf("notified %v, want %v", c.calls[0], want)
	}
}

func TestApplyDisabledNeverNotifies(t *testing.T) {
	c := &capture{}
	seed := []interval.Interval{{Day: interval.Monday, Start: 9 * h, End: 17 * h}}
	s := newTestSession(t, seed, c)
	s.SetDisabled(true)

	for _, g := range []Gesture{
		{Day: interval.Monday, RawStart: 8 * h, RawEnd: 20 * h},
		{Day: interval.Monday, RawStart: 10 * h, RawEnd: 11 * h, Removing: true},
	} {
		applied, err := s.Apply(context.Background(), g)
		if err != nil || applied {
			t.Errorf("Apply(%+v) = %v, %v; want no-op", g, applied, err)
		}
	}
	if len(c.calls) != 0 {
		t.Errorf("disabled session notified %d times", len(c.calls))
	}
	if !reflect.DeepEqual(s.Intervals(), seed) {
		t.Errorf("disabled session changed: %v", s.Intervals())
	}
	if !s.Disabled() {
		t.Error("Disabled() = false")
	}
}

func TestApplyInvalidDay(t *testing.T) {
	s := newTestSession(t, nil, &capture{})
	_, err := s.Apply(context.Background(), Gesture{Day: interval.Day(9), RawStart: 8 * h, RawEnd: 9 * h})
	if !errors.Is(err, interval.ErrInvalidDay) {
		t.Errorf("Apply() error = %v, want ErrInvalidDay", err)
	}
}

func TestApplyNotifierError(t *testing.T) {
	c := &capture{err: errors.New("sink down")}
	s := newTestSession(t, nil, c)

	applied, err := s.Apply(context.Background(), Gesture{Day: interval.Monday, RawStart: 8 * h, RawEnd: 9 * h})
	if !applied {
		t.Error("mutation should still be reported as applied")
	}
	if !errors.Is(err, c.err) {
		t.Errorf("Apply() error = %v, want %v", err, c.err)
	}
	if len(s.Intervals()) != 1 {
		t.Error("store should keep the mutation when notification fails")
	}
}

func TestClear(t *testing.T) {
	seed := []interval.Interval{
		{Day: interval.Monday, Start: 9 * h, End: 10 * h},
		{Day: interval.Monday, Start: 2 * h, End: 3 * h}, // outside the axis
		{Day: interval.Wednesday, Start: 9 * h, End: 10 * h},
	}

	t.Run("one day", func(t *testing.T) {
		c := &capture{}
		s := newTestSession(t, seed, c)
		applied, err := s.Clear(context.Background(), interval.Monday)
		if err != nil || !applied {
			t.Fatalf("Clear() = %v, %v", applied, err)
		}
		want := []interval.Interval{{Day: interval.Wednesday, Start: 9 * h, End: 10 * h}}
		if !reflect.DeepEqual(s.Intervals(), want) {
			t.Errorf("Intervals() = %v, want %v", s.Intervals(), want)
		}
		if len(c.calls) != 1 {
			t.Errorf("notified %d times, want 1", len(c.calls))
		}
	})

	t.Run("all days", func(t *testing.T) {
		c := &capture{}
		s := newTestSession(t, seed, c)
		if _, err := s.Clear(context.Background()); err != nil {
			t.Fatal(err)
		}
		if len(s.Intervals()) != 0 || len(c.calls) != 1 {
			t.Errorf("Intervals() = %v, calls = %d", s.Intervals(), len(c.calls))
		}
	})

	t.Run("nothing to clear", func(t *testing.T) {
		c := &capture{}
		s := newTestSession(t, seed, c)
		applied, err := s.Clear(context.Background(), interval.Sunday)
		if err != nil || applied || len(c.calls) != 0 {
			t.Errorf("Clear(empty day) = %v, %v, calls %d", applied, err, len(c.calls))
		}
	})

	t.Run("disabled", func(t *testing.T) {
		c := &capture{}
		s := newTestSession(t, seed, c)
		s.SetDisabled(true)
		applied, err := s.Clear(context.Background())
		if err != nil || applied || len(s.Intervals()) != 3 {
			t.Errorf("Clear(disabled) = %v, %v, left %v", applied, err, s.Intervals())
		}
	})
}

func TestNewSessionRejectsBadAxis(t *testing.T) {
	if _, err := NewSession("p-1", nil, interval.Axis{Start: 10, End: 5}, nil); !errors.Is(err, interval.ErrInvalidAxis) {
		t.Errorf("NewSession() error = %v, want ErrInvalidAxis", err)
	}
}

func TestSessionWithoutNotifier(t *testing.T) {
	s, err := NewSession("p-1", nil, interval.DefaultAxis(), nil)
	if err != nil {
		t.Fatal(err)
	}
	applied, err := s.Apply(context.Background(), Gesture{Day: interval.Sunday, RawStart: 8 * h, RawEnd: 9 * h})
	if err != nil || !applied {
		t.Errorf("Apply() = %v, %v", applied, err)
	}
	if s.ParticipantID() != "p-1" || s.Axis() != interval.DefaultAxis() {
		t.Error("accessors returned unexpected values")
	}
}
