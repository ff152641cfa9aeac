package interval

import "fmt"

// Store holds one participant's availability: a sequence of intervals across
// all days. After every operation, same-day intervals are disjoint and never
// touch, and every interval has Start < End.
//
// A Store is not safe for concurrent use; callers sharing one must serialize
// access.
type Store struct {
	intervals []Interval
	disabled  bool
}

// NewStore seeds a store from an initial snapshot. Raw triples are
// normalized (zero-length ones are dropped) and merged through Add, so an
// untidy snapshot still yields a store that satisfies the invariants.
func NewStore(seed []Interval) (*Store, error) {
	s := &Store{}
	for i, iv := range seed {
		if _, err := s.Add(iv.Day, iv.Start, iv.End); err != nil {
			return nil, fmt.Errorf("seed interval %d: %w", i, err)
		}
	}
	return s, nil
}

// SetDisabled toggles the read-only guard. While disabled, Add and Remove
// are no-ops.
func (s *Store) SetDisabled(disabled bool) {
	s.disabled = disabled
}

// Disabled reports whether the store currently rejects mutations
func (s *Store) Disabled() bool {
	return s.disabled
}

// Len returns the number of stored intervals
func (s *Store) Len() int {
	return len(s.intervals)
}

// Intervals returns a copy of the full interval sequence
func (s *Store) Intervals() []Interval {
	out := make([]Interval, len(s.intervals))
	copy(out, s.intervals)
	return out
}

// ForDay returns a copy of the intervals on day d, in store order
func (s *Store) ForDay(d Day) []Interval {
	var out []Interval
	for _, iv := range s.intervals {
		if iv.Day == d {
			out = append(out, iv)
		}
	}
	return out
}

// Apply dispatches a gesture to Add or Remove
func (s *Store) Apply(day Day, start, end int64, removing bool) (bool, error) {
	if removing {
		return s.Remove(day, start, end)
	}
	return s.Add(day, start, end)
}

// Add marks [start, end) on day as available, merging it with every
// same-day interval it overlaps or touches. The merged interval is appended
// after the untouched ones.
//
// applied is false when the call was a no-op signal: the store is disabled
// or the range has zero length. Callers only notify when applied is true.
func (s *Store) Add(day Day, start, end int64) (applied bool, err error) {
	cand, ok, err := s.prepare(day, start, end)
	if err != nil || !ok {
		return false, err
	}

	// One pass is enough: stored same-day intervals never touch each other,
	// so absorbing one cannot bring a previously skipped interval into reach.
	kept := make([]Interval, 0, len(s.intervals)+1)
	for _, iv := range s.intervals {
		if cand.Touches(iv) {
			cand.Start = min(cand.Start, iv.Start)
			cand.End = max(cand.End, iv.End)
			continue
		}
		kept = append(kept, iv)
	}
	s.intervals = append(kept, cand)
	return true, nil
}

// Remove subtracts [start, end) from day, shrinking or splitting the
// intervals it intersects. Other days are never touched.
func (s *Store) Remove(day Day, start, end int64) (applied bool, err error) {
	cut, ok, err := s.prepare(day, start, end)
	if err != nil || !ok {
		return false, err
	}

	kept := make([]Interval, 0, len(s.intervals)+1)
	var tail []Interval
	for _, iv := range s.intervals {
		if iv.Day != cut.Day {
			kept = append(kept, iv)
			continue
		}
		switch Classify(iv, cut.Start, cut.End) {
		case NoOverlap:
			kept = append(kept, iv)
		case FullContainment:
			// dropped
		case LeftOverhang:
			kept = append(kept, Interval{Day: iv.Day, Start: cut.End, End: iv.End})
		case RightOverhang:
			kept = append(kept, Interval{Day: iv.Day, Start: iv.Start, End: cut.Start})
		case SplitInternal:
			kept = append(kept, Interval{Day: iv.Day, Start: iv.Start, End: cut.Start})
			tail = append(tail, Interval{Day: iv.Day, Start: cut.End, End: iv.End})
		}
	}
	s.intervals = append(kept, tail...)
	return true, nil
}

// prepare applies the guards shared by Add and Remove. ok is false for a
// disabled store or a zero-length range.
func (s *Store) prepare(day Day, start, end int64) (Interval, bool, error) {
	if !day.Valid() {
		return Interval{}, false, fmt.Errorf("%w: %d", ErrInvalidDay, day)
	}
	if s.disabled {
		return Interval{}, false, nil
	}
	iv, ok := Normalize(day, start, end)
	return iv, ok, nil
}
