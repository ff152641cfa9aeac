package interval

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dalmaki/when2meet/internal/utils"
)

// Day indexes a column of the weekly grid (Monday=0 .. Sunday=6)
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DaysPerWeek is the number of columns in the grid
const DaysPerWeek = 7

var (
	// ErrInvalidDay is returned when a day falls outside 0..6
	ErrInvalidDay = errors.New("day out of range")
	// ErrInvalidInterval is returned for a stored interval with start >= end
	ErrInvalidInterval = errors.New("interval start must be before end")
)

var dayNames = [DaysPerWeek]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Valid reports whether d names one of the seven grid columns
func (d Day) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Day) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Day(%d)", int(d))
	}
	return dayNames[d]
}

var dayMap = map[string]Day{
	"mon":       Monday,
	"monday":    Monday,
	"tue":       Tuesday,
	"tuesday":   Tuesday,
	"wed":       Wednesday,
	"wednesday": Wednesday,
	"thu":       Thursday,
	"thursday":  Thursday,
	"fri":       Friday,
	"friday":    Friday,
	"sat":       Saturday,
	"saturday":  Saturday,
	"sun":       Sunday,
	"sunday":    Sunday,
}

// ParseDay parses a day name ("mon", "monday") or a column index ("0".."6").
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if d, ok := dayMap[s]; ok {
		return d, nil
	}
	// Column index, Monday=0
	n, err := strconv.Atoi(s)
	if err != nil || !Day(n).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return Day(n), nil
}

// Interval is a contiguous available span on one day. Start and End are
// seconds on the shared time axis; a stored Interval always has Start < End.
type Interval struct {
	Day   Day
	Start int64
	End   int64
}

// Normalize orders a raw (start, end) pair. It returns ok=false for a
// zero-length range, which callers treat as "no selection".
func Normalize(day Day, start, end int64) (Interval, bool) {
	if start > end {
		start, end = end, start
	}
	if start == end {
		return Interval{}, false
	}
	return Interval{Day: day, Start: start, End: end}, true
}

// Duration returns the length of the interval in seconds
func (iv Interval) Duration() int64 {
	return iv.End - iv.Start
}

// Touches reports whether o lies on the same day and overlaps or shares an
// endpoint with iv.
func (iv Interval) Touches(o Interval) bool {
	return iv.Day == o.Day && iv.Start <= o.End && o.Start <= iv.End
}

// Validate checks the stored-interval invariants
func (iv Interval) Validate() error {
	if !iv.Day.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDay, iv.Day)
	}
	if iv.Start >= iv.End {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidInterval, iv.Start, iv.End)
	}
	return nil
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s %s-%s", iv.Day, utils.FormatClock(iv.Start), utils.FormatClock(iv.End))
}

// MarshalJSON encodes the interval as the [day, start, end] triple exchanged
// with the grid host.
func (iv Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int64{int64(iv.Day), iv.Start, iv.End})
}

func (iv *Interval) UnmarshalJSON(data []byte) error {
	var triple []int64
	if err := json.Unmarshal(data, &triple); err != nil {
		return fmt.Errorf("interval must be a [day, start, end] triple: %w", err)
	}
	if len(triple) != 3 {
		return fmt.Errorf("interval must have 3 elements, got %d", len(triple))
	}
	iv.Day = Day(triple[0])
	iv.Start = triple[1]
	iv.End = triple[2]
	return nil
}

// Overlap classifies how a removal range [start, end) intersects an existing
// interval.
type Overlap int

const (
	NoOverlap Overlap = iota
	// FullContainment: the removal range covers the whole interval
	FullContainment
	// LeftOverhang: the removal range covers the interval's left part
	LeftOverhang
	// RightOverhang: the removal range covers the interval's right part
	RightOverhang
	// SplitInternal: the removal range lies strictly inside the interval
	SplitInternal
)

func (o Overlap) String() string {
	switch o {
	case NoOverlap:
		return "no_overlap"
	case FullContainment:
		return "full_containment"
	case LeftOverhang:
		return "left_overhang"
	case RightOverhang:
		return "right_overhang"
	case SplitInternal:
		return "split_internal"
	default:
		return "unknown"
	}
}

// Classify computes the overlap of the half-open range [start, end) with iv.
// start < end is assumed. An interval that only shares an endpoint with the
// range is NoOverlap.
func Classify(iv Interval, start, end int64) Overlap {
	if end <= iv.Start || iv.End <= start {
		return NoOverlap
	}
	coversLeft := start <= iv.Start
	coversRight := iv.End <= end
	switch {
	case coversLeft && coversRight:
		return FullContainment
	case coversLeft:
		return LeftOverhang
	case coversRight:
		return RightOverhang
	default:
		return SplitInternal
	}
}
