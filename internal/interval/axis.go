package interval

import (
	"errors"
	"fmt"

	"github.com/dalmaki/when2meet/internal/utils"
)

const (
	// DefaultAxisStart is 07:00
	DefaultAxisStart int64 = 7 * utils.SecondsPerHour
	// DefaultAxisEnd is 03:00 the next morning
	DefaultAxisEnd int64 = 27 * utils.SecondsPerHour
)

var ErrInvalidAxis = errors.New("invalid time axis")

// Axis is the visible window of the time axis shared by every day column
type Axis struct {
	Start int64 `json:"start_time"`
	End   int64 `json:"end_time"`
}

// DefaultAxis returns the 07:00 to 27:00 window
func DefaultAxis() Axis {
	return Axis{Start: DefaultAxisStart, End: DefaultAxisEnd}
}

func (a Axis) Validate() error {
	if a.Start < 0 || a.End < 0 {
		return fmt.Errorf("%w: bounds must not be negative", ErrInvalidAxis)
	}
	if a.Start >= a.End {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidAxis,
			utils.FormatClock(a.Start), utils.FormatClock(a.End))
	}
	return nil
}

// Clamp pins t into [Start, End]
func (a Axis) Clamp(t int64) int64 {
	return max(a.Start, min(t, a.End))
}

// Contains reports whether iv lies entirely inside the axis
func (a Axis) Contains(iv Interval) bool {
	return a.Start <= iv.Start && iv.End <= a.End
}

// HourLabels returns the whole hours marked on the axis, from the first hour
// at or after Start to the last hour at or before End.
func (a Axis) HourLabels() []int64 {
	first := (a.Start + utils.SecondsPerHour - 1) / utils.SecondsPerHour
	last := a.End / utils.SecondsPerHour
	if last < first {
		return nil
	}
	labels := make([]int64, 0, last-first+1)
	for h := first; h <= last; h++ {
		labels = append(labels, h)
	}
	return labels
}
