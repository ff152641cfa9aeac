package interval

import (
	"slices"
	"sort"
)

// Segment is a span of one day over which the same participants are available
type Segment struct {
	Day          Day
	Start        int64
	End          int64
	Participants []string
}

// Count returns the number of participants available during the segment
func (s Segment) Count() int {
	return len(s.Participants)
}

// Coverage overlays every participant's sheet and returns the maximal
// segments over which the set of available participants is constant. Spans
// where nobody is available are omitted. Segments are ordered by day and
// start; participant keys are sorted.
func Coverage(sheets map[string][]Interval) []Segment {
	var segments []Segment
	for d := Monday; d <= Sunday; d++ {
		segments = append(segments, dayCoverage(d, sheets)...)
	}
	return segments
}

// Common returns the spans where at least minCount participants are
// available, coalesced into disjoint intervals.
func Common(sheets map[string][]Interval, minCount int) []Interval {
	if minCount < 1 {
		minCount = 1
	}
	var out []Interval
	for _, seg := range Coverage(sheets) {
		if seg.Count() < minCount {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Day == seg.Day && out[n-1].End == seg.Start {
			out[n-1].End = seg.End
			continue
		}
		out = append(out, Interval{Day: seg.Day, Start: seg.Start, End: seg.End})
	}
	return out
}

func dayCoverage(d Day, sheets map[string][]Interval) []Segment {
	var bounds []int64
	for _, ivs := range sheets {
		for _, iv := range ivs {
			if iv.Day == d && iv.Start < iv.End {
				bounds = append(bounds, iv.Start, iv.End)
			}
		}
	}
	if len(bounds) == 0 {
		return nil
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })
	bounds = slices.Compact(bounds)

	keys := make([]string, 0, len(sheets))
	for k := range sheets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var segments []Segment
	for i := 0; i+1 < len(bounds); i++ {
		lo, hi := bounds[i], bounds[i+1]
		var who []string
		for _, k := range keys {
			for _, iv := range sheets[k] {
				if iv.Day == d && iv.Start <= lo && hi <= iv.End {
					who = append(who, k)
					break
				}
			}
		}
		if len(who) == 0 {
			continue
		}
		if n := len(segments); n > 0 && segments[n-1].End == lo && slices.Equal(segments[n-1].Participants, who) {
			segments[n-1].End = hi
			continue
		}
		segments = append(segments, Segment{Day: d, Start: lo, End: hi, Participants: who})
	}
	return segments
}
