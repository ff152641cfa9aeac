// Package snapshot reads and writes the array-of-arrays value the grid
// exchanges with its host.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"

	"github.com/dalmaki/when2meet/internal/interval"
)

var ErrMalformed = errors.New("malformed snapshot")

// Snapshot is an imported sheet together with the grid arguments it came with
type Snapshot struct {
	Intervals []interval.Interval
	Axis      interval.Axis
	Disabled  bool
	// Participant is set when the input was a wrapped export
	Participant string
}

// Parse accepts either a bare [[day, start, end], ...] array or the grid's
// argument object:
//
//	{"initial_data": [...], "start_time": 25200, "end_time": 97200, "disabled": false}
//
// Missing start_time or end_time fall back to the default axis. A missing
// disabled key means the grid is read-only, which is how the grid treats an
// omitted argument. A bare array carries no arguments and is never disabled,
// and neither is a wrapped export ({"participant": ..., "data": [...]}).
func Parse(data []byte) (Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Snapshot{}, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	snap := Snapshot{Axis: interval.DefaultAxis()}
	switch data[0] {
	case '[':
		ivs, err := parseTriples(data)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Intervals = ivs
		return snap, nil
	case '{':
	default:
		return Snapshot{}, fmt.Errorf("%w: expected an array or an object", ErrMalformed)
	}

	if v, vt, _, err := jsonparser.Get(data, "data"); err == nil && vt == jsonparser.Array {
		if snap.Intervals, err = parseTriples(v); err != nil {
			return Snapshot{}, err
		}
		snap.Participant, _ = jsonparser.GetString(data, "participant")
		return snap, nil
	}

	v, vt, _, err := jsonparser.Get(data, "initial_data")
	switch {
	case errors.Is(err, jsonparser.KeyPathNotFoundError), err == nil && vt == jsonparser.Null:
	case err != nil:
		return Snapshot{}, fmt.Errorf("%w: initial_data: %v", ErrMalformed, err)
	case vt != jsonparser.Array:
		return Snapshot{}, fmt.Errorf("%w: initial_data must be an array, got %s", ErrMalformed, vt)
	default:
		if snap.Intervals, err = parseTriples(v); err != nil {
			return Snapshot{}, err
		}
	}

	if snap.Axis.Start, err = optionalInt(data, interval.DefaultAxisStart, "start_time"); err != nil {
		return Snapshot{}, err
	}
	if snap.Axis.End, err = optionalInt(data, interval.DefaultAxisEnd, "end_time"); err != nil {
		return Snapshot{}, err
	}
	if err := snap.Axis.Validate(); err != nil {
		return Snapshot{}, err
	}

	snap.Disabled = true
	if b, err := jsonparser.GetBoolean(data, "disabled"); err == nil {
		snap.Disabled = b
	} else if !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return Snapshot{}, fmt.Errorf("%w: disabled: %v", ErrMalformed, err)
	}
	return snap, nil
}

func optionalInt(data []byte, def int64, key string) (int64, error) {
	v, vt, _, err := jsonparser.Get(data, key)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) || (err == nil && vt == jsonparser.Null) {
		return def, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	if vt != jsonparser.Number {
		return 0, fmt.Errorf("%w: %s must be a number, got %s", ErrMalformed, key, vt)
	}
	n, err := jsonparser.ParseInt(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return n, nil
}

// parseTriples decodes the array-of-arrays form. Errors name the index of
// the offending triple. Zero-length triples are kept; the store drops them
// when seeded.
func parseTriples(data []byte) ([]interval.Interval, error) {
	var (
		out      []interval.Interval
		idx      int
		firstErr error
	)
	_, err := jsonparser.ArrayEach(data, func(value []byte, vt jsonparser.ValueType, _ int, _ error) {
		defer func() { idx++ }()
		if firstErr != nil {
			return
		}
		iv, err := parseTriple(value, vt)
		if err != nil {
			firstErr = fmt.Errorf("interval %d: %w", idx, err)
			return
		}
		out = append(out, iv)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

func parseTriple(value []byte, vt jsonparser.ValueType) (interval.Interval, error) {
	if vt != jsonparser.Array {
		return interval.Interval{}, fmt.Errorf("%w: expected a [day, start, end] array, got %s", ErrMalformed, vt)
	}
	var nums []int64
	var elemErr error
	_, err := jsonparser.ArrayEach(value, func(v []byte, t jsonparser.ValueType, _ int, _ error) {
		if elemErr != nil {
			return
		}
		if t != jsonparser.Number {
			elemErr = fmt.Errorf("%w: element %d is %s, not a number", ErrMalformed, len(nums), t)
			return
		}
		n, err := jsonparser.ParseInt(v)
		if err != nil {
			elemErr = fmt.Errorf("%w: element %d: %v", ErrMalformed, len(nums), err)
			return
		}
		nums = append(nums, n)
	})
	if elemErr != nil {
		return interval.Interval{}, elemErr
	}
	if err != nil {
		return interval.Interval{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(nums) != 3 {
		return interval.Interval{}, fmt.Errorf("%w: expected 3 elements, got %d", ErrMalformed, len(nums))
	}
	day := interval.Day(nums[0])
	if !day.Valid() {
		return interval.Interval{}, fmt.Errorf("%w: %d", interval.ErrInvalidDay, nums[0])
	}
	return interval.Interval{Day: day, Start: nums[1], End: nums[2]}, nil
}

// Marshal encodes a sheet as the host value. A nil sheet encodes as [].
func Marshal(ivs []interval.Interval) ([]byte, error) {
	if ivs == nil {
		ivs = []interval.Interval{}
	}
	return json.Marshal(ivs)
}

type wrapped struct {
	Participant string          `json:"participant"`
	Data        json.RawMessage `json:"data"`
}

// MarshalWrapped encodes {"participant": name, "data": [...]}
func MarshalWrapped(participant string, ivs []interval.Interval) ([]byte, error) {
	data, err := Marshal(ivs)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wrapped{Participant: participant, Data: data})
}
