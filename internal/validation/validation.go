package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dalmaki/when2meet/internal/constants"
	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/models"
)

// Conflict represents a problem found in stored availability data
type Conflict struct {
	Type           constants.ConflictType
	Description    string
	Participant    string              // participant name (if applicable)
	ParticipantIDs []string            // IDs involved (for auto-fixing)
	Intervals      []interval.Interval // offending intervals (if applicable)
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// FixAction represents an action taken during auto-fix
type FixAction struct {
	Action         string
	SourceConflict Conflict
}

// Sheet is one participant together with their stored intervals
type Sheet struct {
	Participant models.Participant
	Intervals   []interval.Interval
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// Fixable reports whether --fix can resolve at least one conflict
func (vr *ValidationResult) Fixable() bool {
	for _, c := range vr.Conflicts {
		if c.Type != constants.ConflictOutsideAxis {
			return true
		}
	}
	return false
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

// Validator checks stored sheets against the interval invariants
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// ValidateSheets checks every non-deleted sheet. Intervals outside the axis
// are reported but are not an invariant violation; the axis can be narrowed
// after data was entered.
func (v *Validator) ValidateSheets(sheets []Sheet, axis interval.Axis) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	result.Conflicts = append(result.Conflicts, duplicateNames(sheets)...)

	for _, sh := range sheets {
		if sh.Participant.IsDeleted() {
			continue
		}
		result.Conflicts = append(result.Conflicts, v.validateSheet(sh, axis)...)
	}
	return result
}

func (v *Validator) validateSheet(sh Sheet, axis interval.Axis) []Conflict {
	var conflicts []Conflict
	p := sh.Participant
	mk := func(t constants.ConflictType, desc string, ivs ...interval.Interval) Conflict {
		return Conflict{
			Type:           t,
			Description:    fmt.Sprintf("%s: %s", p.Name, desc),
			Participant:    p.Name,
			ParticipantIDs: []string{p.ID},
			Intervals:      ivs,
		}
	}

	var valid []interval.Interval
	for i, iv := range sh.Intervals {
		switch {
		case !iv.Day.Valid():
			conflicts = append(conflicts, mk(constants.ConflictInvalidDay,
				fmt.Sprintf("interval %d has day %d, expected 0..6", i, int(iv.Day)), iv))
		case iv.Start >= iv.End:
			conflicts = append(conflicts, mk(constants.ConflictDegenerateInterval,
				fmt.Sprintf("interval %d (%s) does not have start before end", i, iv), iv))
		default:
			valid = append(valid, iv)
			if !axis.Contains(iv) {
				conflicts = append(conflicts, mk(constants.ConflictOutsideAxis,
					fmt.Sprintf("interval %s lies outside the axis", iv), iv))
			}
		}
	}

	for i := 0; i < len(valid); i++ {
		for j := i + 1; j < len(valid); j++ {
			if valid[i].Touches(valid[j]) {
				conflicts = append(conflicts, mk(constants.ConflictOverlappingIntervals,
					fmt.Sprintf("intervals %s and %s overlap or touch", valid[i], valid[j]), valid[i], valid[j]))
			}
		}
	}
	return conflicts
}

func duplicateNames(sheets []Sheet) []Conflict {
	ids := make(map[string][]string)
	for _, sh := range sheets {
		p := sh.Participant
		if p.IsDeleted() || p.Name == "" {
			continue
		}
		ids[p.Name] = append(ids[p.Name], p.ID)
	}

	names := make([]string, 0, len(ids))
	for name, list := range ids {
		if len(list) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	conflicts := make([]Conflict, 0, len(names))
	for _, name := range names {
		conflicts = append(conflicts, Conflict{
			Type:           constants.ConflictDuplicateParticipant,
			Description:    fmt.Sprintf("Duplicate participant name: %q (IDs: %v)", name, ids[name]),
			Participant:    name,
			ParticipantIDs: ids[name],
		})
	}
	return conflicts
}

// FixSheet rebuilds a sheet so it satisfies the store invariants. Intervals
// with an invalid day are dropped, degenerate ones vanish when the store is
// seeded, and overlapping or touching ones are merged.
func FixSheet(ivs []interval.Interval) []interval.Interval {
	var keep []interval.Interval
	for _, iv := range ivs {
		if iv.Day.Valid() {
			keep = append(keep, iv)
		}
	}
	// Only invalid days make NewStore fail and those are gone
	store, _ := interval.NewStore(keep)
	return store.Intervals()
}

// AutoFix repairs every sheet with a fixable interval conflict and soft-deletes
// duplicate participants, keeping the earliest created one. Failures are
// reported in the returned actions rather than aborting the pass.
func AutoFix(result ValidationResult, sheets []Sheet,
	replace func(id string, ivs []interval.Interval) error,
	deleteFunc func(id string) error,
) []FixAction {
	actions := []FixAction{}

	byID := make(map[string]Sheet, len(sheets))
	for _, sh := range sheets {
		byID[sh.Participant.ID] = sh
	}

	fixed := make(map[string]bool)
	for _, c := range result.Conflicts {
		switch c.Type {
		case constants.ConflictInvalidDay, constants.ConflictDegenerateInterval, constants.ConflictOverlappingIntervals:
			id := c.ParticipantIDs[0]
			if fixed[id] {
				continue
			}
			fixed[id] = true
			sh := byID[id]
			repaired := FixSheet(sh.Intervals)
			if err := replace(id, repaired); err != nil {
				actions = append(actions, FixAction{
					Action:         fmt.Sprintf("Failed to repair sheet of %q: %v", sh.Participant.Name, err),
					SourceConflict: c,
				})
				continue
			}
			actions = append(actions, FixAction{
				Action: fmt.Sprintf("Rebuilt sheet of %q: %d interval(s) -> %d",
					sh.Participant.Name, len(sh.Intervals), len(repaired)),
				SourceConflict: c,
			})
		case constants.ConflictDuplicateParticipant:
			if a, ok := fixDuplicate(c, byID, deleteFunc); ok {
				actions = append(actions, a)
			}
		}
	}
	return actions
}

func fixDuplicate(c Conflict, byID map[string]Sheet, deleteFunc func(id string) error) (FixAction, bool) {
	var dups []models.Participant
	for _, id := range c.ParticipantIDs {
		if sh, ok := byID[id]; ok && !sh.Participant.IsDeleted() {
			dups = append(dups, sh.Participant)
		}
	}
	if len(dups) <= 1 {
		return FixAction{}, false
	}

	sort.Slice(dups, func(i, j int) bool {
		if !dups[i].CreatedAt.Equal(dups[j].CreatedAt) {
			return dups[i].CreatedAt.Before(dups[j].CreatedAt)
		}
		return dups[i].ID < dups[j].ID
	})

	keep := dups[0]
	var deleted, failed []string
	for _, p := range dups[1:] {
		if err := deleteFunc(p.ID); err != nil {
			failed = append(failed, p.ID)
			continue
		}
		deleted = append(deleted, p.ID)
	}

	if len(deleted) == 0 {
		return FixAction{
			Action:         fmt.Sprintf("Failed to remove duplicates of %q: %v", keep.Name, failed),
			SourceConflict: c,
		}, true
	}
	msg := fmt.Sprintf("Removed %d duplicate participant(s) named %q (kept ID: %s, removed: %v)",
		len(deleted), keep.Name, keep.ID, deleted)
	if len(failed) > 0 {
		msg += fmt.Sprintf(" (failed to remove: %v)", failed)
	}
	return FixAction{Action: msg, SourceConflict: c}, true
}
