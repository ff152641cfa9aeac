// Package storagetest holds the behaviour every storage.Provider must share.
// Backend packages call Run from their own tests.
package storagetest

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/models"
	"github.com/dalmaki/when2meet/internal/storage"
)

// Factory returns a freshly initialized, empty store
type Factory func(t *testing.T) storage.Provider

var epoch = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func participant(id, name string, offset int) models.Participant {
	return models.Participant{
		ID:        id,
		Name:      name,
		CreatedAt: epoch.Add(time.Duration(offset) * time.Minute),
	}
}

// Run executes the shared provider suite
func Run(t *testing.T, newStore Factory) {
	t.Run("DefaultSettings", func(t *testing.T) { testDefaultSettings(t, newStore(t)) })
	t.Run("SaveSettings", func(t *testing.T) { testSaveSettings(t, newStore(t)) })
	t.Run("ParticipantCRUD", func(t *testing.T) { testParticipantCRUD(t, newStore(t)) })
	t.Run("DuplicateName", func(t *testing.T) { testDuplicateName(t, newStore(t)) })
	t.Run("SoftDelete", func(t *testing.T) { testSoftDelete(t, newStore(t)) })
	t.Run("ListOrder", func(t *testing.T) { testListOrder(t, newStore(t)) })
	t.Run("IntervalOrder", func(t *testing.T) { testIntervalOrder(t, newStore(t)) })
	t.Run("IntervalsUnknownParticipant", func(t *testing.T) { testIntervalsUnknownParticipant(t, newStore(t)) })
}

func testDefaultSettings(t *testing.T, s storage.Provider) {
	got, err := s.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if got != models.DefaultSettings() {
		t.Errorf("GetSettings() = %+v, want defaults %+v", got, models.DefaultSettings())
	}
}

func testSaveSettings(t *testing.T, s storage.Provider) {
	want := models.Settings{AxisStart: 9 * 3600, AxisEnd: 30 * 3600}
	if err := s.SaveSettings(want); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	got, err := s.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if got != want {
		t.Errorf("GetSettings() = %+v, want %+v", got, want)
	}
}

func testParticipantCRUD(t *testing.T, s storage.Provider) {
	p := participant("p-1", "alice", 0)
	if err := s.AddParticipant(p); err != nil {
		t.Fatalf("AddParticipant() error = %v", err)
	}

	got, err := s.GetParticipant("p-1")
	if err != nil {
		t.Fatalf("GetParticipant() error = %v", err)
	}
	if got.Name != "alice" || got.Disabled || got.IsDeleted() {
		t.Errorf("GetParticipant() = %+v", got)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, p.CreatedAt)
	}

	byName, err := s.GetParticipantByName("alice")
	if err != nil {
		t.Fatalf("GetParticipantByName() error = %v", err)
	}
	if byName.ID != "p-1" {
		t.Errorf("GetParticipantByName() ID = %q, want p-1", byName.ID)
	}

	got.Disabled = true
	got.Name = "alice b"
	if err := s.UpdateParticipant(got); err != nil {
		t.Fatalf("UpdateParticipant() error = %v", err)
	}
	updated, err := s.GetParticipant("p-1")
	if err != nil {
		t.Fatalf("GetParticipant() error = %v", err)
	}
	if !updated.Disabled || updated.Name != "alice b" {
		t.Errorf("UpdateParticipant() did not persist: %+v", updated)
	}

	if _, err := s.GetParticipant("missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetParticipant(missing) error = %v, want ErrNotFound", err)
	}
	if err := s.UpdateParticipant(participant("missing", "x", 0)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdateParticipant(missing) error = %v, want ErrNotFound", err)
	}
}

func testDuplicateName(t *testing.T, s storage.Provider) {
	if err := s.AddParticipant(participant("p-1", "alice", 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddParticipant(participant("p-2", "alice", 1)); !errors.Is(err, storage.ErrDuplicateName) {
		t.Errorf("AddParticipant(dup) error = %v, want ErrDuplicateName", err)
	}

	if err := s.AddParticipant(participant("p-3", "bob", 2)); err != nil {
		t.Fatal(err)
	}
	bob, _ := s.GetParticipant("p-3")
	bob.Name = "alice"
	if err := s.UpdateParticipant(bob); !errors.Is(err, storage.ErrDuplicateName) {
		t.Errorf("UpdateParticipant(rename to dup) error = %v, want ErrDuplicateName", err)
	}
}

func testSoftDelete(t *testing.T, s storage.Provider) {
	if err := s.AddParticipant(participant("p-1", "alice", 0)); err != nil {
		t.Fatal(err)
	}
	sheet := []interval.Interval{{Day: interval.Monday, Start: 36000, End: 43200}}
	if err := s.ReplaceIntervals("p-1", sheet); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteParticipant("p-1"); err != nil {
		t.Fatalf("DeleteParticipant() error = %v", err)
	}
	if _, err := s.GetParticipant("p-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetParticipant(deleted) error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteParticipant("p-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteParticipant(twice) error = %v, want ErrNotFound", err)
	}
	if err := s.ReplaceIntervals("p-1", nil); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ReplaceIntervals(deleted) error = %v, want ErrNotFound", err)
	}

	active, err := s.GetAllParticipants(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("GetAllParticipants(false) = %v, want none", active)
	}
	all, err := s.GetAllParticipants(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || !all[0].IsDeleted() {
		t.Errorf("GetAllParticipants(true) = %v, want the deleted participant", all)
	}

	// The name is free again while the participant is deleted
	if err := s.AddParticipant(participant("p-2", "alice", 1)); err != nil {
		t.Fatalf("AddParticipant(reused name) error = %v", err)
	}
	if err := s.RestoreParticipant("p-1"); !errors.Is(err, storage.ErrDuplicateName) {
		t.Errorf("RestoreParticipant(name taken) error = %v, want ErrDuplicateName", err)
	}
	if err := s.DeleteParticipant("p-2"); err != nil {
		t.Fatal(err)
	}

	if err := s.RestoreParticipant("p-1"); err != nil {
		t.Fatalf("RestoreParticipant() error = %v", err)
	}
	got, err := s.GetIntervals("p-1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, sheet) {
		t.Errorf("GetIntervals() after restore = %v, want %v", got, sheet)
	}
	if err := s.RestoreParticipant("p-1"); err == nil {
		t.Error("RestoreParticipant(active) should fail")
	}
}

func testListOrder(t *testing.T, s storage.Provider) {
	for i, name := range []string{"carol", "alice", "bob"} {
		if err := s.AddParticipant(participant("p-"+name, name, i)); err != nil {
			t.Fatal(err)
		}
	}
	all, err := s.GetAllParticipants(false)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, p := range all {
		names = append(names, p.Name)
	}
	if want := []string{"carol", "alice", "bob"}; !reflect.DeepEqual(names, want) {
		t.Errorf("GetAllParticipants() order = %v, want %v", names, want)
	}
}

func testIntervalOrder(t *testing.T, s storage.Provider) {
	if err := s.AddParticipant(participant("p-1", "alice", 0)); err != nil {
		t.Fatal(err)
	}

	empty, err := s.GetIntervals("p-1")
	if err != nil {
		t.Fatalf("GetIntervals() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("GetIntervals() on a new sheet = %v, want empty", empty)
	}

	// Insertion order, not sorted order
	sheet := []interval.Interval{
		{Day: interval.Saturday, Start: 49950, End: 77550},
		{Day: interval.Wednesday, Start: 44400, End: 81450},
		{Day: interval.Saturday, Start: 25200, End: 30000},
	}
	if err := s.ReplaceIntervals("p-1", sheet); err != nil {
		t.Fatalf("ReplaceIntervals() error = %v", err)
	}
	got, err := s.GetIntervals("p-1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, sheet) {
		t.Errorf("GetIntervals() = %v, want %v", got, sheet)
	}

	if err := s.ReplaceIntervals("p-1", sheet[:1]); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetIntervals("p-1")
	if !reflect.DeepEqual(got, sheet[:1]) {
		t.Errorf("GetIntervals() after shrink = %v, want %v", got, sheet[:1])
	}
}

func testIntervalsUnknownParticipant(t *testing.T, s storage.Provider) {
	if _, err := s.GetIntervals("nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetIntervals(unknown) error = %v, want ErrNotFound", err)
	}
	err := s.ReplaceIntervals("nobody", []interval.Interval{{Day: interval.Monday, Start: 0, End: 1}})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ReplaceIntervals(unknown) error = %v, want ErrNotFound", err)
	}
}
