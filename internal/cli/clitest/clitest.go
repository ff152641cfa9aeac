// Package clitest builds command contexts over a fresh SQLite store.
package clitest

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/dalmaki/when2meet/internal/cli"
	"github.com/dalmaki/when2meet/internal/config"
	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/models"
	"github.com/dalmaki/when2meet/internal/storage/sqlite"
)

// New initializes a SQLite store in a temp dir. Output is captured in the
// returned buffer and every confirmation is answered with yes.
func New(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	store := sqlite.NewStore(filepath.Join(dir, "w2m.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	out := &bytes.Buffer{}
	ctx := cli.NewContext(store, config.Config{Database: store.GetConfigPath()}, dir)
	ctx.Out = out
	ctx.Confirm = func(string) (bool, error) { return true, nil }
	return ctx, out
}

// AddParticipant stores a participant with the given sheet
func AddParticipant(t *testing.T, ctx *cli.Context, name string, ivs ...interval.Interval) models.Participant {
	t.Helper()
	now := time.Now()
	p := models.Participant{ID: "id-" + name, Name: name, CreatedAt: now, UpdatedAt: now}
	if err := ctx.Store.AddParticipant(p); err != nil {
		t.Fatalf("AddParticipant(%s) error = %v", name, err)
	}
	if len(ivs) > 0 {
		if err := ctx.Store.ReplaceIntervals(p.ID, ivs); err != nil {
			t.Fatalf("ReplaceIntervals(%s) error = %v", name, err)
		}
	}
	return p
}
