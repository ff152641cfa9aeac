package sheets

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dalmaki/when2meet/internal/cli"
	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/logger"
	"github.com/dalmaki/when2meet/internal/models"
	"github.com/dalmaki/when2meet/internal/snapshot"
)

type ExportCmd struct {
	Name   string `arg:"" optional:"" help:"Participant to export. Without it every participant is exported, one wrapped object per line."`
	Wrap   bool   `help:"Wrap the value as {\"participant\": ..., \"data\": [...]}."`
	Output string `short:"o" type:"path" help:"Write to this file instead of stdout."`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	var lines [][]byte
	if c.Name != "" {
		p, err := ctx.Participant(c.Name)
		if err != nil {
			return err
		}
		ivs, err := ctx.Store.GetIntervals(p.ID)
		if err != nil {
			return fmt.Errorf("failed to load intervals: %w", err)
		}
		line, err := encode(p.Name, ivs, c.Wrap)
		if err != nil {
			return err
		}
		lines = append(lines, line)
	} else {
		participants, sheets, err := ctx.Sheets()
		if err != nil {
			return err
		}
		for _, p := range participants {
			line, err := encode(p.Name, sheets[p.ID], true)
			if err != nil {
				return err
			}
			lines = append(lines, line)
		}
	}

	var w io.Writer = ctx.Out
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	for _, line := range lines {
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
	}
	return nil
}

func encode(name string, ivs []interval.Interval, wrap bool) ([]byte, error) {
	if wrap {
		return snapshot.MarshalWrapped(name, ivs)
	}
	return snapshot.Marshal(ivs)
}

type ImportCmd struct {
	Name string `arg:"" help:"Participant whose sheet is replaced."`
	File string `arg:"" help:"JSON file to read, or - for stdin."`
	Args bool   `help:"Also apply start_time/end_time to the grid settings and disabled to the participant."`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	var (
		data []byte
		err  error
	)
	if c.File == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(c.File)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.File, err)
	}

	snap, err := snapshot.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.File, err)
	}
	// Seeding a store coalesces an untidy snapshot into canonical form
	store, err := interval.NewStore(snap.Intervals)
	if err != nil {
		return err
	}
	ivs := store.Intervals()

	ctx.PerformAutomaticBackup()

	return ctx.WithLock(func() error {
		p, err := ctx.Participant(c.Name)
		if err != nil {
			return err
		}
		if err := ctx.Store.ReplaceIntervals(p.ID, ivs); err != nil {
			return fmt.Errorf("failed to save intervals: %w", err)
		}
		logger.Info("Imported sheet", "participant", p.Name, "read", len(snap.Intervals), "stored", len(ivs))
		ctx.Printf("Imported %d interval(s) for %s (%d after merging)\n", len(snap.Intervals), p.Name, len(ivs))

		if !c.Args {
			return nil
		}
		if err := ctx.Store.SaveSettings(models.SettingsFromAxis(snap.Axis)); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		if p.Disabled != snap.Disabled {
			p.Disabled = snap.Disabled
			p.UpdatedAt = time.Now()
			if err := ctx.Store.UpdateParticipant(p); err != nil {
				return fmt.Errorf("failed to update participant: %w", err)
			}
		}
		state := "editable"
		if snap.Disabled {
			state = "read-only"
		}
		ctx.Printf("Axis set to %s, %s is %s\n", formatSpan(snap.Axis.Start, snap.Axis.End), p.Name, state)
		return nil
	})
}
