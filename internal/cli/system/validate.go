package system

import (
	"fmt"

	"github.com/dalmaki/when2meet/internal/cli"
	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/validation"
)

type ValidateCmd struct {
	Fix bool `help:"Repair sheets and remove duplicate participants."`
}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	sheets, axis, err := loadSheets(ctx)
	if err != nil {
		return err
	}

	result := validation.New().ValidateSheets(sheets, axis)
	if !result.HasConflicts() {
		ctx.Println("✓ No conflicts detected.")
		return nil
	}
	ctx.Print(result.FormatReport())

	if !c.Fix {
		if result.Fixable() {
			ctx.Println("\nRun 'w2m validate --fix' to repair them.")
		}
		return nil
	}
	if !result.Fixable() {
		ctx.Println("\nNothing to fix: intervals outside the axis are kept as they are.")
		return nil
	}

	ctx.PerformAutomaticBackup()

	var actions []validation.FixAction
	err = ctx.WithLock(func() error {
		actions = validation.AutoFix(result, sheets, ctx.Store.ReplaceIntervals, ctx.Store.DeleteParticipant)
		return nil
	})
	if err != nil {
		return err
	}

	ctx.Println("\nFixes applied:")
	for _, a := range actions {
		ctx.Printf("- %s\n", a.Action)
	}
	return nil
}

func loadSheets(ctx *cli.Context) ([]validation.Sheet, interval.Axis, error) {
	axis, err := ctx.Axis()
	if err != nil {
		return nil, interval.Axis{}, err
	}
	participants, byID, err := ctx.Sheets()
	if err != nil {
		return nil, interval.Axis{}, err
	}
	sheets := make([]validation.Sheet, 0, len(participants))
	for _, p := range participants {
		sheets = append(sheets, validation.Sheet{Participant: p, Intervals: byID[p.ID]})
	}
	return sheets, axis, nil
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	count, err := ctx.Store.Migrate(func(msg string) {
		ctx.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		ctx.Println("No migrations to apply. Database is up to date.")
	} else {
		ctx.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
