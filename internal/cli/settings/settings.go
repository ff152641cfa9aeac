package settings

import (
	"fmt"

	"github.com/dalmaki/when2meet/internal/cli"
	"github.com/dalmaki/when2meet/internal/models"
	"github.com/dalmaki/when2meet/internal/utils"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	AxisStart *string `help:"First time on the grid axis, HH:MM or seconds."`
	AxisEnd   *string `help:"Last time on the grid axis, HH:MM (may exceed 24:00) or seconds."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if c.List {
		axis := settings.Axis()
		ctx.Println("Current Settings:")
		ctx.Printf("  Axis Start:  %s\n", utils.FormatClock(axis.Start))
		ctx.Printf("  Axis End:    %s\n", utils.FormatClock(axis.End))
		ctx.Printf("  Hour Marks:  %d\n", len(axis.HourLabels()))
		ctx.Printf("  Storage:     %s\n", ctx.Store.GetConfigPath())
		if ctx.Config.ConfigFile != "" {
			ctx.Printf("  Config File: %s\n", ctx.Config.ConfigFile)
		}
		return nil
	}

	updated := false
	if c.AxisStart != nil {
		secs, err := utils.ParseClock(*c.AxisStart)
		if err != nil {
			return fmt.Errorf("invalid axis start: %w", err)
		}
		settings.AxisStart = secs
		updated = true
	}
	if c.AxisEnd != nil {
		secs, err := utils.ParseClock(*c.AxisEnd)
		if err != nil {
			return fmt.Errorf("invalid axis end: %w", err)
		}
		settings.AxisEnd = secs
		updated = true
	}

	if !updated {
		ctx.Println("No changes specified. Use --list to view settings or flags to update them.")
		return nil
	}

	axis := settings.Axis()
	if err := axis.Validate(); err != nil {
		return err
	}
	if err := ctx.WithLock(func() error { return ctx.Store.SaveSettings(models.SettingsFromAxis(axis)) }); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	ctx.Println("Settings updated successfully.")

	// Stored intervals are kept as they are; only report what fell off the grid
	_, sheets, err := ctx.Sheets()
	if err != nil {
		return err
	}
	outside := 0
	for _, ivs := range sheets {
		for _, iv := range ivs {
			if !axis.Contains(iv) {
				outside++
			}
		}
	}
	if outside > 0 {
		ctx.Printf("⚠ %d stored interval(s) now lie outside the axis; 'w2m validate' lists them.\n", outside)
	}
	return nil
}
