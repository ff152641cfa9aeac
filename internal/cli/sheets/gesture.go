package sheets

import (
	"context"
	"fmt"

	"github.com/dalmaki/when2meet/internal/cli"
	"github.com/dalmaki/when2meet/internal/grid"
	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/logger"
	"github.com/dalmaki/when2meet/internal/utils"
)

// GestureArgs describe one drag on a day column
type GestureArgs struct {
	Name string `arg:"" help:"Participant name."`
	Day  string `arg:"" help:"Day: mon..sun or 0..6 (Monday=0)."`
	From string `arg:"" help:"Start as HH:MM[:SS] (hours may exceed 24) or seconds."`
	To   string `arg:"" help:"End, same format as FROM. FROM and TO may be given in either order."`
}

func (a GestureArgs) gesture(removing bool) (grid.Gesture, error) {
	day, err := interval.ParseDay(a.Day)
	if err != nil {
		return grid.Gesture{}, err
	}
	from, err := utils.ParseClock(a.From)
	if err != nil {
		return grid.Gesture{}, fmt.Errorf("invalid start: %w", err)
	}
	to, err := utils.ParseClock(a.To)
	if err != nil {
		return grid.Gesture{}, fmt.Errorf("invalid end: %w", err)
	}
	return grid.Gesture{Day: day, RawStart: from, RawEnd: to, Removing: removing}, nil
}

type MarkCmd struct {
	Args GestureArgs `embed:""`
}

func (c *MarkCmd) Run(ctx *cli.Context) error {
	return applyGesture(ctx, c.Args, false)
}

type UnmarkCmd struct {
	Args GestureArgs `embed:""`
}

func (c *UnmarkCmd) Run(ctx *cli.Context) error {
	return applyGesture(ctx, c.Args, true)
}

func applyGesture(ctx *cli.Context, args GestureArgs, removing bool) error {
	g, err := args.gesture(removing)
	if err != nil {
		return err
	}

	return ctx.WithLock(func() error {
		p, err := ctx.Participant(args.Name)
		if err != nil {
			return err
		}
		session, err := ctx.OpenSession(p)
		if err != nil {
			return err
		}

		applied, err := session.Apply(context.Background(), g)
		if err != nil {
			return err
		}
		if !applied {
			if session.Disabled() {
				ctx.Printf("%s's sheet is read-only, nothing changed\n", p.Name)
			} else {
				axis := session.Axis()
				ctx.Printf("Empty range on the %s-%s axis, nothing changed\n",
					utils.FormatClock(axis.Start), utils.FormatClock(axis.End))
			}
			return nil
		}

		verb := "Marked"
		if removing {
			verb = "Unmarked"
		}
		axis := session.Axis()
		lo, hi := axis.Clamp(min(g.RawStart, g.RawEnd)), axis.Clamp(max(g.RawStart, g.RawEnd))
		logger.Info(verb, "participant", p.Name, "day", g.Day, "start", lo, "end", hi)

		dayCount := 0
		for _, iv := range session.Intervals() {
			if iv.Day == g.Day {
				dayCount++
			}
		}
		ctx.Printf("%s %s %s-%s for %s (%d interval(s) on %s)\n", verb, g.Day,
			utils.FormatClock(lo), utils.FormatClock(hi), p.Name, dayCount, g.Day)
		return nil
	})
}

type ClearCmd struct {
	Name string `arg:"" help:"Participant name."`
	Day  string `help:"Only clear this day."`
	Yes  bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *ClearCmd) Run(ctx *cli.Context) error {
	var days []interval.Day
	scope := "every day"
	if c.Day != "" {
		d, err := interval.ParseDay(c.Day)
		if err != nil {
			return err
		}
		days = append(days, d)
		scope = d.String()
	}

	if !c.Yes {
		ok, err := ctx.Confirm(fmt.Sprintf("Clear %s's availability on %s?", c.Name, scope))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Clear cancelled.")
			return nil
		}
	}

	return ctx.WithLock(func() error {
		p, err := ctx.Participant(c.Name)
		if err != nil {
			return err
		}
		session, err := ctx.OpenSession(p)
		if err != nil {
			return err
		}
		applied, err := session.Clear(context.Background(), days...)
		if err != nil {
			return err
		}
		switch {
		case applied:
			ctx.Printf("Cleared %s's availability on %s\n", p.Name, scope)
		case session.Disabled():
			ctx.Printf("%s's sheet is read-only, nothing changed\n", p.Name)
		default:
			ctx.Printf("Nothing to clear for %s on %s\n", p.Name, scope)
		}
		return nil
	})
}
