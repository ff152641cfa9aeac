package sheets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dalmaki/when2meet/internal/cli"
	"github.com/dalmaki/when2meet/internal/interval"
	"github.com/dalmaki/when2meet/internal/models"
	"github.com/dalmaki/when2meet/internal/utils"
)

var (
	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	dayStyle = lipgloss.NewStyle().
			Bold(true).
			Width(5)
)

// dayLabel renders a day header. Weekends keep the grid's colours.
func dayLabel(d interval.Day) string {
	switch d {
	case interval.Saturday:
		return dayStyle.Foreground(lipgloss.Color("#4169E1")).Render(d.String())
	case interval.Sunday:
		return dayStyle.Foreground(lipgloss.Color("#DC143C")).Render(d.String())
	default:
		return dayStyle.Render(d.String())
	}
}

func formatSpan(start, end int64) string {
	return utils.FormatClock(start) + "-" + utils.FormatClock(end)
}

type ShowCmd struct {
	Name string `arg:"" optional:"" help:"Only show this participant."`
}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	var participants []models.Participant
	if c.Name != "" {
		p, err := ctx.Participant(c.Name)
		if err != nil {
			return err
		}
		participants = append(participants, p)
	} else {
		all, err := ctx.Store.GetAllParticipants(false)
		if err != nil {
			return fmt.Errorf("failed to list participants: %w", err)
		}
		participants = all
	}

	if len(participants) == 0 {
		ctx.Println("No participants yet.")
		return nil
	}

	axis, err := ctx.Axis()
	if err != nil {
		return err
	}
	ctx.Println(dimStyle.Render(fmt.Sprintf("Axis %s", formatSpan(axis.Start, axis.End))))

	for i, p := range participants {
		if i > 0 {
			ctx.Println()
		}
		ivs, err := ctx.Store.GetIntervals(p.ID)
		if err != nil {
			return fmt.Errorf("failed to load intervals for %q: %w", p.Name, err)
		}
		renderSheet(ctx, p, ivs)
	}
	return nil
}

func renderSheet(ctx *cli.Context, p models.Participant, ivs []interval.Interval) {
	header := nameStyle.Render(p.Name)
	if p.Disabled {
		header += " " + dimStyle.Render("(read-only)")
	}
	ctx.Println(header)

	if len(ivs) == 0 {
		ctx.Println(dimStyle.Render("  no availability"))
		return
	}

	var total int64
	for d := interval.Monday; d <= interval.Sunday; d++ {
		var spans []interval.Interval
		for _, iv := range ivs {
			if iv.Day == d {
				spans = append(spans, iv)
			}
		}
		if len(spans) == 0 {
			continue
		}
		sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

		parts := make([]string, len(spans))
		for i, iv := range spans {
			parts[i] = formatSpan(iv.Start, iv.End)
			total += iv.Duration()
		}
		ctx.Printf("  %s %s\n", dayLabel(d), strings.Join(parts, ", "))
	}
	ctx.Println(dimStyle.Render("  total " + utils.FormatDuration(total)))
}

type OverlapCmd struct {
	Min    int  `help:"Minimum number of available participants (default: everyone)."`
	Detail bool `help:"List every segment with who is available."`
}

func (c *OverlapCmd) Run(ctx *cli.Context) error {
	participants, byID, err := ctx.Sheets()
	if err != nil {
		return err
	}
	if len(participants) == 0 {
		ctx.Println("No participants yet.")
		return nil
	}

	sheets := make(map[string][]interval.Interval, len(participants))
	for _, p := range participants {
		sheets[p.Name] = byID[p.ID]
	}

	need := c.Min
	if need <= 0 || need > len(participants) {
		need = len(participants)
	}

	common := interval.Common(sheets, need)
	ctx.Println(nameStyle.Render(fmt.Sprintf("Available: at least %d of %d", need, len(participants))))
	if len(common) == 0 {
		ctx.Println(dimStyle.Render("  no common time"))
	}
	for _, iv := range common {
		ctx.Printf("  %s %s (%s)\n", dayLabel(iv.Day), formatSpan(iv.Start, iv.End), utils.FormatDuration(iv.Duration()))
	}

	if !c.Detail {
		return nil
	}
	ctx.Println()
	ctx.Println(nameStyle.Render("Segments"))
	for _, seg := range interval.Coverage(sheets) {
		ctx.Printf("  %s %s %d/%d %s\n", dayLabel(seg.Day), formatSpan(seg.Start, seg.End),
			seg.Count(), len(participants), strings.Join(seg.Participants, ", "))
	}
	return nil
}
