package participants

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/dalmaki/when2meet/internal/cli"
	"github.com/dalmaki/when2meet/internal/models"
	"github.com/dalmaki/when2meet/internal/storage"
)

type ParticipantCmd struct {
	Add     AddCmd     `cmd:"" help:"Add a participant."`
	List    ListCmd    `cmd:"" help:"List participants." default:"1"`
	Delete  DeleteCmd  `cmd:"" help:"Delete a participant (soft delete)."`
	Restore RestoreCmd `cmd:"" help:"Restore a deleted participant."`
	Disable DisableCmd `cmd:"" help:"Make a participant's sheet read-only."`
	Enable  EnableCmd  `cmd:"" help:"Make a participant's sheet editable again."`
}

type AddCmd struct {
	Name     string `arg:"" help:"Participant name."`
	Disabled bool   `help:"Create the sheet read-only."`
}

func (c *AddCmd) Run(ctx *cli.Context) error {
	if !storage.ValidName(c.Name) {
		return fmt.Errorf("invalid participant name %q: must be 1-64 bytes without surrounding spaces", c.Name)
	}

	now := time.Now()
	p := models.Participant{
		ID:        uuid.NewString(),
		Name:      c.Name,
		Disabled:  c.Disabled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := ctx.WithLock(func() error {
		return ctx.Store.AddParticipant(p)
	})
	if errors.Is(err, storage.ErrDuplicateName) {
		return fmt.Errorf("a participant named %q already exists", c.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}

	ctx.Printf("Added participant: %s (ID: %s)\n", p.Name, p.ID)
	return nil
}

type ListCmd struct {
	Deleted bool `help:"Include deleted participants."`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	participants, err := ctx.Store.GetAllParticipants(c.Deleted)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}
	if len(participants) == 0 {
		ctx.Println("No participants yet. Add one with 'w2m participant add NAME'.")
		return nil
	}

	w := tabwriter.NewWriter(ctx.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tINTERVALS\tSTATUS\tID")
	for _, p := range participants {
		ivs, err := ctx.Store.GetIntervals(p.ID)
		if err != nil {
			return fmt.Errorf("failed to load intervals for %q: %w", p.Name, err)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", p.Name, len(ivs), status(p), p.ID)
	}
	return w.Flush()
}

func status(p models.Participant) string {
	var tags []string
	if p.IsDeleted() {
		tags = append(tags, "deleted")
	}
	if p.Disabled {
		tags = append(tags, "read-only")
	}
	if len(tags) == 0 {
		return "editable"
	}
	return strings.Join(tags, ",")
}

type DeleteCmd struct {
	Name string `arg:"" help:"Participant to delete."`
	Yes  bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *DeleteCmd) Run(ctx *cli.Context) error {
	p, err := ctx.Participant(c.Name)
	if err != nil {
		return err
	}

	if !c.Yes {
		ok, err := ctx.Confirm(fmt.Sprintf("Delete participant %q? Their sheet is kept and can be restored.", p.Name))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Delete cancelled.")
			return nil
		}
	}

	if err := ctx.WithLock(func() error { return ctx.Store.DeleteParticipant(p.ID) }); err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	ctx.Printf("Deleted participant: %s (ID: %s)\n", p.Name, p.ID)
	return nil
}

type RestoreCmd struct {
	Name string `arg:"" help:"Name or ID of the deleted participant."`
}

func (c *RestoreCmd) Run(ctx *cli.Context) error {
	all, err := ctx.Store.GetAllParticipants(true)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}

	// Several deleted participants may share the name; the latest deletion wins
	var target *models.Participant
	for i := range all {
		p := all[i]
		if !p.IsDeleted() || (p.Name != c.Name && p.ID != c.Name) {
			continue
		}
		if target == nil || p.DeletedAt.After(*target.DeletedAt) {
			target = &p
		}
	}
	if target == nil {
		return fmt.Errorf("no deleted participant named %q", c.Name)
	}

	err = ctx.WithLock(func() error { return ctx.Store.RestoreParticipant(target.ID) })
	if errors.Is(err, storage.ErrDuplicateName) {
		return fmt.Errorf("cannot restore %q: an active participant already uses that name", target.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to restore participant: %w", err)
	}
	ctx.Printf("Restored participant: %s (ID: %s)\n", target.Name, target.ID)
	return nil
}

type DisableCmd struct {
	Name string `arg:"" help:"Participant name."`
}

func (c *DisableCmd) Run(ctx *cli.Context) error {
	return setDisabled(ctx, c.Name, true)
}

type EnableCmd struct {
	Name string `arg:"" help:"Participant name."`
}

func (c *EnableCmd) Run(ctx *cli.Context) error {
	return setDisabled(ctx, c.Name, false)
}

func setDisabled(ctx *cli.Context, name string, disabled bool) error {
	p, err := ctx.Participant(name)
	if err != nil {
		return err
	}
	state := "editable"
	if disabled {
		state = "read-only"
	}
	if p.Disabled == disabled {
		ctx.Printf("%s is already %s\n", p.Name, state)
		return nil
	}

	p.Disabled = disabled
	p.UpdatedAt = time.Now()
	if err := ctx.WithLock(func() error { return ctx.Store.UpdateParticipant(p) }); err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	ctx.Printf("%s is now %s\n", p.Name, state)
	return nil
}
