package sheets

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dalmaki/when2meet/internal/cli"
	"github.com/dalmaki/when2meet/internal/cli/clitest"
	"github.com/dalmaki/when2meet/internal/interval"
)

const h = 3600

func gestureArgs(name, day, from, to string) GestureArgs {
	return GestureArgs{Name: name, Day: day, From: from, To: to}
}

func intervalsOf(t *testing.T, ctx *cli.Context, name string) []interval.Interval {
	t.Helper()
	p, err := ctx.Store.GetParticipantByName(name)
	if err != nil {
		t.Fatal(err)
	}
	ivs, err := ctx.Store.GetIntervals(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	return ivs
}

func TestMarkAndUnmark(t *testing.T) {
	ctx, out := clitest.New(t)
	clitest.AddParticipant(t, ctx, "alice")

	tests := []struct {
		name     string
		cmd      interface{ Run(*cli.Context) error }
		want     []interval.Interval
		wantText string
	}{
		{
			name:     "mark",
			cmd:      &MarkCmd{Args: gestureArgs("alice", "mon", "09:00", "12:00")},
			want:     []interval.Interval{{Day: interval.Monday, Start: 9 * h, End: 12 * h}},
			wantText: "Marked Mon 09:00-12:00 for alice",
		},
		{
			name: "reversed drag touching the first merges",
			cmd:  &MarkCmd{Args: gestureArgs("alice", "0", "14:00", "12:00")},
			want: []interval.Interval{{Day: interval.Monday, Start: 9 * h, End: 14 * h}},
		},
		{
			name: "other day",
			cmd:  &MarkCmd{Args: gestureArgs("alice", "sat", "25:00", "30:00")},
			want: []interval.Interval{
				{Day: interval.Monday, Start: 9 * h, End: 14 * h},
				{Day: interval.Saturday, Start: 25 * h, End: 27 * h},
			},
			wantText: "Marked Sat 25:00-27:00",
		},
		{
			name: "unmark splits",
			cmd:  &UnmarkCmd{Args: gestureArgs("alice", "monday", "10:00", "11:00")},
			want: []interval.Interval{
				{Day: interval.Monday, Start: 9 * h, End: 10 * h},
				{Day: interval.Saturday, Start: 25 * h, End: 27 * h},
				{Day: interval.Monday, Start: 11 * h, End: 14 * h},
			},
			wantText: "Unmarked Mon 10:00-11:00",
		},
		{
			name: "range outside the axis is empty",
			cmd:  &MarkCmd{Args: gestureArgs("alice", "tue", "01:00", "02:00")},
			want: []interval.Interval{
				{Day: interval.Monday, Start: 9 * h, End: 10 * h},
				{Day: interval.Saturday, Start: 25 * h, End: 27 * h},
				{Day: interval.Monday, Start: 11 * h, End: 14 * h},
			},
			wantText: "nothing changed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			if err := tt.cmd.Run(ctx); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got := intervalsOf(t, ctx, "alice"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("stored = %v, want %v", got, tt.want)
			}
			if tt.wantText != "" && !strings.Contains(out.String(), tt.wantText) {
				t.Errorf("output = %q, want it to contain %q", out.String(), tt.wantText)
			}
		})
	}
}

func TestMarkErrors(t *testing.T) {
	ctx, _ := clitest.New(t)
	clitest.AddParticipant(t, ctx, "alice")

	for _, a := range []GestureArgs{
		gestureArgs("alice", "funday", "09:00", "10:00"),
		gestureArgs("alice", "7", "09:00", "10:00"),
		gestureArgs("alice", "mon", "nine", "10:00"),
		gestureArgs("alice", "mon", "09:00", "10:99"),
		gestureArgs("nobody", "mon", "09:00", "10:00"),
	} {
		if err := (&MarkCmd{Args: a}).Run(ctx); err == nil {
			t.Errorf("mark %+v should fail", a)
		}
	}
}

func TestMarkReadOnly(t *testing.T) {
	ctx, out := clitest.New(t)
	p := clitest.AddParticipant(t, ctx, "alice", interval.Interval{Day: interval.Friday, Start: 9 * h, End: 10 * h})
	p.Disabled = true
	if err := ctx.Store.UpdateParticipant(p); err != nil {
		t.Fatal(err)
	}

	if err := (&MarkCmd{Args: gestureArgs("alice", "fri", "10:00", "11:00")}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if got := intervalsOf(t, ctx, "alice"); len(got) != 1 {
		t.Errorf("read-only sheet changed: %v", got)
	}
	if !strings.Contains(out.String(), "read-only") {
		t.Errorf("output = %q", out.String())
	}
}

func TestMarkEmit(t *testing.T) {
	ctx, out := clitest.New(t)
	clitest.AddParticipant(t, ctx, "alice")
	ctx.Emit = true

	if err := (&MarkCmd{Args: gestureArgs("alice", "wed", "44400", "81450")}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if first := strings.SplitN(out.String(), "\n", 2)[0]; first != "[[2,44400,81450]]" {
		t.Errorf("emitted %q, want [[2,44400,81450]]", first)
	}
}

func TestMarkLeavesNoLock(t *testing.T) {
	ctx, _ := clitest.New(t)
	clitest.AddParticipant(t, ctx, "alice")
	if err := (&MarkCmd{Args: gestureArgs("alice", "mon", "09:00", "10:00")}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(ctx.LockPath()); !os.IsNotExist(err) {
		t.Errorf("lockfile left behind: %v", err)
	}
}

func TestClearCmd(t *testing.T) {
	ctx, out := clitest.New(t)
	clitest.AddParticipant(t, ctx, "alice",
		interval.Interval{Day: interval.Monday, Start: 9 * h, End: 10 * h},
		interval.Interval{Day: interval.Tuesday, Start: 9 * h, End: 10 * h},
	)

	if err := (&ClearCmd{Name: "alice", Day: "tue", Yes: true}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	want := []interval.Interval{{Day: interval.Monday, Start: 9 * h, End: 10 * h}}
	if got := intervalsOf(t, ctx, "alice"); !reflect.DeepEqual(got, want) {
		t.Errorf("after clear --day = %v, want %v", got, want)
	}

	out.Reset()
	if err := (&ClearCmd{Name: "alice", Day: "tue", Yes: true}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Nothing to clear") {
		t.Errorf("output = %q", out.String())
	}

	ctx.Confirm = func(string) (bool, error) { return false, nil }
	if err := (&ClearCmd{Name: "alice"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if got := intervalsOf(t, ctx, "alice"); len(got) != 1 {
		t.Errorf("cancelled clear changed the sheet: %v", got)
	}

	ctx.Confirm = func(string) (bool, error) { return true, nil }
	if err := (&ClearCmd{Name: "alice"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if got := intervalsOf(t, ctx, "alice"); len(got) != 0 {
		t.Errorf("after clear = %v, want empty", got)
	}
}

func TestShowCmd(t *testing.T) {
	ctx, out := clitest.New(t)
	clitest.AddParticipant(t, ctx, "alice",
		interval.Interval{Day: interval.Sunday, Start: 13 * h, End: 14 * h},
		interval.Interval{Day: interval.Sunday, Start: 9 * h, End: 10 * h},
	)
	clitest.AddParticipant(t, ctx, "bob")

	if err := (&ShowCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{"Axis 07:00-27:00", "alice", "09:00-10:00, 13:00-14:00", "total 2h", "bob", "no availability"} {
		if !strings.Contains(text, want) {
			t.Errorf("show output missing %q:\n%s", want, text)
		}
	}

	out.Reset()
	if err := (&ShowCmd{Name: "bob"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "alice") {
		t.Errorf("show bob printed alice:\n%s", out.String())
	}
}

func TestOverlapCmd(t *testing.T) {
	ctx, out := clitest.New(t)
	clitest.AddParticipant(t, ctx, "alice", interval.Interval{Day: interval.Thursday, Start: 9 * h, End: 12 * h})
	clitest.AddParticipant(t, ctx, "bob", interval.Interval{Day: interval.Thursday, Start: 11 * h, End: 15 * h})

	if err := (&OverlapCmd{Detail: true}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{"at least 2 of 2", "11:00-12:00 (1h)", "alice, bob"} {
		if !strings.Contains(text, want) {
			t.Errorf("overlap output missing %q:\n%s", want, text)
		}
	}

	out.Reset()
	if err := (&OverlapCmd{Min: 1}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "09:00-15:00 (6h)") {
		t.Errorf("overlap --min 1 output:\n%s", out.String())
	}
}

func TestExportImport(t *testing.T) {
	ctx, out := clitest.New(t)
	clitest.AddParticipant(t, ctx, "alice",
		interval.Interval{Day: interval.Saturday, Start: 49950, End: 77550},
		interval.Interval{Day: interval.Wednesday, Start: 44400, End: 81450},
	)
	clitest.AddParticipant(t, ctx, "bob")

	if err := (&ExportCmd{Name: "alice"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "[[5,49950,77550],[2,44400,81450]]\n" {
		t.Errorf("export = %q", got)
	}

	out.Reset()
	if err := (&ExportCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || lines[1] != `{"participant":"bob","data":[]}` {
		t.Errorf("export all = %q", lines)
	}

	file := filepath.Join(t.TempDir(), "alice.json")
	if err := (&ExportCmd{Name: "alice", Wrap: true, Output: file}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := (&ImportCmd{Name: "bob", File: file}).Run(ctx); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if got, want := intervalsOf(t, ctx, "bob"), intervalsOf(t, ctx, "alice"); !reflect.DeepEqual(got, want) {
		t.Errorf("imported %v, want %v", got, want)
	}
}

func TestImportArgs(t *testing.T) {
	ctx, _ := clitest.New(t)
	clitest.AddParticipant(t, ctx, "alice")

	file := filepath.Join(t.TempDir(), "args.json")
	body := `{"initial_data": [[0, 28800, 32400], [0, 32400, 36000], [1, 5, 5]], "start_time": 28800, "end_time": 72000}`
	if err := os.WriteFile(file, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	if err := (&ImportCmd{Name: "alice", File: file, Args: true}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	want := []interval.Interval{{Day: interval.Monday, Start: 28800, End: 36000}}
	if got := intervalsOf(t, ctx, "alice"); !reflect.DeepEqual(got, want) {
		t.Errorf("imported %v, want %v", got, want)
	}
	axis, err := ctx.Axis()
	if err != nil {
		t.Fatal(err)
	}
	if axis != (interval.Axis{Start: 28800, End: 72000}) {
		t.Errorf("axis = %+v", axis)
	}
	p, _ := ctx.Store.GetParticipantByName("alice")
	if !p.Disabled {
		t.Error("missing disabled should make the sheet read-only")
	}
}

func TestImportRejectsMalformed(t *testing.T) {
	ctx, _ := clitest.New(t)
	clitest.AddParticipant(t, ctx, "alice", interval.Interval{Day: interval.Monday, Start: 9 * h, End: 10 * h})

	file := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(file, []byte(`[[0, 1, 2], [9, 1, 2]]`), 0600); err != nil {
		t.Fatal(err)
	}
	err := (&ImportCmd{Name: "alice", File: file}).Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "interval 1") {
		t.Errorf("import error = %v", err)
	}
	if got := intervalsOf(t, ctx, "alice"); len(got) != 1 {
		t.Errorf("failed import changed the sheet: %v", got)
	}
}
