package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	calls []string
	args  [][]string
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return nil
}

func (f *fakeExec) Grant(_ context.Context, args []string) error   { return f.record("grant", args) }
func (f *fakeExec) Tier(_ context.Context, args []string) error    { return f.record("tier", args) }
func (f *fakeExec) Special(_ context.Context, args []string) error { return f.record("special", args) }
func (f *fakeExec) Found(_ context.Context, args []string) error   { return f.record("found", args) }
func (f *fakeExec) Token(_ context.Context, args []string) error   { return f.record("token", args) }

func silence(t *testing.T) *[]string {
	t.Helper()
	var out []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		for _, v := range a {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &out
}

func TestRunREPL_Dispatch(t *testing.T) {
	silence(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"grant alice 2",
		"",
		"tier alice 3",
		"special 5 10",
		"found bob 2gb",
		"token bob",
		"foobar",
		"exit",
		"grant never reached",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, bufio.NewScanner(input))

	want := []string{"grant", "tier", "special", "found", "token"}
	if strings.Join(exec.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls mismatch: got %v want %v", exec.calls, want)
	}
	if got := strings.Join(exec.args[0], " "); got != "alice 2" {
		t.Fatalf("grant args: got %q", got)
	}
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	silence(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, bufio.NewScanner(strings.NewReader("grant a 1")))

	if len(exec.calls) != 1 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
