package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/fcurve/library"
)

const lib = `
name: ramps
objects:
  - id: ball
    props: {gain: 2}
curves:
  - name: ramp
    doc: A ramp.
    keys:
      - {time: 0, value: 0, interp: linear}
      - {time: 10, value: 10, interp: linear}
  - name: gain
    driver:
      type: expression
      expr: g * 3
      vars: [{name: g, type: single_prop, targets: [{id: ball, path: gain}]}]
`

func setup(t *testing.T) (string, *bytes.Buffer) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "lib.yaml")
	if err := os.WriteFile(filename, []byte(lib), 0644); err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	Out = out
	t.Cleanup(func() { Out = os.Stdout })
	return filename, out
}

func TestEval(t *testing.T) {
	filename, out := setup(t)
	ctx := context.Background()

	if err := run(ctx, &Evaler{}, []string{"-c", "ramp", "-f", "2.5", filename}); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "2.5" {
		t.Fatal(got)
	}

	out.Reset()
	if err := run(ctx, &Evaler{}, []string{"-f", "4", filename}); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != `{"gain":6,"ramp":4}` {
		t.Fatal(got)
	}

	if err := run(ctx, &Evaler{}, []string{"-c", "nope", filename}); err == nil {
		t.Fatal("expected an error for a missing curve")
	}
}

func TestBake(t *testing.T) {
	filename, out := setup(t)

	if err := run(context.Background(), &Baker{}, []string{"-start", "0", "-end", "2", filename}); err != nil {
		t.Fatal(err)
	}
	l, err := library.Parse(out.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	c := l.Find("ramp")
	if len(c.Keys) != 0 || len(c.Samples) != 3 {
		t.Fatal(c.Keys, c.Samples)
	}
	if c.Samples[2].Value != 2 {
		t.Fatal(c.Samples[2])
	}
	if l.Find("gain").Driver == nil {
		t.Fatal("lost the driver")
	}

	err = run(context.Background(), &Baker{}, []string{"-c", "gain", filename})
	if !errors.Is(err, NoSuchCurve) {
		t.Fatal(err)
	}
}

func TestLint(t *testing.T) {
	filename, out := setup(t)
	if err := run(context.Background(), &Linter{}, []string{filename}); err != nil {
		t.Fatal(err, out.String())
	}
	if !strings.Contains(out.String(), "driven: 1") {
		t.Fatal(out.String())
	}

	bad := strings.Replace(lib, "id: ball, path", "id: ghost, path", 1)
	if err := os.WriteFile(filename, []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}
	if err := run(context.Background(), &Linter{}, []string{filename}); err != LintFailed {
		t.Fatal(err)
	}
}

func TestGraphs(t *testing.T) {
	filename, out := setup(t)
	ctx := context.Background()

	if err := run(ctx, &Grapher{}, []string{"-highlight", "gain", filename}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"ob:ball" -> "fc:gain"`) {
		t.Fatal(out.String())
	}

	out.Reset()
	if err := run(ctx, &Mermaider{}, []string{"-no-exprs", filename}); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	if !strings.HasPrefix(s, "graph LR") || strings.Contains(s, "<code>") {
		t.Fatal(s)
	}
}

func TestHTML(t *testing.T) {
	filename, out := setup(t)
	if err := run(context.Background(), &Pager{}, []string{"-css", "a.css,b.css", filename}); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{"ramps", "a.css", "b.css", "A ramp."} {
		if !strings.Contains(s, want) {
			t.Fatalf("no %q in %s", want, s)
		}
	}
}

func TestCheck(t *testing.T) {
	filename, out := setup(t)
	session := filepath.Join(filepath.Dir(filename), "session.yaml")
	src := `
library: lib.yaml
checks:
  - {curve: ramp, frame: 3, want: 3}
  - {curve: gain, frame: 3, guard: "value == 6"}
`
	if err := os.WriteFile(session, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	if err := run(context.Background(), &Checker{}, []string{"-s", session}); err != nil {
		t.Fatal(err, out.String())
	}
	if !strings.Contains(out.String(), `"passed":2`) {
		t.Fatal(out.String())
	}

	src = strings.Replace(src, "want: 3", "want: 4", 1)
	if err := os.WriteFile(session, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	if err := run(context.Background(), &Checker{}, []string{"-s", session, filename}); err == nil {
		t.Fatal("expected a failure")
	}

	if err := run(context.Background(), &Checker{}, nil); err == nil {
		t.Fatal("expected an error without a session")
	}
}
