package tools

import (
	"bytes"
	"strings"
	"testing"
)

type closer struct {
	bytes.Buffer
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func TestDot(t *testing.T) {
	l, err := LoadLibrary("testdata/bounce.yaml")
	if err != nil {
		t.Fatal(err)
	}

	out := &closer{}
	if err := Dot(l, out, "height"); err != nil {
		t.Fatal(err)
	}
	if !out.closed {
		t.Fatal("not closed")
	}

	s := out.String()
	for _, want := range []string{
		`digraph G {`,
		`"ob:ball" -> "fc:brightness"`,
		`"ob:rig" -> "fc:reach"`,
		`"ob:ghost"`,
		`color="red"`,
		`type: cycles`,
		`1/2 d`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %s in\n%s", want, s)
		}
	}
}
