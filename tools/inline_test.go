package tools

import (
	"errors"
	"strings"
	"testing"
)

func TestInline(t *testing.T) {
	input := `
I like %inline("tacos"), and
I also like %inline("queso").
Both are delicious.
`
	want := `
I like TACOS, and
I also like QUESO.
Both are delicious.
`

	find := func(name string) ([]byte, error) {
		return []byte(strings.ToUpper(name)), nil
	}

	got, err := Inline([]byte(input), find)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Fatalf("got %s", got)
	}

	fail := func(name string) ([]byte, error) {
		return nil, errors.New("no " + name)
	}
	if _, err = Inline([]byte(input), fail); err == nil {
		t.Fatal("should have failed")
	}
}

func TestLoadLibraryInlines(t *testing.T) {
	l, err := LoadLibrary("testdata/bounce.yaml")
	if err != nil {
		t.Fatal(err)
	}
	c := l.Find("brightness")
	if c == nil {
		t.Fatal("no brightness")
	}
	if got := strings.TrimSpace(c.Driver.Expression); got != "gain * 10 / (1 + d)" {
		t.Fatalf("got %q", got)
	}

	if _, err = LoadLibrary("testdata/nope.yaml"); err == nil {
		t.Fatal("should have failed")
	}
}

func TestReadAllWithInlines(t *testing.T) {
	bs, err := ReadAllWithInlines(strings.NewReader(`x: '%inline("brightness.expr")'`), "testdata")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(bs), "gain * 10") {
		t.Fatalf("got %s", bs)
	}
}
