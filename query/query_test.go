package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/beanstore/branch"
)

func fixture(t *testing.T) *branch.Branch[string] {
	t.Helper()
	root := branch.New[string]("root")
	beans := []struct {
		id     string
		fields map[string]any
	}{
		{"apple", map[string]any{"color": "red", "weight": 120}},
		{"banana", map[string]any{"color": "yellow", "weight": 150}},
		{"cherry", map[string]any{"color": "red"}},
	}
	for _, b := range beans {
		if _, err := root.SetBean(b.id, b.fields, false); err != nil {
			t.Fatal(err)
		}
	}
	child := root.CreateBranch("child")
	if _, err := child.SetField("banana", "color", "brown"); err != nil {
		t.Fatal(err)
	}
	return child
}

func TestSelect(t *testing.T) {
	t.Setenv("BEANSTORE_QUERY_COLOR", "red")
	b := fixture(t)
	for _, c := range []struct {
		src  string
		want []string
	}{
		{`fields.color == "red"`, []string{"apple", "cherry"}},
		{`(fields.weight ?? 0) > 130`, []string{"banana"}},
		{`id startsWith "b" || id == "cherry"`, []string{"banana", "cherry"}},
		{`modified`, []string{"banana"}},
		{`"weight" in fields`, []string{"apple", "banana"}},
		{`branch == "root"`, nil},
		{`state == "CREATED" && len(fields) == 1`, []string{"cherry"}},
		{`fields.color == getenv("BEANSTORE_QUERY_COLOR")`, []string{"apple", "cherry"}},
		{`fields.color == "brown"`, []string{"banana"}},
	} {
		t.Run(c.src, func(t *testing.T) {
			q, err := Compile(c.src)
			if err != nil {
				t.Fatal(err)
			}
			got, err := Select(b, q)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{
		`fields.color ==`,
		`1 + 2`,
		`nosuchvar`,
	} {
		if _, err := Compile(src); err == nil {
			t.Errorf("%s: expected error", src)
		}
	}
}

func TestMatchRuntimeError(t *testing.T) {
	q, err := Compile(`fields.weight > 100`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := q.Match(Env{ID: "x", Fields: map[string]any{"weight": "heavy"}}); err == nil {
		t.Error("expected error comparing string to int")
	}
}
