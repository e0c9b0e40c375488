package patch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/beanstore/branch"
)

func fixture(t *testing.T) *branch.Branch[string] {
	t.Helper()
	root := branch.New[string]("root")
	if _, err := root.SetBean("a", map[string]any{"x": 1, "y": 2}, false); err != nil {
		t.Fatal(err)
	}
	if err := root.CreateBean("b"); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestExportImport(t *testing.T) {
	root := fixture(t)
	child := root.CreateBranch("child")
	if _, err := child.SetField("a", "x", 5); err != nil {
		t.Fatal(err)
	}
	if err := child.DeleteBean("b"); err != nil {
		t.Fatal(err)
	}
	if _, err := child.SetBean("c", map[string]any{"z": "q"}, false); err != nil {
		t.Fatal(err)
	}
	changes, err := Export(child)
	if err != nil {
		t.Fatal(err)
	}
	type flat struct {
		Bean    string
		State   branch.BeanState
		Replace bool
		Patch   string
	}
	var got []flat
	for _, c := range changes {
		got = append(got, flat{c.Bean, c.State, c.Replace, string(c.Patch)})
	}
	want := []flat{
		{"a", branch.Created, false, `[{"op":"add","path":"/x","value":5}]`},
		{"b", branch.Deleted, false, ""},
		{"c", branch.Created, true, `[{"op":"add","path":"/z","value":"q"}]`},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("changes (-want +got):\n%s", diff)
	}

	sib := root.CreateBranch("sibling")
	if err := Import(sib, changes); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"x": float64(5), "y": 2}, sib.GetBean("a")); diff != "" {
		t.Errorf("a (-want +got):\n%s", diff)
	}
	if st := sib.State("b"); st != branch.Deleted {
		t.Errorf("b: got %s", st)
	}
	if diff := cmp.Diff(map[string]any{"z": "q"}, sib.GetBean("c")); diff != "" {
		t.Errorf("c (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(child.ModifiedBeans(), sib.ModifiedBeans()); diff != "" {
		t.Errorf("modified (-child +sibling):\n%s", diff)
	}
}

func TestApplyJSONPatch(t *testing.T) {
	root := fixture(t)
	p := `[{"op": "add", "path": "/w", "value": true}, {"op": "remove", "path": "/y"}]`
	if err := ApplyJSONPatch(root, "a", []byte(p)); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"x": 1, "w": true}, root.GetBean("a")); diff != "" {
		t.Errorf("a (-want +got):\n%s", diff)
	}

	if err := ApplyJSONPatch(root, "a", []byte(`[{"op": "remove", "path": "/nope"}]`)); err == nil {
		t.Error("expected error removing a missing field")
	}
	if err := ApplyJSONPatch(root, "a", []byte(`{"op": "add"}`)); err == nil {
		t.Error("expected error decoding a non-array patch")
	}
}

func TestApplyMergePatch(t *testing.T) {
	root := fixture(t)
	if err := ApplyMergePatch(root, "new", []byte(`{"k": "v", "n": null}`)); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"k": "v"}, root.GetBean("new")); diff != "" {
		t.Errorf("new (-want +got):\n%s", diff)
	}
	if err := ApplyMergePatch(root, "a", []byte(`{"y": null, "x": 1}`)); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"x": 1}, root.GetBean("a")); diff != "" {
		t.Errorf("a (-want +got):\n%s", diff)
	}
}

func TestExportNilAndReplace(t *testing.T) {
	root := branch.New[string]("root")
	if _, err := root.SetBean("1", map[string]any{"a": "x"}, false); err != nil {
		t.Fatal(err)
	}
	if _, err := root.SetBean("2", map[string]any{"k": "v", "old": true}, false); err != nil {
		t.Fatal(err)
	}
	child := root.CreateBranch("child")
	if _, err := child.SetField("1", "a", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := child.SetField("1", "a/b~c", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := child.SetBean("2", map[string]any{"k": "v"}, true); err != nil {
		t.Fatal(err)
	}
	changes, err := Export(child)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(changes))
	}
	if want := `[{"op":"add","path":"/a","value":null},{"op":"add","path":"/a~1b~0c","value":1}]`; string(changes[0].Patch) != want || changes[0].Replace {
		t.Errorf("bean 1: got replace %t patch %s", changes[0].Replace, changes[0].Patch)
	}
	if want := `[{"op":"add","path":"/k","value":"v"}]`; string(changes[1].Patch) != want || !changes[1].Replace {
		t.Errorf("bean 2: got replace %t patch %s", changes[1].Replace, changes[1].Patch)
	}

	sib := root.CreateBranch("sibling")
	if err := Import(sib, changes); err != nil {
		t.Fatal(err)
	}
	v, ok, err := sib.LookupField("1", "a")
	if err != nil || !ok || v != nil {
		t.Errorf("1.a: got %v, %t, %v; want nil, true", v, ok, err)
	}
	if diff := cmp.Diff(map[string]any{"a": nil, "a/b~c": float64(1)}, sib.GetBean("1")); diff != "" {
		t.Errorf("1 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"k": "v"}, sib.GetBean("2")); diff != "" {
		t.Errorf("2 (-want +got):\n%s", diff)
	}
	if sib.Lifecycle("2") == root.Lifecycle("2") {
		t.Error("2 was not replaced by a new incarnation")
	}
	if diff := cmp.Diff(child.ModifiedBeans(), sib.ModifiedBeans()); diff != "" {
		t.Errorf("modified (-child +sibling):\n%s", diff)
	}
}
