package branch

import "testing"

func create(t *testing.T, b *Branch[string], id string) {
	t.Helper()
	if err := b.CreateBean(id); err != nil {
		t.Fatalf("create %s on %s: %v", id, b.Name(), err)
	}
}

func del(t *testing.T, b *Branch[string], id string) {
	t.Helper()
	if err := b.DeleteBean(id); err != nil {
		t.Fatalf("delete %s on %s: %v", id, b.Name(), err)
	}
}

func set(t *testing.T, b *Branch[string], id, name string, v any) {
	t.Helper()
	if _, err := b.SetField(id, name, v); err != nil {
		t.Fatalf("set %s.%s on %s: %v", id, name, b.Name(), err)
	}
}

func get(t *testing.T, b *Branch[string], id, name string) any {
	t.Helper()
	v, err := b.GetField(id, name)
	if err != nil {
		t.Fatalf("get %s.%s on %s: %v", id, name, b.Name(), err)
	}
	return v
}

func save(t *testing.T, b *Branch[string]) {
	t.Helper()
	if err := b.Save(); err != nil {
		t.Fatalf("save %s: %v", b.Name(), err)
	}
}

func saveConflict(t *testing.T, b *Branch[string]) *SaveError[string] {
	t.Helper()
	err := b.Save()
	if err == nil {
		t.Fatalf("save %s: expected conflict", b.Name())
	}
	se, ok := err.(*SaveError[string])
	if !ok {
		t.Fatalf("save %s: got %T %v, want *SaveError", b.Name(), err, err)
	}
	return se
}

func wantState(t *testing.T, b *Branch[string], id string, want BeanState) {
	t.Helper()
	if got := b.State(id); got != want {
		t.Errorf("state of %s on %s: got %s, want %s", id, b.Name(), got, want)
	}
}

func wantField(t *testing.T, b *Branch[string], id, name string, want any) {
	t.Helper()
	if got := get(t, b, id, name); got != want {
		t.Errorf("%s.%s on %s: got %v, want %v", id, name, b.Name(), got, want)
	}
}
