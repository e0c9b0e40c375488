package libdiff

import "testing"

func TestStrings(t *testing.T) {
	tests := []struct {
		from, to, want string
	}{
		{"landing", "landing", "landing"},
		{"moon landing", "moon walk", "moon [-landing-]{+walk+}"},
		{"", "pie", "{+pie+}"},
		{"pie", "", "[-pie-]"},
	}
	for _, tt := range tests {
		if got := Strings(tt.from, tt.to); got != tt.want {
			t.Errorf("Strings(%q, %q): got %q, want %q", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestValues(t *testing.T) {
	tests := []struct {
		name     string
		from, to any
		want     string
	}{
		{"equal", "walk", "walk", "walk"},
		{"replace", "walk", "pie", "[-walk-]{+pie+}"},
		{"absent", Absent, "pie", "[-<absent>-]{+pie+}"},
		{"number", 41, 42, "[-41-]{+42+}"},
		{"similar", "the quick brown fox", "the quick brown cat", "the quick brown [-fox-]{+cat+}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Values(tt.from, tt.to); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	if got := Format(nil); got != "null" {
		t.Errorf("nil: got %q", got)
	}
	if got := Format(Absent); got != "<absent>" {
		t.Errorf("absent: got %q", got)
	}
	if got := Format(map[string]any{"a": 1}); got != "a: 1" {
		t.Errorf("map: got %q", got)
	}
	if got := Format(true); got != "true" {
		t.Errorf("bool: got %q", got)
	}
}

func TestPretty(t *testing.T) {
	tests := []struct {
		name     string
		from, to any
		want     string
	}{
		{"equal", "walk", "walk", "walk"},
		{"replace", "walk", "pie", "\x1b[31mwalk\x1b[0m\x1b[32mpie\x1b[0m"},
		{"absent", Absent, 3, "\x1b[31m<absent>\x1b[0m\x1b[32m3\x1b[0m"},
		{"similar", "the quick brown fox", "the quick brown cat", "the quick brown \x1b[31mfox\x1b[0m\x1b[32mcat\x1b[0m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrettyValues(tt.from, tt.to); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
	if got := Pretty("moon landing", "moon walk"); got != "moon \x1b[31mlanding\x1b[0m\x1b[32mwalk\x1b[0m" {
		t.Errorf("Pretty: got %q", got)
	}
}
