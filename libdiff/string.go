package libdiff

import (
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

func diffs(from, to string) []diffpatch.Diff {
	diffCfg := diffpatch.New()
	doMultiLine := strings.Contains(from, "\n") && strings.Contains(to, "\n")
	ds := diffCfg.DiffMain(from, to, doMultiLine)
	return diffCfg.DiffCleanupSemantic(ds)
}

// Strings returns to written as an edit of from, deletions as [-text-] and
// insertions as {+text+}. Equal inputs yield from unchanged.
func Strings(from, to string) string {
	var b strings.Builder
	for _, d := range diffs(from, to) {
		switch d.Type {
		case diffpatch.DiffDelete:
			b.WriteString("[-")
			b.WriteString(d.Text)
			b.WriteString("-]")
		case diffpatch.DiffInsert:
			b.WriteString("{+")
			b.WriteString(d.Text)
			b.WriteString("+}")
		case diffpatch.DiffEqual:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}

// Pretty is Strings using ANSI colors instead of markers.
func Pretty(from, to string) string {
	return diffpatch.New().DiffPrettyText(diffs(from, to))
}

// Values formats from and to and diffs the results.
func Values(from, to any) string {
	f, t := Format(from), Format(to)
	if f == t {
		return f
	}
	if !similar(f, t) {
		return "[-" + f + "-]{+" + t + "+}"
	}
	return Strings(f, t)
}

// PrettyValues is Values with ANSI colors.
func PrettyValues(from, to any) string {
	f, t := Format(from), Format(to)
	if f == t {
		return f
	}
	if !similar(f, t) {
		return diffpatch.New().DiffPrettyText([]diffpatch.Diff{
			{Type: diffpatch.DiffDelete, Text: f},
			{Type: diffpatch.DiffInsert, Text: t},
		})
	}
	return Pretty(f, t)
}

// similar reports whether a character diff of a and b is worth reading; a
// diff touching more than half of the shorter input is shown as a
// replacement.
func similar(a, b string) bool {
	size := 0
	for _, d := range diffs(a, b) {
		if d.Type != diffpatch.DiffEqual {
			size += len(d.Text)
		}
	}
	return size <= min(len(a), len(b))/2
}
