// Package libdiff renders differences between bean field values for
// conflict reports.
//
// Values are first rendered to text (strings verbatim, composite values as
// YAML) and then compared with a character diff.
package libdiff
