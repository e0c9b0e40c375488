// Package revlog provides the append-only revision history kept by each
// branch of a bean store.
//
// A Log records every lifecycle transition and field write as an immutable
// Revision. Revisions of the same key are chained newest to oldest through
// Prev, and revisions of the same bean through PrevBean, so that the value a
// key had at any earlier sequence number can be recovered by walking the
// chain. Revisions are never removed.
//
// All logs of one branch tree share a Counter so that sequence numbers are
// totally ordered across the tree.
package revlog
