// Package branch implements a tree of in-memory, versioned bean stores.
//
// A bean is a record identified by a comparable key and holding named
// fields. Every branch but the root is forked from a parent and initially
// sees exactly what its parent saw at the moment of the fork. Changes made
// on a branch stay private until [Branch.Save] merges them into the parent
// using a three-way comparison between the branch, the parent, and the
// state the branch started from.
//
// All branches of one tree share a single lock and a single revision
// counter, so revisions of different branches are totally ordered.
package branch
