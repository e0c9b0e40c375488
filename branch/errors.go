package branch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/signadot/beanstore/libdiff"
)

var (
	ErrDuplicateBean = errors.New("duplicate bean")
	ErrMissingBean   = errors.New("missing bean")
	ErrConflict      = errors.New("save conflict")
	ErrNoParent      = errors.New("branch has no parent")
)

// DuplicateBeanError reports an attempt to create a bean which is
// already Created on the branch.
type DuplicateBeanError[K comparable] struct {
	Branch string
	Bean   K
}

func (e *DuplicateBeanError[K]) Error() string {
	return fmt.Sprintf("bean %v already exists on branch %q", e.Bean, e.Branch)
}

func (e *DuplicateBeanError[K]) Is(err error) bool {
	return err == ErrDuplicateBean
}

// MissingBeanError reports an operation on a bean which is not Created on
// the branch.
type MissingBeanError[K comparable] struct {
	Branch string
	Bean   K
	State  BeanState
}

func (e *MissingBeanError[K]) Error() string {
	return fmt.Sprintf("bean %v is %s on branch %q", e.Bean, e.State, e.Branch)
}

func (e *MissingBeanError[K]) Is(err error) bool {
	return err == ErrMissingBean
}

// Conflict describes one key which changed differently on a branch and
// on its parent.
//
// For lifecycle conflicts Base, Parent and Branch hold BeanState values.
// For field conflicts they hold field values, with libdiff.Absent standing
// for a field which is not set.
type Conflict[K comparable] struct {
	Bean      K
	Field     string
	Lifecycle bool

	Base   any
	Parent any
	Branch any
}

func (c Conflict[K]) String() string {
	if c.Lifecycle {
		return fmt.Sprintf("bean %v: base %s, parent %s, branch %s",
			c.Bean, c.Base, c.Parent, c.Branch)
	}
	return fmt.Sprintf("field %v.%s: base %s, parent %s, branch %s",
		c.Bean, c.Field, libdiff.Format(c.Base), libdiff.Format(c.Parent), libdiff.Format(c.Branch))
}

// Diff renders how the parent and the branch each diverged from the base.
func (c Conflict[K]) Diff() string {
	return fmt.Sprintf("parent: %s\nbranch: %s\n",
		libdiff.Values(c.Base, c.Parent), libdiff.Values(c.Base, c.Branch))
}

// PrettyDiff is Diff with ANSI colors instead of markers.
func (c Conflict[K]) PrettyDiff() string {
	return fmt.Sprintf("parent: %s\nbranch: %s\n",
		libdiff.PrettyValues(c.Base, c.Parent), libdiff.PrettyValues(c.Base, c.Branch))
}

// SaveError is returned by Save when at least one key conflicts. Nothing
// is written to the parent when a SaveError is returned.
type SaveError[K comparable] struct {
	// Branch failed to save into Parent.
	Branch *Branch[K]
	Parent *Branch[K]
	// Bean is the first bean found in conflict.
	Bean      K
	Conflicts []Conflict[K]
}

func (e *SaveError[K]) Error() string {
	buf := &strings.Builder{}
	fmt.Fprintf(buf, "cannot save branch %q into %q: %d conflict", e.Branch.name, e.Parent.name, len(e.Conflicts))
	if len(e.Conflicts) != 1 {
		buf.WriteString("s")
	}
	if len(e.Conflicts) > 0 {
		fmt.Fprintf(buf, ", first: %s", e.Conflicts[0])
	}
	return buf.String()
}

func (e *SaveError[K]) Is(err error) bool {
	return err == ErrConflict
}
