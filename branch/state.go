package branch

import (
	"fmt"
	"strings"

	"github.com/signadot/beanstore/revlog"
)

// BeanState is the lifecycle state of a bean as seen from one branch.
type BeanState int

const (
	// Undefined beans were never created, on this branch or any ancestor.
	Undefined BeanState = iota
	Created
	Deleted
)

var stateNames = [...]string{"UNDEFINED", "CREATED", "DELETED"}

func (s BeanState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("BeanState(%d)", int(s))
	}
	return stateNames[s]
}

// ParseBeanState parses the name of a state, ignoring case.
func ParseBeanState(v string) (BeanState, error) {
	for i, n := range stateNames {
		if strings.EqualFold(v, n) {
			return BeanState(i), nil
		}
	}
	return Undefined, fmt.Errorf("unknown bean state %q", v)
}

func (s BeanState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *BeanState) UnmarshalText(d []byte) error {
	v, err := ParseBeanState(string(d))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Lifecycle is the value recorded under a bean's lifecycle key.
//
// Incarnation is the sequence number of the revision that created the
// current (or, for Deleted, the last) incarnation of the bean. Two
// branches that independently create the same bean therefore record
// different lifecycles even though both are Created.
type Lifecycle struct {
	State       BeanState
	Incarnation revlog.Seq
}

func (l Lifecycle) String() string {
	if l.State == Undefined {
		return l.State.String()
	}
	return fmt.Sprintf("%s@%d", l.State, l.Incarnation)
}
