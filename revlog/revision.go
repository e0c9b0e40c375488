package revlog

import "fmt"

// Key addresses either the lifecycle of a bean or one of its fields.
type Key[K comparable] struct {
	Bean      K
	Field     string
	Lifecycle bool
}

// BeanKey returns the lifecycle key of bean id.
func BeanKey[K comparable](id K) Key[K] {
	return Key[K]{Bean: id, Lifecycle: true}
}

// FieldKey returns the key of field name on bean id.
func FieldKey[K comparable](id K, name string) Key[K] {
	return Key[K]{Bean: id, Field: name}
}

func (k Key[K]) String() string {
	if k.Lifecycle {
		return fmt.Sprintf("%v", k.Bean)
	}
	return fmt.Sprintf("%v.%s", k.Bean, k.Field)
}

// Revision is one recorded mutation. It is never modified after Append.
type Revision[K comparable] struct {
	Seq    Seq
	Key    Key[K]
	Value  any
	Branch string

	// Prev is the previous revision of Key in the same log.
	Prev *Revision[K]
	// PrevBean is the previous revision of any key of Key.Bean in the same log.
	PrevBean *Revision[K]
}

func (r *Revision[K]) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("revision %d of %s on %q", r.Seq, r.Key, r.Branch)
}
