package branch

import (
	"sort"

	"github.com/signadot/beanstore/revlog"
)

// CreateBean creates bean id with no fields. It fails with a
// *DuplicateBeanError if the bean is already Created. A Deleted bean may
// be created again; the new incarnation starts without fields.
func (b *Branch[K]) CreateBean(id K) error {
	b.tree.mu.Lock()
	defer b.tree.mu.Unlock()
	return b.createBean(id)
}

func (b *Branch[K]) createBean(id K) error {
	if b.lifecycleAt(id, b.now()).State == Created {
		return &DuplicateBeanError[K]{Branch: b.name, Bean: id}
	}
	b.log.AppendFunc(revlog.BeanKey(id), func(seq revlog.Seq) any {
		return Lifecycle{State: Created, Incarnation: seq}
	})
	return nil
}

// DeleteBean deletes bean id. It fails with a *MissingBeanError unless the
// bean is Created.
func (b *Branch[K]) DeleteBean(id K) error {
	b.tree.mu.Lock()
	defer b.tree.mu.Unlock()
	return b.deleteBean(id)
}

func (b *Branch[K]) deleteBean(id K) error {
	lc := b.lifecycleAt(id, b.now())
	if lc.State != Created {
		return &MissingBeanError[K]{Branch: b.name, Bean: id, State: lc.State}
	}
	b.log.Append(revlog.BeanKey(id), Lifecycle{State: Deleted, Incarnation: lc.Incarnation})
	return nil
}

// SetField sets a field of a Created bean and returns its previous value.
// A nil value is stored as is; it does not unset the field.
func (b *Branch[K]) SetField(id K, name string, value any) (any, error) {
	b.tree.mu.Lock()
	defer b.tree.mu.Unlock()
	now := b.now()
	if st := b.lifecycleAt(id, now).State; st != Created {
		return nil, &MissingBeanError[K]{Branch: b.name, Bean: id, State: st}
	}
	prev, _ := b.fieldAt(id, name, now)
	b.log.Append(revlog.FieldKey(id, name), value)
	return prev, nil
}

// SetBean sets every field in data on bean id, creating the bean if it is
// not Created. With replace, an existing bean is deleted and created
// again first so that fields missing from data are dropped. SetBean
// reports whether it started a new incarnation.
func (b *Branch[K]) SetBean(id K, data map[string]any, replace bool) (bool, error) {
	b.tree.mu.Lock()
	defer b.tree.mu.Unlock()
	created := false
	switch b.lifecycleAt(id, b.now()).State {
	case Created:
		if replace {
			if err := b.deleteBean(id); err != nil {
				return false, err
			}
			if err := b.createBean(id); err != nil {
				return false, err
			}
			created = true
		}
	default:
		if err := b.createBean(id); err != nil {
			return false, err
		}
		created = true
	}
	names := make([]string, 0, len(data))
	for n := range data {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		b.log.Append(revlog.FieldKey(id, n), data[n])
	}
	return created, nil
}
