package branch

import (
	"github.com/signadot/beanstore/debug"
	"github.com/signadot/beanstore/revlog"
)

// local returns the revision of key live on b at seq, if any.
func (b *Branch[K]) local(key revlog.Key[K], seq revlog.Seq) *revlog.Revision[K] {
	r := b.log.LastAt(key, seq)
	if r == nil || r.Seq <= b.epochAt(seq).start {
		return nil
	}
	return r
}

func (b *Branch[K]) lifecycleAt(id K, seq revlog.Seq) Lifecycle {
	if r := b.local(revlog.BeanKey(id), seq); r != nil {
		return r.Value.(Lifecycle)
	}
	if b.parent == nil {
		return Lifecycle{}
	}
	base := b.epochAt(seq).base
	if debug.Read() {
		debug.Logf("%s: lifecycle of %v at %d read from %q at %d\n", b.name, id, seq, b.parent.name, base)
	}
	return b.parent.lifecycleAt(id, base)
}

// fieldAt returns the value of a field at seq and whether it is set. Only
// Created beans have fields.
func (b *Branch[K]) fieldAt(id K, name string, seq revlog.Seq) (any, bool) {
	lr := b.local(revlog.BeanKey(id), seq)
	if lr != nil && lr.Value.(Lifecycle).State != Created {
		return nil, false
	}
	fr := b.local(revlog.FieldKey(id, name), seq)
	if fr != nil && (lr == nil || fr.Seq > lr.Seq) {
		return fr.Value, true
	}
	// a local lifecycle revision starts a fresh incarnation
	if lr != nil || b.parent == nil {
		return nil, false
	}
	base := b.epochAt(seq).base
	if debug.Read() {
		debug.Logf("%s: field %v.%s at %d read from %q at %d\n", b.name, id, name, seq, b.parent.name, base)
	}
	return b.parent.fieldAt(id, name, base)
}

// fieldNamesAt returns the names of fields that may be set on bean id at
// seq. Callers filter through fieldAt.
func (b *Branch[K]) fieldNamesAt(id K, seq revlog.Seq) []string {
	var names []string
	if b.local(revlog.BeanKey(id), seq) == nil && b.parent != nil {
		names = b.parent.fieldNamesAt(id, b.epochAt(seq).base)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range b.log.Fields(id) {
		if seen[n] || b.local(revlog.FieldKey(id, n), seq) == nil {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return names
}

func (b *Branch[K]) beanAt(id K, seq revlog.Seq) map[string]any {
	if b.lifecycleAt(id, seq).State != Created {
		return nil
	}
	res := map[string]any{}
	for _, n := range b.fieldNamesAt(id, seq) {
		if v, ok := b.fieldAt(id, n, seq); ok {
			res[n] = v
		}
	}
	return res
}

// beanIDsAt returns the ids of beans which may exist at seq, oldest
// first. Callers filter through lifecycleAt.
func (b *Branch[K]) beanIDsAt(seq revlog.Seq) []K {
	var ids []K
	if b.parent != nil {
		ids = b.parent.beanIDsAt(b.epochAt(seq).base)
	}
	seen := make(map[K]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for _, id := range b.log.Beans() {
		if seen[id] || b.local(revlog.BeanKey(id), seq) == nil {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func (b *Branch[K]) lastRevisionAt(key revlog.Key[K], seq revlog.Seq) *revlog.Revision[K] {
	if r := b.local(key, seq); r != nil {
		return r
	}
	if b.parent == nil {
		return nil
	}
	return b.parent.lastRevisionAt(key, b.epochAt(seq).base)
}

func (b *Branch[K]) lastBeanRevisionAt(id K, seq revlog.Seq) *revlog.Revision[K] {
	r := b.log.LastBeanAt(id, seq)
	if r != nil && r.Seq > b.epochAt(seq).start {
		return r
	}
	if b.parent == nil {
		return nil
	}
	return b.parent.lastBeanRevisionAt(id, b.epochAt(seq).base)
}

func (b *Branch[K]) now() revlog.Seq {
	return b.tree.counter.Current()
}

// State returns the lifecycle state of bean id.
func (b *Branch[K]) State(id K) BeanState {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	return b.lifecycleAt(id, b.now()).State
}

// GetField returns the value of a field of a Created bean, or nil if the
// field is not set.
func (b *Branch[K]) GetField(id K, name string) (any, error) {
	v, _, err := b.LookupField(id, name)
	return v, err
}

// LookupField is GetField which also reports whether the field is set.
func (b *Branch[K]) LookupField(id K, name string) (any, bool, error) {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	now := b.now()
	if st := b.lifecycleAt(id, now).State; st != Created {
		return nil, false, &MissingBeanError[K]{Branch: b.name, Bean: id, State: st}
	}
	v, ok := b.fieldAt(id, name, now)
	return v, ok, nil
}

// GetBean returns the fields of bean id, or nil if it is not Created. The
// map is a copy.
func (b *Branch[K]) GetBean(id K) map[string]any {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	return b.beanAt(id, b.now())
}

// Beans returns the ids of every Created bean in the order they first
// appeared on the branch or its ancestors.
func (b *Branch[K]) Beans() []K {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	now := b.now()
	var res []K
	for _, id := range b.beanIDsAt(now) {
		if b.lifecycleAt(id, now).State == Created {
			res = append(res, id)
		}
	}
	return res
}

// StateAt is State as of an earlier revision of the tree.
func (b *Branch[K]) StateAt(id K, seq revlog.Seq) BeanState {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	return b.lifecycleAt(id, seq).State
}

// FieldAt is GetField as of an earlier revision of the tree.
func (b *Branch[K]) FieldAt(id K, name string, seq revlog.Seq) (any, error) {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	if st := b.lifecycleAt(id, seq).State; st != Created {
		return nil, &MissingBeanError[K]{Branch: b.name, Bean: id, State: st}
	}
	v, _ := b.fieldAt(id, name, seq)
	return v, nil
}

// BeanAt is GetBean as of an earlier revision of the tree.
func (b *Branch[K]) BeanAt(id K, seq revlog.Seq) map[string]any {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	return b.beanAt(id, seq)
}

// LastRevision returns the newest revision of any key of bean id visible
// from b, or nil. Revisions remain visible after the bean is deleted.
func (b *Branch[K]) LastRevision(id K) *revlog.Revision[K] {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	return b.lastBeanRevisionAt(id, b.now())
}

// LastFieldRevision returns the newest visible revision of one field, or
// nil.
func (b *Branch[K]) LastFieldRevision(id K, name string) *revlog.Revision[K] {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	return b.lastRevisionAt(revlog.FieldKey(id, name), b.now())
}

// Lifecycle returns the state of bean id together with its incarnation.
func (b *Branch[K]) Lifecycle(id K) Lifecycle {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	return b.lifecycleAt(id, b.now())
}

// BaseLifecycle is Lifecycle for the state b started from.
func (b *Branch[K]) BaseLifecycle(id K) Lifecycle {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	return b.baseLifecycle(id)
}

// BaseState returns the state of bean id that b started from: the
// parent's state at the fork or the last save. It is Undefined on the
// root.
func (b *Branch[K]) BaseState(id K) BeanState {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	return b.baseLifecycle(id).State
}

// BaseBean is GetBean for the state b started from.
func (b *Branch[K]) BaseBean(id K) map[string]any {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	if b.parent == nil {
		return nil
	}
	return b.parent.beanAt(id, b.current().base)
}

func (b *Branch[K]) baseLifecycle(id K) Lifecycle {
	if b.parent == nil {
		return Lifecycle{}
	}
	return b.parent.lifecycleAt(id, b.current().base)
}

func (b *Branch[K]) baseField(id K, name string) (any, bool) {
	if b.parent == nil {
		return nil, false
	}
	return b.parent.fieldAt(id, name, b.current().base)
}
