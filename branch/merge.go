package branch

import (
	"fmt"

	"github.com/signadot/beanstore/debug"
	"github.com/signadot/beanstore/libdiff"
	"github.com/signadot/beanstore/revlog"
)

// change classifies one bean touched in the current epoch against the
// state the branch started from.
type change[K comparable] struct {
	id    K
	base  Lifecycle
	final Lifecycle
	// lifecycle is set when the lifecycle key must reach the parent.
	lifecycle bool
	// fields lists the fields whose final value differs from the base.
	fields []string
}

func (c *change[K]) modified() bool {
	return c.lifecycle || len(c.fields) > 0
}

type write[K comparable] struct {
	key   revlog.Key[K]
	value any
}

// touched returns the beans with a revision in the current epoch, in
// first-touch order.
func (b *Branch[K]) touched() []K {
	var ids []K
	seen := map[K]bool{}
	for _, r := range b.log.Since(b.current().start) {
		if seen[r.Key.Bean] {
			continue
		}
		seen[r.Key.Bean] = true
		ids = append(ids, r.Key.Bean)
	}
	return ids
}

func (b *Branch[K]) changeOf(id K, now revlog.Seq) *change[K] {
	c := &change[K]{
		id:    id,
		base:  b.baseLifecycle(id),
		final: b.lifecycleAt(id, now),
	}
	// deleting a bean the base never had is a no-op
	ignorable := c.final.State == Deleted && c.base.State != Created
	c.lifecycle = c.final != c.base && !ignorable
	if c.final.State != Created {
		return c
	}
	for _, n := range b.log.Fields(id) {
		if b.local(revlog.FieldKey(id, n), now) == nil {
			continue
		}
		fv, fok := b.fieldAt(id, n, now)
		if !fok {
			// written on an earlier incarnation
			continue
		}
		bv, bok := b.baseField(id, n)
		if !b.sameField(fv, fok, bv, bok) {
			c.fields = append(c.fields, n)
		}
	}
	return c
}

func (b *Branch[K]) sameField(a any, aok bool, c any, cok bool) bool {
	if aok != cok {
		return false
	}
	if !aok {
		return true
	}
	return b.tree.opts.equal(a, c)
}

// ModifiedBeans returns the beans whose lifecycle or fields differ from
// the state the branch started from, in the order they were first
// touched. Revisions merged in from children count as modifications.
func (b *Branch[K]) ModifiedBeans() []K {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	now := b.now()
	var res []K
	for _, id := range b.touched() {
		if b.changeOf(id, now).modified() {
			res = append(res, id)
		}
	}
	return res
}

// Save merges the modifications of b into its parent.
//
// For every modified key, Save compares the parent's current value with
// the base value b started from. If the parent still holds the base value
// the branch value is written; if it already holds the branch value
// nothing is written; otherwise the key conflicts. Lifecycles compare by
// state only when looking for convergence, so two branches which both
// delete, or both create, the same bean do not conflict.
//
// Save is all or nothing: on conflict it returns a *SaveError and writes
// nothing. After a successful save b starts over from the parent's new
// state, with no modified beans.
func (b *Branch[K]) Save() error {
	if b.parent == nil {
		return ErrNoParent
	}
	m := b.tree.opts.metrics
	for _, l := range b.listenerList() {
		if err := l.BeforeSave(b.parent, b); err != nil {
			m.saved(resultVetoed)
			return fmt.Errorf("save of %s vetoed: %w", b, err)
		}
	}
	if err := b.save(); err != nil {
		return err
	}
	for _, l := range b.listenerList() {
		l.AfterSave(b.parent, b)
	}
	return nil
}

func (b *Branch[K]) save() error {
	b.tree.mu.Lock()
	defer b.tree.mu.Unlock()
	m := b.tree.opts.metrics
	now := b.now()
	writes, conflicts, beans := b.plan(now)
	if len(conflicts) > 0 {
		m.saved(resultConflict)
		for _, c := range conflicts {
			m.conflict(c.Lifecycle)
		}
		return &SaveError[K]{
			Branch:    b,
			Parent:    b.parent,
			Bean:      conflicts[0].Bean,
			Conflicts: conflicts,
		}
	}
	for _, w := range writes {
		b.parent.log.Append(w.key, w.value)
		m.wrote(w.key.Lifecycle)
	}
	b.advance(b.now())
	m.committed(len(writes))
	b.logger().Debug("branch saved", "branch", b.name, "parent", b.parent.name, "beans", beans, "writes", len(writes))
	return nil
}

// plan computes the writes a save at now would make, or the conflicts
// preventing it.
func (b *Branch[K]) plan(now revlog.Seq) ([]write[K], []Conflict[K], int) {
	var (
		writes    []write[K]
		conflicts []Conflict[K]
		beans     int
		p         = b.parent
	)
	for _, id := range b.touched() {
		c := b.changeOf(id, now)
		if !c.modified() {
			continue
		}
		beans++
		pl := p.lifecycleAt(id, now)
		if debug.Merge() {
			debug.Logf("%s: bean %v base %s parent %s branch %s fields %v\n", b.name, id, c.base, pl, c.final, c.fields)
		}
		target := pl
		fresh := false
		if c.lifecycle {
			switch {
			case pl == c.base:
				writes = append(writes, write[K]{key: revlog.BeanKey(id), value: c.final})
				target = c.final
				fresh = c.final.State == Created
			case pl.State == c.final.State:
				// converged
			default:
				conflicts = append(conflicts, lifecycleConflict(id, c.base.State, pl.State, c.final.State))
				continue
			}
		}
		if c.final.State != Created {
			continue
		}
		if target.State != Created {
			// the parent dropped a bean the branch edited
			conflicts = append(conflicts, lifecycleConflict(id, c.base.State, target.State, c.final.State))
			continue
		}
		names := c.fields
		if fresh {
			names = b.freshFieldNames(id, now)
		}
		for _, n := range names {
			fv, fok := b.fieldAt(id, n, now)
			bv, bok := b.baseField(id, n)
			pv, pok := p.fieldAt(id, n, now)
			switch {
			case b.sameField(pv, pok, bv, bok):
				if fok {
					writes = append(writes, write[K]{key: revlog.FieldKey(id, n), value: fv})
				}
			case b.sameField(pv, pok, fv, fok):
				// a new incarnation needs its own copy
				if fresh && fok {
					writes = append(writes, write[K]{key: revlog.FieldKey(id, n), value: fv})
				}
			default:
				conflicts = append(conflicts, Conflict[K]{
					Bean:   id,
					Field:  n,
					Base:   present(bv, bok),
					Parent: present(pv, pok),
					Branch: present(fv, fok),
				})
			}
		}
	}
	return writes, conflicts, beans
}

// freshFieldNames returns every field name relevant when a new
// incarnation of bean id replaces the parent's: the fields of the new
// incarnation and any field the parent had at the base or has now.
func (b *Branch[K]) freshFieldNames(id K, now revlog.Seq) []string {
	var names []string
	seen := map[string]bool{}
	add := func(ns []string) {
		for _, n := range ns {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	add(b.fieldNamesAt(id, now))
	add(b.parent.fieldNamesAt(id, b.current().base))
	add(b.parent.fieldNamesAt(id, now))
	return names
}

func lifecycleConflict[K comparable](id K, base, parent, branch BeanState) Conflict[K] {
	return Conflict[K]{
		Bean:      id,
		Lifecycle: true,
		Base:      base,
		Parent:    parent,
		Branch:    branch,
	}
}

func present(v any, ok bool) any {
	if !ok {
		return libdiff.Absent
	}
	return v
}
