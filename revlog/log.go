package revlog

import "sort"

type beanIndex[K comparable] struct {
	head   *Revision[K]
	fields []string
	seen   map[string]bool
}

// Log is the revision history of a single branch.
//
// Log does no locking of its own; the owning branch tree serializes access.
type Log[K comparable] struct {
	branch  string
	counter *Counter

	revs  []*Revision[K]
	heads map[Key[K]]*Revision[K]
	beans map[K]*beanIndex[K]
	order []K
}

// NewLog returns an empty log whose revisions are labelled with branch and
// numbered by counter.
func NewLog[K comparable](branch string, counter *Counter) *Log[K] {
	return &Log[K]{
		branch:  branch,
		counter: counter,
		heads:   make(map[Key[K]]*Revision[K]),
		beans:   make(map[K]*beanIndex[K]),
	}
}

// Append records value for key and returns the new revision.
func (l *Log[K]) Append(key Key[K], value any) *Revision[K] {
	return l.AppendFunc(key, func(Seq) any { return value })
}

// AppendFunc is Append for values that depend on the sequence number the
// new revision receives.
func (l *Log[K]) AppendFunc(key Key[K], value func(Seq) any) *Revision[K] {
	bi := l.beans[key.Bean]
	if bi == nil {
		bi = &beanIndex[K]{seen: make(map[string]bool)}
		l.beans[key.Bean] = bi
		l.order = append(l.order, key.Bean)
	}
	seq := l.counter.Next()
	r := &Revision[K]{
		Seq:      seq,
		Key:      key,
		Value:    value(seq),
		Branch:   l.branch,
		Prev:     l.heads[key],
		PrevBean: bi.head,
	}
	l.revs = append(l.revs, r)
	l.heads[key] = r
	bi.head = r
	if !key.Lifecycle && !bi.seen[key.Field] {
		bi.seen[key.Field] = true
		bi.fields = append(bi.fields, key.Field)
	}
	return r
}

// Last returns the newest revision of key, or nil.
func (l *Log[K]) Last(key Key[K]) *Revision[K] {
	return l.heads[key]
}

// LastAt returns the newest revision of key with a sequence number not
// greater than seq, or nil.
func (l *Log[K]) LastAt(key Key[K], seq Seq) *Revision[K] {
	r := l.heads[key]
	for r != nil && r.Seq > seq {
		r = r.Prev
	}
	return r
}

// LastBean returns the newest revision of any key of bean id, or nil.
func (l *Log[K]) LastBean(id K) *Revision[K] {
	bi := l.beans[id]
	if bi == nil {
		return nil
	}
	return bi.head
}

// LastBeanAt is LastBean restricted to revisions not after seq.
func (l *Log[K]) LastBeanAt(id K, seq Seq) *Revision[K] {
	r := l.LastBean(id)
	for r != nil && r.Seq > seq {
		r = r.PrevBean
	}
	return r
}

// History returns every revision of key, newest first.
func (l *Log[K]) History(key Key[K]) []*Revision[K] {
	var res []*Revision[K]
	for r := l.heads[key]; r != nil; r = r.Prev {
		res = append(res, r)
	}
	return res
}

// Since returns the revisions with a sequence number greater than seq in
// the order they were appended.
func (l *Log[K]) Since(seq Seq) []*Revision[K] {
	i := sort.Search(len(l.revs), func(i int) bool {
		return l.revs[i].Seq > seq
	})
	res := make([]*Revision[K], len(l.revs)-i)
	copy(res, l.revs[i:])
	return res
}

// Fields returns the names of every field ever written on bean id, in
// first-write order.
func (l *Log[K]) Fields(id K) []string {
	bi := l.beans[id]
	if bi == nil {
		return nil
	}
	res := make([]string, len(bi.fields))
	copy(res, bi.fields)
	return res
}

// Beans returns the ids of every bean with at least one revision, in
// first-touch order.
func (l *Log[K]) Beans() []K {
	res := make([]K, len(l.order))
	copy(res, l.order)
	return res
}

// Len returns the number of revisions in the log.
func (l *Log[K]) Len() int {
	return len(l.revs)
}
