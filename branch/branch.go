package branch

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/signadot/beanstore/revlog"
)

// tree holds what every branch forked from one root shares.
type tree struct {
	mu      sync.RWMutex
	counter *revlog.Counter
	opts    options
}

// epoch is a period of a branch's life between forks and saves. Local
// revisions with a sequence number after start belong to the epoch; keys
// without such a revision are read from the parent as of base.
type epoch struct {
	start revlog.Seq
	base  revlog.Seq
}

// Branch is one node of a tree of bean stores. All methods are safe for
// concurrent use.
type Branch[K comparable] struct {
	name      string
	tree      *tree
	parent    *Branch[K]
	children  []*Branch[K]
	log       *revlog.Log[K]
	epochs    []epoch
	listeners []Listener[K]
}

// New creates the root branch of a new tree.
func New[K comparable](name string, opts ...Option) *Branch[K] {
	t := &tree{
		counter: revlog.NewCounter(),
		opts:    buildOptions(opts),
	}
	return &Branch[K]{
		name:   name,
		tree:   t,
		log:    revlog.NewLog[K](name, t.counter),
		epochs: []epoch{{}},
	}
}

// CreateBranch forks a child of b. The child sees every bean and field
// exactly as b sees them now, and nothing b does later.
func (b *Branch[K]) CreateBranch(name string) *Branch[K] {
	b.tree.mu.Lock()
	defer b.tree.mu.Unlock()
	now := b.tree.counter.Current()
	child := &Branch[K]{
		name:   name,
		tree:   b.tree,
		parent: b,
		log:    revlog.NewLog[K](name, b.tree.counter),
		epochs: []epoch{{start: now, base: now}},
	}
	b.children = append(b.children, child)
	b.logger().Debug("branch created", "branch", name, "parent", b.name, "revision", now)
	return child
}

func (b *Branch[K]) Name() string {
	return b.name
}

// Parent returns the branch b was forked from, or nil for the root.
func (b *Branch[K]) Parent() *Branch[K] {
	return b.parent
}

func (b *Branch[K]) Children() []*Branch[K] {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	res := make([]*Branch[K], len(b.children))
	copy(res, b.children)
	return res
}

// Find returns the branch called name in the subtree rooted at b, or nil.
func (b *Branch[K]) Find(name string) *Branch[K] {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	return b.find(name)
}

func (b *Branch[K]) find(name string) *Branch[K] {
	if b.name == name {
		return b
	}
	for _, c := range b.children {
		if f := c.find(name); f != nil {
			return f
		}
	}
	return nil
}

// Revision returns the newest sequence number handed out in the tree.
// Reads with StateAt, FieldAt and BeanAt at this revision see the current
// state of any branch.
func (b *Branch[K]) Revision() revlog.Seq {
	return b.tree.counter.Current()
}

// FirstRevision returns the revision b was forked at. It is 0 for the
// root.
func (b *Branch[K]) FirstRevision() revlog.Seq {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	return b.epochs[0].start
}

// Logger returns the tree's logger.
func (b *Branch[K]) Logger() *slog.Logger {
	return b.logger()
}

func (b *Branch[K]) logger() *slog.Logger {
	return b.tree.opts.logger
}

func (b *Branch[K]) String() string {
	if b.parent == nil {
		return fmt.Sprintf("branch %q", b.name)
	}
	return fmt.Sprintf("branch %q of %q", b.name, b.parent.name)
}

func (b *Branch[K]) current() epoch {
	return b.epochs[len(b.epochs)-1]
}

// epochAt returns the epoch in effect at seq. Before the fork the branch
// is indistinguishable from its parent.
func (b *Branch[K]) epochAt(seq revlog.Seq) epoch {
	if seq < b.epochs[0].start {
		return epoch{start: seq, base: seq}
	}
	i := sort.Search(len(b.epochs), func(i int) bool {
		return b.epochs[i].start > seq
	})
	return b.epochs[i-1]
}

// advance starts a new epoch reading the parent as of seq.
func (b *Branch[K]) advance(seq revlog.Seq) {
	e := epoch{start: seq, base: seq}
	if b.current().start == seq {
		b.epochs[len(b.epochs)-1] = e
		return
	}
	b.epochs = append(b.epochs, e)
}
