package branch

// Listener observes saves. BeforeSave may veto a save by returning an
// error. Listeners are called without the tree lock held, so they may
// read from either branch.
//
// Implementations must be comparable for RemoveListener to find them.
type Listener[K comparable] interface {
	BeforeSave(parent, child *Branch[K]) error
	AfterSave(parent, child *Branch[K])
}

// ListenerFuncs adapts a pair of functions to Listener. Either may be nil.
type ListenerFuncs[K comparable] struct {
	Before func(parent, child *Branch[K]) error
	After  func(parent, child *Branch[K])
}

func (f *ListenerFuncs[K]) BeforeSave(parent, child *Branch[K]) error {
	if f.Before == nil {
		return nil
	}
	return f.Before(parent, child)
}

func (f *ListenerFuncs[K]) AfterSave(parent, child *Branch[K]) {
	if f.After != nil {
		f.After(parent, child)
	}
}

// AddListener registers l for saves of b into its parent.
func (b *Branch[K]) AddListener(l Listener[K]) {
	b.tree.mu.Lock()
	defer b.tree.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// RemoveListener unregisters l. It reports whether l was registered.
func (b *Branch[K]) RemoveListener(l Listener[K]) bool {
	b.tree.mu.Lock()
	defer b.tree.mu.Unlock()
	for i, x := range b.listeners {
		if x == l {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Branch[K]) listenerList() []Listener[K] {
	b.tree.mu.RLock()
	defer b.tree.mu.RUnlock()
	res := make([]Listener[K], len(b.listeners))
	copy(res, b.listeners)
	return res
}
