package revlog

import "sync"

// Seq is a revision sequence number. Zero precedes every revision.
type Seq int64

// Counter hands out strictly increasing sequence numbers.
type Counter struct {
	sync.Mutex
	n Seq
}

// NewCounter returns a counter whose first Next is 1.
func NewCounter() *Counter {
	return &Counter{}
}

// Next increments and returns the next sequence number.
func (c *Counter) Next() Seq {
	c.Lock()
	defer c.Unlock()
	c.n++
	return c.n
}

// Current returns the last sequence number handed out, or 0.
func (c *Counter) Current() Seq {
	c.Lock()
	defer c.Unlock()
	return c.n
}
