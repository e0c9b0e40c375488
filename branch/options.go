package branch

import (
	"log/slog"
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// EqualFunc reports whether two field values are equal.
type EqualFunc func(a, b any) bool

type options struct {
	logger  *slog.Logger
	equal   EqualFunc
	metrics *Metrics
}

// Option configures a tree created by New.
type Option func(*options)

// WithLogger sets the logger used by every branch of the tree. A nil
// logger selects slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEqual replaces the comparison used to decide whether field values
// differ.
func WithEqual(eq EqualFunc) Option {
	return func(o *options) { o.equal = eq }
}

// WithMetrics makes the tree report save activity to m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

var allExported = cmp.Exporter(func(reflect.Type) bool { return true })

// DeepEqual compares values structurally, including unexported fields.
func DeepEqual(a, b any) bool {
	return cmp.Equal(a, b, allExported)
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.equal == nil {
		o.equal = DeepEqual
	}
	return o
}
