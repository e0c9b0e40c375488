// Package query selects beans from a branch with expr-lang expressions.
//
// A query is a boolean expression evaluated once per Created bean with
// the variables
//
//	id        the bean id, formatted with fmt
//	fields    the bean's fields
//	state     the bean state, CREATED for every bean Select visits
//	branch    the name of the branch
//	modified  whether the bean is modified on the branch
//
// and the function getenv(name).
package query

import (
	"fmt"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/signadot/beanstore/branch"
)

// Env is the environment a query is evaluated in.
type Env struct {
	ID       string         `expr:"id"`
	Fields   map[string]any `expr:"fields"`
	State    string         `expr:"state"`
	Branch   string         `expr:"branch"`
	Modified bool           `expr:"modified"`
}

type Query struct {
	src string
	prg *vm.Program
}

func exprOpts() []expr.Option {
	return []expr.Option{
		expr.Env(Env{}),
		expr.AsBool(),
		expr.Function("getenv", func(params ...any) (any, error) {
			return os.Getenv(params[0].(string)), nil
		},
			new(func(string) string)),
	}
}

// Compile parses and type checks src.
func Compile(src string) (*Query, error) {
	prg, err := expr.Compile(src, exprOpts()...)
	if err != nil {
		return nil, fmt.Errorf("could not compile query %q: %w", src, err)
	}
	return &Query{src: src, prg: prg}, nil
}

func (q *Query) String() string {
	return q.src
}

// Match evaluates q in env.
func (q *Query) Match(env Env) (bool, error) {
	res, err := expr.Run(q.prg, env)
	if err != nil {
		return false, fmt.Errorf("query %q on bean %s: %w", q.src, env.ID, err)
	}
	return res.(bool), nil
}

// Select returns the ids of the Created beans of b matching q, in the
// order of b.Beans.
func Select[K comparable](b *branch.Branch[K], q *Query) ([]K, error) {
	modified := map[K]bool{}
	for _, id := range b.ModifiedBeans() {
		modified[id] = true
	}
	var res []K
	for _, id := range b.Beans() {
		fields := b.GetBean(id)
		if fields == nil {
			// deleted since Beans returned
			continue
		}
		ok, err := q.Match(Env{
			ID:       fmt.Sprint(id),
			Fields:   fields,
			State:    branch.Created.String(),
			Branch:   b.Name(),
			Modified: modified[id],
		})
		if err != nil {
			return nil, err
		}
		if ok {
			res = append(res, id)
		}
	}
	return res, nil
}
