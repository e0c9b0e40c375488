package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/signadot/beanstore/branch"
	"github.com/signadot/beanstore/libdiff"
	"github.com/signadot/beanstore/patch"
	"github.com/signadot/beanstore/query"
)

// Result is the outcome of one step.
type Result struct {
	Index  int    `json:"index"`
	Step   string `json:"step"`
	Value  any    `json:"value,omitempty"`
	Error  string `json:"error,omitempty"`
	Failed bool   `json:"failed,omitempty"`
	// Reason explains a failure.
	Reason string `json:"reason,omitempty"`
	// Conflicts is set when the step was a save which conflicted.
	Conflicts []branch.Conflict[string] `json:"-"`
}

type Report struct {
	Results []Result `json:"results"`
	Failed  int      `json:"failed"`
	// Root is the tree the script ran on.
	Root *branch.Branch[string] `json:"-"`
}

// Err returns nil if every step met its expectations.
func (r *Report) Err() error {
	if r.Failed == 0 {
		return nil
	}
	var msgs []string
	for _, res := range r.Results {
		if res.Failed {
			msgs = append(msgs, fmt.Sprintf("step %d (%s): %s", res.Index, res.Step, res.Reason))
		}
	}
	return fmt.Errorf("%d step(s) failed:\n%s", r.Failed, strings.Join(msgs, "\n"))
}

type runOpts struct {
	logger     *slog.Logger
	branchOpts []branch.Option
	failFast   bool
}

type RunOption func(*runOpts)

func WithLogger(l *slog.Logger) RunOption {
	return func(o *runOpts) { o.logger = l }
}

// WithBranchOptions passes options to the root of the tree.
func WithBranchOptions(opts ...branch.Option) RunOption {
	return func(o *runOpts) { o.branchOpts = append(o.branchOpts, opts...) }
}

// FailFast stops the run at the first failed step.
func FailFast() RunOption {
	return func(o *runOpts) { o.failFast = true }
}

// Run executes s on a new tree. Failed expectations are recorded in the
// report; Run itself fails only when a step names an unknown branch or
// ctx is done.
func Run(ctx context.Context, s *Script, opts ...RunOption) (*Report, error) {
	o := buildRunOpts(opts)
	bopts := append([]branch.Option{branch.WithLogger(o.logger)}, o.branchOpts...)
	return runOn(ctx, branch.New[string](s.Root, bopts...), s, o)
}

// RunOn executes s on an existing tree. The script's root name refers to
// root whatever root is called. Branch options are ignored.
func RunOn(ctx context.Context, root *branch.Branch[string], s *Script, opts ...RunOption) (*Report, error) {
	return runOn(ctx, root, s, buildRunOpts(opts))
}

func buildRunOpts(opts []RunOption) *runOpts {
	o := &runOpts{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

func runOn(ctx context.Context, root *branch.Branch[string], s *Script, o *runOpts) (*Report, error) {
	r := &runner{
		logger:   o.logger,
		root:     root,
		branches: map[string]*branch.Branch[string]{},
	}
	r.branches[s.Root] = root
	rep := &Report{Root: root}
	for i := range s.Steps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		st := &s.Steps[i]
		b := r.branches[st.Branch]
		if b == nil {
			return rep, fmt.Errorf("step %d (%s): no branch %q", i, st.Op, st.Branch)
		}
		v, err := r.exec(b, st)
		res := Result{Index: i, Step: st.String(), Value: v}
		if err != nil {
			res.Error = err.Error()
			var se *branch.SaveError[string]
			if errors.As(err, &se) {
				res.Conflicts = se.Conflicts
			}
		}
		res.Reason = check(st, v, err)
		res.Failed = res.Reason != ""
		if res.Failed {
			rep.Failed++
			r.logger.Debug("step failed", "index", i, "step", res.Step, "reason", res.Reason)
		}
		rep.Results = append(rep.Results, res)
		if res.Failed && o.failFast {
			break
		}
	}
	return rep, nil
}

// Branch returns the branch called name in the tree the script ran on.
func (r *Report) Branch(name string) *branch.Branch[string] {
	if r.Root == nil {
		return nil
	}
	return r.Root.Find(name)
}

type runner struct {
	logger   *slog.Logger
	root     *branch.Branch[string]
	branches map[string]*branch.Branch[string]
}

func (r *runner) exec(b *branch.Branch[string], st *Step) (any, error) {
	switch st.Op {
	case OpFork:
		if r.branches[st.Name] != nil {
			return nil, fmt.Errorf("branch %q already exists", st.Name)
		}
		r.branches[st.Name] = b.CreateBranch(st.Name)
		return nil, nil
	case OpCreate:
		return nil, b.CreateBean(st.Bean)
	case OpDelete:
		return nil, b.DeleteBean(st.Bean)
	case OpSet:
		return b.SetField(st.Bean, st.Field, st.Value)
	case OpGet:
		return b.GetField(st.Bean, st.Field)
	case OpBean:
		if m := b.GetBean(st.Bean); m != nil {
			return m, nil
		}
		return nil, nil
	case OpPut:
		data, _ := st.Value.(map[string]any)
		return b.SetBean(st.Bean, data, st.Replace)
	case OpState:
		return b.State(st.Bean), nil
	case OpSave:
		return nil, b.Save()
	case OpModified:
		return list(b.ModifiedBeans()), nil
	case OpBeans:
		return list(b.Beans()), nil
	case OpQuery:
		q, err := query.Compile(st.Name)
		if err != nil {
			return nil, err
		}
		ids, err := query.Select(b, q)
		return list(ids), err
	case OpExport:
		cs, err := patch.Export(b)
		if err != nil {
			return nil, err
		}
		res := make([]any, 0, len(cs))
		for _, c := range cs {
			m := map[string]any{"bean": c.Bean, "state": c.State.String()}
			if c.Replace {
				m["replace"] = true
			}
			if len(c.Patch) != 0 {
				m["patch"] = string(c.Patch)
			}
			res = append(res, m)
		}
		return res, nil
	}
	return nil, fmt.Errorf("unknown op %q", st.Op)
}

func list(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

var errKinds = map[string]error{
	ErrKindDuplicate: branch.ErrDuplicateBean,
	ErrKindMissing:   branch.ErrMissingBean,
	ErrKindConflict:  branch.ErrConflict,
	ErrKindNoParent:  branch.ErrNoParent,
}

// check returns why the outcome of st does not meet its expectations, or
// "".
func check(st *Step, v any, err error) string {
	if st.ExpectError != "" {
		if err == nil {
			return fmt.Sprintf("expected %s error", st.ExpectError)
		}
		if !errors.Is(err, errKinds[st.ExpectError]) {
			return fmt.Sprintf("expected %s error, got %v", st.ExpectError, err)
		}
		return ""
	}
	if err != nil {
		return fmt.Sprintf("unexpected error: %v", err)
	}
	if st.Expect == nil {
		return ""
	}
	want, got := libdiff.Format(st.Expect), libdiff.Format(v)
	if want != got {
		return fmt.Sprintf("got %s, want %s: %s", got, want, libdiff.Values(want, got))
	}
	return ""
}
