package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/signadot/beanstore/branch"
	"github.com/signadot/beanstore/debug"
	"github.com/signadot/beanstore/patch"
	"github.com/signadot/beanstore/query"
	"go.lsp.dev/jsonrpc2"
)

type BranchParams struct {
	Branch string `json:"branch"`
	// Name is the new branch for branch.create.
	Name string `json:"name,omitempty"`
}

type BeanParams struct {
	Branch string `json:"branch"`
	Bean   string `json:"bean"`
	// Patch is the merge patch for bean.patch.
	Patch json.RawMessage `json:"patch,omitempty"`
}

type FieldParams struct {
	Branch string `json:"branch"`
	Bean   string `json:"bean"`
	Field  string `json:"field"`
	Value  any    `json:"value,omitempty"`
}

type QueryParams struct {
	Branch string `json:"branch"`
	Expr   string `json:"expr"`
}

type method func(ctx context.Context, params json.RawMessage) (any, error)

// Server answers JSON-RPC requests on the tree of one root branch.
type Server struct {
	root    *branch.Branch[string]
	logger  *slog.Logger
	methods map[string]method

	// createMu makes the name check and fork of branch.create atomic.
	createMu sync.Mutex
}

func NewServer(root *branch.Branch[string], logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{root: root, logger: logger}
	s.methods = map[string]method{
		"branch.create":   s.branchCreate,
		"branch.save":     s.branchSave,
		"branch.modified": s.branchModified,
		"branch.export":   s.branchExport,
		"bean.list":       s.beanList,
		"bean.create":     s.beanCreate,
		"bean.delete":     s.beanDelete,
		"bean.get":        s.beanGet,
		"bean.state":      s.beanState,
		"bean.patch":      s.beanPatch,
		"field.set":       s.fieldSet,
		"field.get":       s.fieldGet,
		"query.select":    s.querySelect,
	}
	return s
}

// Handler returns the request handler.
func (s *Server) Handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if debug.RPC() {
			debug.Logf("rpc %s %s\n", req.Method(), string(req.Params()))
		}
		m := s.methods[req.Method()]
		if m == nil {
			return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
		}
		res, err := m(ctx, req.Params())
		return reply(ctx, res, toRPCError(err))
	}
}

// Serve answers requests on rwc until the peer closes it or ctx is done.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	conn.Go(ctx, s.Handler())
	select {
	case <-ctx.Done():
		conn.Close()
		<-conn.Done()
		return ctx.Err()
	case <-conn.Done():
	}
	if err := conn.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return nil
}

func decode[P any](params json.RawMessage) (*P, error) {
	p := new(P)
	if len(params) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(params, p); err != nil {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
	}
	return p, nil
}

func (s *Server) branch(name string) (*branch.Branch[string], error) {
	if name == "" {
		return s.root, nil
	}
	b := s.root.Find(name)
	if b == nil {
		return nil, noBranch(name)
	}
	return b, nil
}

func (s *Server) branchCreate(_ context.Context, params json.RawMessage) (any, error) {
	p, err := decode[BranchParams](params)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, "name is required")
	}
	s.createMu.Lock()
	defer s.createMu.Unlock()
	if s.root.Find(p.Name) != nil {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, "branch "+p.Name+" exists")
	}
	b, err := s.branch(p.Branch)
	if err != nil {
		return nil, err
	}
	return b.CreateBranch(p.Name).Name(), nil
}

func (s *Server) branchSave(_ context.Context, params json.RawMessage) (any, error) {
	p, err := decode[BranchParams](params)
	if err != nil {
		return nil, err
	}
	b, err := s.branch(p.Branch)
	if err != nil {
		return nil, err
	}
	return nil, b.Save()
}

func (s *Server) branchModified(_ context.Context, params json.RawMessage) (any, error) {
	p, err := decode[BranchParams](params)
	if err != nil {
		return nil, err
	}
	b, err := s.branch(p.Branch)
	if err != nil {
		return nil, err
	}
	return ids(b.ModifiedBeans()), nil
}

func (s *Server) branchExport(_ context.Context, params json.RawMessage) (any, error) {
	p, err := decode[BranchParams](params)
	if err != nil {
		return nil, err
	}
	b, err := s.branch(p.Branch)
	if err != nil {
		return nil, err
	}
	cs, err := patch.Export(b)
	if err != nil {
		return nil, err
	}
	if cs == nil {
		cs = []patch.Change[string]{}
	}
	return cs, nil
}

func (s *Server) beanList(_ context.Context, params json.RawMessage) (any, error) {
	p, err := decode[BranchParams](params)
	if err != nil {
		return nil, err
	}
	b, err := s.branch(p.Branch)
	if err != nil {
		return nil, err
	}
	return ids(b.Beans()), nil
}

func (s *Server) beanCreate(_ context.Context, params json.RawMessage) (any, error) {
	p, b, err := s.bean(params)
	if err != nil {
		return nil, err
	}
	return nil, b.CreateBean(p.Bean)
}

func (s *Server) beanDelete(_ context.Context, params json.RawMessage) (any, error) {
	p, b, err := s.bean(params)
	if err != nil {
		return nil, err
	}
	return nil, b.DeleteBean(p.Bean)
}

func (s *Server) beanGet(_ context.Context, params json.RawMessage) (any, error) {
	p, b, err := s.bean(params)
	if err != nil {
		return nil, err
	}
	if m := b.GetBean(p.Bean); m != nil {
		return m, nil
	}
	return nil, nil
}

func (s *Server) beanState(_ context.Context, params json.RawMessage) (any, error) {
	p, b, err := s.bean(params)
	if err != nil {
		return nil, err
	}
	return b.State(p.Bean), nil
}

func (s *Server) beanPatch(_ context.Context, params json.RawMessage) (any, error) {
	p, b, err := s.bean(params)
	if err != nil {
		return nil, err
	}
	if len(p.Patch) == 0 {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, "patch is required")
	}
	if err := patch.ApplyMergePatch(b, p.Bean, p.Patch); err != nil {
		return nil, err
	}
	return b.GetBean(p.Bean), nil
}

func (s *Server) bean(params json.RawMessage) (*BeanParams, *branch.Branch[string], error) {
	p, err := decode[BeanParams](params)
	if err != nil {
		return nil, nil, err
	}
	if p.Bean == "" {
		return nil, nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, "bean is required")
	}
	b, err := s.branch(p.Branch)
	if err != nil {
		return nil, nil, err
	}
	return p, b, nil
}

func (s *Server) field(params json.RawMessage) (*FieldParams, *branch.Branch[string], error) {
	p, err := decode[FieldParams](params)
	if err != nil {
		return nil, nil, err
	}
	if p.Bean == "" || p.Field == "" {
		return nil, nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, "bean and field are required")
	}
	b, err := s.branch(p.Branch)
	if err != nil {
		return nil, nil, err
	}
	return p, b, nil
}

func (s *Server) fieldSet(_ context.Context, params json.RawMessage) (any, error) {
	p, b, err := s.field(params)
	if err != nil {
		return nil, err
	}
	return b.SetField(p.Bean, p.Field, p.Value)
}

func (s *Server) fieldGet(_ context.Context, params json.RawMessage) (any, error) {
	p, b, err := s.field(params)
	if err != nil {
		return nil, err
	}
	return b.GetField(p.Bean, p.Field)
}

func (s *Server) querySelect(_ context.Context, params json.RawMessage) (any, error) {
	p, err := decode[QueryParams](params)
	if err != nil {
		return nil, err
	}
	b, err := s.branch(p.Branch)
	if err != nil {
		return nil, err
	}
	q, err := query.Compile(p.Expr)
	if err != nil {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
	}
	res, err := query.Select(b, q)
	if err != nil {
		return nil, err
	}
	return ids(res), nil
}

func ids(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
