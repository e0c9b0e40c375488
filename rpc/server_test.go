package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/beanstore/branch"
	"go.lsp.dev/jsonrpc2"
)

func pipe(t *testing.T) (jsonrpc2.Conn, *branch.Branch[string]) {
	t.Helper()
	root := branch.New[string]("root")
	srv := NewServer(root, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cli, svr := net.Pipe()
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, svr) }()
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(cli))
	conn.Go(ctx, jsonrpc2.MethodNotFoundHandler)
	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})
	return conn, root
}

func call(t *testing.T, conn jsonrpc2.Conn, method string, params, result any) {
	t.Helper()
	if _, err := conn.Call(context.Background(), method, params, result); err != nil {
		t.Fatalf("%s: %v", method, err)
	}
}

func callErr(t *testing.T, conn jsonrpc2.Conn, method string, params any) jsonrpc2.Code {
	t.Helper()
	_, err := conn.Call(context.Background(), method, params, nil)
	var rerr *jsonrpc2.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("%s: got %v, want a jsonrpc2 error", method, err)
	}
	return rerr.Code
}

func TestBeansAndFields(t *testing.T) {
	conn, root := pipe(t)
	call(t, conn, "bean.create", BeanParams{Bean: "1"}, nil)
	var prev any
	call(t, conn, "field.set", FieldParams{Bean: "1", Field: "moon", Value: "landing"}, &prev)
	if prev != nil {
		t.Errorf("previous: got %v", prev)
	}
	call(t, conn, "field.set", FieldParams{Bean: "1", Field: "moon", Value: "walk"}, &prev)
	if prev != "landing" {
		t.Errorf("previous: got %v, want landing", prev)
	}
	var v any
	call(t, conn, "field.get", FieldParams{Bean: "1", Field: "moon"}, &v)
	if v != "walk" {
		t.Errorf("moon: got %v", v)
	}
	var state branch.BeanState
	call(t, conn, "bean.state", BeanParams{Bean: "1"}, &state)
	if state != branch.Created {
		t.Errorf("state: got %s", state)
	}
	var bean map[string]any
	call(t, conn, "bean.patch", BeanParams{Bean: "1", Patch: json.RawMessage(`{"sun": "dial"}`)}, &bean)
	if diff := cmp.Diff(map[string]any{"moon": "walk", "sun": "dial"}, bean); diff != "" {
		t.Errorf("patched (-want +got):\n%s", diff)
	}
	if got := root.GetBean("1"); got["sun"] != "dial" {
		t.Errorf("root bean: %v", got)
	}
	call(t, conn, "bean.delete", BeanParams{Bean: "1"}, nil)
	bean = nil
	call(t, conn, "bean.get", BeanParams{Bean: "1"}, &bean)
	if bean != nil {
		t.Errorf("deleted bean: %v", bean)
	}

	if code := callErr(t, conn, "bean.delete", BeanParams{Bean: "1"}); code != CodeMissingBean {
		t.Errorf("delete twice: code %d", code)
	}
	call(t, conn, "bean.create", BeanParams{Bean: "2"}, nil)
	if code := callErr(t, conn, "bean.create", BeanParams{Bean: "2"}); code != CodeDuplicateBean {
		t.Errorf("create twice: code %d", code)
	}
	if code := callErr(t, conn, "field.get", FieldParams{Bean: "3", Field: "x"}); code != CodeMissingBean {
		t.Errorf("get missing: code %d", code)
	}
}

func TestBranches(t *testing.T) {
	conn, _ := pipe(t)
	call(t, conn, "bean.create", BeanParams{Bean: "1"}, nil)
	call(t, conn, "field.set", FieldParams{Bean: "1", Field: "moon", Value: "landing"}, nil)
	var name string
	call(t, conn, "branch.create", BranchParams{Name: "other"}, &name)
	if name != "other" {
		t.Errorf("name: got %q", name)
	}
	call(t, conn, "field.set", FieldParams{Branch: "other", Bean: "1", Field: "moon", Value: "pie"}, nil)
	call(t, conn, "field.set", FieldParams{Bean: "1", Field: "moon", Value: "walk"}, nil)

	var ids []string
	call(t, conn, "branch.modified", BranchParams{Branch: "other"}, &ids)
	if diff := cmp.Diff([]string{"1"}, ids); diff != "" {
		t.Errorf("modified (-want +got):\n%s", diff)
	}
	var changes []map[string]any
	call(t, conn, "branch.export", BranchParams{Branch: "other"}, &changes)
	want := []map[string]any{{
		"bean":  "1",
		"state": "CREATED",
		"patch": []any{map[string]any{"op": "add", "path": "/moon", "value": "pie"}},
	}}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Errorf("export (-want +got):\n%s", diff)
	}
	if code := callErr(t, conn, "branch.save", BranchParams{Branch: "other"}); code != CodeConflict {
		t.Errorf("save: code %d", code)
	}
	if code := callErr(t, conn, "branch.save", BranchParams{}); code != CodeNoParent {
		t.Errorf("save root: code %d", code)
	}
	if code := callErr(t, conn, "branch.save", BranchParams{Branch: "nope"}); code != CodeNoBranch {
		t.Errorf("save unknown: code %d", code)
	}
	if code := callErr(t, conn, "branch.create", BranchParams{Name: "other"}); code != jsonrpc2.InvalidParams {
		t.Errorf("create existing: code %d", code)
	}
}

func TestQuery(t *testing.T) {
	conn, root := pipe(t)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := root.SetBean(id, map[string]any{"even": id == "b"}, false); err != nil {
			t.Fatal(err)
		}
	}
	var ids []string
	call(t, conn, "query.select", QueryParams{Expr: "!fields.even"}, &ids)
	if diff := cmp.Diff([]string{"a", "c"}, ids); diff != "" {
		t.Errorf("select (-want +got):\n%s", diff)
	}
	call(t, conn, "bean.list", BranchParams{}, &ids)
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids); diff != "" {
		t.Errorf("list (-want +got):\n%s", diff)
	}
	if code := callErr(t, conn, "query.select", QueryParams{Expr: "fields."}); code != jsonrpc2.InvalidParams {
		t.Errorf("bad expr: code %d", code)
	}
}

func TestProtocolErrors(t *testing.T) {
	conn, _ := pipe(t)
	if code := callErr(t, conn, "bean.fly", nil); code != jsonrpc2.MethodNotFound {
		t.Errorf("unknown method: code %d", code)
	}
	if code := callErr(t, conn, "bean.create", []int{1}); code != jsonrpc2.InvalidParams {
		t.Errorf("bad params: code %d", code)
	}
	if code := callErr(t, conn, "bean.create", BeanParams{}); code != jsonrpc2.InvalidParams {
		t.Errorf("no bean: code %d", code)
	}
}

func TestTCP(t *testing.T) {
	root := branch.New[string]("root")
	l, err := Listen("127.0.0.1:0", NewServer(root, nil))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	nc, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(nc))
	conn.Go(ctx, jsonrpc2.MethodNotFoundHandler)
	call(t, conn, "bean.create", BeanParams{Bean: "x"}, nil)
	if root.State("x") != branch.Created {
		t.Error("bean not created")
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("serve: %v", err)
	}
	l.Close()
	if n := l.ConnCount(); n != 0 {
		t.Errorf("open connections: %d", n)
	}
	conn.Close()
}

func TestConcurrentBranchCreate(t *testing.T) {
	root := branch.New[string]("root")
	s := NewServer(root, nil)
	params := json.RawMessage(`{"name": "other"}`)
	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.branchCreate(context.Background(), params); err == nil {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	if n := created.Load(); n != 1 {
		t.Errorf("created %d branches called other, want 1", n)
	}
	if n := len(root.Children()); n != 1 {
		t.Errorf("root has %d children, want 1", n)
	}
}

func TestTCPCloseRacesAccept(t *testing.T) {
	l, err := Listen("127.0.0.1:0", NewServer(branch.New[string]("root"), nil))
	if err != nil {
		t.Fatal(err)
	}
	c, peer := net.Pipe()
	defer peer.Close()
	id, ok := l.track(c)
	if !ok {
		t.Fatal("connection refused before close")
	}
	go l.handle(context.Background(), id, c)

	done := make(chan struct{})
	go func() {
		l.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	if n := l.ConnCount(); n != 0 {
		t.Errorf("open connections: %d", n)
	}

	late, latePeer := net.Pipe()
	defer latePeer.Close()
	defer late.Close()
	if _, ok := l.track(late); ok {
		t.Error("connection registered after close")
	}
}

func TestStoreErrorsAreNotLogged(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewServer(branch.New[string]("root"), logger)
	req, err := jsonrpc2.NewCall(jsonrpc2.NewNumberID(1), "bean.delete", BeanParams{Bean: "nope"})
	if err != nil {
		t.Fatal(err)
	}
	var got error
	reply := func(_ context.Context, _ any, err error) error {
		got = err
		return nil
	}
	if err := s.Handler()(context.Background(), reply, req); err != nil {
		t.Fatal(err)
	}
	var rerr *jsonrpc2.Error
	if !errors.As(got, &rerr) || rerr.Code != CodeMissingBean {
		t.Errorf("got %v, want a missing bean error", got)
	}
	if buf.Len() != 0 {
		t.Errorf("store error was logged:\n%s", buf.String())
	}
}
