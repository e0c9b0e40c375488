package rpc

import (
	"errors"
	"fmt"

	"github.com/signadot/beanstore/branch"
	"go.lsp.dev/jsonrpc2"
)

const (
	CodeDuplicateBean jsonrpc2.Code = -32001
	CodeMissingBean   jsonrpc2.Code = -32002
	CodeConflict      jsonrpc2.Code = -32003
	CodeNoParent      jsonrpc2.Code = -32004
	CodeNoBranch      jsonrpc2.Code = -32005
)

var errNoBranch = errors.New("no such branch")

func noBranch(name string) error {
	return fmt.Errorf("%w: %q", errNoBranch, name)
}

// toRPCError maps store errors to JSON-RPC errors.
func toRPCError(err error) error {
	if err == nil {
		return nil
	}
	var rerr *jsonrpc2.Error
	if errors.As(err, &rerr) {
		return rerr
	}
	code := jsonrpc2.InternalError
	switch {
	case errors.Is(err, branch.ErrDuplicateBean):
		code = CodeDuplicateBean
	case errors.Is(err, branch.ErrMissingBean):
		code = CodeMissingBean
	case errors.Is(err, branch.ErrConflict):
		code = CodeConflict
	case errors.Is(err, branch.ErrNoParent):
		code = CodeNoParent
	case errors.Is(err, errNoBranch):
		code = CodeNoBranch
	}
	return jsonrpc2.NewError(code, err.Error())
}
