// Package script runs YAML descriptions of branch operations and checks
// their outcomes.
//
// A script names its root branch and lists steps. Each step applies one
// operation to a branch and may state the value it expects back or the
// kind of error it expects:
//
//	root: root
//	steps:
//	- {op: create, branch: root, bean: "1"}
//	- {op: fork, branch: root, name: other}
//	- {op: set, branch: other, bean: "1", field: moon, value: pie}
//	- {op: save, branch: other}
//	- {op: get, branch: root, bean: "1", field: moon, expect: pie}
package script

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

const (
	OpFork     = "fork"
	OpCreate   = "create"
	OpDelete   = "delete"
	OpSet      = "set"
	OpGet      = "get"
	OpBean     = "bean"
	OpPut      = "put"
	OpState    = "state"
	OpSave     = "save"
	OpModified = "modified"
	OpBeans    = "beans"
	OpQuery    = "query"
	OpExport   = "export"
)

type opInfo struct {
	bean, field, name bool
}

var ops = map[string]opInfo{
	OpFork:     {name: true},
	OpCreate:   {bean: true},
	OpDelete:   {bean: true},
	OpSet:      {bean: true, field: true},
	OpGet:      {bean: true, field: true},
	OpBean:     {bean: true},
	OpPut:      {bean: true},
	OpState:    {bean: true},
	OpSave:     {},
	OpModified: {},
	OpBeans:    {},
	OpQuery:    {name: true},
	OpExport:   {},
}

// Error kinds for Step.ExpectError.
const (
	ErrKindDuplicate = "duplicate"
	ErrKindMissing   = "missing"
	ErrKindConflict  = "conflict"
	ErrKindNoParent  = "noparent"
)

type Script struct {
	Root  string `json:"root"`
	Steps []Step `json:"steps"`
}

// Step is one operation. Name is the new branch for fork and the
// expression for query. Value is the field value for set and the fields
// for put. Replace makes put drop fields missing from Value. Expect is
// compared with what the operation returns, which for set is the
// previous value of the field.
type Step struct {
	Op          string `json:"op"`
	Branch      string `json:"branch"`
	Bean        string `json:"bean,omitempty"`
	Field       string `json:"field,omitempty"`
	Name        string `json:"name,omitempty"`
	Value       any    `json:"value,omitempty"`
	Replace     bool   `json:"replace,omitempty"`
	Expect      any    `json:"expect,omitempty"`
	ExpectError string `json:"expectError,omitempty"`
}

func (s *Step) String() string {
	switch {
	case s.Field != "":
		return fmt.Sprintf("%s %s %s.%s", s.Op, s.Branch, s.Bean, s.Field)
	case s.Bean != "":
		return fmt.Sprintf("%s %s %s", s.Op, s.Branch, s.Bean)
	case s.Name != "":
		return fmt.Sprintf("%s %s %q", s.Op, s.Branch, s.Name)
	}
	return fmt.Sprintf("%s %s", s.Op, s.Branch)
}

// Parse decodes and validates a script.
func Parse(d []byte) (*Script, error) {
	s := &Script{}
	if err := yaml.UnmarshalWithOptions(d, s, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("could not decode script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open reads and parses the script at path.
func Open(path string) (*Script, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", path, err)
	}
	s, err := Parse(d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks that every step is well formed and defaults step
// branches to the root. Branch names are only checked when the script
// runs.
func (s *Script) Validate() error {
	if s.Root == "" {
		return fmt.Errorf("script has no root branch")
	}
	for i := range s.Steps {
		st := &s.Steps[i]
		info, ok := ops[st.Op]
		if !ok {
			return fmt.Errorf("step %d: unknown op %q", i, st.Op)
		}
		if st.Branch == "" {
			st.Branch = s.Root
		}
		if info.bean && st.Bean == "" {
			return fmt.Errorf("step %d (%s): no bean", i, st.Op)
		}
		if info.field && st.Field == "" {
			return fmt.Errorf("step %d (%s): no field", i, st.Op)
		}
		if info.name && st.Name == "" {
			return fmt.Errorf("step %d (%s): no name", i, st.Op)
		}
		switch st.ExpectError {
		case "", ErrKindDuplicate, ErrKindMissing, ErrKindConflict, ErrKindNoParent:
		default:
			return fmt.Errorf("step %d (%s): unknown error kind %q", i, st.Op, st.ExpectError)
		}
		if st.Op == OpPut {
			if _, ok := st.Value.(map[string]any); !ok && st.Value != nil {
				return fmt.Errorf("step %d (%s): value must be a map, got %T", i, st.Op, st.Value)
			}
		}
	}
	return nil
}
