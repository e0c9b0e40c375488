// Package patch moves bean changes between branches as JSON documents.
//
// Beans are encoded as JSON objects of their fields. Changes are exported
// as RFC 6902 patches against the state a branch started from and may be
// applied to any branch of any tree with the same key type. Beans may
// also be edited in place with RFC 6902 or RFC 7386 patches.
package patch

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/signadot/beanstore/branch"
)

// Change is the exported form of one modified bean.
type Change[K comparable] struct {
	Bean  K                `json:"bean" yaml:"bean"`
	State branch.BeanState `json:"state" yaml:"state"`
	// Replace is set when the bean is a new incarnation. Patch then adds
	// every field of the bean instead of the changed ones.
	Replace bool `json:"replace,omitempty" yaml:"replace,omitempty"`
	// Patch is an RFC 6902 patch of add operations. It is empty for
	// deleted beans.
	Patch json.RawMessage `json:"patch,omitempty" yaml:"patch,omitempty"`
}

type op struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// Export describes every modified bean of b.
//
// Fields are written as add operations rather than as a merge patch
// since a nil field value is a value and not a removal.
func Export[K comparable](b *branch.Branch[K]) ([]Change[K], error) {
	var res []Change[K]
	for _, id := range b.ModifiedBeans() {
		lc := b.Lifecycle(id)
		c := Change[K]{Bean: id, State: lc.State}
		if lc.State != branch.Created {
			res = append(res, c)
			continue
		}
		base := b.BaseLifecycle(id)
		c.Replace = base.State != branch.Created || base.Incarnation != lc.Incarnation
		var old map[string]any
		if !c.Replace {
			old = b.BaseBean(id)
		}
		cur := b.GetBean(id)
		names := make([]string, 0, len(cur))
		for n := range cur {
			names = append(names, n)
		}
		sort.Strings(names)
		ops := []op{}
		for _, n := range names {
			if ov, ok := old[n]; ok && branch.DeepEqual(ov, cur[n]) {
				continue
			}
			ops = append(ops, op{Op: "add", Path: "/" + pointerEscaper.Replace(n), Value: cur[n]})
		}
		d, err := json.Marshal(ops)
		if err != nil {
			return nil, fmt.Errorf("bean %v: %w", id, err)
		}
		c.Patch = d
		res = append(res, c)
	}
	return res, nil
}

// Import applies changes to b in order.
func Import[K comparable](b *branch.Branch[K], changes []Change[K]) error {
	for _, c := range changes {
		switch c.State {
		case branch.Deleted:
			if b.State(c.Bean) != branch.Created {
				continue
			}
			if err := b.DeleteBean(c.Bean); err != nil {
				return err
			}
		case branch.Created:
			if c.Replace {
				if _, err := b.SetBean(c.Bean, nil, true); err != nil {
					return err
				}
			}
			if len(c.Patch) == 0 {
				continue
			}
			if err := ApplyJSONPatch(b, c.Bean, c.Patch); err != nil {
				return err
			}
		default:
			return fmt.Errorf("bean %v: cannot import state %s", c.Bean, c.State)
		}
	}
	return nil
}

// ApplyMergePatch applies an RFC 7386 merge patch to bean id, creating
// the bean if it is not Created.
func ApplyMergePatch[K comparable](b *branch.Branch[K], id K, p []byte) error {
	return rewrite(b, id, func(doc []byte) ([]byte, error) {
		return jsonpatch.MergePatch(doc, p)
	})
}

// ApplyJSONPatch applies an RFC 6902 patch to bean id, creating the bean
// if it is not Created.
func ApplyJSONPatch[K comparable](b *branch.Branch[K], id K, p []byte) error {
	ops, err := jsonpatch.DecodePatch(p)
	if err != nil {
		return fmt.Errorf("bean %v: %w", id, err)
	}
	return rewrite(b, id, ops.Apply)
}

// rewrite replaces the fields of bean id by the result of f on its JSON
// encoding. Fields which f leaves alone keep their original Go values.
func rewrite[K comparable](b *branch.Branch[K], id K, f func([]byte) ([]byte, error)) error {
	cur := b.GetBean(id)
	doc, err := marshalBean(cur)
	if err != nil {
		return fmt.Errorf("bean %v: %w", id, err)
	}
	out, err := f(doc)
	if err != nil {
		return fmt.Errorf("bean %v: %w", id, err)
	}
	next := map[string]any{}
	if err := json.Unmarshal(out, &next); err != nil {
		return fmt.Errorf("bean %v: patch result: %w", id, err)
	}
	old := map[string]any{}
	if err := json.Unmarshal(doc, &old); err != nil {
		return fmt.Errorf("bean %v: %w", id, err)
	}
	if cur == nil {
		_, err := b.SetBean(id, next, false)
		return err
	}
	for k := range old {
		if _, ok := next[k]; !ok {
			// fields cannot be unset, only dropped with a new incarnation
			_, err := b.SetBean(id, keep(cur, old, next), true)
			return err
		}
	}
	names := make([]string, 0, len(next))
	for k := range next {
		if ov, ok := old[k]; !ok || !branch.DeepEqual(ov, next[k]) {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	for _, k := range names {
		if _, err := b.SetField(id, k, next[k]); err != nil {
			return err
		}
	}
	return nil
}

// keep returns next with the unchanged values taken from cur.
func keep(cur, old, next map[string]any) map[string]any {
	res := make(map[string]any, len(next))
	for k, v := range next {
		if ov, ok := old[k]; ok && branch.DeepEqual(ov, v) {
			res[k] = cur[k]
			continue
		}
		res[k] = v
	}
	return res
}

func marshalBean(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
