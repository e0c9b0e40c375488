package libdiff

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

type absent struct{}

func (absent) String() string { return "<absent>" }

// Absent stands for a field or bean that has no value.
var Absent fmt.Stringer = absent{}

// Format renders v as text.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case absent:
		return x.String()
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(x)
	}
	d, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return strings.TrimSuffix(string(d), "\n")
}
