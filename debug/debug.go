// Package debug holds switches for tracing the store internals.
//
// Switches are read once from the environment at init:
//
//	BEANSTORE_DEBUG_MERGE  trace key classification during Save
//	BEANSTORE_DEBUG_READ   trace visible-state resolution through parents
//	BEANSTORE_DEBUG_RPC    trace rpc requests
package debug

import (
	"os"
	"strconv"
)

type debug struct {
	Merge bool
	Read  bool
	RPC   bool
}

var d *debug

func init() {
	d = &debug{}
	d.Merge = boolEnv("BEANSTORE_DEBUG_MERGE")
	d.Read = boolEnv("BEANSTORE_DEBUG_READ")
	d.RPC = boolEnv("BEANSTORE_DEBUG_RPC")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Merge() bool {
	return d.Merge
}
func Read() bool {
	return d.Read
}
func RPC() bool {
	return d.RPC
}

// Enable turns on every switch. Used by the cli -debug option.
func Enable() {
	d.Merge = true
	d.Read = true
	d.RPC = true
}
