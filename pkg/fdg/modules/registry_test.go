package modules_test

import (
	"testing"

	"github.com/goravsingal/hubble/pkg/fdg/modules"
)

func TestNewRegistry_BuiltinNames(t *testing.T) {
	reg := modules.NewRegistry()
	for _, name := range []string{
		"readfile.json", "readfile.yaml", "readfile.string",
		"grep.grep", "stat.stat", "sysctl.get", "curl.request",
		"util.nop", "util.join", "util.split", "util.get_index",
		"util.get_key", "util.dict_to_list", "util.filter_seq",
		"util.sort", "util.encode_base64",
	} {
		if _, ok := reg.Get(name); !ok {
			t.Errorf("module %q not registered", name)
		}
	}
}
