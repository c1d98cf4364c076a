package modules

import (
	"github.com/goravsingal/hubble/pkg/fdg"
)

// NewRegistry returns a registry with every built-in capability module
// registered under its "namespace.function" id.
func NewRegistry() *fdg.Registry {
	r := fdg.NewRegistry()

	r.Register("readfile.json", &ReadJSON{})
	r.Register("readfile.yaml", &ReadYAML{})
	r.Register("readfile.string", &ReadString{})

	r.Register("grep.grep", &Grep{})
	r.Register("stat.stat", &Stat{})
	r.Register("sysctl.get", &Sysctl{})
	r.Register("curl.request", &Curl{})

	r.Register("util.nop", &Nop{})
	r.Register("util.join", &Join{})
	r.Register("util.split", &Split{})
	r.Register("util.get_index", &GetIndex{})
	r.Register("util.get_key", &GetKey{})
	r.Register("util.dict_to_list", &DictToList{})
	r.Register("util.filter_seq", &FilterSeq{})
	r.Register("util.sort", &Sort{})
	r.Register("util.encode_base64", &EncodeBase64{})

	return r
}
