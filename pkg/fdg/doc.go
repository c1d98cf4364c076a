// Package fdg implements the flexible data gathering engine: a
// restricted, read-only execution model for declarative audit routines.
//
// A routine is a YAML document mapping block ids to blocks. The block
// named "main" is the entry point. Each block names one registered
// module function ("namespace.function"), literal args/kwargs for it,
// and at most one of six chaining keywords that select the next block:
//
//	main:
//	    module: readfile.yaml
//	    kwargs:
//	        path: /etc/ssh/sshd_config.yaml
//	    pipe: check_value
//
//	check_value:
//	    module: util.get_key
//	    kwargs:
//	        key: PermitRootLogin
//
// Module functions return a (status, value) pair. The status drives the
// conditional chaining keywords; the value is what flows through the
// chain. The pipe variants forward the whole value to the target block,
// the xpipe variants iterate it and evaluate the target once per
// element, collecting the sub-results into a list. When no keyword is
// eligible the block is terminal and its value bubbles back up the call
// chain. An optional return keyword names a returner that records
// the block's resolved value as a side output.
//
// The engine never executes arbitrary commands: only functions present
// in the module registry can be invoked, and the built-in set under
// pkg/fdg/modules is read-only by construction.
package fdg
