package modules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/goravsingal/hubble/pkg/fdg"
)

// Stat implements stat.stat: report a file's metadata.
type Stat struct{}

type statParams struct {
	Path string `mapstructure:"path"`
}

func (m *Stat) ValidateParams(call fdg.Call) error {
	var p statParams
	if err := decodeParams(call, []string{"path"}, &p); err != nil {
		return err
	}
	if p.Path == "" {
		if _, ok := chainedString(call); !ok {
			return missingParam("path")
		}
	}
	return nil
}

func (m *Stat) Invoke(_ context.Context, call fdg.Call) (fdg.Result, error) {
	var p statParams
	if err := decodeParams(call, []string{"path"}, &p); err != nil {
		return fdg.Result{}, err
	}
	if p.Path == "" {
		p.Path, _ = chainedString(call)
	}

	fi, err := os.Stat(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fdg.Negative("file_not_found"), nil
		}
		return fdg.Negative(fmt.Sprintf("stat failed: %v", err)), nil
	}

	info := map[string]any{
		"path":  p.Path,
		"mode":  fmt.Sprintf("%04o", fi.Mode().Perm()),
		"size":  fi.Size(),
		"mtime": fi.ModTime().Unix(),
		"isdir": fi.IsDir(),
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		info["uid"] = int(st.Uid)
		info["gid"] = int(st.Gid)
	}
	return fdg.Positive(info), nil
}
