package store

import (
	"fmt"
	"os"
	"path/filepath"

	"src.oopis.dev/pkg/testutil"
)

// MustTempStore returns a Store backed by a temporary file that is removed
// when the test finishes.
func MustTempStore(c testutil.Cleanuper) DBStore {
	dir, err := os.MkdirTemp("", "oopistest.")
	if err != nil {
		panic(fmt.Sprintf("create temp dir: %v", err))
	}
	st, err := NewStore(filepath.Join(dir, "db"))
	if err != nil {
		panic(fmt.Sprintf("create temp store: %v", err))
	}
	c.Cleanup(func() {
		st.Close()
		os.RemoveAll(dir)
	})
	return st
}
