// Package storetest keeps a test suite against storedefs.Store, so that
// alternative implementations can verify the same contract.
package storetest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.oopis.dev/pkg/store/storedefs"
)

// TestStore runs the blob store contract against st. The store must be
// empty when the suite starts.
func TestStore(t *testing.T, st storedefs.Store) {
	t.Run("GetMissing", func(t *testing.T) {
		_, err := st.Get("oopisOs.nope")
		if !errors.Is(err, storedefs.ErrNoKey) {
			t.Errorf("Get(missing) returned %v, want ErrNoKey", err)
		}
	})
	t.Run("SetGet", func(t *testing.T) {
		mustSet(t, st, "oopisOs.fsData", "tree-v1")
		if got := mustGet(t, st, "oopisOs.fsData"); got != "tree-v1" {
			t.Errorf("Get = %q, want %q", got, "tree-v1")
		}
		mustSet(t, st, "oopisOs.fsData", "tree-v2")
		if got := mustGet(t, st, "oopisOs.fsData"); got != "tree-v2" {
			t.Errorf("Get after overwrite = %q, want %q", got, "tree-v2")
		}
	})
	t.Run("Del", func(t *testing.T) {
		mustSet(t, st, "oopisOs.gone", "x")
		if err := st.Del("oopisOs.gone"); err != nil {
			t.Fatalf("Del -> %v", err)
		}
		if _, err := st.Get("oopisOs.gone"); !errors.Is(err, storedefs.ErrNoKey) {
			t.Errorf("Get(deleted) returned %v, want ErrNoKey", err)
		}
		if err := st.Del("oopisOs.gone"); err != nil {
			t.Errorf("Del(missing) -> %v, want nil", err)
		}
	})
	t.Run("KeysAndWipe", func(t *testing.T) {
		mustSet(t, st, "oopisOs.session.alice", "a")
		mustSet(t, st, "oopisOs.session.bob", "b")
		mustSet(t, st, "unrelated.key", "z")

		keys, err := st.Keys("oopisOs.session.")
		if err != nil {
			t.Fatalf("Keys -> %v", err)
		}
		wantKeys := []string{"oopisOs.session.alice", "oopisOs.session.bob"}
		if diff := cmp.Diff(wantKeys, keys); diff != "" {
			t.Errorf("Keys diff (-want +got):\n%s", diff)
		}

		n, err := st.Wipe(storedefs.KeyPrefix)
		if err != nil {
			t.Fatalf("Wipe -> %v", err)
		}
		if n < 2 {
			t.Errorf("Wipe removed %d keys, want at least 2", n)
		}
		if keys, _ := st.Keys(storedefs.KeyPrefix); len(keys) != 0 {
			t.Errorf("keys remain after Wipe: %v", keys)
		}
		if got := mustGet(t, st, "unrelated.key"); got != "z" {
			t.Errorf("Wipe removed an unrelated key")
		}
	})
}

func mustSet(t *testing.T, st storedefs.Store, key, data string) {
	t.Helper()
	if err := st.Set(key, []byte(data)); err != nil {
		t.Fatalf("Set(%q) -> %v", key, err)
	}
}

func mustGet(t *testing.T, st storedefs.Store, key string) string {
	t.Helper()
	data, err := st.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) -> %v", key, err)
	}
	return string(data)
}
