package expand

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"src.oopis.dev/pkg/store/storedefs"
)

// Aliases is the persistent alias table. Mutations are written back to the
// blob store immediately, the same write-through discipline the identity
// records use.
type Aliases struct {
	mu sync.Mutex
	st storedefs.Store
	m  map[string]string
}

// LoadAliases reads the alias table from st, starting empty on first run.
func LoadAliases(st storedefs.Store) (*Aliases, error) {
	a := &Aliases{st: st}
	data, err := st.Get(storedefs.KeyAliases)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &a.m); err != nil {
			return nil, fmt.Errorf("load aliases: %w", err)
		}
	case errors.Is(err, storedefs.ErrNoKey):
	default:
		return nil, err
	}
	if a.m == nil {
		a.m = make(map[string]string)
	}
	return a, nil
}

// Get returns the replacement text for name.
func (a *Aliases) Get(name string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	val, ok := a.m[name]
	return val, ok
}

// Set defines or redefines an alias and persists the table.
func (a *Aliases) Set(name, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m[name] = value
	return a.saveLocked()
}

// Unset removes an alias and persists the table. It reports whether the
// alias existed.
func (a *Aliases) Unset(name string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.m[name]; !ok {
		return false, nil
	}
	delete(a.m, name)
	return true, a.saveLocked()
}

// Names returns all alias names, sorted.
func (a *Aliases) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.m))
	for name := range a.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *Aliases) saveLocked() error {
	data, err := json.Marshal(a.m)
	if err != nil {
		return err
	}
	if err := a.st.Set(storedefs.KeyAliases, data); err != nil {
		return fmt.Errorf("save aliases: %w", err)
	}
	return nil
}
