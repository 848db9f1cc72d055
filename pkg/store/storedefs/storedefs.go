// Package storedefs contains definitions of the store API.
//
// It is a separate package so that packages that only depend on the store
// API do not need to depend on the concrete implementation.
package storedefs

import "errors"

// ErrNoKey is returned by Store.Get when the key does not exist.
var ErrNoKey = errors.New("no such key")

// Store is an interface satisfied by the persistence service. All state that
// survives a restart goes through it.
type Store interface {
	// Set stores data under key, replacing any existing value.
	Set(key string, data []byte) error
	// Get retrieves the data stored under key, or ErrNoKey.
	Get(key string) ([]byte, error)
	// Del removes key. Deleting a missing key is not an error.
	Del(key string) error
	// Keys lists all keys with the given prefix, in lexical order.
	Keys(prefix string) ([]string, error)
	// Wipe removes every key with the given prefix and returns how many
	// were removed.
	Wipe(prefix string) (int, error)
}

// Keys used by the OS core. Every key carries the KeyPrefix so that a full
// system reset can wipe them all without touching anything else that may
// live in the same database.
const (
	KeyPrefix      = "oopisOs"
	KeyFsData      = "oopisOs.fsData"
	KeyCredentials = "oopisOs.credentials"
	KeyGroups      = "oopisOs.groups"
	KeyAliases     = "oopisOs.aliases"
)

// SessionKey returns the key holding the automatic session snapshot of the
// given user.
func SessionKey(user string) string { return "oopisOs.session." + user }

// ManualSaveKey returns the key holding the manual filesystem save of the
// given user.
func ManualSaveKey(user string) string { return "oopisOs.manualSave." + user }
