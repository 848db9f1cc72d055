// Package userdb implements the identity store: credential records with
// salted password digests and group membership, persisted in the blob
// store. It is pure bookkeeping; the session stack and privilege policy
// live elsewhere and call into it.
package userdb

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/logutil"
	"src.oopis.dev/pkg/store/storedefs"
)

var logger = logutil.GetLogger("[userdb] ")

const (
	pbkdf2Iters = 100000
	saltBytes   = 16
	keyBytes    = 32
)

// PasswordData is a salted PBKDF2-HMAC-SHA256 digest, both parts
// hex-encoded.
type PasswordData struct {
	Salt string `json:"salt"`
	Hash string `json:"hash"`
}

// Credential is one user's stored record. A nil PasswordData marks a
// passwordless account.
type Credential struct {
	PasswordData *PasswordData `json:"passwordData,omitempty"`
	PrimaryGroup string        `json:"primaryGroup"`
}

// DB holds all credentials and groups in memory and writes them back to the
// blob store after every mutation.
type DB struct {
	mu    sync.Mutex
	st    storedefs.Store
	users map[string]Credential
	// groups maps a group name to its explicit members, kept sorted. A
	// user's primary group membership is implicit and not listed here.
	groups map[string][]string
}

var validName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,31}$`)

// ValidName reports whether name is acceptable as a user or group name.
func ValidName(name string) bool { return validName.MatchString(name) }

// Load reads the identity records from st. On first run it seeds root and
// the default user, both passwordless, each with a same-named primary
// group.
func Load(st storedefs.Store, defaultUser string) (*DB, error) {
	db := &DB{st: st}
	if err := loadJSON(st, storedefs.KeyCredentials, &db.users); err != nil {
		return nil, err
	}
	if err := loadJSON(st, storedefs.KeyGroups, &db.groups); err != nil {
		return nil, err
	}
	if db.users == nil {
		db.users = make(map[string]Credential)
	}
	if db.groups == nil {
		db.groups = make(map[string][]string)
	}
	seeded := false
	for _, name := range []string{"root", defaultUser} {
		if _, ok := db.users[name]; !ok {
			db.users[name] = Credential{PrimaryGroup: name}
			seeded = true
		}
		if _, ok := db.groups[name]; !ok {
			db.groups[name] = []string{}
			seeded = true
		}
	}
	if seeded {
		logger.Println("seeding built-in accounts")
		if err := db.persistLocked(); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func loadJSON(st storedefs.Store, key string, dst any) error {
	data, err := st.Get(key)
	if errors.Is(err, storedefs.ErrNoKey) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func (db *DB) persistLocked() error {
	if err := db.saveKey(storedefs.KeyCredentials, db.users); err != nil {
		return err
	}
	return db.saveKey(storedefs.KeyGroups, db.groups)
}

func (db *DB) saveKey(key string, v any) error {
	data, err := json.Marshal(v)
	if err == nil {
		err = db.st.Set(key, data)
	}
	if err != nil {
		return &errs.SaveFailed{What: "credentials", Err: err}
	}
	return nil
}

// Exists reports whether name is a known user.
func (db *DB) Exists(name string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.users[name]
	return ok
}

// Users returns all usernames, sorted.
func (db *DB) Users() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	names := make([]string, 0, len(db.users))
	for name := range db.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PrimaryGroup returns the primary group of the given user.
func (db *DB) PrimaryGroup(name string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cred, ok := db.users[name]
	if !ok {
		return "", &errs.UserNotFound{Name: name}
	}
	return cred.PrimaryGroup, nil
}

// HasPassword reports whether the account has password data. The auth flow
// uses it to decide whether to prompt.
func (db *DB) HasPassword(name string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cred, ok := db.users[name]
	if !ok {
		return false, errs.ErrInvalidUsername
	}
	return cred.PasswordData != nil, nil
}

// Register creates a new user with a same-named primary group. An empty
// password creates a passwordless account.
func (db *DB) Register(name, password string) error {
	if !ValidName(name) {
		return errs.ErrInvalidUsername
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.users[name]; ok {
		return &errs.UserExists{Name: name}
	}
	cred := Credential{PrimaryGroup: name}
	if password != "" {
		data, err := hashPassword(password)
		if err != nil {
			return err
		}
		cred.PasswordData = data
	}
	db.users[name] = cred
	if _, ok := db.groups[name]; !ok {
		db.groups[name] = []string{}
	}
	return db.persistLocked()
}

// VerifyPassword checks a supplied password against the stored record,
// following the auth flow: unknown user is an invalid username, a password
// offered to a passwordless account is refused, and otherwise the digest
// must match.
func (db *DB) VerifyPassword(name, password string) error {
	db.mu.Lock()
	cred, ok := db.users[name]
	db.mu.Unlock()
	if !ok {
		return errs.ErrInvalidUsername
	}
	if cred.PasswordData == nil {
		if password != "" {
			return errs.ErrNoPasswordRequired
		}
		return nil
	}
	if !cred.PasswordData.verify(password) {
		return errs.ErrInvalidPassword
	}
	return nil
}

// SetPassword replaces the user's password. An empty password makes the
// account passwordless. Callers enforce who may change whose password.
func (db *DB) SetPassword(name, password string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cred, ok := db.users[name]
	if !ok {
		return &errs.UserNotFound{Name: name}
	}
	if password == "" {
		cred.PasswordData = nil
	} else {
		data, err := hashPassword(password)
		if err != nil {
			return err
		}
		cred.PasswordData = data
	}
	db.users[name] = cred
	return db.persistLocked()
}

// Remove deletes a user, their explicit group memberships, and their
// primary group if no other member remains in it. Root cannot be removed.
func (db *DB) Remove(name string) error {
	if name == "root" {
		return errs.ErrOperationNotPermitted
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	cred, ok := db.users[name]
	if !ok {
		return &errs.UserNotFound{Name: name}
	}
	delete(db.users, name)
	for group, members := range db.groups {
		db.groups[group] = without(members, name)
	}
	if members, ok := db.groups[cred.PrimaryGroup]; ok && len(members) == 0 {
		delete(db.groups, cred.PrimaryGroup)
	}
	return db.persistLocked()
}

// Groups returns the user's effective group set: the primary group plus
// every group listing the user as a member, sorted. Unknown users have no
// groups.
func (db *DB) Groups(user string) []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	cred, ok := db.users[user]
	if !ok {
		return nil
	}
	set := map[string]bool{cred.PrimaryGroup: true}
	for group, members := range db.groups {
		for _, m := range members {
			if m == user {
				set[group] = true
			}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GroupExists reports whether name is a known group.
func (db *DB) GroupExists(name string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.groups[name]
	return ok
}

// ListGroups returns all group names, sorted.
func (db *DB) ListGroups() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	names := make([]string, 0, len(db.groups))
	for name := range db.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateGroup adds an empty group.
func (db *DB) CreateGroup(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("invalid group name: %s", name)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.groups[name]; ok {
		return &errs.GroupExists{Name: name}
	}
	db.groups[name] = []string{}
	return db.persistLocked()
}

// ErrPrimaryGroup is returned when deleting a group that is still some
// user's primary group.
var ErrPrimaryGroup = errors.New("cannot remove a user's primary group")

// DeleteGroup removes a group. A group that is some user's primary group
// cannot be removed.
func (db *DB) DeleteGroup(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.groups[name]; !ok {
		return &errs.GroupNotFound{Name: name}
	}
	for _, cred := range db.users {
		if cred.PrimaryGroup == name {
			return ErrPrimaryGroup
		}
	}
	delete(db.groups, name)
	return db.persistLocked()
}

// AddToGroup adds user to group. Adding an existing member is a no-op.
func (db *DB) AddToGroup(user, group string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.users[user]; !ok {
		return &errs.UserNotFound{Name: user}
	}
	members, ok := db.groups[group]
	if !ok {
		return &errs.GroupNotFound{Name: group}
	}
	for _, m := range members {
		if m == user {
			return nil
		}
	}
	members = append(members, user)
	sort.Strings(members)
	db.groups[group] = members
	return db.persistLocked()
}

// RemoveFromGroup removes user from group's explicit members. A user's
// primary group membership is implicit and unaffected.
func (db *DB) RemoveFromGroup(user, group string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.users[user]; !ok {
		return &errs.UserNotFound{Name: user}
	}
	members, ok := db.groups[group]
	if !ok {
		return &errs.GroupNotFound{Name: group}
	}
	db.groups[group] = without(members, user)
	return db.persistLocked()
}

func without(members []string, name string) []string {
	out := members[:0]
	for _, m := range members {
		if m != name {
			out = append(out, m)
		}
	}
	return out
}

func hashPassword(password string) (*PasswordData, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iters, keyBytes, sha256.New)
	return &PasswordData{
		Salt: hex.EncodeToString(salt),
		Hash: hex.EncodeToString(key),
	}, nil
}

func (p *PasswordData) verify(password string) bool {
	salt, err := hex.DecodeString(p.Salt)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(p.Hash)
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(password), salt, pbkdf2Iters, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
