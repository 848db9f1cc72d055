// Package errs declares error types used throughout the OS core. The
// taxonomy is deliberately small: commands wrap these errors with their own
// name, so the messages here never repeat the command.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors without parameters.
var (
	// ErrCancelled is returned when the user cancels a pending operation,
	// for example by dismissing a prompt.
	ErrCancelled = errors.New("operation cancelled")

	// ErrInvalidUsername is returned when authenticating a user that does
	// not exist.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrInvalidPassword is returned when a supplied password fails
	// verification.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrNoPasswordRequired is returned when a password is supplied for an
	// account that does not have one.
	ErrNoPasswordRequired = errors.New("account does not require a password")

	// ErrIncorrectCurrentPassword is returned by password changes when the
	// current password does not verify.
	ErrIncorrectCurrentPassword = errors.New("incorrect current password")

	// ErrRequiresRoot is returned when an operation is reserved for root.
	ErrRequiresRoot = errors.New("requires root privileges")

	// ErrOperationNotPermitted is returned for ownership violations, such as
	// chmod by a user who is neither root nor the owner.
	ErrOperationNotPermitted = errors.New("operation not permitted")

	// ErrCannotMoveRoot is returned when a file operation names the root
	// directory as a source.
	ErrCannotMoveRoot = errors.New("cannot move root directory")

	// ErrCannotDeleteRoot is returned when a delete names the root
	// directory.
	ErrCannotDeleteRoot = errors.New("cannot remove root directory")
)

// AlreadyExists is returned when a create would clobber an existing node
// and the operation does not overwrite.
type AlreadyExists struct{ Path string }

func (e *AlreadyExists) Error() string {
	return e.Path + ": file exists"
}

// NoSuchFileOrDir is returned when a path does not resolve to a node.
type NoSuchFileOrDir struct{ Path string }

func (e *NoSuchFileOrDir) Error() string {
	return e.Path + ": no such file or directory"
}

// CommandNotFound is returned when a command name resolves to neither a
// registered command nor an executable file under /bin.
type CommandNotFound struct{ Name string }

func (e *CommandNotFound) Error() string {
	return e.Name + ": command not found"
}

// UserNotFound is returned when an operation names an unknown user.
type UserNotFound struct{ Name string }

func (e *UserNotFound) Error() string {
	return "user not found: " + e.Name
}

// GroupNotFound is returned when an operation names an unknown group.
type GroupNotFound struct{ Name string }

func (e *GroupNotFound) Error() string {
	return "group not found: " + e.Name
}

// UserExists is returned when registering a user under a taken name.
type UserExists struct{ Name string }

func (e *UserExists) Error() string {
	return "user '" + e.Name + "' already exists"
}

// GroupExists is returned when creating a group under a taken name.
type GroupExists struct{ Name string }

func (e *GroupExists) Error() string {
	return "group '" + e.Name + "' already exists"
}

// JobNotFound is returned when a signal or message is sent to a job id that
// is not in the job table.
type JobNotFound struct{ ID int }

func (e *JobNotFound) Error() string {
	return fmt.Sprintf("no such job: %d", e.ID)
}

// IsDir is returned when a file operation is applied to a directory.
type IsDir struct{ Path string }

func (e *IsDir) Error() string {
	return e.Path + ": is a directory"
}

// NotDir is returned when a directory operation is applied to a non-directory.
type NotDir struct{ Path string }

func (e *NotDir) Error() string {
	return e.Path + ": is not a directory"
}

// NotFile is returned when a write would replace a non-file node.
type NotFile struct{ Path string }

func (e *NotFile) Error() string {
	return e.Path + ": is not a file"
}

// PermissionDenied is returned when a permission check fails. Op names the
// access bits that were required ("r", "w", "x" or a combination); it may
// be empty for aggregate operations.
type PermissionDenied struct {
	Op   string
	Path string
}

func (e *PermissionDenied) Error() string {
	if e.Path == "" {
		return "permission denied"
	}
	return e.Path + ": permission denied"
}

// QuotaExceeded is returned when a write would bring the total size of the
// filesystem above the configured limit.
type QuotaExceeded struct {
	Need  int64
	Limit int64
}

func (e *QuotaExceeded) Error() string {
	return fmt.Sprintf("quota exceeded: need %d bytes, limit is %d", e.Need, e.Limit)
}

// StepsExceeded is returned when a script runs more commands than the
// configured cap.
type StepsExceeded struct{ Limit int }

func (e *StepsExceeded) Error() string {
	return fmt.Sprintf("maximum script steps exceeded (%d)", e.Limit)
}

// SymlinkLoop is returned when resolving a path follows more than the
// allowed number of symbolic links.
type SymlinkLoop struct{ Path string }

func (e *SymlinkLoop) Error() string {
	return e.Path + ": too many levels of symbolic links"
}

// AliasLoop is returned when alias expansion does not terminate within the
// allowed number of steps.
type AliasLoop struct{ Name string }

func (e *AliasLoop) Error() string {
	return "alias loop resolving '" + e.Name + "'"
}

// ParentMalformed is returned when an intermediate path component exists but
// cannot hold children.
type ParentMalformed struct{ Path string }

func (e *ParentMalformed) Error() string {
	return e.Path + ": parent directory is malformed"
}

// MoveIntoSelf is returned when a directory would be moved or copied into
// its own subtree.
type MoveIntoSelf struct{ Path string }

func (e *MoveIntoSelf) Error() string {
	return "cannot move '" + e.Path + "' into itself"
}

// SameFile is returned when source and destination of a file operation
// resolve to the same node.
type SameFile struct{ Path string }

func (e *SameFile) Error() string {
	return e.Path + ": source and destination are the same file"
}

// InvalidVariableName is returned when an environment operation names a
// variable that does not match the accepted pattern.
type InvalidVariableName struct{ Name string }

func (e *InvalidVariableName) Error() string {
	return "invalid variable name: " + e.Name
}

// InvalidSignal is returned when a signal name is not one of KILL, TERM,
// STOP or CONT.
type InvalidSignal struct{ Signal string }

func (e *InvalidSignal) Error() string {
	return "invalid signal: " + e.Signal
}

// SaveFailed is returned when persisting state to the blob store fails
// after a successful mutation. What names the state that was being saved.
type SaveFailed struct {
	What string
	Err  error
}

func (e *SaveFailed) Error() string {
	return "failed to save " + e.What + ": " + e.Err.Error()
}

func (e *SaveFailed) Unwrap() error { return e.Err }
