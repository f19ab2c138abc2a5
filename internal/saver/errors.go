package saver

import "fmt"

// Kind classifies engine failures. Kinds are errors themselves, so callers
// can test for them with errors.Is(err, saver.ErrCopyFailed).
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	// ErrSourceUnavailable: the source path is missing or not a regular file.
	// Transient, retried every tick.
	ErrSourceUnavailable Kind = "source unavailable"
	// ErrCopyFailed: creating a backup failed. The write is retried.
	ErrCopyFailed Kind = "copy failed"
	// ErrRemoveFailed: Apply could not remove the live file.
	ErrRemoveFailed Kind = "remove failed"
	// ErrRestoreCopyFailed: Apply could not copy the snapshot into place. If the
	// snapshot could not even be opened the live file is untouched; otherwise
	// it has already been removed.
	ErrRestoreCopyFailed Kind = "restore copy failed"
	// ErrRenameFailed: relabelling a snapshot failed; nothing was changed.
	ErrRenameFailed Kind = "rename failed"
	ErrInvalidLabel Kind = "invalid label"
	ErrOutOfRange   Kind = "row out of range"
	ErrNoTarget     Kind = "no watch target"
)

// Error is a classified engine failure.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
