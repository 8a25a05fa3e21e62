package data

import (
	"errors"
	"fmt"
)

type (
	// Error is the storage error surfaced by the WAL, the SSTables
	// and the engine. It carries the failure kind and the file the
	// operation was touching.
	Error struct {
		Kind    ErrorKind
		Message string
		Path    string
	}

	ErrorKind uint8
)

const (
	FileOpenError ErrorKind = iota + 1
	FileWriteError
	FileReadError
	CorruptionError
)

var errorKindStr = []string{"file open", "file write", "file read", "corruption"}

func (k ErrorKind) String() string {
	return errorKindStr[k-1]
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Path)
}

func FileOpen(path string) *Error {
	return &Error{Kind: FileOpenError, Message: "failed to open file", Path: path}
}

func FileWrite(path string) *Error {
	return &Error{Kind: FileWriteError, Message: "could not write to file", Path: path}
}

func FileRead(path string) *Error {
	return &Error{Kind: FileReadError, Message: "failed to read file", Path: path}
}

func Corruption(path, message string) *Error {
	return &Error{Kind: CorruptionError, Message: message, Path: path}
}

// IsKind reports whether err is, or wraps, a storage Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
