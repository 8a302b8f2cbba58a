package fileio

import (
	"errors"
	"fmt"
)

// ErrNotExist is wrapped by ReadError when the path does not exist.
var ErrNotExist = errors.New("file does not exist")

// ErrLockTimeout is returned when the state lock is held by another process.
var ErrLockTimeout = errors.New("timed out waiting for state lock (another solodev command may be running)")

// Error codes carried by the typed errors below.
const (
	CodeRead  = "FILE_READ_ERROR"
	CodeWrite = "FILE_WRITE_ERROR"
	CodeParse = "JSON_PARSE_ERROR"
)

// ReadError is returned when a file cannot be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Code returns the stable error code.
func (e *ReadError) Code() string { return CodeRead }

// WriteError is returned when a file cannot be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Code returns the stable error code.
func (e *WriteError) Code() string { return CodeWrite }

// ParseError is returned when a file holds invalid JSON.
type ParseError struct {
	Path string
	// Offset is the byte offset reported by the decoder, or -1 when unknown.
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Code returns the stable error code.
func (e *ParseError) Code() string { return CodeParse }
