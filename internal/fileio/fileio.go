// Package fileio wraps a billy filesystem with the JSON and raw file helpers
// used by the state layer. Writes are atomic: content goes to a temp file in the
// target directory which is then renamed over the destination.
package fileio

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

const dirPerm = 0o755

// FileIO performs file operations relative to the root of a billy filesystem.
type FileIO struct {
	fs billy.Filesystem
}

// New creates a FileIO over an existing filesystem.
func New(fs billy.Filesystem) *FileIO {
	return &FileIO{fs: fs}
}

// NewOS creates a FileIO rooted at dir on the local disk.
func NewOS(dir string) *FileIO {
	return New(osfs.New(dir))
}

// NewMemory creates a FileIO backed by an in-memory filesystem.
func NewMemory() *FileIO {
	return New(memfs.New())
}

// FS returns the underlying filesystem.
func (f *FileIO) FS() billy.Filesystem {
	return f.fs
}

// Root returns the filesystem root path.
func (f *FileIO) Root() string {
	return f.fs.Root()
}

// ReadJSON decodes the JSON document at p into v.
func (f *FileIO) ReadJSON(p string, v any) error {
	data, err := f.ReadRaw(p)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &ParseError{Path: p, Offset: jsonOffset(err), Err: err}
	}
	return nil
}

// WriteJSON encodes v with two-space indentation and writes it atomically.
func (f *FileIO) WriteJSON(p string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return &WriteError{Path: p, Err: err}
	}
	return f.WriteRaw(p, buf.Bytes())
}

// ReadRaw returns the raw bytes at p.
func (f *FileIO) ReadRaw(p string) ([]byte, error) {
	data, err := util.ReadFile(f.fs, p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ReadError{Path: p, Err: ErrNotExist}
		}
		return nil, &ReadError{Path: p, Err: err}
	}
	return data, nil
}

// WriteRaw writes data to p atomically, creating parent directories.
func (f *FileIO) WriteRaw(p string, data []byte) error {
	if err := f.EnsureDir(path.Dir(p)); err != nil {
		return err
	}
	return f.atomicWrite(p, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// atomicWrite writes to a temp file in the destination directory and renames it
// into place. The temp file is removed on any failure.
func (f *FileIO) atomicWrite(p string, write func(io.Writer) error) error {
	tmp, err := f.fs.TempFile(path.Dir(p), "."+path.Base(p)+".tmp-")
	if err != nil {
		return &WriteError{Path: p, Err: err}
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = f.fs.Remove(tmpName)
	}

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return &WriteError{Path: p, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &WriteError{Path: p, Err: err}
	}
	if err := f.fs.Rename(tmpName, p); err != nil {
		cleanup()
		return &WriteError{Path: p, Err: err}
	}
	return nil
}

// Exists reports whether p exists. Stat errors other than not-exist count as
// non-existence.
func (f *FileIO) Exists(p string) bool {
	_, err := f.fs.Stat(p)
	return err == nil
}

// Stat returns file info for p.
func (f *FileIO) Stat(p string) (os.FileInfo, error) {
	info, err := f.fs.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ReadError{Path: p, Err: ErrNotExist}
		}
		return nil, &ReadError{Path: p, Err: err}
	}
	return info, nil
}

// EnsureDir creates dir and any missing parents.
func (f *FileIO) EnsureDir(dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}
	if err := f.fs.MkdirAll(dir, dirPerm); err != nil {
		return &WriteError{Path: dir, Err: err}
	}
	return nil
}

// Copy copies src to dest, creating the destination directory.
func (f *FileIO) Copy(src, dest string) error {
	data, err := f.ReadRaw(src)
	if err != nil {
		return err
	}
	return f.WriteRaw(dest, data)
}

// Delete removes p. A missing file is not an error.
func (f *FileIO) Delete(p string) error {
	if err := f.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &WriteError{Path: p, Err: err}
	}
	return nil
}

// jsonOffset extracts the byte offset from a decoder error, or -1.
func jsonOffset(err error) int64 {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return syntaxErr.Offset
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return typeErr.Offset
	}
	return -1
}

// ErrorPosition returns the 1-based line and column of a JSON decoding error
// in data, or zeros when the error carries no offset.
func ErrorPosition(data []byte, err error) (line, col int) {
	return LineColumn(data, jsonOffset(err))
}

// LineColumn converts a byte offset in data into a 1-based line and column.
func LineColumn(data []byte, offset int64) (line, col int) {
	if offset < 0 {
		return 0, 0
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	prefix := data[:offset]
	line = bytes.Count(prefix, []byte{'\n'}) + 1
	lastNL := bytes.LastIndexByte(prefix, '\n')
	col = len(prefix) - lastNL
	return line, col
}
