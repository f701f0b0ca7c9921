package asset

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
)

const (
	writeBufferSize = 64 * 1024

	// FilePerm is the permission of written files.
	FilePerm os.FileMode = 0o644

	// DirPerm is the permission of created directories.
	DirPerm os.FileMode = 0o750
)

// WriteFileAtomic streams r into dest through a temporary file in the same
// directory, then renames it into place. On any failure the temporary file is
// removed and dest is left untouched.
//
// Errors from r are returned unchanged so callers can tell a broken source
// from a broken disk; local failures are returned as *FilesystemError.
func WriteFileAtomic(ctx context.Context, dest string, r io.Reader) (int64, error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return 0, &FilesystemError{Op: "create temp", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()

	fail := func(op string, err error) (int64, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return 0, &FilesystemError{Op: op, Path: dest, Err: err}
	}

	src := &ctxReader{ctx: ctx, r: r}
	bw := bufio.NewWriterSize(tmp, writeBufferSize)
	n, err := io.Copy(bw, src)
	if err != nil {
		if src.err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
			return 0, src.err
		}
		return fail("write", err)
	}
	if err := bw.Flush(); err != nil {
		return fail("flush", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, &FilesystemError{Op: "close", Path: dest, Err: err}
	}
	if err := os.Chmod(tmpPath, FilePerm); err != nil {
		_ = os.Remove(tmpPath)
		return 0, &FilesystemError{Op: "chmod", Path: dest, Err: err}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return 0, &FilesystemError{Op: "rename", Path: dest, Err: err}
	}
	return n, nil
}

// ctxReader checks ctx before every read and records the first read error.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
	err error
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		c.err = err
		return 0, err
	}
	n, err := c.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		c.err = err
	}
	return n, err
}
