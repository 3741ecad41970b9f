// Package fsstore provides atomic JSON file persistence for the bot's small
// state files (trust lists, conversation log).
package fsstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultDirPerm  = 0o700
	defaultFilePerm = 0o600
)

var (
	ErrInvalidPath       = errors.New("fsstore: invalid path")
	ErrEncodeFailed      = errors.New("fsstore: encode failed")
	ErrDecodeFailed      = errors.New("fsstore: decode failed")
	ErrAtomicWriteFailed = errors.New("fsstore: atomic write failed")
)

func normalizePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	return filepath.Clean(path), nil
}

// ReadJSON loads path into out. A missing or empty file reports (false, nil)
// so callers can start from a zero value without treating absence as an error.
func ReadJSON(path string, out any) (bool, error) {
	p, err := normalizePath(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read json %s: %w", p, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", ErrDecodeFailed, p, err)
	}
	return true, nil
}

// WriteJSONAtomic writes v as indented JSON via a temp-file rename so readers
// never observe a partial file.
func WriteJSONAtomic(path string, v any) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrEncodeFailed, p, err)
	}
	data = append(data, '\n')
	return writeAtomic(p, data)
}

func EnsureDir(path string) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p, defaultDirPerm); err != nil {
		return fmt.Errorf("fsstore ensure dir %s: %w", p, err)
	}
	return nil
}

func writeAtomic(path string, content []byte) error {
	parent := filepath.Dir(path)
	if err := EnsureDir(parent); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(parent, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrAtomicWriteFailed, path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("%w: write temp for %s: %v", ErrAtomicWriteFailed, path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync temp for %s: %v", ErrAtomicWriteFailed, path, err)
	}
	if err := tmp.Chmod(defaultFilePerm); err != nil {
		return fmt.Errorf("%w: chmod temp for %s: %v", ErrAtomicWriteFailed, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp for %s: %v", ErrAtomicWriteFailed, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename temp for %s: %v", ErrAtomicWriteFailed, path, err)
	}

	// Best effort directory sync for durability; ignore failures.
	if dirFD, err := os.Open(parent); err == nil {
		_ = dirFD.Sync()
		_ = dirFD.Close()
	}
	return nil
}
