// Package fileutil creates the owner-only files and directories that hold
// cached chat content.
//
// On Unix the helpers rely on the mode bits alone. On Windows, where mode
// bits do not restrict other accounts, each created path also gets a
// protected DACL granting access to the current user only. A DACL failure is
// logged and does not fail the operation.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirPerm is the mode of every directory created by this package.
	DirPerm os.FileMode = 0700
	// FilePerm is the mode of every file created by this package.
	FilePerm os.FileMode = 0600
)

// PrivateMkdirAll creates path and any missing parents with DirPerm.
// Directories that already existed keep their permissions.
func PrivateMkdirAll(path string) error {
	created := missingDirs(path)
	if err := os.MkdirAll(path, DirPerm); err != nil {
		return err
	}
	for _, dir := range created {
		restrictToOwner(dir)
	}
	return nil
}

// PrivateWriteFile writes data to path with FilePerm, replacing any
// existing content.
func PrivateWriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, FilePerm); err != nil {
		return err
	}
	restrictToOwner(path)
	return nil
}

// MoveInto renames src into dir, keeping its base name, and returns the new
// path. dir must be on the same volume as src.
func MoveInto(src, dir string) (string, error) {
	dst := filepath.Join(dir, filepath.Base(src))
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("move %s to %s: %w", filepath.Base(src), dir, err)
	}
	return dst, nil
}

// missingDirs lists path and its ancestors that do not exist yet, leaf first.
func missingDirs(path string) []string {
	var dirs []string
	p := filepath.Clean(path)
	for {
		if _, err := os.Stat(p); err == nil {
			return dirs
		}
		dirs = append(dirs, p)
		parent := filepath.Dir(p)
		if parent == p {
			return dirs
		}
		p = parent
	}
}
