//go:build !windows

package fileutil

// restrictToOwner is a no-op on Unix: the mode bits already apply.
func restrictToOwner(string) {}
