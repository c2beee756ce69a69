// Package testutil provides test helpers for foldercache tests.
//
// The package is organized into focused files:
//   - assert.go: assertion helpers (MustNoErr, AssertEqualSlices)
//   - store_helpers.go: cache store setup (NewTestStore, SeedFolders)
//   - fs_helpers.go: filesystem helpers (WriteFile, MustExist)
//   - builders.go: raw chat, message and update builders
package testutil
