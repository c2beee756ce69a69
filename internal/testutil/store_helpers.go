package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/wesm/foldercache/internal/entity"
	"github.com/wesm/foldercache/internal/store"
)

// NewTestStore creates a temporary SQLite cache for testing.
// The database is automatically cleaned up when the test completes.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})

	if err := st.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return st
}

// FolderSetter is the part of a cache store used to seed folders.
type FolderSetter interface {
	SetFolders(ctx context.Context, folders *entity.Folders) error
}

// SeedFolders stores folders with the given ids, in that order.
func SeedFolders(t *testing.T, st FolderSetter, ids ...int64) {
	t.Helper()
	var folders []entity.Folder
	for _, id := range ids {
		folders = append(folders, entity.Folder{ID: id, Title: "folder"})
	}
	MustNoErr(t, st.SetFolders(context.Background(), entity.NewOrdered(folders...)), "seed folders")
}
