package testutil

import (
	"context"
	"path/filepath"
	"testing"
)

func TestNewTestStore(t *testing.T) {
	st := NewTestStore(t)

	stats, err := st.GetStats(context.Background())
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.MessageCount != 0 || stats.FolderCount != 0 {
		t.Errorf("fresh cache not empty: %+v", stats)
	}
}

func TestSeedFolders(t *testing.T) {
	st := NewTestStore(t)
	SeedFolders(t, st, 3, 1)

	folders, err := st.GetFolders(context.Background())
	MustNoErr(t, err, "GetFolders")
	AssertEqualSlices(t, folders.Keys(), 3, 1)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := WriteFile(t, dir, "inbox/a.json", []byte("{}"))
	if path != filepath.Join(dir, "inbox", "a.json") {
		t.Errorf("path = %q", path)
	}
	MustExist(t, path)
	MustNotExist(t, filepath.Join(dir, "inbox", "b.json"))
}

func TestRawMessageBuilder(t *testing.T) {
	m := NewRawMessage(5, 10).InChannel(20).WithText("hi").From(7).Build()
	if m.PeerID.FolderID() != 20 || m.Text != "hi" || m.FromID.UserID != 7 || m.Date != 5 {
		t.Errorf("unexpected message: %+v", m)
	}
}
