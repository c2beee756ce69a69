package store

import (
	"context"
	"sync"

	"github.com/wesm/foldercache/internal/entity"
)

// Memory is an in-process cache store. Reads return independent snapshots
// and writes store copies, so callers never share mutable state with it.
type Memory struct {
	mu       sync.RWMutex
	folders  *entity.Folders
	messages entity.FoldersMessages
	search   *entity.SearchMessages
	user     *entity.User
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		folders:  entity.NewOrdered[entity.Folder](),
		messages: make(entity.FoldersMessages),
		search:   entity.NewOrdered[entity.Message](),
	}
}

func (m *Memory) GetFolders(ctx context.Context) (*entity.Folders, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.folders.Clone(), nil
}

func (m *Memory) SetFolders(ctx context.Context, folders *entity.Folders) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders = folders.Clone()
	return nil
}

func (m *Memory) GetFoldersMessages(ctx context.Context) (entity.FoldersMessages, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(entity.FoldersMessages, len(m.messages))
	for id, msgs := range m.messages {
		out[id] = msgs.Clone()
	}
	return out, nil
}

func (m *Memory) GetFolderMessages(ctx context.Context, folderID int64) (*entity.FolderMessages, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.messages[folderID].Clone(), nil
}

func (m *Memory) SetFolderMessages(ctx context.Context, folderID int64, msgs *entity.FolderMessages) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[folderID] = msgs.Clone()
	return nil
}

func (m *Memory) GetSearchMessages(ctx context.Context) (*entity.SearchMessages, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.search.Clone(), nil
}

func (m *Memory) SetSearchMessages(ctx context.Context, msgs *entity.SearchMessages) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.search = msgs.Clone()
	return nil
}

func (m *Memory) GetUser(ctx context.Context) (entity.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return entity.User{}, nil
	}
	return *m.user, nil
}

func (m *Memory) SetUser(ctx context.Context, user entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = &user
	return nil
}

// Reset drops every cached slice and the current user.
func (m *Memory) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders = entity.NewOrdered[entity.Folder]()
	m.messages = make(entity.FoldersMessages)
	m.search = entity.NewOrdered[entity.Message]()
	m.user = nil
	return nil
}

// GetStats reports the same counters as the SQLite store.
func (m *Memory) GetStats(ctx context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &Stats{
		FolderCount:        int64(m.folders.Len()),
		CachedFolderCount:  int64(len(m.messages)),
		SearchMessageCount: int64(m.search.Len()),
	}
	for _, msgs := range m.messages {
		stats.MessageCount += int64(msgs.Len())
	}
	return stats, nil
}

// Close is a no-op for the memory store.
func (m *Memory) Close() error { return nil }
