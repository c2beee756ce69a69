package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wesm/foldercache/internal/config"
	"github.com/wesm/foldercache/internal/entity"
	"github.com/wesm/foldercache/internal/queue"
	"github.com/wesm/foldercache/internal/reconcile"
	"github.com/wesm/foldercache/internal/remote"
	"github.com/wesm/foldercache/internal/store"
)

// CacheReader is the read surface of the query commands.
// store.Store, store.Memory and remote.Client all implement it.
type CacheReader interface {
	GetFolders(ctx context.Context) (*entity.Folders, error)
	GetFolderMessages(ctx context.Context, folderID int64) (*entity.FolderMessages, error)
	GetSearchMessages(ctx context.Context) (*entity.SearchMessages, error)
	GetUser(ctx context.Context) (entity.User, error)
	GetStats(ctx context.Context) (*store.Stats, error)
	Close() error
}

// UpdateWriter applies reconciliation requests and account changes.
// The local runtime and remote.Client implement it.
type UpdateWriter interface {
	HandleUpdates(ctx context.Context, req reconcile.Request, opts reconcile.Options) (*reconcile.Result, error)
	SetUser(ctx context.Context, user entity.User) error
	Close() error
}

// CacheBackend is a local cache store.
// Both store.Store and store.Memory implement this interface.
type CacheBackend interface {
	reconcile.Cache
	reconcile.UserWriter
	CacheReader
}

// IsRemoteMode returns true if commands should use a remote server.
// Resolution order:
//  1. --local flag → always local
//  2. [remote].url set in config → use remote
//  3. Default → use the local cache
func IsRemoteMode() bool {
	if useLocal {
		return false
	}
	return cfg != nil && cfg.Remote.URL != ""
}

// MustBeLocal returns an error if remote mode is active.
// Use this for commands that only work with the local cache.
func MustBeLocal(cmdName string) error {
	if IsRemoteMode() {
		return fmt.Errorf("%s requires the local cache\n\n"+
			"This command cannot run against a remote server.\n"+
			"Use --local flag to force the local cache.", cmdName)
	}
	return nil
}

// openReader returns the remote client or the local cache.
func openReader() (CacheReader, error) {
	if IsRemoteMode() {
		return openRemote()
	}
	return openBackend(cfg, logger)
}

// openWriter returns the remote client or a local runtime.
func openWriter() (UpdateWriter, error) {
	if IsRemoteMode() {
		return openRemote()
	}
	return newRuntime(cfg, logger)
}

func openRemote() (*remote.Client, error) {
	return remote.New(remote.Config{
		URL:           cfg.Remote.URL,
		APIKey:        cfg.Remote.APIKey,
		AllowInsecure: cfg.Remote.AllowInsecure,
		Timeout:       30 * time.Second,
	})
}

// openBackend opens the cache backend selected by [data] backend.
// The SQLite schema is created if missing.
func openBackend(c *config.Config, log *slog.Logger) (CacheBackend, error) {
	if c.Data.Backend == config.BackendMemory {
		log.Warn("memory backend does not persist the cache between runs")
		return store.NewMemory(), nil
	}

	dbPath := c.DatabasePath()
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := s.InitSchema(); err != nil {
		s.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// runtime owns the cache, the update queue guarding it, and the engine
// that runs reconciliation through the queue.
type runtime struct {
	cache  CacheBackend
	queue  *queue.Queue
	engine *reconcile.Engine
}

func newRuntime(c *config.Config, log *slog.Logger) (*runtime, error) {
	cache, err := openBackend(c, log)
	if err != nil {
		return nil, err
	}
	q := queue.New().WithLogger(log)
	tf := entity.NewTransformer(c.Folders.Marker)
	return &runtime{
		cache:  cache,
		queue:  q,
		engine: reconcile.New(cache, tf, q).WithLogger(log),
	}, nil
}

func (r *runtime) HandleUpdates(ctx context.Context, req reconcile.Request, opts reconcile.Options) (*reconcile.Result, error) {
	return r.engine.HandleUpdates(ctx, req, opts)
}

func (r *runtime) SetUser(ctx context.Context, user entity.User) error {
	return r.engine.SetUser(ctx, user)
}

// Close drains the queue before closing the cache.
func (r *runtime) Close() error {
	r.queue.Close()
	return r.cache.Close()
}
