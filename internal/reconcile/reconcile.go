// Package reconcile merges chat, message and update payloads into the cached
// folder set, per-folder message maps and search index.
//
// Every entry point runs inside one task of the update queue. The reconcilers
// read a snapshot from the cache, build new values and write each changed
// slice back once. They rely on the queue for exclusive access; the cache
// itself offers no versioning.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/wesm/foldercache/internal/entity"
	"github.com/wesm/foldercache/internal/queue"
)

// Cache is the key-value store holding the reconciled state.
type Cache interface {
	GetFolders(ctx context.Context) (*entity.Folders, error)
	SetFolders(ctx context.Context, folders *entity.Folders) error
	GetFoldersMessages(ctx context.Context) (entity.FoldersMessages, error)
	SetFolderMessages(ctx context.Context, folderID int64, msgs *entity.FolderMessages) error
	GetSearchMessages(ctx context.Context) (*entity.SearchMessages, error)
	SetSearchMessages(ctx context.Context, msgs *entity.SearchMessages) error
	GetUser(ctx context.Context) (entity.User, error)
}

// Transformer converts raw payloads into entities and orders them.
type Transformer interface {
	IsFolder(chat entity.RawChat) bool
	TransformFolder(chat entity.RawChat) (entity.Folder, error)
	TransformMessage(msg entity.RawMessage, user entity.User) (entity.Message, error)
	SortFolders(folders []entity.Folder) []entity.Folder
	SortMessages(msgs []entity.Message) []entity.Message
}

// UserWriter is implemented by caches that can store the current account.
type UserWriter interface {
	SetUser(ctx context.Context, user entity.User) error
}

// ErrReadOnlyUser is returned by SetUser when the cache cannot store users.
var ErrReadOnlyUser = errors.New("cache cannot store the current user")

// Request is one reconciliation request. Any combination of fields may be set.
type Request struct {
	Chats    []entity.RawChat    `json:"chats,omitempty"`
	Messages []entity.RawMessage `json:"messages,omitempty"`
	Update   *entity.RawUpdate   `json:"update,omitempty"`
	Updates  []entity.RawUpdate  `json:"updates,omitempty"`
}

// Options tells the message reconcilers why Messages arrived.
type Options struct {
	New     bool `json:"new,omitempty"`
	Deleted bool `json:"deleted,omitempty"`
	Edited  bool `json:"edited,omitempty"`
	// OffsetID marks a history page. Nil means the batch is not paginated;
	// zero means the first page, which replaces the folder's cached messages.
	OffsetID *int64 `json:"offset_id,omitempty"`
}

func (o Options) paginated() bool { return o.OffsetID != nil }

func (o Options) firstPage() bool { return o.OffsetID != nil && *o.OffsetID == 0 }

// Result carries the slices that changed. Nil fields did not change.
type Result struct {
	Folders         *entity.Folders        `json:"folders,omitempty"`
	FoldersMessages entity.FoldersMessages `json:"folders_messages,omitempty"`
	SearchMessages  *entity.SearchMessages `json:"search_messages,omitempty"`
}

// Empty reports whether nothing changed.
func (r *Result) Empty() bool {
	return r.Folders == nil && r.FoldersMessages == nil && r.SearchMessages == nil
}

// Engine runs reconciliation requests through the update queue.
type Engine struct {
	cache  Cache
	tf     Transformer
	queue  *queue.Queue
	logger *slog.Logger
}

// New creates an Engine. The queue must guard every access to cache.
func New(cache Cache, tf Transformer, q *queue.Queue) *Engine {
	return &Engine{
		cache:  cache,
		tf:     tf,
		queue:  q,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	return e
}

// HandleUpdates enqueues req and waits for its result. Stages run in order:
// chats, messages, update, updates. A later message stage replaces the
// message and search fields of an earlier one.
func (e *Engine) HandleUpdates(ctx context.Context, req Request, opts Options) (*Result, error) {
	return queue.Do(ctx, e.queue, func(ctx context.Context) (*Result, error) {
		return e.handle(ctx, req, opts)
	})
}

// SetUser replaces the current account. It runs through the queue so a
// reconciliation never sees the account change halfway.
func (e *Engine) SetUser(ctx context.Context, user entity.User) error {
	w, ok := e.cache.(UserWriter)
	if !ok {
		return ErrReadOnlyUser
	}
	return e.queue.Enqueue(ctx, func(ctx context.Context) error {
		if err := w.SetUser(ctx, user); err != nil {
			return fmt.Errorf("set user: %w", err)
		}
		e.logger.Info("current user set", "id", user.ID)
		return nil
	})
}

func (e *Engine) handle(ctx context.Context, req Request, opts Options) (*Result, error) {
	res := &Result{}

	if len(req.Chats) > 0 {
		folders, err := e.reconcileChats(ctx, req.Chats)
		if err != nil {
			return nil, fmt.Errorf("reconcile chats: %w", err)
		}
		res.Folders = folders
	}

	if len(req.Messages) > 0 {
		fm, sm, err := e.reconcileBoth(ctx, req.Messages, opts)
		if err != nil {
			return nil, err
		}
		res.FoldersMessages, res.SearchMessages = fm, sm
	}

	if req.Update != nil {
		fm, sm, err := e.dispatch(ctx, []entity.RawUpdate{*req.Update})
		if err != nil {
			return nil, err
		}
		res.FoldersMessages, res.SearchMessages = fm, sm
	}

	if len(req.Updates) > 0 {
		fm, sm, err := e.dispatch(ctx, req.Updates)
		if err != nil {
			return nil, err
		}
		res.FoldersMessages, res.SearchMessages = fm, sm
	}

	e.logger.Debug("reconciled request",
		"chats", len(req.Chats),
		"messages", len(req.Messages),
		"updates", len(req.Updates),
		"folders_changed", res.Folders != nil,
		"folder_messages_changed", len(res.FoldersMessages),
		"search_changed", res.SearchMessages != nil)

	return res, nil
}

// reconcileBoth runs the message and search reconcilers concurrently. They
// write disjoint cache slices.
func (e *Engine) reconcileBoth(ctx context.Context, msgs []entity.RawMessage, opts Options) (entity.FoldersMessages, *entity.SearchMessages, error) {
	var fm entity.FoldersMessages
	var sm *entity.SearchMessages

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fm, err = e.reconcileMessages(gctx, msgs, opts)
		if err != nil {
			return fmt.Errorf("reconcile messages: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sm, err = e.reconcileSearch(gctx, msgs, opts)
		if err != nil {
			return fmt.Errorf("reconcile search index: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return fm, sm, nil
}
