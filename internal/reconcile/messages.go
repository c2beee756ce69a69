package reconcile

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/wesm/foldercache/internal/entity"
)

// folderChange tracks one folder's working copy during a batch.
type folderChange struct {
	msgs   *entity.FolderMessages
	sorted bool // false once any insertion may have broken recency order
}

// reconcileMessages applies a batch of raw messages to the per-folder message
// maps and commits each changed folder once. It returns the full updated
// mapping, or nil when no folder changed.
//
// Messages are processed strictly in batch order. For each one the first
// matching rule wins: delete if present, edit if present, insert for a
// history page, insert for a new message. Deletes and edits keep order;
// inserts force a full resort of the folder before its commit.
func (e *Engine) reconcileMessages(ctx context.Context, msgs []entity.RawMessage, opts Options) (entity.FoldersMessages, error) {
	var (
		user     entity.User
		folders  *entity.Folders
		snapshot entity.FoldersMessages
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = e.cache.GetUser(gctx)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		folders, err = e.cache.GetFolders(gctx)
		if err != nil {
			return fmt.Errorf("get folders: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		snapshot, err = e.cache.GetFoldersMessages(gctx)
		if err != nil {
			return fmt.Errorf("get folder messages: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	changes := make(map[int64]*folderChange)
	for i, raw := range msgs {
		folderID := raw.PeerID.FolderID()
		if raw.Kind != entity.MessageKindPlain || !folders.Has(folderID) {
			continue
		}

		change := changes[folderID]
		var working *entity.FolderMessages
		switch {
		case i == 0 && opts.firstPage():
			working = entity.NewOrdered[entity.Message]()
		case change != nil:
			working = change.msgs
		default:
			working = snapshot[folderID].Clone()
		}

		updated, sorted, err := e.applyMessage(working, raw, user, opts)
		if err != nil {
			return nil, err
		}
		if !updated {
			continue
		}
		if change == nil {
			change = &folderChange{sorted: true}
			changes[folderID] = change
		}
		change.msgs = working
		change.sorted = change.sorted && sorted
	}

	if len(changes) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(changes))
	for id := range changes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	// One commit per folder. A failure leaves earlier commits in place.
	result := snapshot.Clone()
	for _, id := range ids {
		change := changes[id]
		if !change.sorted {
			change.msgs = entity.NewOrdered(e.tf.SortMessages(change.msgs.Values())...)
		}
		if err := e.cache.SetFolderMessages(ctx, id, change.msgs); err != nil {
			return nil, fmt.Errorf("set messages for folder %d: %w", id, err)
		}
		result[id] = change.msgs
	}
	return result, nil
}

// applyMessage mutates working according to opts. It reports whether the map
// changed and whether recency order is still guaranteed.
func (e *Engine) applyMessage(working *entity.FolderMessages, raw entity.RawMessage, user entity.User, opts Options) (updated, sorted bool, err error) {
	present := working.Has(raw.ID)

	switch {
	case opts.Deleted && present:
		working.Delete(raw.ID)
		return true, true, nil
	case opts.Edited && present:
		msg, err := e.tf.TransformMessage(raw, user)
		if err != nil {
			return false, false, fmt.Errorf("transform message %d: %w", raw.ID, err)
		}
		working.Set(msg)
		return true, true, nil
	case opts.paginated(), opts.New:
		if opts.Deleted {
			// Deleted content is never transformed or inserted.
			return false, true, nil
		}
		msg, err := e.tf.TransformMessage(raw, user)
		if err != nil {
			return false, false, fmt.Errorf("transform message %d: %w", raw.ID, err)
		}
		working.Set(msg)
		return true, false, nil
	default:
		return false, true, nil
	}
}
