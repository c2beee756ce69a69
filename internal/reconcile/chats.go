package reconcile

import (
	"context"
	"fmt"

	"github.com/wesm/foldercache/internal/entity"
)

// reconcileChats merges chats into the cached folder set and commits it.
//
// A chat that passes the folder predicate is "touched": its cached folder is
// dropped and, unless the account left it or lost access, replaced by the
// freshly transformed one. Chats that fail the predicate are ignored, so a
// cached folder is never removed by a chat that no longer looks like one.
func (e *Engine) reconcileChats(ctx context.Context, chats []entity.RawChat) (*entity.Folders, error) {
	cached, err := e.cache.GetFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("get folders: %w", err)
	}

	touched := make(map[int64]bool)
	var included []entity.Folder
	for _, chat := range chats {
		if chat.Kind == entity.ChatKindUnknown {
			e.logger.Debug("ignoring chat of unknown kind", "id", chat.ID)
			continue
		}
		if !e.tf.IsFolder(chat) {
			continue
		}
		touched[chat.ID] = true
		if chat.Left || chat.Kind.Forbidden() {
			continue
		}
		folder, err := e.tf.TransformFolder(chat)
		if err != nil {
			return nil, fmt.Errorf("transform chat %d: %w", chat.ID, err)
		}
		included = append(included, folder)
	}

	var next []entity.Folder
	for _, f := range cached.Values() {
		if !touched[f.ID] {
			next = append(next, f)
		}
	}
	next = append(next, included...)

	folders := entity.NewOrdered(e.tf.SortFolders(next)...)
	if err := e.cache.SetFolders(ctx, folders); err != nil {
		return nil, fmt.Errorf("set folders: %w", err)
	}
	return folders, nil
}
