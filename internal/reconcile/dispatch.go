package reconcile

import (
	"context"
	"fmt"

	"github.com/wesm/foldercache/internal/entity"
)

// dispatch applies discrete update events in order and folds their results.
//
// The two results fold differently. An event whose message reconciliation
// changes nothing keeps the previous folder-messages value. Every delete or
// edit event replaces the search value, including with nil, so a later event
// that leaves the index untouched hides an earlier index change from the
// returned result (the cache itself still holds it). New-message events do
// not touch the search value. Callers depend on this asymmetry.
func (e *Engine) dispatch(ctx context.Context, updates []entity.RawUpdate) (entity.FoldersMessages, *entity.SearchMessages, error) {
	var (
		fm entity.FoldersMessages
		sm *entity.SearchMessages
	)

	for i, u := range updates {
		switch u.Family() {
		case entity.UpdateNew:
			next, err := e.reconcileMessages(ctx, u.Batch(), Options{New: true})
			if err != nil {
				return nil, nil, fmt.Errorf("update %d (%s): %w", i, u.Type, err)
			}
			if next != nil {
				fm = next
			}

		case entity.UpdateDelete:
			next, search, err := e.reconcileBoth(ctx, u.Batch(), Options{Deleted: true})
			if err != nil {
				return nil, nil, fmt.Errorf("update %d (%s): %w", i, u.Type, err)
			}
			if next != nil {
				fm = next
			}
			sm = search

		case entity.UpdateEdit:
			next, search, err := e.reconcileBoth(ctx, u.Batch(), Options{Edited: true})
			if err != nil {
				return nil, nil, fmt.Errorf("update %d (%s): %w", i, u.Type, err)
			}
			if next != nil {
				fm = next
			}
			sm = search

		case entity.UpdateOther:
			e.logger.Debug("ignoring update", "type", u.Type)
		}
	}

	return fm, sm, nil
}
