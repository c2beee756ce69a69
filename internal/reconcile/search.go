package reconcile

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wesm/foldercache/internal/entity"
)

// reconcileSearch mirrors deletes and edits into the search index. Messages
// that are not indexed yet are never added here. It returns a copy of the
// updated index, or nil when nothing changed.
func (e *Engine) reconcileSearch(ctx context.Context, msgs []entity.RawMessage, opts Options) (*entity.SearchMessages, error) {
	if !opts.Deleted && !opts.Edited {
		return nil, nil
	}

	var (
		user  entity.User
		index *entity.SearchMessages
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
		index, err = e.cache.GetSearchMessages(gctx)
		if err != nil {
			return fmt.Errorf("get search messages: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	next := index.Clone()
	updated := false
	for _, raw := range msgs {
		if !next.Has(raw.ID) {
			continue
		}
		if opts.Deleted {
			next.Delete(raw.ID)
			updated = true
		}
		if opts.Edited {
			msg, err := e.tf.TransformMessage(raw, user)
			if err != nil {
				return nil, fmt.Errorf("transform message %d: %w", raw.ID, err)
			}
			next.Set(msg)
			updated = true
		}
	}

	if !updated {
		return nil, nil
	}
	if err := e.cache.SetSearchMessages(ctx, next); err != nil {
		return nil, fmt.Errorf("set search messages: %w", err)
	}
	return next.Clone(), nil
}
