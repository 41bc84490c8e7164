package library

import "context"

// RemoveBook deletes the book's blob and then its record.
// The blob delete is a best-effort secondary cleanup: a failure is logged and the
// record is removed anyway, so the UI never keeps pointing at a broken book.
// Calls for the same id are serialised.
func (c *Container) RemoveBook(ctx context.Context, id string) error {
	unlock := c.locks.Lock(id)
	defer unlock()

	c.bestEffortCleanup("delete blob", func() error {
		return c.blobs.Delete(ctx, id)
	}, "bookID", id)

	if err := c.Dispatch(RemoveBook{ID: id}); err != nil {
		return err
	}
	c.logger.Info("removed book", "bookID", id)
	return nil
}

// LockBook acquires the per-book lock used by RemoveBook.
// Long-running operations on one book (imports, opens) hold it to avoid racing a delete.
func (c *Container) LockBook(id string) (unlock func()) {
	return c.locks.Lock(id)
}

// PruneOrphans deletes blobs that have no matching book record, left behind when a
// process died between saving a blob and registering its metadata.
// Returns the number of blobs removed.
func (c *Container) PruneOrphans(ctx context.Context) (int, error) {
	lister, ok := c.blobs.(interface{ IDs() ([]string, error) })
	if !ok {
		return 0, nil
	}
	ids, err := lister.IDs()
	if err != nil {
		return 0, err
	}

	state := c.State()
	removed := 0
	for _, id := range ids {
		if state.FindBook(id) >= 0 {
			continue
		}
		unlock := c.locks.Lock(id)
		// An import may have registered it since the snapshot
		if _, exists := c.Book(id); !exists {
			if err := c.blobs.Delete(ctx, id); err != nil {
				unlock()
				return removed, err
			}
			removed++
		}
		unlock()
	}
	if removed > 0 {
		c.logger.Info("pruned orphan blobs", "count", removed)
	}
	return removed, nil
}

// bestEffortCleanup runs a secondary step whose failure must not abort the
// primary operation. Errors are logged at warn level and dropped.
func (c *Container) bestEffortCleanup(op string, fn func() error, attrs ...any) {
	if err := fn(); err != nil {
		c.logger.Warn("best-effort cleanup failed", append([]any{"op", op, "error", err}, attrs...)...)
	}
}
