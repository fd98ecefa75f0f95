package pagination

import "context"

// FetchFunc retrieves one page at the given offset. The limit passed in is
// the page size the iterator was built with.
type FetchFunc[T any] func(ctx context.Context, offset, limit int) (*Page[T], error)

// Iterator walks a paged endpoint item by item, fetching pages on demand.
// It is strictly sequential and never refetches an offset. Not safe for
// concurrent use.
type Iterator[T any] struct {
	fetch    FetchFunc[T]
	limit    int
	maxItems int

	offset  int
	yielded int
	page    *Page[T]
	idx     int
	done    bool
	err     error
	item    T
}

// NewIterator creates an iterator starting at offset zero. limit is the page
// size per fetch; maxItems caps the total items yielded, zero meaning
// unbounded.
func NewIterator[T any](fetch FetchFunc[T], limit, maxItems int) *Iterator[T] {
	return NewIteratorFrom(fetch, limit, maxItems, 0)
}

// NewIteratorFrom is NewIterator with an explicit starting offset.
func NewIteratorFrom[T any](fetch FetchFunc[T], limit, maxItems, offset int) *Iterator[T] {
	if limit <= 0 {
		limit = 50
	}
	return &Iterator[T]{
		fetch:    fetch,
		limit:    limit,
		maxItems: maxItems,
		offset:   offset,
	}
}

// Next advances to the next item, fetching the following page when the
// buffered one is exhausted. It returns false at the end of the sequence or
// on error; check Err after the loop.
func (it *Iterator[T]) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	if it.maxItems > 0 && it.yielded >= it.maxItems {
		it.done = true
		return false
	}

	if it.page == nil || it.idx >= len(it.page.Data) {
		if !it.advance(ctx) {
			return false
		}
	}

	it.item = it.page.Data[it.idx]
	it.idx++
	it.yielded++
	return true
}

// Item returns the item produced by the last successful Next call.
func (it *Iterator[T]) Item() T {
	return it.item
}

// Err returns the first fetch error, if any. Items yielded before the error
// remain valid.
func (it *Iterator[T]) Err() error {
	return it.err
}

// Page returns the most recently fetched page, exposing its meta block and
// rate-limit state. Nil before the first fetch.
func (it *Iterator[T]) Page() *Page[T] {
	return it.page
}

// advance fetches the page at the current offset and decides whether the
// sequence continues past it.
func (it *Iterator[T]) advance(ctx context.Context) bool {
	// A previous page told us the sequence is over.
	if it.page != nil {
		next, ok := it.nextFetch()
		if !ok {
			it.done = true
			return false
		}
		it.offset = next
	}

	page, err := it.fetch(ctx, it.offset, it.limit)
	if err != nil {
		it.err = err
		it.done = true
		return false
	}

	it.page = page
	it.idx = 0

	if len(page.Data) == 0 {
		it.done = true
		return false
	}
	return true
}

// nextFetch returns the offset of the next page, or false when the current
// page ends the sequence.
func (it *Iterator[T]) nextFetch() (int, bool) {
	// A short page means the server ran out of items regardless of what
	// the reported total claims.
	if len(it.page.Data) < it.limit {
		return 0, false
	}
	return it.page.NextOffset()
}
