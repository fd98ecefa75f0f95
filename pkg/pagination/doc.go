// Package pagination provides offset-based page handling and a lazy,
// bounded iterator for walking paged list endpoints.
//
// The API reports pagination state in a meta block (total, limit, offset).
// Page wraps one response worth of items together with that state;
// Iterator chains fetches into a single stream of items:
//
//	it := pagination.NewIterator(fetch, 50, 0)
//	for it.Next(ctx) {
//		handle(it.Item())
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
//
// Fetches happen on demand, one page ahead at most, so abandoning the loop
// early costs nothing beyond the pages already fetched.
package pagination
