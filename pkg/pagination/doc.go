// Package pagination turns a cursor-paginated GitHub listing into a linear,
// lazily fetched sequence of notifications.
//
// GitHub paginates through the Link response header: every page carries a
// `rel="next"` URL until the last one. The Iterator pulls one page at a time,
// only when the previously fetched items are exhausted, so memory use is
// bounded by a single page regardless of how large the remote collection is.
//
// Example usage:
//
//	it := pagination.New(ghClient, "https://api.github.com/notifications")
//	for {
//		n, err := it.Next(ctx)
//		if errors.Is(err, pagination.ErrDone) {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		fmt.Println(n.Reason)
//	}
//
// The iterator is fail-stop:
//   - the first error ends the sequence and is returned by every later Next
//   - failed pages are never retried within the same walk
//   - a fresh walk always starts again from the base URL
//
// An Iterator is owned by a single poll and is not safe for concurrent use.
package pagination
