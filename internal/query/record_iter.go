package query

import "context"

// RecordIter is a pull-style, context-aware iterator over Records. It
// lets a renderer consume results one at a time instead of requiring a
// fully materialized slice, so a canceled client connection stops work
// immediately instead of after the whole result set has been built and
// buffered (spec §4.6/§4.7, §5: "no in-memory buffering of the full
// result set"; "cancellation of a client connection... releases the
// underlying cursor").
type RecordIter struct {
	ctx      context.Context
	next     func(ctx context.Context) (Record, bool, error)
	closeFn  func()
	buffered *Record
	done     bool
}

// NewRecordIter builds an iterator backed by next, calling closeFn
// exactly once when the iterator is exhausted, errors, is canceled, or
// Close is called explicitly.
func NewRecordIter(ctx context.Context, next func(ctx context.Context) (Record, bool, error), closeFn func()) *RecordIter {
	return &RecordIter{ctx: ctx, next: next, closeFn: closeFn}
}

// SliceIter wraps an already-materialized slice in the same iterator
// interface, for switchers whose result set is small and computed
// in-process (formats, service bodies, field keys/values, server info)
// rather than streamed off a meetings query.
func SliceIter(records []Record) *RecordIter {
	i := 0
	return NewRecordIter(context.Background(), func(context.Context) (Record, bool, error) {
		if i >= len(records) {
			return Record{}, false, nil
		}
		r := records[i]
		i++
		return r, true, nil
	}, nil)
}

// Peek returns the next record without consuming it, caching it so the
// following Next call returns the same value. Used to inspect the
// first record (e.g. for the CSV "omit fields absent from the first
// row" rule) before any row has actually been written out.
func (it *RecordIter) Peek() (Record, bool, error) {
	if it.buffered != nil {
		return *it.buffered, true, nil
	}
	if it.done {
		return Record{}, false, nil
	}
	rec, ok, err := it.advance()
	if err != nil || !ok {
		return Record{}, false, err
	}
	it.buffered = &rec
	return rec, true, nil
}

// Next returns the next record, draining a buffered Peek first.
func (it *RecordIter) Next() (Record, bool, error) {
	if it.buffered != nil {
		rec := *it.buffered
		it.buffered = nil
		return rec, true, nil
	}
	if it.done {
		return Record{}, false, nil
	}
	return it.advance()
}

func (it *RecordIter) advance() (Record, bool, error) {
	if err := it.ctx.Err(); err != nil {
		it.done = true
		it.Close()
		return Record{}, false, err
	}
	rec, ok, err := it.next(it.ctx)
	if err != nil || !ok {
		it.done = true
		it.Close()
		return Record{}, false, err
	}
	return rec, true, nil
}

// Close releases the underlying resource (typically a pgx.Rows
// cursor). Safe to call more than once.
func (it *RecordIter) Close() {
	if it.closeFn != nil {
		it.closeFn()
		it.closeFn = nil
	}
}

// Collect drains the iterator into a slice. Only for call sites that
// genuinely need every record at once (tests, and the small in-process
// result sets already built via SliceIter); the streamed meetings path
// never calls this.
func (it *RecordIter) Collect() ([]Record, error) {
	var out []Record
	for {
		rec, ok, err := it.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, rec)
	}
}
