/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webcrypto

import "context"

// Result is a single-resolution deferred value: a handle to a
// computation that completes later with either a value or an error
// (spec §5). A Result resolves exactly once; later writes are no-ops.
type Result struct {
	done chan struct{}
	val  interface{}
	err  error
}

// newPending returns a Result together with the resolve function that
// completes it. The resolve function may be called at most once; only
// the first call has any effect.
func newPending() (*Result, func(interface{}, error)) {
	r := &Result{done: make(chan struct{})}

	var resolved bool

	resolve := func(val interface{}, err error) {
		if resolved {
			return
		}

		resolved = true
		r.val = val
		r.err = err
		close(r.done)
	}

	return r, resolve
}

// Await blocks until r resolves or ctx is done, whichever comes first.
// Per spec §5, cancellation does not stop the underlying computation —
// it only stops the caller's wait; a later Await on the same Result
// still observes its eventual outcome.
func (r *Result) Await(ctx context.Context) (interface{}, error) {
	select {
	case <-r.done:
		return r.val, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resolved returns an already-complete Result, used for synchronous
// normalization failures that must be "surfaced asynchronously"
// (spec §4.4 step 2) without actually spawning a goroutine. Exported
// so package wrap can report its own synchronous normalization
// failures through the same deferred-result idiom.
func Resolved(val interface{}, err error) *Result {
	r, resolve := newPending()
	resolve(val, err)

	return r
}

// Schedule runs fn on its own goroutine and returns a Result that
// resolves with its outcome — the single suspension point of §5.
// Exported so package wrap can compose nested dispatcher calls
// (export/import) inside one outer Result.
func Schedule(fn func() (interface{}, error)) *Result {
	r, resolve := newPending()

	go func() {
		val, err := fn()
		resolve(val, err)
	}()

	return r
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}

	out := make([]byte, len(b))
	copy(out, b)

	return out
}
