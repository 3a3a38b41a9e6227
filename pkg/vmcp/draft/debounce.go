// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

package draft

import (
	"context"
	"sync"
	"time"

	"github.com/vmcp-labs/vmcp-console/pkg/logger"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp"
)

// defaultDebounceWindow is the quiescence window after the last edit before
// a durable write happens.
const defaultDebounceWindow = 500 * time.Millisecond

// Debouncer coalesces bursts of Put calls into a single durable write per
// identity after a short quiescence window. At most one write per identity
// is pending at any time; a newer record simply replaces the pending one.
//
// Pending writes must be flushed before an identity switch or process
// teardown: use Flush or Close, otherwise the last keystrokes are lost.
type Debouncer struct {
	store  Store
	window time.Duration

	mu      sync.Mutex
	pending map[string]*Record
	timer   *time.Timer
	closed  bool

	// flushMu serializes whole drains, held across the pending-map swap
	// and the store writes. Without it a timer-fired flush stalled inside
	// store.Put could finish after a later explicit Flush and overwrite
	// the newer record with the stale one.
	flushMu sync.Mutex

	// onError is invoked for asynchronous write failures. Defaults to a
	// logged warning; the session installs a handler to degrade storage.
	onError func(identity string, err error)
}

// NewDebouncer wraps store with write coalescing. A non-positive window
// selects the default.
func NewDebouncer(store Store, window time.Duration) *Debouncer {
	if window <= 0 {
		window = defaultDebounceWindow
	}
	return &Debouncer{
		store:   store,
		window:  window,
		pending: make(map[string]*Record),
		onError: func(identity string, err error) {
			logger.Warnf("debounced draft write for %s failed: %v", identity, err)
		},
	}
}

// OnError installs a handler for asynchronous write failures.
func (d *Debouncer) OnError(fn func(identity string, err error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if fn != nil {
		d.onError = fn
	}
}

// Put schedules a durable write of record for identity. Repeated calls
// within the window coalesce: only the latest record is written.
func (d *Debouncer) Put(identity string, record *Record) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.pending[identity] = record.Clone()

	// One timer covers all pending identities; each Put pushes the
	// quiescence window out again.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

// Cancel drops any pending write for identity without persisting it.
// Used on discard, where the store record is being cleared anyway.
func (d *Debouncer) Cancel(identity string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, identity)
}

// Flush synchronously writes all pending records. It is called before an
// identity switch and during teardown.
func (d *Debouncer) Flush(ctx context.Context) error {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	batch := d.pending
	d.pending = make(map[string]*Record)
	onError := d.onError
	d.mu.Unlock()

	var firstErr error
	for identity, record := range batch {
		if err := d.store.Put(ctx, identity, record); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			onError(identity, err)
		}
	}
	return firstErr
}

// Close flushes pending writes and rejects further Puts.
func (d *Debouncer) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return vmcp.ErrSessionClosed
	}
	d.closed = true
	d.mu.Unlock()

	return d.Flush(ctx)
}

// fire runs on timer expiry and drains pending writes in the background.
func (d *Debouncer) fire() {
	// Bound background writes so a hung filesystem cannot leak goroutines.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = d.Flush(ctx)
}
