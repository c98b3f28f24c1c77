// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package queue carries the plumbing between workflows: coalescing wake
// triggers, the transactional oneshot writer, and the per-cell consumer
// loop that keeps exactly one workflow invocation in flight.
package queue

import (
	"context"
	"fmt"

	"github.com/luxfi/database/versiondb"
)

// WorkComplete reports whether a pass consumed everything it could.
type WorkComplete uint8

const (
	// Complete: the queue was fully drained.
	Complete WorkComplete = iota
	// Incomplete: more work remains; the consumer should re-run without
	// waiting for an external trigger.
	Incomplete
)

func (w WorkComplete) String() string {
	switch w {
	case Complete:
		return "Complete"
	case Incomplete:
		return "Incomplete"
	default:
		return "Invalid work state"
	}
}

// TriggerSender wakes a listening workflow. Triggers coalesce: waking an
// already-woken listener is a no-op, and Trigger never blocks.
type TriggerSender struct {
	ch chan struct{}
}

// TriggerReceiver is the listening end.
type TriggerReceiver struct {
	ch chan struct{}
}

// NewTrigger builds a connected sender/receiver pair.
func NewTrigger() (*TriggerSender, *TriggerReceiver) {
	ch := make(chan struct{}, 1)
	return &TriggerSender{ch: ch}, &TriggerReceiver{ch: ch}
}

// Trigger wakes the receiver without blocking.
func (s *TriggerSender) Trigger() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until a trigger arrives or [ctx] is done.
func (r *TriggerReceiver) Wait(ctx context.Context) error {
	select {
	case <-r.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Chan exposes the wake channel for select loops.
func (r *TriggerReceiver) Chan() <-chan struct{} {
	return r.ch
}

// OneshotWriter commits one pass's staged writes. The versioned database
// accumulates every put and delete in memory; WithWriter either commits
// them as a single batch or aborts them all.
type OneshotWriter struct {
	vdb *versiondb.Database
}

// NewOneshotWriter wraps the pass's shared transaction.
func NewOneshotWriter(vdb *versiondb.Database) *OneshotWriter {
	return &OneshotWriter{vdb: vdb}
}

// WithWriter runs [fn] and commits on success. Any error — from [fn] or
// the commit itself — aborts the transaction, leaving the store byte
// identical to its pre-pass snapshot.
func (w *OneshotWriter) WithWriter(fn func() error) error {
	if err := fn(); err != nil {
		w.vdb.Abort()
		return err
	}
	if err := w.vdb.Commit(); err != nil {
		w.vdb.Abort()
		return fmt.Errorf("committing staged writes: %w", err)
	}
	return nil
}

// Abort discards the staged writes without committing.
func (w *OneshotWriter) Abort() {
	w.vdb.Abort()
}
