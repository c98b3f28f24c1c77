// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"
	"sync/atomic"

	"github.com/luxfi/database"
)

// ErrWorkspaceLeaked is returned when the flush tries to reclaim unique
// ownership of the call-zome workspace but a callback still holds a clone.
// That is a programmer error, not a recoverable condition.
var ErrWorkspaceLeaked = errors.New("call zome workspace handle leaked past flush")

// CallZomeWorkspace is the auxiliary read workspace handed to validation
// callbacks. Callbacks read through it; only its cache pair is mutable, and
// only one callback runs at a time within a pass, so it is single-writer by
// construction.
type CallZomeWorkspace struct {
	ElementCache *ElementBuf
	MetaCache    *MetaBuf
}

// NewCallZomeWorkspace opens a call-zome workspace over the shared
// transaction's cache pair.
func NewCallZomeWorkspace(db database.Database) *CallZomeWorkspace {
	elements, meta := CachePair(db)
	return &CallZomeWorkspace{
		ElementCache: elements,
		MetaCache:    meta,
	}
}

// CallZomeWorkspaceLock is a reference-counted shared handle to a
// [CallZomeWorkspace]. The workflow clones it into each callback and must
// reclaim unique ownership before flushing.
type CallZomeWorkspaceLock struct {
	s *lockShared
}

type lockShared struct {
	ws   *CallZomeWorkspace
	refs atomic.Int32
}

// NewCallZomeWorkspaceLock wraps [ws] with an initial single owner.
func NewCallZomeWorkspaceLock(ws *CallZomeWorkspace) CallZomeWorkspaceLock {
	s := &lockShared{ws: ws}
	s.refs.Store(1)
	return CallZomeWorkspaceLock{s: s}
}

// Clone hands out another shared reference.
func (l CallZomeWorkspaceLock) Clone() CallZomeWorkspaceLock {
	l.s.refs.Add(1)
	return CallZomeWorkspaceLock{s: l.s}
}

// Release drops one reference. Every Clone must be paired with a Release
// before the flush.
func (l CallZomeWorkspaceLock) Release() {
	l.s.refs.Add(-1)
}

// Workspace reads through the handle.
func (l CallZomeWorkspaceLock) Workspace() *CallZomeWorkspace {
	return l.s.ws
}

// TryUnwrap reclaims unique ownership. It fails with [ErrWorkspaceLeaked]
// when any clone is still live.
func (l CallZomeWorkspaceLock) TryUnwrap() (*CallZomeWorkspace, error) {
	if l.s.refs.Load() != 1 {
		return nil, ErrWorkspaceLeaked
	}
	return l.s.ws, nil
}
