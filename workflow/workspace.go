// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package workflow

import (
	"errors"

	"github.com/luxfi/database"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/log"

	"github.com/luxfi/holo/cascade"
	"github.com/luxfi/holo/network"
	"github.com/luxfi/holo/state"
	"github.com/luxfi/holo/types"

	"github.com/luxfi/holo/holohash"
)

var errWorkspaceFlushed = errors.New("workspace used after flush")

// AppValidationWorkspace is the staged view of one pass: every prefixed
// store layered over a single versioned transaction. Nothing reaches the
// base database until the flush commits, and an abort restores the
// pre-pass snapshot.
type AppValidationWorkspace struct {
	vdb *versiondb.Database

	IntegratedDhtOps *state.IntegratedStore
	IntegrationLimbo *state.IntegrationLimboStore
	ValidationLimbo  *state.ValidationLimboStore

	// Integrated, authoritative data.
	ElementVault *state.ElementBuf
	MetaVault    *state.MetaBuf
	// Data pending validation.
	ElementPending *state.ElementBuf
	MetaPending    *state.MetaBuf
	// Read-only rejected data, kept for dependency lookups.
	ElementRejected *state.ElementBuf
	MetaRejected    *state.MetaBuf
	// Advisory cache.
	ElementCache *state.ElementBuf
	MetaCache    *state.MetaBuf

	callZome state.CallZomeWorkspaceLock
	flushed  bool
}

// NewAppValidationWorkspace opens a workspace over [base].
func NewAppValidationWorkspace(base database.Database) *AppValidationWorkspace {
	vdb := versiondb.New(base)
	ws := &AppValidationWorkspace{
		vdb:              vdb,
		IntegratedDhtOps: state.NewIntegratedOps(vdb),
		IntegrationLimbo: state.NewIntegrationLimbo(vdb),
		ValidationLimbo:  state.NewValidationLimbo(vdb),
	}
	ws.ElementVault, ws.MetaVault = state.IntegratedPair(vdb)
	ws.ElementPending, ws.MetaPending = state.PendingPair(vdb)
	ws.ElementRejected, ws.MetaRejected = state.RejectedPair(vdb)
	ws.ElementCache, ws.MetaCache = state.CachePair(vdb)

	// The callbacks' auxiliary workspace shares the transaction's cache
	// pair, so its writes ride the same flush.
	ws.callZome = state.NewCallZomeWorkspaceLock(state.NewCallZomeWorkspace(vdb))
	return ws
}

// VersionDB exposes the pass's shared transaction for the oneshot writer.
func (ws *AppValidationWorkspace) VersionDB() *versiondb.Database {
	return ws.vdb
}

// ValidationWorkspace clones the shared call-zome handle for a callback.
// The clone must be released before the flush.
func (ws *AppValidationWorkspace) ValidationWorkspace() state.CallZomeWorkspaceLock {
	return ws.callZome.Clone()
}

// FullCascade builds a cascade over every local store plus the network.
func (ws *AppValidationWorkspace) FullCascade(logger log.Logger, cell network.Cell) *cascade.Cascade {
	return cascade.Empty(logger).
		WithIntegrated(cascade.DbPair{Elements: ws.ElementVault, Meta: ws.MetaVault}).
		WithPending(cascade.DbPair{Elements: ws.ElementPending, Meta: ws.MetaPending}).
		WithRejected(cascade.DbPair{Elements: ws.ElementRejected, Meta: ws.MetaRejected}).
		WithCache(cascade.DbPair{Elements: ws.ElementCache, Meta: ws.MetaCache}).
		WithNetwork(cell)
}

// putValLimbo re-queues an op, bumping its retry bookkeeping.
func (ws *AppValidationWorkspace) putValLimbo(hash holohash.DhtOpHash, v state.ValidationLimboValue) error {
	now := types.Now()
	v.LastTry = &now
	v.NumTries++
	return ws.ValidationLimbo.Put(hash, v)
}

// putIntLimbo hands an op's terminal verdict to the integration workflow.
func (ws *AppValidationWorkspace) putIntLimbo(hash holohash.DhtOpHash, v state.IntegrationLimboValue) error {
	return ws.IntegrationLimbo.Put(hash, v)
}

// flushToTxn reclaims the call-zome handle and releases the staged writes
// for commit. Failing to reclaim the handle means a callback leaked its
// clone: a bug, surfaced as a dedicated error rather than a partial flush.
func (ws *AppValidationWorkspace) flushToTxn() error {
	if ws.flushed {
		return errWorkspaceFlushed
	}
	if _, err := ws.callZome.TryUnwrap(); err != nil {
		return err
	}
	ws.flushed = true
	return nil
}

// Abort discards every staged write of the pass.
func (ws *AppValidationWorkspace) Abort() {
	ws.vdb.Abort()
}
