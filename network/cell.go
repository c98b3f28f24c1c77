// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package network defines the per-cell handle onto the dht transport. The
// validation workflow only consumes Get, GetMeta and GetLinks, always
// through the cascade; the remaining operations belong to the publish and
// remote-call paths.
package network

import (
	"context"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/holo/holohash"
	"github.com/luxfi/holo/types"
)

// GetOptions bound a single dht query.
type GetOptions struct {
	// Timeout caps the round trip; zero means the caller's context
	// decides.
	Timeout time.Duration
}

// Response is an authority's answer to a Get: the signed header closest to
// the requested hash plus the entry when the authority holds it.
type Response struct {
	Header *types.SignedHeader
	Entry  *types.Entry
}

// MetaResponse is an authority's answer to a GetMeta.
type MetaResponse struct {
	Links   []types.Link
	Deletes []holohash.HeaderHash
}

// Cell is one cell's handle onto the network. Implementations identify the
// local node at the transport layer, underneath the agent key.
type Cell interface {
	// NodeID is the transport-level identity of this node.
	NodeID() ids.NodeID

	// Get fetches the content at [hash] from its authority. A nil
	// response with nil error means every authority reported absence.
	Get(ctx context.Context, hash holohash.AnyDhtHash, opts GetOptions) (*Response, error)

	// GetMeta fetches the metadata registered on [basis].
	GetMeta(ctx context.Context, basis holohash.AnyDhtHash, opts GetOptions) (*MetaResponse, error)

	// GetLinks fetches the live links on [base], filtered by tag prefix
	// when [tag] is non-empty.
	GetLinks(ctx context.Context, base holohash.EntryHash, tag types.LinkTag, opts GetOptions) ([]types.Link, error)

	// CallRemote invokes a zome function on another agent's cell.
	CallRemote(ctx context.Context, to holohash.AgentPubKey, zome types.ZomeName, fn string, payload []byte) ([]byte, error)

	// Publish offers ops to the authorities for [basis].
	Publish(ctx context.Context, basis holohash.AnyDhtHash, ops []types.DhtOp) error

	// SendValidationReceipt returns a validation receipt to an op's
	// author.
	SendValidationReceipt(ctx context.Context, to holohash.AgentPubKey, receipt []byte) error
}
