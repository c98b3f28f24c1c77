// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package networktest provides an in-memory [network.Cell] for tests.
package networktest

import (
	"context"
	"sync"

	"github.com/luxfi/ids"

	"github.com/luxfi/holo/holohash"
	"github.com/luxfi/holo/network"
	"github.com/luxfi/holo/types"
)

// MemoryCell is a programmable in-memory dht authority. Seed it with
// elements, then point a cascade at it.
type MemoryCell struct {
	mu sync.Mutex

	nodeID ids.NodeID

	// elements is keyed by both the header hash and, for new-entry
	// headers, the entry hash.
	elements map[holohash.AnyDhtHash]network.Response
	links    map[holohash.EntryHash][]types.Link

	// Err, when set, fails every query.
	Err error

	// Fetches records every Get in order.
	Fetches []holohash.AnyDhtHash
}

// New builds an empty cell.
func New() *MemoryCell {
	return &MemoryCell{
		elements: make(map[holohash.AnyDhtHash]network.Response),
		links:    make(map[holohash.EntryHash][]types.Link),
	}
}

// SeedElement makes [el] fetchable by its header hash and, when it commits
// an entry, by the entry hash.
func (c *MemoryCell) SeedElement(el *types.Element) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp := network.Response{
		Header: &types.SignedHeader{
			Header:    el.Header(),
			Signature: el.Signature(),
		},
		Entry: el.Entry,
	}
	c.elements[holohash.AnyFromHeader(el.HeaderHash())] = resp
	if eh, _, ok := el.Header().EntryData(); ok {
		c.elements[holohash.AnyFromEntry(eh)] = resp
	}
}

// SeedLink registers a live link on [base].
func (c *MemoryCell) SeedLink(base holohash.EntryHash, link types.Link) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links[base] = append(c.links[base], link)
}

// FetchCount reports how many Gets have been served.
func (c *MemoryCell) FetchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Fetches)
}

func (c *MemoryCell) NodeID() ids.NodeID {
	return c.nodeID
}

func (c *MemoryCell) Get(ctx context.Context, hash holohash.AnyDhtHash, _ network.GetOptions) (*network.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Fetches = append(c.Fetches, hash)
	if c.Err != nil {
		return nil, c.Err
	}
	resp, ok := c.elements[hash]
	if !ok {
		return nil, nil
	}
	return &resp, nil
}

func (c *MemoryCell) GetMeta(ctx context.Context, basis holohash.AnyDhtHash, _ network.GetOptions) (*network.MetaResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	resp := &network.MetaResponse{}
	if eh, ok := basis.AsEntry(); ok {
		resp.Links = append(resp.Links, c.links[eh]...)
	}
	return resp, nil
}

func (c *MemoryCell) GetLinks(ctx context.Context, base holohash.EntryHash, tag types.LinkTag, _ network.GetOptions) ([]types.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	var out []types.Link
	for _, l := range c.links[base] {
		if len(tag) == 0 || hasTagPrefix(l.Tag, tag) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (c *MemoryCell) CallRemote(context.Context, holohash.AgentPubKey, types.ZomeName, string, []byte) ([]byte, error) {
	return nil, nil
}

func (c *MemoryCell) Publish(context.Context, holohash.AnyDhtHash, []types.DhtOp) error {
	return nil
}

func (c *MemoryCell) SendValidationReceipt(context.Context, holohash.AgentPubKey, []byte) error {
	return nil
}

func hasTagPrefix(tag, prefix types.LinkTag) bool {
	if len(prefix) > len(tag) {
		return false
	}
	for i := range prefix {
		if tag[i] != prefix[i] {
			return false
		}
	}
	return true
}
