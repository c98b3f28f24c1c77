// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cascade implements the dependency fetcher: a composite reader
// over the local prefixed stores falling through to the network. Lookup
// order is integrated, pending, rejected, cache, network; first hit wins.
// Network hits are written through into the cache pair so subsequent
// lookups short-circuit.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/log"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/luxfi/holo/holohash"
	"github.com/luxfi/holo/network"
	"github.com/luxfi/holo/state"
	"github.com/luxfi/holo/types"
)

// ErrNetwork wraps failures of the network leg so callers can tell a
// dependency gap from local store corruption.
var ErrNetwork = errors.New("cascade network fetch failed")

// Options bound one retrieval.
type Options struct {
	// Timeout caps the network leg. Zero leaves the caller's context in
	// charge.
	Timeout time.Duration
}

// DbPair is one prefix's element and metadata stores.
type DbPair struct {
	Elements *state.ElementBuf
	Meta     *state.MetaBuf
}

// Cascade is configured with zero or more local pairs, optionally a
// mutable cache pair, and optionally a network cell.
type Cascade struct {
	log        log.Logger
	integrated *DbPair
	pending    *DbPair
	rejected   *DbPair
	cache      *DbPair
	cell       network.Cell

	sf singleflight.Group
}

// Empty builds a cascade with no sources. Every retrieval misses.
func Empty(logger log.Logger) *Cascade {
	return &Cascade{log: logger}
}

// WithIntegrated adds the authoritative pair.
func (c *Cascade) WithIntegrated(p DbPair) *Cascade {
	c.integrated = &p
	return c
}

// WithPending adds the pending pair.
func (c *Cascade) WithPending(p DbPair) *Cascade {
	c.pending = &p
	return c
}

// WithRejected adds the rejected pair. Rejected data stays readable for
// dependency lookups.
func (c *Cascade) WithRejected(p DbPair) *Cascade {
	c.rejected = &p
	return c
}

// WithCache adds the mutable cache pair.
func (c *Cascade) WithCache(p DbPair) *Cascade {
	c.cache = &p
	return c
}

// WithNetwork adds the network leg.
func (c *Cascade) WithNetwork(cell network.Cell) *Cascade {
	c.cell = cell
	return c
}

// sources yields the local pairs in lookup order.
func (c *Cascade) sources() []*DbPair {
	return []*DbPair{c.integrated, c.pending, c.rejected, c.cache}
}

// Retrieve fetches the element at [hash]: for a header hash, the element
// stored under that header; for an entry hash, the element of the first
// header seen storing that entry. nil means every source reported absence.
func (c *Cascade) Retrieve(ctx context.Context, hash holohash.AnyDhtHash, opts Options) (*types.Element, error) {
	for _, src := range c.sources() {
		if src == nil {
			continue
		}
		el, err := retrieveLocal(src.Elements, hash)
		if err != nil {
			return nil, err
		}
		if el != nil {
			return el, nil
		}
	}
	return c.retrieveNetwork(ctx, hash, opts)
}

// RetrieveEntry fetches just the entry at [eh].
func (c *Cascade) RetrieveEntry(ctx context.Context, eh holohash.EntryHash, opts Options) (*types.Entry, error) {
	for _, src := range c.sources() {
		if src == nil {
			continue
		}
		entry, err := src.Elements.GetEntry(eh)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return entry, nil
		}
	}
	el, err := c.retrieveNetwork(ctx, holohash.AnyFromEntry(eh), opts)
	if err != nil || el == nil {
		return nil, err
	}
	return el.Entry, nil
}

// RetrieveHeader fetches just the signed header at [hh].
func (c *Cascade) RetrieveHeader(ctx context.Context, hh holohash.HeaderHash, opts Options) (*types.SignedHeaderHashed, error) {
	for _, src := range c.sources() {
		if src == nil {
			continue
		}
		shh, err := src.Elements.GetHeader(hh)
		if err != nil {
			return nil, err
		}
		if shh != nil {
			return shh, nil
		}
	}
	el, err := c.retrieveNetwork(ctx, holohash.AnyFromHeader(hh), opts)
	if err != nil || el == nil {
		return nil, err
	}
	shh := el.SignedHeader
	return &shh, nil
}

// GetLinks returns the live links on [base], merging every local meta
// source and falling through to the network when none has any.
func (c *Cascade) GetLinks(ctx context.Context, base holohash.EntryHash, tag types.LinkTag, opts Options) ([]types.Link, error) {
	var links []types.Link
	for _, src := range c.sources() {
		if src == nil {
			continue
		}
		ls, err := src.Meta.LiveLinks(base)
		if err != nil {
			return nil, err
		}
		links = append(links, ls...)
	}
	if len(links) > 0 || c.cell == nil {
		return links, nil
	}

	ctx, cancel := boundCtx(ctx, opts)
	defer cancel()
	links, err := c.cell.GetLinks(ctx, base, tag, network.GetOptions{Timeout: opts.Timeout})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNetwork, err)
	}
	return links, nil
}

func retrieveLocal(buf *state.ElementBuf, hash holohash.AnyDhtHash) (*types.Element, error) {
	if hh, ok := hash.AsHeader(); ok {
		return buf.GetElement(hh)
	}
	if eh, ok := hash.AsEntry(); ok {
		return buf.GetElementByEntry(eh)
	}
	return nil, nil
}

// retrieveNetwork asks the authorities, deduplicating concurrent fetches
// of the same hash, and writes hits through into the cache.
func (c *Cascade) retrieveNetwork(ctx context.Context, hash holohash.AnyDhtHash, opts Options) (*types.Element, error) {
	if c.cell == nil {
		return nil, nil
	}

	v, err, _ := c.sf.Do(string(hash.Bytes()), func() (interface{}, error) {
		ctx, cancel := boundCtx(ctx, opts)
		defer cancel()

		resp, err := c.cell.Get(ctx, hash, network.GetOptions{Timeout: opts.Timeout})
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNetwork, err)
		}
		if resp == nil || resp.Header == nil {
			return (*types.Element)(nil), nil
		}

		shh, err := types.NewSignedHeaderHashed(resp.Header.Header, resp.Header.Signature)
		if err != nil {
			return nil, err
		}
		el := types.NewElement(shh, resp.Entry)
		c.populateCache(el)
		return el, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Element), nil
}

// populateCache writes a network hit into the cache pair. The cache is
// advisory; failures are logged and swallowed.
func (c *Cascade) populateCache(el *types.Element) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Elements.PutElement(el); err != nil {
		c.log.Warn("dropping cache write for fetched element",
			zap.Stringer("header", el.HeaderHash()),
			zap.Error(err),
		)
	}
}

func boundCtx(ctx context.Context, opts Options) (context.Context, context.CancelFunc) {
	if opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, opts.Timeout)
}
