// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ribosometest provides a programmable [ribosome.Ribosome] for
// tests: a verdict table keyed by header hash plus an invocation recorder.
package ribosometest

import (
	"context"
	"sync"

	"github.com/luxfi/holo/holohash"
	"github.com/luxfi/holo/ribosome"
	"github.com/luxfi/holo/types"
)

// Record is one observed callback invocation.
type Record struct {
	Callback string
	Zomes    ribosome.ZomesToInvoke
	Header   holohash.HeaderHash
}

// Ribosome is the test double. The zero table answers Valid for
// everything.
type Ribosome struct {
	mu sync.Mutex

	verdicts map[holohash.HeaderHash]ribosome.ValidateResult
	// Err, when set, fails every invocation, standing in for guest
	// code crashing.
	Err error

	invocations []Record
}

// New builds an always-valid ribosome.
func New() *Ribosome {
	return &Ribosome{
		verdicts: make(map[holohash.HeaderHash]ribosome.ValidateResult),
	}
}

// Factory returns a [ribosome.Factory] that hands out this instance for
// every dna.
func (r *Ribosome) Factory() ribosome.Factory {
	return factory{r: r}
}

type factory struct {
	r *Ribosome
}

func (f factory) NewRibosome(*types.DnaFile) (ribosome.Ribosome, error) {
	return f.r, nil
}

// SetVerdict programs the verdict for the element whose header hashes to
// [hh].
func (r *Ribosome) SetVerdict(hh holohash.HeaderHash, res ribosome.ValidateResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verdicts[hh] = res
}

// Invocations snapshots the recorded callbacks.
func (r *Ribosome) Invocations() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.invocations))
	copy(out, r.invocations)
	return out
}

func (r *Ribosome) verdict(hh holohash.HeaderHash, rec Record) (ribosome.ValidateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invocations = append(r.invocations, rec)
	if r.Err != nil {
		return ribosome.ValidateResult{}, r.Err
	}
	if v, ok := r.verdicts[hh]; ok {
		return v, nil
	}
	return ribosome.Valid(), nil
}

func (r *Ribosome) RunValidate(_ context.Context, _ ribosome.ValidateHostAccess, inv ribosome.ValidateInvocation) (ribosome.ValidateResult, error) {
	hh := inv.Element.HeaderHash()
	return r.verdict(hh, Record{
		Callback: "validate",
		Zomes:    inv.Zomes,
		Header:   hh,
	})
}

func (r *Ribosome) RunValidateLink(_ context.Context, _ ribosome.ValidateLinkHostAccess, inv ribosome.LinkInvocation) (ribosome.ValidateLinkResult, error) {
	var hh holohash.HeaderHash
	switch i := inv.(type) {
	case ribosome.ValidateCreateLinkInvocation:
		hh, _ = headerHashOf(i.LinkAdd)
	case ribosome.ValidateDeleteLinkInvocation:
		hh, _ = headerHashOf(i.LinkRemove)
	}
	return r.verdict(hh, Record{
		Callback: inv.CallbackName(),
		Zomes:    ribosome.OneZome(inv.Zome()),
		Header:   hh,
	})
}

func headerHashOf(h types.Header) (holohash.HeaderHash, error) {
	return types.HashHeader(h)
}
