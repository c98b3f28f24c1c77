// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package conductor exposes the slice of the conductor api the validation
// workflow consumes: resolving the dna file active for a cell.
package conductor

import (
	"context"
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/luxfi/holo/holohash"
	"github.com/luxfi/holo/types"
)

// ErrDnaMissing is returned when no dna is loaded for the cell. Validation
// cannot proceed without it.
var ErrDnaMissing = errors.New("no dna loaded for cell")

// dnaCacheSize bounds the per-cell dna cache. Cells reference one dna, but
// open/close chains can touch predecessors.
const dnaCacheSize = 4

// CellConductorAPI is one cell's view onto the conductor.
type CellConductorAPI interface {
	// GetThisDna returns the dna active for the cell, or [ErrDnaMissing].
	GetThisDna(ctx context.Context) (*types.DnaFile, error)
	// CellID identifies the cell for logging and error attribution.
	CellID() types.CellID
}

// DnaStore is the conductor-wide registry of loaded dna files.
type DnaStore interface {
	GetDna(hash holohash.DnaHash) (*types.DnaFile, bool)
}

// MapDnaStore is a DnaStore over an in-memory map.
type MapDnaStore struct {
	mu   sync.RWMutex
	dnas map[holohash.DnaHash]*types.DnaFile
}

// NewMapDnaStore builds an empty store.
func NewMapDnaStore() *MapDnaStore {
	return &MapDnaStore{dnas: make(map[holohash.DnaHash]*types.DnaFile)}
}

// PutDna registers a loaded dna file.
func (s *MapDnaStore) PutDna(dna *types.DnaFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dnas[dna.Hash] = dna
}

func (s *MapDnaStore) GetDna(hash holohash.DnaHash) (*types.DnaFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dna, ok := s.dnas[hash]
	return dna, ok
}

// CellAPI is the concrete per-cell api, caching store lookups so repeated
// passes stay cheap.
type CellAPI struct {
	cell  types.CellID
	store DnaStore
	cache *lru.Cache[holohash.DnaHash, *types.DnaFile]
}

// NewCellAPI binds [cell] to [store].
func NewCellAPI(cell types.CellID, store DnaStore) (*CellAPI, error) {
	cache, err := lru.New[holohash.DnaHash, *types.DnaFile](dnaCacheSize)
	if err != nil {
		return nil, err
	}
	return &CellAPI{cell: cell, store: store, cache: cache}, nil
}

func (a *CellAPI) GetThisDna(ctx context.Context) (*types.DnaFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dna, ok := a.cache.Get(a.cell.Dna); ok {
		return dna, nil
	}
	dna, ok := a.store.GetDna(a.cell.Dna)
	if !ok {
		return nil, ErrDnaMissing
	}
	a.cache.Add(a.cell.Dna, dna)
	return dna, nil
}

func (a *CellAPI) CellID() types.CellID {
	return a.cell
}
