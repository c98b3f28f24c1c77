// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package conductor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/holo/holohash"
	"github.com/luxfi/holo/types"
)

func TestGetThisDna(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	dna, err := types.NewDnaFile(types.DnaDef{
		Name:  "app",
		Zomes: []types.Zome{{Name: "main"}},
	})
	require.NoError(err)

	cell := types.CellID{
		Dna:   dna.Hash,
		Agent: holohash.AgentPubKeyOf([]byte("agent")),
	}
	store := NewMapDnaStore()
	store.PutDna(dna)

	api, err := NewCellAPI(cell, store)
	require.NoError(err)
	require.Equal(cell, api.CellID())

	got, err := api.GetThisDna(ctx)
	require.NoError(err)
	require.Equal(dna, got)

	// Second lookup is served from the cache even if the store forgets
	// the dna.
	delete(store.dnas, dna.Hash)
	got, err = api.GetThisDna(ctx)
	require.NoError(err)
	require.Equal(dna, got)
}

func TestGetThisDnaMissing(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	cell := types.CellID{
		Dna:   holohash.DnaHashOf([]byte("unloaded")),
		Agent: holohash.AgentPubKeyOf([]byte("agent")),
	}
	api, err := NewCellAPI(cell, NewMapDnaStore())
	require.NoError(err)

	_, err = api.GetThisDna(ctx)
	require.ErrorIs(err, ErrDnaMissing)
}
