// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"fmt"

	"github.com/luxfi/holo/holohash"
)

// ZomeID is a zome's ordinal index within its dna.
type ZomeID uint8

func (z ZomeID) String() string {
	return fmt.Sprintf("zome-%d", uint8(z))
}

// ZomeName names a validation module within a dna.
type ZomeName string

func (z ZomeName) String() string { return string(z) }

// Zome is a named validation module. The wasm itself lives outside this
// module; validation only needs the name to route callbacks.
type Zome struct {
	Name ZomeName `cbor:"name"`
}

// DnaDef is the immutable definition of an application: its zomes in
// ordinal order plus opaque properties.
type DnaDef struct {
	Name       string `cbor:"name"`
	Zomes      []Zome `cbor:"zomes"`
	Properties []byte `cbor:"properties,omitempty"`
}

// DnaFile is a dna definition together with its content hash.
type DnaFile struct {
	Def  DnaDef
	Hash holohash.DnaHash
}

// NewDnaFile hashes [def] into a DnaFile.
func NewDnaFile(def DnaDef) (*DnaFile, error) {
	b, err := encMode.Marshal(&def)
	if err != nil {
		return nil, err
	}
	return &DnaFile{Def: def, Hash: holohash.DnaHashOf(b)}, nil
}

// ZomeName resolves a zome ordinal to its name. ok is false when the index
// is outside the dna's zome list.
func (f *DnaFile) ZomeName(id ZomeID) (ZomeName, bool) {
	idx := int(id)
	if idx >= len(f.Def.Zomes) {
		return "", false
	}
	return f.Def.Zomes[idx].Name, true
}

// CellID pairs a dna with an agent key: the unit of validation.
type CellID struct {
	Dna   holohash.DnaHash
	Agent holohash.AgentPubKey
}

func (c CellID) String() string {
	return fmt.Sprintf("cell(%s, %s)", c.Dna, c.Agent)
}
