// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"github.com/luxfi/holo/holohash"
)

// HeaderKind discriminates the closed set of header variants.
type HeaderKind uint8

const (
	HeaderDna HeaderKind = iota
	HeaderAgentValidationPkg
	HeaderInitZomesComplete
	HeaderOpenChain
	HeaderCloseChain
	HeaderCreate
	HeaderUpdate
	HeaderDelete
	HeaderCreateLink
	HeaderDeleteLink
)

func (k HeaderKind) String() string {
	switch k {
	case HeaderDna:
		return "Dna"
	case HeaderAgentValidationPkg:
		return "AgentValidationPkg"
	case HeaderInitZomesComplete:
		return "InitZomesComplete"
	case HeaderOpenChain:
		return "OpenChain"
	case HeaderCloseChain:
		return "CloseChain"
	case HeaderCreate:
		return "Create"
	case HeaderUpdate:
		return "Update"
	case HeaderDelete:
		return "Delete"
	case HeaderCreateLink:
		return "CreateLink"
	case HeaderDeleteLink:
		return "DeleteLink"
	default:
		return "Invalid header"
	}
}

// HeaderCommon carries the fields every header variant shares. The genesis
// Dna header keeps PrevHeader zero and HeaderSeq 0.
type HeaderCommon struct {
	Author     holohash.AgentPubKey `cbor:"author"`
	Timestamp  Timestamp            `cbor:"timestamp"`
	HeaderSeq  uint32               `cbor:"header_seq"`
	PrevHeader holohash.HeaderHash  `cbor:"prev_header"`
}

// Common exposes the shared fields through the [Header] interface.
func (c *HeaderCommon) Common() *HeaderCommon { return c }

// EntryData is overridden by the variants that commit an entry.
func (c *HeaderCommon) EntryData() (holohash.EntryHash, EntryType, bool) {
	return holohash.EntryHash{}, EntryType{}, false
}

func (c *HeaderCommon) isHeader() {}

// Header is a sealed union over the ten header variants. Routing code type
// switches on the concrete pointer types.
type Header interface {
	Kind() HeaderKind
	Common() *HeaderCommon
	// EntryData returns the entry hash and type this header commits, or
	// ok=false for headers without entries.
	EntryData() (holohash.EntryHash, EntryType, bool)
	isHeader()
}

// Dna is the genesis header of every chain.
type Dna struct {
	HeaderCommon
	Hash holohash.DnaHash `cbor:"hash"`
}

func (*Dna) Kind() HeaderKind { return HeaderDna }

// AgentValidationPkg carries the membrane proof shown at join time.
type AgentValidationPkg struct {
	HeaderCommon
	MembraneProof []byte `cbor:"membrane_proof,omitempty"`
}

func (*AgentValidationPkg) Kind() HeaderKind { return HeaderAgentValidationPkg }

// InitZomesComplete marks the end of zome initialization on a chain.
type InitZomesComplete struct {
	HeaderCommon
}

func (*InitZomesComplete) Kind() HeaderKind { return HeaderInitZomesComplete }

// OpenChain continues a chain migrated from a previous dna.
type OpenChain struct {
	HeaderCommon
	PrevDna holohash.DnaHash `cbor:"prev_dna"`
}

func (*OpenChain) Kind() HeaderKind { return HeaderOpenChain }

// CloseChain ends a chain in favor of a successor dna.
type CloseChain struct {
	HeaderCommon
	NewDna holohash.DnaHash `cbor:"new_dna"`
}

func (*CloseChain) Kind() HeaderKind { return HeaderCloseChain }

// Create commits a new entry.
type Create struct {
	HeaderCommon
	EntryType EntryType          `cbor:"entry_type"`
	EntryHash holohash.EntryHash `cbor:"entry_hash"`
}

func (*Create) Kind() HeaderKind { return HeaderCreate }

func (h *Create) EntryData() (holohash.EntryHash, EntryType, bool) {
	return h.EntryHash, h.EntryType, true
}

// Update commits a new entry semantically replacing an earlier one.
type Update struct {
	HeaderCommon
	OriginalHeaderAddress holohash.HeaderHash `cbor:"original_header_address"`
	OriginalEntryAddress  holohash.EntryHash  `cbor:"original_entry_address"`
	EntryType             EntryType           `cbor:"entry_type"`
	EntryHash             holohash.EntryHash  `cbor:"entry_hash"`
}

func (*Update) Kind() HeaderKind { return HeaderUpdate }

func (h *Update) EntryData() (holohash.EntryHash, EntryType, bool) {
	return h.EntryHash, h.EntryType, true
}

// Delete marks an earlier new-entry header (and its entry) deleted.
type Delete struct {
	HeaderCommon
	DeletesAddress      holohash.HeaderHash `cbor:"deletes_address"`
	DeletesEntryAddress holohash.EntryHash  `cbor:"deletes_entry_address"`
}

func (*Delete) Kind() HeaderKind { return HeaderDelete }

// CreateLink attaches a tagged link from a base entry to a target entry.
// Links always belong to exactly one zome.
type CreateLink struct {
	HeaderCommon
	BaseAddress   holohash.EntryHash `cbor:"base_address"`
	TargetAddress holohash.EntryHash `cbor:"target_address"`
	ZomeID        ZomeID             `cbor:"zome_id"`
	Tag           LinkTag            `cbor:"tag"`
}

func (*CreateLink) Kind() HeaderKind { return HeaderCreateLink }

// DeleteLink marks an earlier CreateLink deleted.
type DeleteLink struct {
	HeaderCommon
	LinkAddAddress holohash.HeaderHash `cbor:"link_add_address"`
	BaseAddress    holohash.EntryHash  `cbor:"base_address"`
}

func (*DeleteLink) Kind() HeaderKind { return HeaderDeleteLink }

// NewEntryHeader is the refinement of [Header] satisfied by the two variants
// that commit entries.
type NewEntryHeader interface {
	Header
	// NewEntryHash is the hash of the committed entry.
	NewEntryHash() holohash.EntryHash
	// NewEntryType is the claimed type of the committed entry.
	NewEntryType() EntryType
}

func (h *Create) NewEntryHash() holohash.EntryHash { return h.EntryHash }
func (h *Create) NewEntryType() EntryType          { return h.EntryType }
func (h *Update) NewEntryHash() holohash.EntryHash { return h.EntryHash }
func (h *Update) NewEntryType() EntryType          { return h.EntryType }
