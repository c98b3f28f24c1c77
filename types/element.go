// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/luxfi/holo/holohash"
)

// SignatureLen is the length of an author signature over a header.
const SignatureLen = 64

var errBadSignatureLen = errors.New("signature has wrong length")

// Signature is the author's signature over the serialized header.
type Signature [SignatureLen]byte

// SignatureFromBytes parses a raw signature.
func SignatureFromBytes(b []byte) (Signature, error) {
	var s Signature
	if len(b) != SignatureLen {
		return s, fmt.Errorf("%w: %d", errBadSignatureLen, len(b))
	}
	copy(s[:], b)
	return s, nil
}

func (s Signature) String() string {
	return "sig-" + base58.Encode(s[:8])
}

// SignedHeader pairs a header with its author's signature. This is the shape
// persisted in the header spaces of every element store.
type SignedHeader struct {
	Header    Header
	Signature Signature
}

// SignedHeaderHashed additionally carries the precomputed header hash so
// readers never rehash on access.
type SignedHeaderHashed struct {
	SignedHeader
	Hash holohash.HeaderHash
}

// NewSignedHeaderHashed hashes [h] and bundles it with [sig]. The signature
// is trusted as-is; verification happened during system validation.
func NewSignedHeaderHashed(h Header, sig Signature) (SignedHeaderHashed, error) {
	hash, err := HashHeader(h)
	if err != nil {
		return SignedHeaderHashed{}, err
	}
	return SignedHeaderHashed{
		SignedHeader: SignedHeader{Header: h, Signature: sig},
		Hash:         hash,
	}, nil
}

// Element is a signed header optionally accompanied by its entry. Headers
// that create or update entries include the entry; headers that only
// reference other content do not.
type Element struct {
	SignedHeader SignedHeaderHashed
	Entry        *Entry
}

// NewElement bundles a hashed signed header with its optional entry.
func NewElement(shh SignedHeaderHashed, entry *Entry) *Element {
	return &Element{SignedHeader: shh, Entry: entry}
}

// Header returns the inner header.
func (e *Element) Header() Header {
	return e.SignedHeader.Header
}

// HeaderHash returns the precomputed header hash.
func (e *Element) HeaderHash() holohash.HeaderHash {
	return e.SignedHeader.Hash
}

// Signature returns the author's signature on the header.
func (e *Element) Signature() Signature {
	return e.SignedHeader.Signature
}

// WireNewEntryHeader is the minimal wire shape of a Create or Update that
// shares a common entry. The entry type and entry hash are omitted on the
// wire because the receiver already knows them from the query key; they are
// supplied again when completing the header into an [Element].
type WireNewEntryHeader struct {
	Kind       HeaderKind           `cbor:"kind"`
	Timestamp  Timestamp            `cbor:"timestamp"`
	Author     holohash.AgentPubKey `cbor:"author"`
	HeaderSeq  uint32               `cbor:"header_seq"`
	PrevHeader holohash.HeaderHash  `cbor:"prev_header"`

	// Update only.
	OriginalEntryAddress  holohash.EntryHash  `cbor:"original_entry_address,omitempty"`
	OriginalHeaderAddress holohash.HeaderHash `cbor:"original_header_address,omitempty"`

	Signature Signature `cbor:"signature"`
}

var errWireNewEntryKind = errors.New("wire new-entry header must be Create or Update")

// ToElement completes the wire header with the externally known entry type
// and entry, rebuilding the full element.
func (w *WireNewEntryHeader) ToElement(entryType EntryType, entry Entry) (*Element, error) {
	common := HeaderCommon{
		Author:     w.Author,
		Timestamp:  w.Timestamp,
		HeaderSeq:  w.HeaderSeq,
		PrevHeader: w.PrevHeader,
	}
	entryHash := entry.Hash()

	var hdr Header
	switch w.Kind {
	case HeaderCreate:
		hdr = &Create{
			HeaderCommon: common,
			EntryType:    entryType,
			EntryHash:    entryHash,
		}
	case HeaderUpdate:
		hdr = &Update{
			HeaderCommon:          common,
			OriginalHeaderAddress: w.OriginalHeaderAddress,
			OriginalEntryAddress:  w.OriginalEntryAddress,
			EntryType:             entryType,
			EntryHash:             entryHash,
		}
	default:
		return nil, fmt.Errorf("%w: %s", errWireNewEntryKind, w.Kind)
	}

	shh, err := NewSignedHeaderHashed(hdr, w.Signature)
	if err != nil {
		return nil, err
	}
	return NewElement(shh, &entry), nil
}
