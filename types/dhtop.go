// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/holo/holohash"
)

// DhtOpKind discriminates the closed set of dht operations. Each operation
// is the minimum fact a peer publishes on behalf of one header.
type DhtOpKind uint8

const (
	OpStoreElement DhtOpKind = iota
	OpStoreEntry
	OpRegisterAgentActivity
	OpRegisterUpdatedBy
	OpRegisterDeletedEntryHeader
	OpRegisterDeletedBy
	OpRegisterAddLink
	OpRegisterRemoveLink
)

func (k DhtOpKind) String() string {
	switch k {
	case OpStoreElement:
		return "StoreElement"
	case OpStoreEntry:
		return "StoreEntry"
	case OpRegisterAgentActivity:
		return "RegisterAgentActivity"
	case OpRegisterUpdatedBy:
		return "RegisterUpdatedBy"
	case OpRegisterDeletedEntryHeader:
		return "RegisterDeletedEntryHeader"
	case OpRegisterDeletedBy:
		return "RegisterDeletedBy"
	case OpRegisterAddLink:
		return "RegisterAddLink"
	case OpRegisterRemoveLink:
		return "RegisterRemoveLink"
	default:
		return "Invalid op"
	}
}

// DhtOp is a sealed union over the eight operation variants. Each carries
// the author signature, the header, and the entry where semantically
// necessary.
type DhtOp interface {
	Kind() DhtOpKind
	Signature() Signature
	Header() Header
	// Entry returns the entry carried by this op, or nil.
	Entry() *Entry
	isDhtOp()
}

// StoreElement stores a full element at the header's authority.
type StoreElement struct {
	Sig        Signature
	Hdr        Header
	MaybeEntry *Entry
}

// StoreEntry stores an entry at the entry's authority.
type StoreEntry struct {
	Sig       Signature
	Hdr       NewEntryHeader
	EntryData Entry
}

// RegisterAgentActivity records chain activity at the author's authority.
type RegisterAgentActivity struct {
	Sig Signature
	Hdr Header
}

// RegisterUpdatedBy records an update relationship at the original entry's
// authority.
type RegisterUpdatedBy struct {
	Sig        Signature
	Hdr        *Update
	MaybeEntry *Entry
}

// RegisterDeletedEntryHeader records a delete at the deleted entry's
// authority.
type RegisterDeletedEntryHeader struct {
	Sig Signature
	Hdr *Delete
}

// RegisterDeletedBy records a delete at the deleted header's authority.
type RegisterDeletedBy struct {
	Sig Signature
	Hdr *Delete
}

// RegisterAddLink records a link add at the base entry's authority.
type RegisterAddLink struct {
	Sig Signature
	Hdr *CreateLink
}

// RegisterRemoveLink records a link remove at the base entry's authority.
type RegisterRemoveLink struct {
	Sig Signature
	Hdr *DeleteLink
}

func (*StoreElement) Kind() DhtOpKind               { return OpStoreElement }
func (*StoreEntry) Kind() DhtOpKind                 { return OpStoreEntry }
func (*RegisterAgentActivity) Kind() DhtOpKind      { return OpRegisterAgentActivity }
func (*RegisterUpdatedBy) Kind() DhtOpKind          { return OpRegisterUpdatedBy }
func (*RegisterDeletedEntryHeader) Kind() DhtOpKind { return OpRegisterDeletedEntryHeader }
func (*RegisterDeletedBy) Kind() DhtOpKind          { return OpRegisterDeletedBy }
func (*RegisterAddLink) Kind() DhtOpKind            { return OpRegisterAddLink }
func (*RegisterRemoveLink) Kind() DhtOpKind         { return OpRegisterRemoveLink }

func (o *StoreElement) Signature() Signature               { return o.Sig }
func (o *StoreEntry) Signature() Signature                 { return o.Sig }
func (o *RegisterAgentActivity) Signature() Signature      { return o.Sig }
func (o *RegisterUpdatedBy) Signature() Signature          { return o.Sig }
func (o *RegisterDeletedEntryHeader) Signature() Signature { return o.Sig }
func (o *RegisterDeletedBy) Signature() Signature          { return o.Sig }
func (o *RegisterAddLink) Signature() Signature            { return o.Sig }
func (o *RegisterRemoveLink) Signature() Signature         { return o.Sig }

func (o *StoreElement) Header() Header               { return o.Hdr }
func (o *StoreEntry) Header() Header                 { return o.Hdr }
func (o *RegisterAgentActivity) Header() Header      { return o.Hdr }
func (o *RegisterUpdatedBy) Header() Header          { return o.Hdr }
func (o *RegisterDeletedEntryHeader) Header() Header { return o.Hdr }
func (o *RegisterDeletedBy) Header() Header          { return o.Hdr }
func (o *RegisterAddLink) Header() Header            { return o.Hdr }
func (o *RegisterRemoveLink) Header() Header         { return o.Hdr }

func (o *StoreElement) Entry() *Entry               { return o.MaybeEntry }
func (o *StoreEntry) Entry() *Entry                 { return &o.EntryData }
func (o *RegisterAgentActivity) Entry() *Entry      { return nil }
func (o *RegisterUpdatedBy) Entry() *Entry          { return o.MaybeEntry }
func (o *RegisterDeletedEntryHeader) Entry() *Entry { return nil }
func (o *RegisterDeletedBy) Entry() *Entry          { return nil }
func (o *RegisterAddLink) Entry() *Entry            { return nil }
func (o *RegisterRemoveLink) Entry() *Entry         { return nil }

func (*StoreElement) isDhtOp()               {}
func (*StoreEntry) isDhtOp()                 {}
func (*RegisterAgentActivity) isDhtOp()      {}
func (*RegisterUpdatedBy) isDhtOp()          {}
func (*RegisterDeletedEntryHeader) isDhtOp() {}
func (*RegisterDeletedBy) isDhtOp()          {}
func (*RegisterAddLink) isDhtOp()            {}
func (*RegisterRemoveLink) isDhtOp()         {}

// ToElement materializes the canonical element an op describes. Entries are
// attached only where the op semantically carries one: StoreEntry always,
// StoreElement and RegisterUpdatedBy when the header commits an entry that
// travelled with the op.
func ToElement(op DhtOp) (*Element, error) {
	shh, err := NewSignedHeaderHashed(op.Header(), op.Signature())
	if err != nil {
		return nil, err
	}
	switch o := op.(type) {
	case *StoreElement:
		switch o.Hdr.(type) {
		case *Create, *Update:
			return NewElement(shh, o.MaybeEntry), nil
		default:
			return NewElement(shh, nil), nil
		}
	case *StoreEntry:
		entry := o.EntryData
		return NewElement(shh, &entry), nil
	case *RegisterUpdatedBy:
		return NewElement(shh, o.MaybeEntry), nil
	default:
		return NewElement(shh, nil), nil
	}
}

// DhtOpLight is an op with its entry replaced by the entry hash. Limbo
// values hold lights; the full entry is reconstructed from the pending
// element store on demand.
type DhtOpLight struct {
	Kind   DhtOpKind           `cbor:"kind"`
	Header holohash.HeaderHash `cbor:"header"`
	// Entry is zero when the op carries no entry.
	Entry holohash.EntryHash `cbor:"entry"`
}

// ToLight reduces an op to its light form.
func ToLight(op DhtOp) (DhtOpLight, error) {
	hh, err := HashHeader(op.Header())
	if err != nil {
		return DhtOpLight{}, err
	}
	light := DhtOpLight{Kind: op.Kind(), Header: hh}
	if op.Entry() != nil {
		if eh, _, ok := op.Header().EntryData(); ok {
			light.Entry = eh
		}
	}
	return light, nil
}

type opEnvelope struct {
	V uint8           `cbor:"v"`
	K DhtOpKind       `cbor:"k"`
	H cbor.RawMessage `cbor:"h"`
	S Signature       `cbor:"s"`
	E cbor.RawMessage `cbor:"e,omitempty"`
}

var errOpHeader = errors.New("op header has wrong kind for op")

// EncodeOp serializes an op with its envelope.
func EncodeOp(op DhtOp) ([]byte, error) {
	hdr, err := EncodeHeader(op.Header())
	if err != nil {
		return nil, err
	}
	env := opEnvelope{
		V: EnvelopeVersion,
		K: op.Kind(),
		H: hdr,
		S: op.Signature(),
	}
	if e := op.Entry(); e != nil {
		body, err := EncodeEntry(e)
		if err != nil {
			return nil, err
		}
		env.E = body
	}
	return encMode.Marshal(&env)
}

// DecodeOp reverses [EncodeOp], reconstructing the concrete variant.
func DecodeOp(b []byte) (DhtOp, error) {
	var env opEnvelope
	if err := cbor.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	if env.V != EnvelopeVersion {
		return nil, fmt.Errorf("%w: %d", errEnvelopeVersion, env.V)
	}
	hdr, err := DecodeHeader(env.H)
	if err != nil {
		return nil, err
	}
	var entry *Entry
	if len(env.E) > 0 {
		entry, err = DecodeEntry(env.E)
		if err != nil {
			return nil, err
		}
	}
	return BuildOp(env.K, env.S, hdr, entry)
}

// BuildOp assembles an op variant from its parts, checking the header kind
// fits the op kind.
func BuildOp(kind DhtOpKind, sig Signature, hdr Header, entry *Entry) (DhtOp, error) {
	switch kind {
	case OpStoreElement:
		return &StoreElement{Sig: sig, Hdr: hdr, MaybeEntry: entry}, nil
	case OpStoreEntry:
		neh, ok := hdr.(NewEntryHeader)
		if !ok {
			return nil, fmt.Errorf("%w: StoreEntry needs Create or Update, got %s", errOpHeader, hdr.Kind())
		}
		if entry == nil {
			return nil, fmt.Errorf("%w: StoreEntry without entry", errOpHeader)
		}
		return &StoreEntry{Sig: sig, Hdr: neh, EntryData: *entry}, nil
	case OpRegisterAgentActivity:
		return &RegisterAgentActivity{Sig: sig, Hdr: hdr}, nil
	case OpRegisterUpdatedBy:
		u, ok := hdr.(*Update)
		if !ok {
			return nil, fmt.Errorf("%w: RegisterUpdatedBy needs Update, got %s", errOpHeader, hdr.Kind())
		}
		return &RegisterUpdatedBy{Sig: sig, Hdr: u, MaybeEntry: entry}, nil
	case OpRegisterDeletedEntryHeader, OpRegisterDeletedBy:
		d, ok := hdr.(*Delete)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs Delete, got %s", errOpHeader, kind, hdr.Kind())
		}
		if kind == OpRegisterDeletedEntryHeader {
			return &RegisterDeletedEntryHeader{Sig: sig, Hdr: d}, nil
		}
		return &RegisterDeletedBy{Sig: sig, Hdr: d}, nil
	case OpRegisterAddLink:
		cl, ok := hdr.(*CreateLink)
		if !ok {
			return nil, fmt.Errorf("%w: RegisterAddLink needs CreateLink, got %s", errOpHeader, hdr.Kind())
		}
		return &RegisterAddLink{Sig: sig, Hdr: cl}, nil
	case OpRegisterRemoveLink:
		dl, ok := hdr.(*DeleteLink)
		if !ok {
			return nil, fmt.Errorf("%w: RegisterRemoveLink needs DeleteLink, got %s", errOpHeader, hdr.Kind())
		}
		return &RegisterRemoveLink{Sig: sig, Hdr: dl}, nil
	default:
		return nil, fmt.Errorf("%w: %d", errOpKind, kind)
	}
}

// HashOp computes an op's typed hash over its canonical encoding.
func HashOp(op DhtOp) (holohash.DhtOpHash, error) {
	b, err := EncodeOp(op)
	if err != nil {
		return holohash.DhtOpHash{}, err
	}
	return holohash.DhtOpHashOf(b), nil
}
