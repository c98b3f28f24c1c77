// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/holo/holohash"
)

func testAgent(seed string) holohash.AgentPubKey {
	return holohash.AgentPubKeyOf([]byte(seed))
}

func testCommon(seed string, seq uint32) HeaderCommon {
	return HeaderCommon{
		Author:     testAgent(seed),
		Timestamp:  Timestamp{Secs: 1700000000 + int64(seq), Nsecs: 42},
		HeaderSeq:  seq,
		PrevHeader: holohash.HeaderHashOf([]byte(seed + "-prev")),
	}
}

func testAppType() AppEntryType {
	return AppEntryType{ZomeID: 1, EntryDefID: 0, Visibility: Public}
}

func TestHeaderRoundTrip(t *testing.T) {
	require := require.New(t)

	headers := []Header{
		&Dna{HeaderCommon: HeaderCommon{Author: testAgent("a"), Timestamp: Now()}, Hash: holohash.DnaHashOf([]byte("dna"))},
		&Create{HeaderCommon: testCommon("a", 3), EntryType: AppEntry(testAppType()), EntryHash: holohash.EntryHashOf([]byte("e"))},
		&Update{
			HeaderCommon:          testCommon("a", 4),
			OriginalHeaderAddress: holohash.HeaderHashOf([]byte("orig-h")),
			OriginalEntryAddress:  holohash.EntryHashOf([]byte("orig-e")),
			EntryType:             AppEntry(testAppType()),
			EntryHash:             holohash.EntryHashOf([]byte("e2")),
		},
		&Delete{HeaderCommon: testCommon("a", 5), DeletesAddress: holohash.HeaderHashOf([]byte("h")), DeletesEntryAddress: holohash.EntryHashOf([]byte("e"))},
		&CreateLink{HeaderCommon: testCommon("a", 6), BaseAddress: holohash.EntryHashOf([]byte("b")), TargetAddress: holohash.EntryHashOf([]byte("t")), ZomeID: 2, Tag: LinkTag("friend")},
		&DeleteLink{HeaderCommon: testCommon("a", 7), LinkAddAddress: holohash.HeaderHashOf([]byte("cl")), BaseAddress: holohash.EntryHashOf([]byte("b"))},
		&AgentValidationPkg{HeaderCommon: testCommon("a", 1), MembraneProof: []byte("proof")},
		&InitZomesComplete{HeaderCommon: testCommon("a", 2)},
		&OpenChain{HeaderCommon: testCommon("a", 8), PrevDna: holohash.DnaHashOf([]byte("old"))},
		&CloseChain{HeaderCommon: testCommon("a", 9), NewDna: holohash.DnaHashOf([]byte("new"))},
	}

	for _, h := range headers {
		b, err := EncodeHeader(h)
		require.NoError(err, h.Kind())
		got, err := DecodeHeader(b)
		require.NoError(err, h.Kind())
		require.Equal(h, got, h.Kind())
	}
}

func TestHeaderEntryData(t *testing.T) {
	require := require.New(t)

	create := &Create{HeaderCommon: testCommon("a", 1), EntryType: AppEntry(testAppType()), EntryHash: holohash.EntryHashOf([]byte("e"))}
	eh, et, ok := create.EntryData()
	require.True(ok)
	require.Equal(create.EntryHash, eh)
	require.Equal(EntryTypeApp, et.Kind)

	var hdr Header = &Delete{HeaderCommon: testCommon("a", 2)}
	_, _, ok = hdr.EntryData()
	require.False(ok)

	hdr = &CreateLink{HeaderCommon: testCommon("a", 3)}
	_, _, ok = hdr.EntryData()
	require.False(ok)
}

func TestSignedHeaderRoundTrip(t *testing.T) {
	require := require.New(t)

	hdr := &Create{HeaderCommon: testCommon("s", 1), EntryType: CapGrantEntryType(), EntryHash: holohash.EntryHashOf([]byte("grant"))}
	var sig Signature
	copy(sig[:], []byte("a signature over the header bytes"))

	shh, err := NewSignedHeaderHashed(hdr, sig)
	require.NoError(err)

	b, err := EncodeSignedHeader(shh.SignedHeader)
	require.NoError(err)
	got, err := DecodeSignedHeader(b)
	require.NoError(err)

	require.Equal(shh.SignedHeader, got.SignedHeader)
	// The hash is recomputed on decode and must agree.
	require.Equal(shh.Hash, got.Hash)
}

func TestDhtOpRoundTrip(t *testing.T) {
	require := require.New(t)

	entry := NewAppEntry(testAppType(), []byte(`{"hello":"world"}`))
	create := &Create{HeaderCommon: testCommon("op", 1), EntryType: AppEntry(testAppType()), EntryHash: entry.Hash()}
	var sig Signature
	copy(sig[:], []byte("sig"))

	ops := []DhtOp{
		&StoreEntry{Sig: sig, Hdr: create, EntryData: entry},
		&StoreElement{Sig: sig, Hdr: create, MaybeEntry: &entry},
		&RegisterAgentActivity{Sig: sig, Hdr: create},
		&RegisterUpdatedBy{Sig: sig, Hdr: &Update{
			HeaderCommon:          testCommon("op", 2),
			OriginalHeaderAddress: holohash.HeaderHashOf([]byte("h")),
			OriginalEntryAddress:  holohash.EntryHashOf([]byte("e")),
			EntryType:             AppEntry(testAppType()),
			EntryHash:             entry.Hash(),
		}},
		&RegisterDeletedBy{Sig: sig, Hdr: &Delete{HeaderCommon: testCommon("op", 3), DeletesAddress: holohash.HeaderHashOf([]byte("h"))}},
		&RegisterAddLink{Sig: sig, Hdr: &CreateLink{HeaderCommon: testCommon("op", 4), BaseAddress: holohash.EntryHashOf([]byte("b")), TargetAddress: holohash.EntryHashOf([]byte("t")), ZomeID: 1, Tag: LinkTag("x")}},
		&RegisterRemoveLink{Sig: sig, Hdr: &DeleteLink{HeaderCommon: testCommon("op", 5), LinkAddAddress: holohash.HeaderHashOf([]byte("cl"))}},
	}

	for _, op := range ops {
		b, err := EncodeOp(op)
		require.NoError(err, op.Kind())
		got, err := DecodeOp(b)
		require.NoError(err, op.Kind())
		require.Equal(op, got, op.Kind())

		// Op hashing is stable across a round trip.
		h1, err := HashOp(op)
		require.NoError(err)
		h2, err := HashOp(got)
		require.NoError(err)
		require.Equal(h1, h2)
	}
}

func TestDecodeOpRejectsWrongHeader(t *testing.T) {
	require := require.New(t)

	// A StoreEntry envelope wrapping a Delete header is corrupt.
	del := &Delete{HeaderCommon: testCommon("bad", 1)}
	op := &StoreElement{Hdr: del}
	b, err := EncodeOp(op)
	require.NoError(err)

	var env opEnvelope
	require.NoError(cbor.Unmarshal(b, &env))
	env.K = OpStoreEntry
	reb, err := encMode.Marshal(&env)
	require.NoError(err)

	_, err = DecodeOp(reb)
	require.ErrorIs(err, errOpHeader)
}

func TestToElement(t *testing.T) {
	require := require.New(t)

	entry := NewAppEntry(testAppType(), []byte("payload"))
	create := &Create{HeaderCommon: testCommon("el", 1), EntryType: AppEntry(testAppType()), EntryHash: entry.Hash()}
	var sig Signature

	// StoreEntry carries its entry.
	el, err := ToElement(&StoreEntry{Sig: sig, Hdr: create, EntryData: entry})
	require.NoError(err)
	require.NotNil(el.Entry)
	require.Equal(entry, *el.Entry)
	wantHash, err := HashHeader(create)
	require.NoError(err)
	require.Equal(wantHash, el.HeaderHash())

	// StoreElement of a link header is header-only even if an entry
	// sneaks into the op.
	cl := &CreateLink{HeaderCommon: testCommon("el", 2)}
	el, err = ToElement(&StoreElement{Sig: sig, Hdr: cl, MaybeEntry: &entry})
	require.NoError(err)
	require.Nil(el.Entry)

	// RegisterAgentActivity is header-only.
	el, err = ToElement(&RegisterAgentActivity{Sig: sig, Hdr: create})
	require.NoError(err)
	require.Nil(el.Entry)
}

func TestToLight(t *testing.T) {
	require := require.New(t)

	entry := NewAppEntry(testAppType(), []byte("light"))
	create := &Create{HeaderCommon: testCommon("lt", 1), EntryType: AppEntry(testAppType()), EntryHash: entry.Hash()}

	light, err := ToLight(&StoreEntry{Hdr: create, EntryData: entry})
	require.NoError(err)
	require.Equal(OpStoreEntry, light.Kind)
	require.Equal(entry.Hash(), light.Entry)
	wantHash, err := HashHeader(create)
	require.NoError(err)
	require.Equal(wantHash, light.Header)

	// Header-only ops keep a zero entry hash.
	light, err = ToLight(&RegisterAgentActivity{Hdr: create})
	require.NoError(err)
	require.True(light.Entry.IsZero())
}

func TestWireNewEntryHeaderToElement(t *testing.T) {
	require := require.New(t)

	entry := NewAppEntry(testAppType(), []byte("wire"))
	var sig Signature
	copy(sig[:], []byte("wire sig"))

	wire := &WireNewEntryHeader{
		Kind:       HeaderCreate,
		Timestamp:  Timestamp{Secs: 1, Nsecs: 2},
		Author:     testAgent("wire"),
		HeaderSeq:  9,
		PrevHeader: holohash.HeaderHashOf([]byte("prev")),
		Signature:  sig,
	}

	el, err := wire.ToElement(AppEntry(testAppType()), entry)
	require.NoError(err)
	create, ok := el.Header().(*Create)
	require.True(ok)
	require.Equal(entry.Hash(), create.EntryHash)
	require.Equal(wire.Author, create.Author)
	require.Equal(sig, el.Signature())

	// Update variant keeps the original addresses.
	wire.Kind = HeaderUpdate
	wire.OriginalHeaderAddress = holohash.HeaderHashOf([]byte("oh"))
	wire.OriginalEntryAddress = holohash.EntryHashOf([]byte("oe"))
	el, err = wire.ToElement(AppEntry(testAppType()), entry)
	require.NoError(err)
	update, ok := el.Header().(*Update)
	require.True(ok)
	require.Equal(wire.OriginalHeaderAddress, update.OriginalHeaderAddress)

	// Anything else is rejected.
	wire.Kind = HeaderDelete
	_, err = wire.ToElement(AppEntry(testAppType()), entry)
	require.ErrorIs(err, errWireNewEntryKind)
}

func TestEntryVisibility(t *testing.T) {
	require := require.New(t)

	require.Equal(Public, AppEntry(AppEntryType{Visibility: Public}).EntryVisibility())
	require.Equal(Private, AppEntry(AppEntryType{Visibility: Private}).EntryVisibility())
	require.Equal(Private, CapClaimEntryType().EntryVisibility())
	require.Equal(Private, CapGrantEntryType().EntryVisibility())
	require.Equal(Public, AgentEntryType().EntryVisibility())

	require.True(CapClaimEntryType().IsCap())
	require.True(CapGrantEntryType().IsCap())
	require.False(AgentEntryType().IsCap())
}

func TestDnaFileZomeName(t *testing.T) {
	require := require.New(t)

	dna, err := NewDnaFile(DnaDef{
		Name:  "test-app",
		Zomes: []Zome{{Name: "profiles"}, {Name: "posts"}, {Name: "chat"}},
	})
	require.NoError(err)

	name, ok := dna.ZomeName(2)
	require.True(ok)
	require.Equal(ZomeName("chat"), name)

	_, ok = dna.ZomeName(42)
	require.False(ok)
}

func TestTimestampOrdering(t *testing.T) {
	require := require.New(t)

	a := Timestamp{Secs: 10, Nsecs: 5}
	b := Timestamp{Secs: 10, Nsecs: 6}
	c := Timestamp{Secs: 11, Nsecs: 0}
	require.True(a.Before(b))
	require.True(b.Before(c))
	require.False(c.Before(a))
	require.False(a.Before(a))
}
