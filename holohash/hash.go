// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package holohash implements the typed content hashes used across the DHT.
//
// Every hash is 39 bytes: a 3 byte kind prefix, a 32 byte blake2b-256 digest
// of the content, and a 4 byte location tail derived from the digest. The
// prefix participates in equality and ordering, so two hashes of different
// kinds are never equal even if their digest tails coincide.
package holohash

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	// PrefixLen is the length of the kind prefix.
	PrefixLen = 3
	// DigestLen is the length of the blake2b-256 digest.
	DigestLen = 32
	// LocLen is the length of the location tail.
	LocLen = 4
	// HashLen is the full length of a typed hash.
	HashLen = PrefixLen + DigestLen + LocLen
)

var (
	ErrBadLength  = errors.New("hash has wrong length")
	ErrBadPrefix  = errors.New("hash has unknown kind prefix")
	ErrWrongKind  = errors.New("hash has wrong kind for conversion")
	ErrNotDhtKind = errors.New("hash kind is not addressable on the dht")
)

// Kind enumerates the hashable content kinds.
type Kind uint8

const (
	KindEntry Kind = iota
	KindHeader
	KindAgent
	KindDhtOp
	KindDna

	numKinds
)

// The 3 byte discriminant prefixes. A receiver uses the prefix to decide
// which store a hash addresses.
var kindPrefixes = [numKinds][PrefixLen]byte{
	KindEntry:  {0x84, 0x21, 0x24},
	KindHeader: {0x84, 0x29, 0x24},
	KindAgent:  {0x84, 0x20, 0x24},
	KindDhtOp:  {0x84, 0x24, 0x24},
	KindDna:    {0x84, 0x2d, 0x24},
}

var kindNames = [numKinds]string{
	KindEntry:  "EntryHash",
	KindHeader: "HeaderHash",
	KindAgent:  "AgentPubKey",
	KindDhtOp:  "DhtOpHash",
	KindDna:    "DnaHash",
}

// Prefix returns the 3 byte discriminant for [k].
func (k Kind) Prefix() []byte {
	return kindPrefixes[k][:]
}

func (k Kind) String() string {
	if k >= numKinds {
		return "UnknownKind"
	}
	return kindNames[k]
}

// kindOfPrefix reverses the prefix table.
func kindOfPrefix(p []byte) (Kind, bool) {
	for k := Kind(0); k < numKinds; k++ {
		if bytes.Equal(kindPrefixes[k][:], p) {
			return k, true
		}
	}
	return 0, false
}

// Hash is a typed 39 byte content hash.
type Hash [HashLen]byte

// HashOf hashes [content] under [kind]. Hashing is infallible.
func HashOf(kind Kind, content []byte) Hash {
	digest := blake2b.Sum256(content)
	var h Hash
	copy(h[:PrefixLen], kindPrefixes[kind][:])
	copy(h[PrefixLen:PrefixLen+DigestLen], digest[:])
	loc := locOf(digest)
	copy(h[PrefixLen+DigestLen:], loc[:])
	return h
}

// locOf folds the digest into the 4 byte dht location.
func locOf(digest [DigestLen]byte) [LocLen]byte {
	var loc [LocLen]byte
	for i, b := range digest {
		loc[i%LocLen] ^= b
	}
	return loc
}

// FromBytes parses a raw 39 byte typed hash, validating length and prefix.
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashLen {
		return h, fmt.Errorf("%w: %d", ErrBadLength, len(b))
	}
	if _, ok := kindOfPrefix(b[:PrefixLen]); !ok {
		return h, ErrBadPrefix
	}
	copy(h[:], b)
	return h, nil
}

// Kind reports the kind encoded in the prefix. ok is false for a zero or
// corrupt hash.
func (h Hash) Kind() (Kind, bool) {
	return kindOfPrefix(h[:PrefixLen])
}

// Digest returns the 32 byte digest portion.
func (h Hash) Digest() []byte {
	return h[PrefixLen : PrefixLen+DigestLen]
}

// Loc returns the 4 byte dht location tail.
func (h Hash) Loc() []byte {
	return h[PrefixLen+DigestLen:]
}

// Bytes returns the full 39 byte encoding.
func (h Hash) Bytes() []byte {
	return h[:]
}

// IsZero reports whether the hash is unset.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Compare orders hashes bytewise, prefix first, so hashes of different kinds
// never interleave.
func (h Hash) Compare(o Hash) int {
	return bytes.Compare(h[:], o[:])
}

func (h Hash) String() string {
	kind, ok := h.Kind()
	if !ok {
		return "Hash(invalid)"
	}
	return kind.String() + "-" + base58.Encode(h[:])
}
