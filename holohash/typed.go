// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package holohash

// The typed wrappers give each hash kind its own Go type so a header hash
// can never be passed where an entry hash is expected. The underlying
// representation is always the full 39 byte [Hash].

// EntryHash addresses an entry in an element store.
type EntryHash Hash

// HeaderHash addresses a signed header in an element store.
type HeaderHash Hash

// AgentPubKey is an agent's public key, hash-shaped so it is addressable on
// the dht like any other content.
type AgentPubKey Hash

// DhtOpHash addresses a dht operation in the limbo stores.
type DhtOpHash Hash

// DnaHash identifies an immutable dna definition.
type DnaHash Hash

// EntryHashOf hashes entry content.
func EntryHashOf(content []byte) EntryHash {
	return EntryHash(HashOf(KindEntry, content))
}

// HeaderHashOf hashes header content.
func HeaderHashOf(content []byte) HeaderHash {
	return HeaderHash(HashOf(KindHeader, content))
}

// AgentPubKeyOf wraps raw key material into an agent hash.
func AgentPubKeyOf(content []byte) AgentPubKey {
	return AgentPubKey(HashOf(KindAgent, content))
}

// DhtOpHashOf hashes a serialized dht operation.
func DhtOpHashOf(content []byte) DhtOpHash {
	return DhtOpHash(HashOf(KindDhtOp, content))
}

// DnaHashOf hashes a serialized dna definition.
func DnaHashOf(content []byte) DnaHash {
	return DnaHash(HashOf(KindDna, content))
}

func (h EntryHash) String() string   { return Hash(h).String() }
func (h HeaderHash) String() string  { return Hash(h).String() }
func (h AgentPubKey) String() string { return Hash(h).String() }
func (h DhtOpHash) String() string   { return Hash(h).String() }
func (h DnaHash) String() string     { return Hash(h).String() }

func (h EntryHash) Bytes() []byte   { return Hash(h).Bytes() }
func (h HeaderHash) Bytes() []byte  { return Hash(h).Bytes() }
func (h AgentPubKey) Bytes() []byte { return Hash(h).Bytes() }
func (h DhtOpHash) Bytes() []byte   { return Hash(h).Bytes() }
func (h DnaHash) Bytes() []byte     { return Hash(h).Bytes() }

func (h EntryHash) IsZero() bool   { return Hash(h).IsZero() }
func (h HeaderHash) IsZero() bool  { return Hash(h).IsZero() }
func (h AgentPubKey) IsZero() bool { return Hash(h).IsZero() }
func (h DhtOpHash) IsZero() bool   { return Hash(h).IsZero() }
func (h DnaHash) IsZero() bool     { return Hash(h).IsZero() }

// AnyDhtHash is the composite hash accepted wherever either an entry hash or
// a header hash addresses dht content. The prefix disambiguates which store
// to consult.
type AnyDhtHash Hash

// AnyFromEntry widens an entry hash.
func AnyFromEntry(h EntryHash) AnyDhtHash {
	return AnyDhtHash(h)
}

// AnyFromHeader widens a header hash.
func AnyFromHeader(h HeaderHash) AnyDhtHash {
	return AnyDhtHash(h)
}

// AnyFromBytes parses a raw composite hash, rejecting kinds that are not dht
// addressable.
func AnyFromBytes(b []byte) (AnyDhtHash, error) {
	h, err := FromBytes(b)
	if err != nil {
		return AnyDhtHash{}, err
	}
	switch kind, _ := h.Kind(); kind {
	case KindEntry, KindHeader, KindAgent:
		return AnyDhtHash(h), nil
	default:
		return AnyDhtHash{}, ErrNotDhtKind
	}
}

// Kind reports which primitive kind this composite hash carries.
func (h AnyDhtHash) Kind() (Kind, bool) {
	return Hash(h).Kind()
}

// AsEntry narrows to an entry hash. Agent keys share the entry keyspace on
// the dht, so they narrow too.
func (h AnyDhtHash) AsEntry() (EntryHash, bool) {
	switch kind, _ := h.Kind(); kind {
	case KindEntry, KindAgent:
		return EntryHash(h), true
	default:
		return EntryHash{}, false
	}
}

// AsHeader narrows to a header hash.
func (h AnyDhtHash) AsHeader() (HeaderHash, bool) {
	if kind, _ := h.Kind(); kind == KindHeader {
		return HeaderHash(h), true
	}
	return HeaderHash{}, false
}

func (h AnyDhtHash) String() string { return Hash(h).String() }
func (h AnyDhtHash) Bytes() []byte  { return Hash(h).Bytes() }
func (h AnyDhtHash) IsZero() bool   { return Hash(h).IsZero() }
