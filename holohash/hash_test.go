// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package holohash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashOfLayout(t *testing.T) {
	require := require.New(t)

	h := HashOf(KindEntry, []byte("hello"))
	require.Len(h.Bytes(), HashLen)
	require.Equal(KindEntry.Prefix(), h.Bytes()[:PrefixLen])

	kind, ok := h.Kind()
	require.True(ok)
	require.Equal(KindEntry, kind)

	// Same content, same hash.
	require.Equal(h, HashOf(KindEntry, []byte("hello")))
	// Different content, different digest.
	require.NotEqual(h, HashOf(KindEntry, []byte("world")))
}

func TestKindsNeverEqual(t *testing.T) {
	require := require.New(t)

	content := []byte("same content")
	entry := HashOf(KindEntry, content)
	header := HashOf(KindHeader, content)

	// Identical digest tails, distinct prefixes.
	require.Equal(entry.Digest(), header.Digest())
	require.NotEqual(entry, header)
	require.NotZero(entry.Compare(header))
}

func TestPrefixesDistinct(t *testing.T) {
	require := require.New(t)

	seen := make(map[string]Kind)
	for k := Kind(0); k < numKinds; k++ {
		p := string(k.Prefix())
		prev, dup := seen[p]
		require.False(dup, "prefix of %s collides with %s", k, prev)
		seen[p] = k
	}
}

func TestOrderingGroupsByKind(t *testing.T) {
	require := require.New(t)

	// Entry prefix 0x842124 sorts below header prefix 0x842924 regardless
	// of digest bytes.
	low := HashOf(KindEntry, []byte{0xff})
	high := HashOf(KindHeader, []byte{0x00})
	require.Negative(low.Compare(high))
}

func TestFromBytes(t *testing.T) {
	require := require.New(t)

	h := HashOf(KindDhtOp, []byte("op"))
	got, err := FromBytes(h.Bytes())
	require.NoError(err)
	require.Equal(h, got)

	_, err = FromBytes(h.Bytes()[:HashLen-1])
	require.ErrorIs(err, ErrBadLength)

	bad := make([]byte, HashLen)
	_, err = FromBytes(bad)
	require.ErrorIs(err, ErrBadPrefix)
}

func TestDisplay(t *testing.T) {
	require := require.New(t)

	h := HashOf(KindAgent, []byte("agent"))
	s := h.String()
	require.True(strings.HasPrefix(s, "AgentPubKey-"), s)

	require.Equal("Hash(invalid)", Hash{}.String())
}

func TestAnyDhtHash(t *testing.T) {
	require := require.New(t)

	eh := EntryHashOf([]byte("entry"))
	hh := HeaderHashOf([]byte("header"))

	any := AnyFromEntry(eh)
	got, ok := any.AsEntry()
	require.True(ok)
	require.Equal(eh, got)
	_, ok = any.AsHeader()
	require.False(ok)

	any = AnyFromHeader(hh)
	gotH, ok := any.AsHeader()
	require.True(ok)
	require.Equal(hh, gotH)

	// Agent keys ride in the entry keyspace.
	ak := AgentPubKeyOf([]byte("key"))
	anyAgent, err := AnyFromBytes(ak.Bytes())
	require.NoError(err)
	_, ok = anyAgent.AsEntry()
	require.True(ok)

	// Op hashes are not dht addressable.
	op := DhtOpHashOf([]byte("op"))
	_, err = AnyFromBytes(op.Bytes())
	require.ErrorIs(err, ErrNotDhtKind)
}
