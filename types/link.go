// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"github.com/luxfi/holo/holohash"
)

// LinkTag is the opaque app-layer tag on a link, used to distinguish the
// semantics and validation rules of different links on the same base.
type LinkTag []byte

// Link is the queryable view of a live link on a base entry.
type Link struct {
	Target    holohash.EntryHash `cbor:"target"`
	Timestamp Timestamp          `cbor:"timestamp"`
	Tag       LinkTag            `cbor:"tag"`
}
