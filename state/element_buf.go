// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"

	"github.com/luxfi/holo/holohash"
	"github.com/luxfi/holo/types"
)

// ElementBuf is one prefix's element store: signed headers keyed by header
// hash and entries keyed by entry hash, with private entries kept in their
// own sub-space. An index from entry hash to the first header that stored
// it lets an entry hash resolve to a full element.
type ElementBuf struct {
	headers database.Database
	public  database.Database
	private database.Database
	index   database.Database
}

// NewElementBuf carves the element sub-spaces out of [db].
func NewElementBuf(db database.Database) *ElementBuf {
	return &ElementBuf{
		headers: prefixdb.New([]byte("h"), db),
		public:  prefixdb.New([]byte("e"), db),
		private: prefixdb.New([]byte("s"), db),
		index:   prefixdb.New([]byte("x"), db),
	}
}

// PutElement stores the signed header, and the entry (under its declared
// visibility) when the element carries one.
func (b *ElementBuf) PutElement(el *types.Element) error {
	shBytes, err := types.EncodeSignedHeader(el.SignedHeader.SignedHeader)
	if err != nil {
		return err
	}
	hh := el.HeaderHash()
	if err := b.headers.Put(hh.Bytes(), shBytes); err != nil {
		return err
	}
	if el.Entry == nil {
		return nil
	}

	eh, et, ok := el.Header().EntryData()
	if !ok {
		// A header that commits no entry cannot carry one.
		return errElementEntryMismatch
	}
	eBytes, err := types.EncodeEntry(el.Entry)
	if err != nil {
		return err
	}
	space := b.public
	if et.EntryVisibility() == types.Private {
		space = b.private
	}
	if err := space.Put(eh.Bytes(), eBytes); err != nil {
		return err
	}
	// First writer wins; later headers storing the same entry keep the
	// original index.
	has, err := b.index.Has(eh.Bytes())
	if err != nil {
		return err
	}
	if !has {
		return b.index.Put(eh.Bytes(), hh.Bytes())
	}
	return nil
}

var errElementEntryMismatch = errors.New("element carries an entry its header does not commit")

// GetHeader returns the signed header at [hh], or nil when absent.
func (b *ElementBuf) GetHeader(hh holohash.HeaderHash) (*types.SignedHeaderHashed, error) {
	raw, err := b.headers.Get(hh.Bytes())
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	shh, err := types.DecodeSignedHeader(raw)
	if err != nil {
		return nil, err
	}
	return &shh, nil
}

// GetEntry returns the entry at [eh] from either visibility space, or nil
// when absent.
func (b *ElementBuf) GetEntry(eh holohash.EntryHash) (*types.Entry, error) {
	for _, space := range []database.Database{b.public, b.private} {
		raw, err := space.Get(eh.Bytes())
		switch {
		case errors.Is(err, database.ErrNotFound):
			continue
		case err != nil:
			return nil, err
		}
		return types.DecodeEntry(raw)
	}
	return nil, nil
}

// GetElement returns the full element at [hh]: the signed header plus its
// entry when the header commits one and the entry is present locally.
func (b *ElementBuf) GetElement(hh holohash.HeaderHash) (*types.Element, error) {
	shh, err := b.GetHeader(hh)
	if err != nil || shh == nil {
		return nil, err
	}
	var entry *types.Entry
	if eh, _, ok := shh.Header.EntryData(); ok {
		entry, err = b.GetEntry(eh)
		if err != nil {
			return nil, err
		}
	}
	return types.NewElement(*shh, entry), nil
}

// GetElementByEntry resolves an entry hash to the element of the first
// header that stored it.
func (b *ElementBuf) GetElementByEntry(eh holohash.EntryHash) (*types.Element, error) {
	raw, err := b.index.Get(eh.Bytes())
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	hh, err := holohash.FromBytes(raw)
	if err != nil {
		return nil, err
	}
	return b.GetElement(holohash.HeaderHash(hh))
}

// HasHeader reports whether a signed header is stored at [hh].
func (b *ElementBuf) HasHeader(hh holohash.HeaderHash) (bool, error) {
	return b.headers.Has(hh.Bytes())
}

// HasEntry reports whether an entry is stored at [eh] in either space.
func (b *ElementBuf) HasEntry(eh holohash.EntryHash) (bool, error) {
	has, err := b.public.Has(eh.Bytes())
	if err != nil || has {
		return has, err
	}
	return b.private.Has(eh.Bytes())
}
