// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"

	"github.com/fxamacker/cbor/v2"
	"github.com/luxfi/database"

	"github.com/luxfi/holo/holohash"
	"github.com/luxfi/holo/types"
)

// MetaBuf is one prefix's metadata index: the backlink relationships a base
// hash accumulates as link adds, link removes, updates and deletes arrive.
type MetaBuf struct {
	db database.Database
}

// NewMetaBuf wraps [db] as a metadata index.
func NewMetaBuf(db database.Database) *MetaBuf {
	return &MetaBuf{db: db}
}

// Key layout within one meta prefix. Keys compose a relationship tag, the
// base hash, and the registering header hash, so one base's relationships
// iterate as a contiguous range.
const (
	tagLinkAdd    = 'l'
	tagLinkRemove = 'x'
	tagUpdate     = 'u'
	tagDelete     = 'd'
)

func metaKey(tag byte, base, reg []byte) []byte {
	k := make([]byte, 0, 1+len(base)+len(reg))
	k = append(k, tag)
	k = append(k, base...)
	k = append(k, reg...)
	return k
}

// RegisterAddLink indexes a live link on its base.
func (m *MetaBuf) RegisterAddLink(cl *types.CreateLink, hh holohash.HeaderHash) error {
	link := types.Link{
		Target:    cl.TargetAddress,
		Timestamp: cl.Timestamp,
		Tag:       cl.Tag,
	}
	v, err := cbor.Marshal(&link)
	if err != nil {
		return err
	}
	return m.db.Put(metaKey(tagLinkAdd, cl.BaseAddress.Bytes(), hh.Bytes()), v)
}

// RegisterRemoveLink marks the link created at [LinkAddAddress] removed.
func (m *MetaBuf) RegisterRemoveLink(dl *types.DeleteLink, hh holohash.HeaderHash) error {
	return m.db.Put(metaKey(tagLinkRemove, dl.LinkAddAddress.Bytes(), hh.Bytes()), nil)
}

// RegisterUpdate indexes the forward reference from the original header to
// its replacement.
func (m *MetaBuf) RegisterUpdate(u *types.Update, hh holohash.HeaderHash) error {
	return m.db.Put(metaKey(tagUpdate, u.OriginalHeaderAddress.Bytes(), hh.Bytes()), nil)
}

// RegisterDelete indexes the delete relationship on the deleted header.
func (m *MetaBuf) RegisterDelete(d *types.Delete, hh holohash.HeaderHash) error {
	return m.db.Put(metaKey(tagDelete, d.DeletesAddress.Bytes(), hh.Bytes()), nil)
}

// LiveLinks returns the links on [base] whose adds have no registered
// remove.
func (m *MetaBuf) LiveLinks(base holohash.EntryHash) ([]types.Link, error) {
	prefix := metaKey(tagLinkAdd, base.Bytes(), nil)
	it := m.db.NewIteratorWithPrefix(prefix)
	defer it.Release()

	var links []types.Link
	for it.Next() {
		addHash := it.Key()[len(prefix):]
		// Remove marks carry the remover's header hash as a suffix;
		// any mark under the add's hash kills the link.
		removed, err := m.hasAny(metaKey(tagLinkRemove, addHash, nil))
		if err != nil {
			return nil, err
		}
		if removed {
			continue
		}

		var link types.Link
		if err := cbor.Unmarshal(it.Value(), &link); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, it.Error()
}

// HasUpdate reports whether any update is registered on [original].
func (m *MetaBuf) HasUpdate(original holohash.HeaderHash) (bool, error) {
	return m.hasAny(metaKey(tagUpdate, original.Bytes(), nil))
}

// HasDelete reports whether any delete is registered on [deleted].
func (m *MetaBuf) HasDelete(deleted holohash.HeaderHash) (bool, error) {
	return m.hasAny(metaKey(tagDelete, deleted.Bytes(), nil))
}

func (m *MetaBuf) hasAny(prefix []byte) (bool, error) {
	it := m.db.NewIteratorWithPrefix(prefix)
	defer it.Release()
	if it.Next() {
		return true, nil
	}
	if err := it.Error(); err != nil && !errors.Is(err, database.ErrNotFound) {
		return false, err
	}
	return false, nil
}
