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

// ValidationLimboStatus is the 4-valued state of an op waiting in the
// validation limbo. App validation only ever consumes SysValidated and
// AwaitingAppDeps; the other two belong to system validation.
type ValidationLimboStatus uint8

const (
	LimboPending ValidationLimboStatus = iota
	LimboAwaitingSysDeps
	LimboSysValidated
	LimboAwaitingAppDeps
)

func (s ValidationLimboStatus) String() string {
	switch s {
	case LimboPending:
		return "Pending"
	case LimboAwaitingSysDeps:
		return "AwaitingSysDeps"
	case LimboSysValidated:
		return "SysValidated"
	case LimboAwaitingAppDeps:
		return "AwaitingAppDeps"
	default:
		return "Invalid status"
	}
}

// Valid reports whether the status is a known state.
func (s ValidationLimboStatus) Valid() bool {
	return s <= LimboAwaitingAppDeps
}

// ValidationLimboValue is the limbo record of one op awaiting validation.
type ValidationLimboValue struct {
	Op     types.DhtOpLight      `cbor:"op"`
	Status ValidationLimboStatus `cbor:"status"`
	// AwaitingDeps is set while Status is AwaitingAppDeps or
	// AwaitingSysDeps.
	AwaitingDeps []holohash.AnyDhtHash `cbor:"awaiting_deps,omitempty"`
	LastTry      *types.Timestamp      `cbor:"last_try,omitempty"`
	NumTries     uint32                `cbor:"num_tries"`
	FromAgent    *holohash.AgentPubKey `cbor:"from_agent,omitempty"`
}

// ValidationStatus is the terminal verdict recorded for the integration
// workflow.
type ValidationStatus uint8

const (
	Valid ValidationStatus = iota
	Rejected
	Abandoned
)

func (s ValidationStatus) String() string {
	switch s {
	case Valid:
		return "Valid"
	case Rejected:
		return "Rejected"
	case Abandoned:
		return "Abandoned"
	default:
		return "Invalid status"
	}
}

// IntegrationLimboValue is what the integration workflow consumes per op.
type IntegrationLimboValue struct {
	Op               types.DhtOpLight `cbor:"op"`
	ValidationStatus ValidationStatus `cbor:"validation_status"`
}

// ValidationLimboStore maps op hash to [ValidationLimboValue] under the
// validation limbo prefix.
type ValidationLimboStore struct {
	db database.Database
}

// Put stores [v] at [hash].
func (s *ValidationLimboStore) Put(hash holohash.DhtOpHash, v ValidationLimboValue) error {
	raw, err := cbor.Marshal(&v)
	if err != nil {
		return err
	}
	return s.db.Put(hash.Bytes(), raw)
}

// Get returns the value at [hash], or nil when absent.
func (s *ValidationLimboStore) Get(hash holohash.DhtOpHash) (*ValidationLimboValue, error) {
	raw, err := s.db.Get(hash.Bytes())
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	v := &ValidationLimboValue{}
	if err := cbor.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Has reports presence of [hash].
func (s *ValidationLimboStore) Has(hash holohash.DhtOpHash) (bool, error) {
	return s.db.Has(hash.Bytes())
}

// DrainedOp is one entry yielded and removed by [DrainIterFilter].
type DrainedOp struct {
	Hash  holohash.DhtOpHash
	Value ValidationLimboValue
}

// DrainIterFilter yields and deletes every entry matching [pred], within
// the current transaction: if the transaction aborts, the removal is
// undone. Non-matching entries are left untouched.
func (s *ValidationLimboStore) DrainIterFilter(pred func(*ValidationLimboValue) bool) ([]DrainedOp, error) {
	it := s.db.NewIterator()
	defer it.Release()

	var drained []DrainedOp
	for it.Next() {
		v := ValidationLimboValue{}
		if err := cbor.Unmarshal(it.Value(), &v); err != nil {
			return nil, err
		}
		if !pred(&v) {
			continue
		}
		hash, err := holohash.FromBytes(it.Key())
		if err != nil {
			return nil, err
		}
		drained = append(drained, DrainedOp{
			Hash:  holohash.DhtOpHash(hash),
			Value: v,
		})
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	// Delete after iteration so the iterator never observes its own
	// removals.
	for _, d := range drained {
		if err := s.db.Delete(d.Hash.Bytes()); err != nil {
			return nil, err
		}
	}
	return drained, nil
}

// Len counts the remaining limbo entries.
func (s *ValidationLimboStore) Len() (int, error) {
	it := s.db.NewIterator()
	defer it.Release()
	n := 0
	for it.Next() {
		n++
	}
	return n, it.Error()
}

// IntegrationLimboStore maps op hash to [IntegrationLimboValue] under the
// integration limbo prefix.
type IntegrationLimboStore struct {
	db database.Database
}

// Put stores [v] at [hash].
func (s *IntegrationLimboStore) Put(hash holohash.DhtOpHash, v IntegrationLimboValue) error {
	raw, err := cbor.Marshal(&v)
	if err != nil {
		return err
	}
	return s.db.Put(hash.Bytes(), raw)
}

// Get returns the value at [hash], or nil when absent.
func (s *IntegrationLimboStore) Get(hash holohash.DhtOpHash) (*IntegrationLimboValue, error) {
	raw, err := s.db.Get(hash.Bytes())
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	v := &IntegrationLimboValue{}
	if err := cbor.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Has reports presence of [hash].
func (s *IntegrationLimboStore) Has(hash holohash.DhtOpHash) (bool, error) {
	return s.db.Has(hash.Bytes())
}

// Len counts the integration limbo entries.
func (s *IntegrationLimboStore) Len() (int, error) {
	it := s.db.NewIterator()
	defer it.Release()
	n := 0
	for it.Next() {
		n++
	}
	return n, it.Error()
}

// IntegratedStore is the read-only view of ops already integrated.
type IntegratedStore struct {
	db database.Database
}

// Has reports whether [hash] reached a terminal outcome.
func (s *IntegratedStore) Has(hash holohash.DhtOpHash) (bool, error) {
	return s.db.Has(hash.Bytes())
}
