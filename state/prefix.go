// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state implements the staged store: a set of prefixed logical
// databases sharing one transaction. The workflow layers everything on a
// versioned database so that all writes stay in memory until a single
// commit, and an abort restores the pre-pass snapshot exactly.
package state

import (
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
)

// Key-space prefixes. Each logical database lives under its own prefix of
// the shared transaction, so a put under one prefix is never readable from
// another.
var (
	elementIntegratedPrefix = []byte("ei")
	elementPendingPrefix    = []byte("ep")
	elementRejectedPrefix   = []byte("er")
	elementCachePrefix      = []byte("ec")

	metaIntegratedPrefix = []byte("mi")
	metaPendingPrefix    = []byte("mp")
	metaRejectedPrefix   = []byte("mr")
	metaCachePrefix      = []byte("mc")

	validationLimboPrefix  = []byte("vl")
	integrationLimboPrefix = []byte("il")
	integratedOpsPrefix    = []byte("io")
)

// IntegratedPair opens the authoritative element and metadata stores.
func IntegratedPair(db database.Database) (*ElementBuf, *MetaBuf) {
	return NewElementBuf(prefixdb.New(elementIntegratedPrefix, db)),
		NewMetaBuf(prefixdb.New(metaIntegratedPrefix, db))
}

// PendingPair opens the stores holding data still under validation.
func PendingPair(db database.Database) (*ElementBuf, *MetaBuf) {
	return NewElementBuf(prefixdb.New(elementPendingPrefix, db)),
		NewMetaBuf(prefixdb.New(metaPendingPrefix, db))
}

// RejectedPair opens the read-mostly stores of rejected data. Rejected data
// stays readable for dependency lookups but is never authoritative.
func RejectedPair(db database.Database) (*ElementBuf, *MetaBuf) {
	return NewElementBuf(prefixdb.New(elementRejectedPrefix, db)),
		NewMetaBuf(prefixdb.New(metaRejectedPrefix, db))
}

// CachePair opens the advisory cache stores. Dropping them never changes
// outcomes.
func CachePair(db database.Database) (*ElementBuf, *MetaBuf) {
	return NewElementBuf(prefixdb.New(elementCachePrefix, db)),
		NewMetaBuf(prefixdb.New(metaCachePrefix, db))
}

// NewValidationLimbo opens the validation limbo store.
func NewValidationLimbo(db database.Database) *ValidationLimboStore {
	return &ValidationLimboStore{db: prefixdb.New(validationLimboPrefix, db)}
}

// NewIntegrationLimbo opens the integration limbo store.
func NewIntegrationLimbo(db database.Database) *IntegrationLimboStore {
	return &IntegrationLimboStore{db: prefixdb.New(integrationLimboPrefix, db)}
}

// NewIntegratedOps opens the integrated-ops store. App validation only ever
// reads it: presence implies a terminal outcome.
func NewIntegratedOps(db database.Database) *IntegratedStore {
	return &IntegratedStore{db: prefixdb.New(integratedOpsPrefix, db)}
}
