// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"github.com/luxfi/holo/holohash"
)

// EntryVisibility controls whether an entry's content is published to the
// dht or only its hash.
type EntryVisibility uint8

const (
	Public EntryVisibility = iota
	Private
)

func (v EntryVisibility) String() string {
	switch v {
	case Public:
		return "Public"
	case Private:
		return "Private"
	default:
		return "Invalid visibility"
	}
}

// AppEntryType identifies an app-defined entry type: the zome that defines
// it, the entry definition's ordinal within that zome, and its visibility.
type AppEntryType struct {
	ZomeID     ZomeID          `cbor:"zome_id"`
	EntryDefID uint8           `cbor:"entry_def_id"`
	Visibility EntryVisibility `cbor:"visibility"`
}

// EntryTypeKind discriminates [EntryType].
type EntryTypeKind uint8

const (
	EntryTypeApp EntryTypeKind = iota
	EntryTypeAgent
	EntryTypeCapClaim
	EntryTypeCapGrant
)

func (k EntryTypeKind) String() string {
	switch k {
	case EntryTypeApp:
		return "App"
	case EntryTypeAgent:
		return "AgentPubKey"
	case EntryTypeCapClaim:
		return "CapClaim"
	case EntryTypeCapGrant:
		return "CapGrant"
	default:
		return "Invalid entry type"
	}
}

// EntryType is the type tag a new-entry header carries for its entry.
type EntryType struct {
	Kind EntryTypeKind `cbor:"kind"`
	App  *AppEntryType `cbor:"app,omitempty"`
}

// AppEntry builds the app variant.
func AppEntry(aet AppEntryType) EntryType {
	return EntryType{Kind: EntryTypeApp, App: &aet}
}

// AgentEntryType is the type of agent key entries.
func AgentEntryType() EntryType {
	return EntryType{Kind: EntryTypeAgent}
}

// CapClaimEntryType is the type of capability claim entries.
func CapClaimEntryType() EntryType {
	return EntryType{Kind: EntryTypeCapClaim}
}

// CapGrantEntryType is the type of capability grant entries.
func CapGrantEntryType() EntryType {
	return EntryType{Kind: EntryTypeCapGrant}
}

// EntryVisibility returns the visibility the dht applies to entries of this
// type. Capability entries never leave the source chain.
func (et EntryType) EntryVisibility() EntryVisibility {
	switch et.Kind {
	case EntryTypeApp:
		return et.App.Visibility
	case EntryTypeCapClaim, EntryTypeCapGrant:
		return Private
	default:
		return Public
	}
}

// IsCap reports whether this is a capability claim or grant type. Such
// entries bypass user validation callbacks.
func (et EntryType) IsCap() bool {
	return et.Kind == EntryTypeCapClaim || et.Kind == EntryTypeCapGrant
}

func (et EntryType) String() string {
	return et.Kind.String()
}

// EntryKind discriminates [Entry].
type EntryKind uint8

const (
	EntryApp EntryKind = iota
	EntryAgent
	EntryDna
	EntryDeletion
	EntryCapClaim
	EntryCapGrant
	EntryLinkAdd
	EntryLinkRemove
)

func (k EntryKind) String() string {
	switch k {
	case EntryApp:
		return "App"
	case EntryAgent:
		return "Agent"
	case EntryDna:
		return "Dna"
	case EntryDeletion:
		return "Deletion"
	case EntryCapClaim:
		return "CapClaim"
	case EntryCapGrant:
		return "CapGrant"
	case EntryLinkAdd:
		return "LinkAdd"
	case EntryLinkRemove:
		return "LinkRemove"
	default:
		return "Invalid entry"
	}
}

// Entry is the data committed by a new-entry header. App entries carry an
// opaque payload plus the app type the author claimed; system entries carry
// their own serialized content in [Body].
type Entry struct {
	Kind    EntryKind            `cbor:"kind"`
	AppType *AppEntryType        `cbor:"app_type,omitempty"`
	Body    []byte               `cbor:"body,omitempty"`
	Agent   holohash.AgentPubKey `cbor:"agent,omitempty"`
}

// NewAppEntry builds an app entry with an opaque payload.
func NewAppEntry(aet AppEntryType, body []byte) Entry {
	return Entry{Kind: EntryApp, AppType: &aet, Body: body}
}

// NewAgentEntry builds the agent id entry for [agent].
func NewAgentEntry(agent holohash.AgentPubKey) Entry {
	return Entry{Kind: EntryAgent, Agent: agent}
}

// NewCapClaimEntry builds a capability claim entry.
func NewCapClaimEntry(body []byte) Entry {
	return Entry{Kind: EntryCapClaim, Body: body}
}

// NewCapGrantEntry builds a capability grant entry.
func NewCapGrantEntry(body []byte) Entry {
	return Entry{Kind: EntryCapGrant, Body: body}
}

// Hash computes the entry's content hash.
func (e *Entry) Hash() holohash.EntryHash {
	b, err := EncodeEntry(e)
	if err != nil {
		// Entries are closed data with infallible encodings; an error
		// here is a corrupted value.
		panic(err)
	}
	return holohash.EntryHashOf(b)
}
