// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ribosome abstracts the sandboxed runtime that executes a zome's
// validation callbacks. The wasm host itself lives outside this module;
// validation only needs an invoker that is deterministic with respect to
// its inputs and the readable state of the workspace, and that never
// mutates the integrated store.
package ribosome

import (
	"context"

	"github.com/luxfi/holo/holohash"
	"github.com/luxfi/holo/network"
	"github.com/luxfi/holo/state"
	"github.com/luxfi/holo/types"
)

// ZomesToInvoke selects which zomes run a callback: all of them, or exactly
// one.
type ZomesToInvoke struct {
	all  bool
	zome types.ZomeName
}

// AllZomes invokes the callback in every zome of the dna.
func AllZomes() ZomesToInvoke {
	return ZomesToInvoke{all: true}
}

// OneZome invokes the callback in a single named zome.
func OneZome(name types.ZomeName) ZomesToInvoke {
	return ZomesToInvoke{zome: name}
}

// One returns the single zome name, or ok=false for the All selection.
func (z ZomesToInvoke) One() (types.ZomeName, bool) {
	if z.all {
		return "", false
	}
	return z.zome, true
}

func (z ZomesToInvoke) String() string {
	if z.all {
		return "All"
	}
	return "One(" + string(z.zome) + ")"
}

// ValidateResultKind discriminates callback verdicts.
type ValidateResultKind uint8

const (
	// ResultValid: the callback returned success.
	ResultValid ValidateResultKind = iota
	// ResultInvalid: the callback actively rejected the item.
	ResultInvalid
	// ResultUnresolvedDeps: the callback could not decide because it
	// needed data it could not fetch.
	ResultUnresolvedDeps
)

// ValidateResult is a callback's verdict on an element.
type ValidateResult struct {
	Kind           ValidateResultKind
	Reason         string
	UnresolvedDeps []holohash.AnyDhtHash
}

// ValidateLinkResult has the identical shape and meaning for link
// callbacks.
type ValidateLinkResult = ValidateResult

// Valid builds the success verdict.
func Valid() ValidateResult {
	return ValidateResult{Kind: ResultValid}
}

// Invalid builds an active rejection.
func Invalid(reason string) ValidateResult {
	return ValidateResult{Kind: ResultInvalid, Reason: reason}
}

// UnresolvedDependencies builds the cannot-decide verdict.
func UnresolvedDependencies(deps ...holohash.AnyDhtHash) ValidateResult {
	return ValidateResult{Kind: ResultUnresolvedDeps, UnresolvedDeps: deps}
}

// ValidateHostAccess bundles what user code may touch during a validate
// callback: a shared read handle on the call-zome workspace and the cell's
// network. Both expose only read capabilities to user code.
type ValidateHostAccess struct {
	Workspace state.CallZomeWorkspaceLock
	Cell      network.Cell
}

// ValidateLinkHostAccess is identical for link callbacks.
type ValidateLinkHostAccess = ValidateHostAccess

// ValidateInvocation asks the selected zomes to validate an element.
type ValidateInvocation struct {
	Zomes   ZomesToInvoke
	Element *types.Element
}

// LinkInvocation is the capability set shared by the two link invocation
// shapes.
type LinkInvocation interface {
	// Zome is the single zome the link belongs to.
	Zome() types.ZomeName
	// CallbackName is the guest function to invoke.
	CallbackName() string

	isLinkInvocation()
}

// ValidateCreateLinkInvocation asks one zome to validate a link add, with
// the base and target entries resolved by the caller.
type ValidateCreateLinkInvocation struct {
	ZomeName types.ZomeName
	LinkAdd  *types.CreateLink
	Base     types.Entry
	Target   types.Entry
}

func (i ValidateCreateLinkInvocation) Zome() types.ZomeName { return i.ZomeName }
func (ValidateCreateLinkInvocation) CallbackName() string   { return "validate_create_link" }
func (ValidateCreateLinkInvocation) isLinkInvocation()      {}

// ValidateDeleteLinkInvocation asks one zome to validate a link remove.
type ValidateDeleteLinkInvocation struct {
	ZomeName   types.ZomeName
	LinkRemove *types.DeleteLink
}

func (i ValidateDeleteLinkInvocation) Zome() types.ZomeName { return i.ZomeName }
func (ValidateDeleteLinkInvocation) CallbackName() string   { return "validate_delete_link" }
func (ValidateDeleteLinkInvocation) isLinkInvocation()      {}

// Ribosome invokes validation callbacks inside the guest runtime.
type Ribosome interface {
	RunValidate(ctx context.Context, access ValidateHostAccess, inv ValidateInvocation) (ValidateResult, error)
	RunValidateLink(ctx context.Context, access ValidateLinkHostAccess, inv LinkInvocation) (ValidateLinkResult, error)
}

// Factory builds a ribosome for a dna. The workflow constructs one per
// pass from the cell's active dna file.
type Factory interface {
	NewRibosome(dna *types.DnaFile) (Ribosome, error)
}
