// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/holo/conductor"
	"github.com/luxfi/holo/holohash"
	"github.com/luxfi/holo/network/networktest"
	"github.com/luxfi/holo/queue"
	"github.com/luxfi/holo/ribosome"
	"github.com/luxfi/holo/ribosome/ribosometest"
	"github.com/luxfi/holo/state"
	"github.com/luxfi/holo/types"
	"github.com/luxfi/holo/workflow"
)

type harness struct {
	require *require.Assertions

	base database.Database
	dna  *types.DnaFile
	cell types.CellID

	ribo    *ribosometest.Ribosome
	net     *networktest.MemoryCell
	av      *workflow.AppValidation
	trigger *queue.TriggerSender
	rx      *queue.TriggerReceiver
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	require := require.New(t)

	dna, err := types.NewDnaFile(types.DnaDef{
		Name:  "test-app",
		Zomes: []types.Zome{{Name: "profiles"}, {Name: "posts"}, {Name: "chat"}},
	})
	require.NoError(err)

	cell := types.CellID{
		Dna:   dna.Hash,
		Agent: holohash.AgentPubKeyOf([]byte("alice")),
	}
	store := conductor.NewMapDnaStore()
	store.PutDna(dna)
	api, err := conductor.NewCellAPI(cell, store)
	require.NoError(err)

	ribo := ribosometest.New()
	net := networktest.New()
	av, err := workflow.New(workflow.Config{
		ConductorAPI: api,
		Cell:         net,
		Ribosomes:    ribo.Factory(),
	})
	require.NoError(err)

	tx, rx := queue.NewTrigger()
	return &harness{
		require: require,
		base:    memdb.New(),
		dna:     dna,
		cell:    cell,
		ribo:    ribo,
		net:     net,
		av:      av,
		trigger: tx,
		rx:      rx,
	}
}

// runPass executes one workflow pass over a fresh workspace.
func (h *harness) runPass(ctx context.Context) (queue.WorkComplete, error) {
	ws := workflow.NewAppValidationWorkspace(h.base)
	writer := queue.NewOneshotWriter(ws.VersionDB())
	return h.av.Run(ctx, ws, writer, h.trigger)
}

// seedOp commits [op] into the pending element store and the validation
// limbo on the base database, the way system validation leaves it.
func (h *harness) seedOp(op types.DhtOp, status state.ValidationLimboStatus) holohash.DhtOpHash {
	el, err := types.ToElement(op)
	h.require.NoError(err)
	pending, _ := state.PendingPair(h.base)
	h.require.NoError(pending.PutElement(el))

	light, err := types.ToLight(op)
	h.require.NoError(err)
	hash, err := types.HashOp(op)
	h.require.NoError(err)
	h.require.NoError(state.NewValidationLimbo(h.base).Put(hash, state.ValidationLimboValue{
		Op:     light,
		Status: status,
	}))
	return hash
}

// seedIntegrated commits an element into the integrated store so the
// cascade can resolve it locally.
func (h *harness) seedIntegrated(el *types.Element) {
	vault, _ := state.IntegratedPair(h.base)
	h.require.NoError(vault.PutElement(el))
}

func (h *harness) valLimbo() *state.ValidationLimboStore {
	return state.NewValidationLimbo(h.base)
}

func (h *harness) intLimbo() *state.IntegrationLimboStore {
	return state.NewIntegrationLimbo(h.base)
}

func (h *harness) triggerCount() int {
	n := 0
	for {
		select {
		case <-h.rx.Chan():
			n++
		default:
			return n
		}
	}
}

func (h *harness) appType() types.AppEntryType {
	return types.AppEntryType{ZomeID: 1, EntryDefID: 0, Visibility: types.Public}
}

// storeEntryOp builds a StoreEntry op for a fresh app entry.
func (h *harness) storeEntryOp(payload string, seq uint32) *types.StoreEntry {
	entry := types.NewAppEntry(h.appType(), []byte(payload))
	hdr := &types.Create{
		HeaderCommon: types.HeaderCommon{
			Author:     h.cell.Agent,
			Timestamp:  types.Timestamp{Secs: 1700000000 + int64(seq)},
			HeaderSeq:  seq,
			PrevHeader: holohash.HeaderHashOf([]byte(payload + "-prev")),
		},
		EntryType: types.AppEntry(h.appType()),
		EntryHash: entry.Hash(),
	}
	var sig types.Signature
	copy(sig[:], payload)
	return &types.StoreEntry{Sig: sig, Hdr: hdr, EntryData: entry}
}

// integratedEntry builds and integrates a create element for a dependency
// entry, returning its entry hash.
func (h *harness) integratedEntry(payload string) holohash.EntryHash {
	op := h.storeEntryOp(payload, 1)
	el, err := types.ToElement(op)
	h.require.NoError(err)
	h.seedIntegrated(el)
	eh, _, _ := el.Header().EntryData()
	return eh
}

func TestAcceptSimplePublicCreate(t *testing.T) {
	// A valid zome callback accepts a simple public create.
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	op := h.storeEntryOp(`{"msg":"hello"}`, 3)
	hash := h.seedOp(op, state.LimboSysValidated)

	complete, err := h.runPass(ctx)
	require.NoError(err)
	require.Equal(queue.Complete, complete)

	iv, err := h.intLimbo().Get(hash)
	require.NoError(err)
	require.NotNil(iv)
	require.Equal(state.Valid, iv.ValidationStatus)

	n, err := h.valLimbo().Len()
	require.NoError(err)
	require.Zero(n)

	require.Equal(1, h.triggerCount())

	// The element's zome was selected, not All.
	invs := h.ribo.Invocations()
	require.Len(invs, 1)
	name, ok := invs[0].Zomes.One()
	require.True(ok)
	require.Equal(types.ZomeName("posts"), name)
}

func TestRejectWithReason(t *testing.T) {
	// The callback actively rejects with a reason.
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	op := h.storeEntryOp("bad", 3)
	hh, err := types.HashHeader(op.Hdr)
	require.NoError(err)
	h.ribo.SetVerdict(hh, ribosome.Invalid("bad payload"))

	hash := h.seedOp(op, state.LimboSysValidated)

	_, err = h.runPass(ctx)
	require.NoError(err)

	iv, err := h.intLimbo().Get(hash)
	require.NoError(err)
	require.NotNil(iv)
	require.Equal(state.Rejected, iv.ValidationStatus)

	n, err := h.valLimbo().Len()
	require.NoError(err)
	require.Zero(n)
}

func TestAwaitDependency(t *testing.T) {
	// A CreateLink whose target cannot be resolved parks the op.
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	base := h.integratedEntry("base entry")
	target := holohash.EntryHashOf([]byte("not anywhere"))

	cl := &types.CreateLink{
		HeaderCommon: types.HeaderCommon{
			Author:    h.cell.Agent,
			Timestamp: types.Timestamp{Secs: 1700000100},
			HeaderSeq: 4,
		},
		BaseAddress:   base,
		TargetAddress: target,
		ZomeID:        1,
		Tag:           types.LinkTag("follows"),
	}
	var sig types.Signature
	op := &types.StoreElement{Sig: sig, Hdr: cl}
	hash := h.seedOp(op, state.LimboSysValidated)

	_, err := h.runPass(ctx)
	require.NoError(err)

	vlv, err := h.valLimbo().Get(hash)
	require.NoError(err)
	require.NotNil(vlv)
	require.Equal(state.LimboAwaitingAppDeps, vlv.Status)
	require.Equal([]holohash.AnyDhtHash{holohash.AnyFromEntry(target)}, vlv.AwaitingDeps)
	require.Equal(uint32(1), vlv.NumTries)
	require.NotNil(vlv.LastTry)

	has, err := h.intLimbo().Has(hash)
	require.NoError(err)
	require.False(has)

	// No callback ran.
	require.Empty(h.ribo.Invocations())
}

func TestDeleteLinkResolvesAdd(t *testing.T) {
	// DeleteLink resolves its CreateLink and invokes that zome.
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	cl := &types.CreateLink{
		HeaderCommon: types.HeaderCommon{
			Author:    h.cell.Agent,
			Timestamp: types.Timestamp{Secs: 1700000000},
			HeaderSeq: 7,
		},
		BaseAddress:   holohash.EntryHashOf([]byte("b")),
		TargetAddress: holohash.EntryHashOf([]byte("t")),
		ZomeID:        2,
		Tag:           types.LinkTag("follows"),
	}
	clElement, err := types.ToElement(&types.StoreElement{Hdr: cl})
	require.NoError(err)
	h.seedIntegrated(clElement)

	dl := &types.DeleteLink{
		HeaderCommon: types.HeaderCommon{
			Author:    h.cell.Agent,
			Timestamp: types.Timestamp{Secs: 1700000200},
			HeaderSeq: 8,
		},
		LinkAddAddress: clElement.HeaderHash(),
		BaseAddress:    cl.BaseAddress,
	}
	op := &types.RegisterRemoveLink{Hdr: dl}
	hash := h.seedOp(op, state.LimboSysValidated)

	_, err = h.runPass(ctx)
	require.NoError(err)

	iv, err := h.intLimbo().Get(hash)
	require.NoError(err)
	require.NotNil(iv)
	require.Equal(state.Valid, iv.ValidationStatus)

	invs := h.ribo.Invocations()
	require.Len(invs, 1)
	require.Equal("validate_delete_link", invs[0].Callback)
	name, ok := invs[0].Zomes.One()
	require.True(ok)
	require.Equal(types.ZomeName("chat"), name)
}

func TestCapGrantAutoAccept(t *testing.T) {
	// Cap entries never reach user code.
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	entry := types.NewCapGrantEntry([]byte("grant"))
	hdr := &types.Create{
		HeaderCommon: types.HeaderCommon{
			Author:    h.cell.Agent,
			Timestamp: types.Timestamp{Secs: 1700000300},
			HeaderSeq: 5,
		},
		EntryType: types.CapGrantEntryType(),
		EntryHash: entry.Hash(),
	}
	op := &types.StoreEntry{Hdr: hdr, EntryData: entry}
	hash := h.seedOp(op, state.LimboSysValidated)

	_, err := h.runPass(ctx)
	require.NoError(err)

	iv, err := h.intLimbo().Get(hash)
	require.NoError(err)
	require.NotNil(iv)
	require.Equal(state.Valid, iv.ValidationStatus)

	require.Empty(h.ribo.Invocations())
}

func TestUnknownZomeID(t *testing.T) {
	// A link header referencing zome 42 in a three-zome dna is
	// rejected as corrupt.
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	base := h.integratedEntry("base")
	target := h.integratedEntry("target")
	cl := &types.CreateLink{
		HeaderCommon: types.HeaderCommon{
			Author:    h.cell.Agent,
			Timestamp: types.Timestamp{Secs: 1700000400},
			HeaderSeq: 6,
		},
		BaseAddress:   base,
		TargetAddress: target,
		ZomeID:        42,
		Tag:           types.LinkTag("x"),
	}
	op := &types.StoreElement{Hdr: cl}
	hash := h.seedOp(op, state.LimboSysValidated)

	_, err := h.runPass(ctx)
	require.NoError(err)

	iv, err := h.intLimbo().Get(hash)
	require.NoError(err)
	require.NotNil(iv)
	require.Equal(state.Rejected, iv.ValidationStatus)

	require.Empty(h.ribo.Invocations())
}

func TestRegisterAgentActivityAutoAccepts(t *testing.T) {
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	op := h.storeEntryOp("activity", 2)
	raa := &types.RegisterAgentActivity{Sig: op.Sig, Hdr: op.Hdr}
	hash := h.seedOp(raa, state.LimboSysValidated)

	_, err := h.runPass(ctx)
	require.NoError(err)

	iv, err := h.intLimbo().Get(hash)
	require.NoError(err)
	require.NotNil(iv)
	require.Equal(state.Valid, iv.ValidationStatus)
	require.Empty(h.ribo.Invocations())
}

func TestIdempotentReentry(t *testing.T) {
	// Re-processing an op with still-unresolved deps keeps the
	// status and strictly increases num_tries.
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	base := h.integratedEntry("base")
	cl := &types.CreateLink{
		HeaderCommon: types.HeaderCommon{
			Author:    h.cell.Agent,
			Timestamp: types.Timestamp{Secs: 1700000500},
			HeaderSeq: 9,
		},
		BaseAddress:   base,
		TargetAddress: holohash.EntryHashOf([]byte("still missing")),
		ZomeID:        0,
	}
	op := &types.StoreElement{Hdr: cl}
	hash := h.seedOp(op, state.LimboSysValidated)

	for want := uint32(1); want <= 3; want++ {
		_, err := h.runPass(ctx)
		require.NoError(err)

		vlv, err := h.valLimbo().Get(hash)
		require.NoError(err)
		require.NotNil(vlv)
		require.Equal(state.LimboAwaitingAppDeps, vlv.Status)
		require.Equal(want, vlv.NumTries)
	}
}

func TestPassLeavesOtherStatusesAlone(t *testing.T) {
	// Only SysValidated and AwaitingAppDeps are consumed.
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	consumed := h.seedOp(h.storeEntryOp("ready", 1), state.LimboSysValidated)
	pending := h.seedOp(h.storeEntryOp("not ready", 2), state.LimboPending)
	sysDeps := h.seedOp(h.storeEntryOp("sys deps", 3), state.LimboAwaitingSysDeps)

	_, err := h.runPass(ctx)
	require.NoError(err)

	// The sys-validated op reached a terminal outcome.
	has, err := h.intLimbo().Has(consumed)
	require.NoError(err)
	require.True(has)

	// The others are untouched.
	for _, hash := range []holohash.DhtOpHash{pending, sysDeps} {
		vlv, err := h.valLimbo().Get(hash)
		require.NoError(err)
		require.NotNil(vlv)
		has, err := h.intLimbo().Has(hash)
		require.NoError(err)
		require.False(has)
	}

	// Nothing lives in both limbos at once.
	has, err = h.valLimbo().Has(consumed)
	require.NoError(err)
	require.False(has)
}

func TestRibosomeErrorAbortsPass(t *testing.T) {
	// A failing pass leaves the limbos exactly as they were.
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	op := h.storeEntryOp("crashes", 1)
	hash := h.seedOp(op, state.LimboSysValidated)
	h.ribo.Err = errors.New("guest trapped")

	_, err := h.runPass(ctx)
	require.ErrorContains(err, "guest trapped")

	// The op is still sys-validated in the limbo; nothing integrated;
	// no trigger fired.
	vlv, err := h.valLimbo().Get(hash)
	require.NoError(err)
	require.NotNil(vlv)
	require.Equal(state.LimboSysValidated, vlv.Status)
	require.Zero(vlv.NumTries)

	n, err := h.intLimbo().Len()
	require.NoError(err)
	require.Zero(n)
	require.Zero(h.triggerCount())

	// Clearing the fault lets the next pass succeed over the same
	// store.
	h.ribo.Err = nil
	_, err = h.runPass(ctx)
	require.NoError(err)
	has, err := h.intLimbo().Has(hash)
	require.NoError(err)
	require.True(has)
}

func TestDnaMissingIsFatal(t *testing.T) {
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	// A cell whose dna is not loaded.
	emptyStore := conductor.NewMapDnaStore()
	api, err := conductor.NewCellAPI(h.cell, emptyStore)
	require.NoError(err)
	av, err := workflow.New(workflow.Config{
		ConductorAPI: api,
		Cell:         h.net,
		Ribosomes:    h.ribo.Factory(),
	})
	require.NoError(err)

	h.seedOp(h.storeEntryOp("orphan", 1), state.LimboSysValidated)

	ws := workflow.NewAppValidationWorkspace(h.base)
	writer := queue.NewOneshotWriter(ws.VersionDB())
	_, err = av.Run(ctx, ws, writer, h.trigger)

	dnaErr := &workflow.DnaMissingError{}
	require.ErrorAs(err, &dnaErr)
	require.Equal(h.cell, dnaErr.Cell)
	require.Zero(h.triggerCount())
}

func TestDeleteRoutesThroughDeletedElement(t *testing.T) {
	// A Delete borrows the app entry type of the element it deletes.
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	deleted := h.storeEntryOp("to be deleted", 1)
	deletedEl, err := types.ToElement(deleted)
	require.NoError(err)
	h.seedIntegrated(deletedEl)
	eh, _, _ := deletedEl.Header().EntryData()

	del := &types.Delete{
		HeaderCommon: types.HeaderCommon{
			Author:    h.cell.Agent,
			Timestamp: types.Timestamp{Secs: 1700000600},
			HeaderSeq: 10,
		},
		DeletesAddress:      deletedEl.HeaderHash(),
		DeletesEntryAddress: eh,
	}
	op := &types.RegisterDeletedBy{Hdr: del}
	hash := h.seedOp(op, state.LimboSysValidated)

	_, err = h.runPass(ctx)
	require.NoError(err)

	iv, err := h.intLimbo().Get(hash)
	require.NoError(err)
	require.NotNil(iv)
	require.Equal(state.Valid, iv.ValidationStatus)

	invs := h.ribo.Invocations()
	require.Len(invs, 1)
	name, ok := invs[0].Zomes.One()
	require.True(ok)
	require.Equal(types.ZomeName("posts"), name)
}

func TestDeleteAwaitsMissingDependency(t *testing.T) {
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	missing := holohash.HeaderHashOf([]byte("never seen"))
	del := &types.Delete{
		HeaderCommon: types.HeaderCommon{
			Author:    h.cell.Agent,
			Timestamp: types.Timestamp{Secs: 1700000700},
			HeaderSeq: 11,
		},
		DeletesAddress: missing,
	}
	op := &types.RegisterDeletedBy{Hdr: del}
	hash := h.seedOp(op, state.LimboSysValidated)

	_, err := h.runPass(ctx)
	require.NoError(err)

	vlv, err := h.valLimbo().Get(hash)
	require.NoError(err)
	require.NotNil(vlv)
	require.Equal(state.LimboAwaitingAppDeps, vlv.Status)
	require.Equal([]holohash.AnyDhtHash{holohash.AnyFromHeader(missing)}, vlv.AwaitingDeps)
}

func TestDeleteLinkWrongKindKeepsWaiting(t *testing.T) {
	// The header at link_add_address has the wrong kind; the right one
	// may yet arrive, so the op keeps waiting.
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	// Integrate a Create where a CreateLink is expected.
	wrong := h.storeEntryOp("not a link add", 1)
	wrongEl, err := types.ToElement(wrong)
	require.NoError(err)
	h.seedIntegrated(wrongEl)

	dl := &types.DeleteLink{
		HeaderCommon: types.HeaderCommon{
			Author:    h.cell.Agent,
			Timestamp: types.Timestamp{Secs: 1700000800},
			HeaderSeq: 12,
		},
		LinkAddAddress: wrongEl.HeaderHash(),
	}
	op := &types.RegisterRemoveLink{Hdr: dl}
	hash := h.seedOp(op, state.LimboSysValidated)

	_, err = h.runPass(ctx)
	require.NoError(err)

	vlv, err := h.valLimbo().Get(hash)
	require.NoError(err)
	require.NotNil(vlv)
	require.Equal(state.LimboAwaitingAppDeps, vlv.Status)
	require.Empty(h.ribo.Invocations())
}

func TestDependencyResolvedFromNetwork(t *testing.T) {
	// A dependency absent locally but on the network lets the op
	// through, and the fetch is written into the cache.
	h := newHarness(t)
	require := h.require
	ctx := context.Background()

	baseOp := h.storeEntryOp("remote base", 1)
	baseEl, err := types.ToElement(baseOp)
	require.NoError(err)
	h.net.SeedElement(baseEl)
	baseHash, _, _ := baseEl.Header().EntryData()

	targetOp := h.storeEntryOp("remote target", 2)
	targetEl, err := types.ToElement(targetOp)
	require.NoError(err)
	h.net.SeedElement(targetEl)
	targetHash, _, _ := targetEl.Header().EntryData()

	cl := &types.CreateLink{
		HeaderCommon: types.HeaderCommon{
			Author:    h.cell.Agent,
			Timestamp: types.Timestamp{Secs: 1700000900},
			HeaderSeq: 13,
		},
		BaseAddress:   baseHash,
		TargetAddress: targetHash,
		ZomeID:        2,
	}
	op := &types.StoreElement{Hdr: cl}
	hash := h.seedOp(op, state.LimboSysValidated)

	_, err = h.runPass(ctx)
	require.NoError(err)

	iv, err := h.intLimbo().Get(hash)
	require.NoError(err)
	require.NotNil(iv)
	require.Equal(state.Valid, iv.ValidationStatus)
	require.Equal(2, h.net.FetchCount())

	// The fetched dependencies were cached for the next pass.
	cacheBuf, _ := state.CachePair(h.base)
	entry, err := cacheBuf.GetEntry(baseHash)
	require.NoError(err)
	require.NotNil(entry)
}
