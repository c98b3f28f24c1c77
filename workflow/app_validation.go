// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package workflow implements the app validation workflow: the second and
// final gate an op passes before integration. Each pass drains the
// validation limbo, materializes elements from the pending store, routes
// each op to the right user callback, and converts the verdict into the
// three-valued outcome protocol. All writes land atomically at flush time.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/luxfi/holo/cascade"
	"github.com/luxfi/holo/conductor"
	"github.com/luxfi/holo/holohash"
	"github.com/luxfi/holo/network"
	"github.com/luxfi/holo/queue"
	"github.com/luxfi/holo/ribosome"
	"github.com/luxfi/holo/state"
	"github.com/luxfi/holo/types"
)

// defaultRetrieveTimeout bounds each dependency fetch's network leg.
const defaultRetrieveTimeout = 10 * time.Second

var (
	errNoConductorAPI = errors.New("app validation needs a conductor api")
	errNoCell         = errors.New("app validation needs a network cell")
	errNoRibosomes    = errors.New("app validation needs a ribosome factory")
)

// Config wires an [AppValidation] instance. Everything is injected; the
// workflow holds no global state and runs deterministically against
// in-memory doubles.
type Config struct {
	Log          log.Logger
	Registerer   prometheus.Registerer
	ConductorAPI conductor.CellConductorAPI
	Cell         network.Cell
	Ribosomes    ribosome.Factory
}

// AppValidation runs app validation passes for one cell. At most one pass
// is in flight at a time; the queue consumer enforces that.
type AppValidation struct {
	log       log.Logger
	metrics   *appValidationMetrics
	api       conductor.CellConductorAPI
	cell      network.Cell
	ribosomes ribosome.Factory
}

// New validates [cfg] and builds the workflow.
func New(cfg Config) (*AppValidation, error) {
	switch {
	case cfg.ConductorAPI == nil:
		return nil, errNoConductorAPI
	case cfg.Cell == nil:
		return nil, errNoCell
	case cfg.Ribosomes == nil:
		return nil, errNoRibosomes
	}
	if cfg.Log == nil {
		cfg.Log = log.NewNoOpLogger()
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.NewRegistry()
	}
	metrics, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, err
	}
	return &AppValidation{
		log:       cfg.Log,
		metrics:   metrics,
		api:       cfg.ConductorAPI,
		cell:      cfg.Cell,
		ribosomes: cfg.Ribosomes,
	}, nil
}

// Run executes one pass: drain, validate, then a single transactional
// flush followed by exactly one integration trigger. On any error the
// staged writes are aborted and the limbos are unchanged.
func (av *AppValidation) Run(
	ctx context.Context,
	ws *AppValidationWorkspace,
	writer *queue.OneshotWriter,
	triggerIntegration *queue.TriggerSender,
) (queue.WorkComplete, error) {
	start := time.Now()

	complete, err := av.runInner(ctx, ws)
	if err != nil {
		writer.Abort()
		return complete, err
	}

	if err := writer.WithWriter(ws.flushToTxn); err != nil {
		av.metrics.flushFailures.Inc()
		av.log.Error("app validation flush failed",
			zap.Stringer("cell", av.api.CellID()),
			zap.Error(err),
		)
		return complete, err
	}

	triggerIntegration.Trigger()
	av.metrics.passDuration.Observe(time.Since(start).Seconds())
	return complete, nil
}

// pendingOp is one drained limbo entry with its materialized forms.
type pendingOp struct {
	hash    holohash.DhtOpHash
	value   state.ValidationLimboValue
	op      types.DhtOp
	element *types.Element
}

func (av *AppValidation) runInner(ctx context.Context, ws *AppValidationWorkspace) (queue.WorkComplete, error) {
	// Snapshot: take everything sys-validated or re-entering with app
	// deps. Pending and sys-deps entries belong to system validation and
	// stay untouched.
	drained, err := ws.ValidationLimbo.DrainIterFilter(func(v *state.ValidationLimboValue) bool {
		return v.Status == state.LimboSysValidated || v.Status == state.LimboAwaitingAppDeps
	})
	if err != nil {
		return queue.Complete, err
	}
	av.metrics.opsDrained.Add(float64(len(drained)))

	batch := make([]pendingOp, 0, len(drained))
	for _, d := range drained {
		integrated, err := ws.IntegratedDhtOps.Has(d.Hash)
		if err != nil {
			return queue.Complete, err
		}
		if integrated {
			// Terminal outcome already recorded; a re-delivered op
			// is dropped, not re-validated.
			av.log.Debug("dropping already integrated op",
				zap.Stringer("op", d.Hash),
			)
			continue
		}

		// Entries referenced by limbo headers are always resolvable
		// from the pending store; a miss is workspace corruption.
		op, err := state.LightToOp(d.Value.Op, ws.ElementPending)
		if err != nil {
			return queue.Complete, err
		}
		el, err := types.ToElement(op)
		if err != nil {
			return queue.Complete, err
		}
		batch = append(batch, pendingOp{
			hash:    d.Hash,
			value:   d.Value,
			op:      op,
			element: el,
		})
	}

	// Timestamp-ascending processing bounds starvation; ties go to the
	// less-retried op.
	sort.Slice(batch, func(i, j int) bool {
		ti := batch[i].element.Header().Common().Timestamp
		tj := batch[j].element.Header().Common().Timestamp
		if ti != tj {
			return ti.Before(tj)
		}
		return batch[i].value.NumTries < batch[j].value.NumTries
	})

	for i := range batch {
		if err := ctx.Err(); err != nil {
			return queue.Incomplete, err
		}
		b := &batch[i]
		outcome, err := av.validateOp(ctx, ws, b.op, b.element)
		if err != nil {
			return queue.Complete, err
		}
		if err := av.applyOutcome(ws, b, outcome); err != nil {
			return queue.Complete, err
		}
	}
	return queue.Complete, nil
}

func (av *AppValidation) applyOutcome(ws *AppValidationWorkspace, b *pendingOp, outcome Outcome) error {
	switch outcome.Kind {
	case OutcomeAccepted:
		av.metrics.accepted.Inc()
		return ws.putIntLimbo(b.hash, state.IntegrationLimboValue{
			Op:               b.value.Op,
			ValidationStatus: state.Valid,
		})
	case OutcomeRejected:
		av.metrics.rejected.Inc()
		av.log.Warn("dht op failed app validation",
			zap.Stringer("agent", av.api.CellID().Agent),
			zap.Stringer("op", b.hash),
			zap.String("opKind", b.op.Kind().String()),
			zap.String("reason", outcome.Reason),
		)
		return ws.putIntLimbo(b.hash, state.IntegrationLimboValue{
			Op:               b.value.Op,
			ValidationStatus: state.Rejected,
		})
	case OutcomeAwaitingDeps:
		av.metrics.awaitingDeps.Inc()
		v := b.value
		v.Status = state.LimboAwaitingAppDeps
		v.AwaitingDeps = outcome.Deps
		return ws.putValLimbo(b.hash, v)
	default:
		return fmt.Errorf("invalid outcome kind %d", outcome.Kind)
	}
}

// validateOp routes one op through the outcome engine: cap bypass, zome
// selection, callback invocation, verdict conversion.
func (av *AppValidation) validateOp(ctx context.Context, ws *AppValidationWorkspace, op types.DhtOp, el *types.Element) (Outcome, error) {
	// Agent activity is validated by its own workflow.
	if op.Kind() == types.OpRegisterAgentActivity {
		return Accepted(), nil
	}
	// Capability claims and grants never reach user code.
	if _, et, ok := el.Header().EntryData(); ok && et.IsCap() {
		return Accepted(), nil
	}

	dna, err := av.api.GetThisDna(ctx)
	if err != nil {
		if errors.Is(err, conductor.ErrDnaMissing) {
			return Outcome{}, &DnaMissingError{Cell: av.api.CellID()}
		}
		return Outcome{}, err
	}

	casc := ws.FullCascade(av.log, av.cell)
	zomes, short, err := av.zomesToInvoke(ctx, casc, dna, el)
	if err != nil {
		return Outcome{}, err
	}
	if short != nil {
		return *short, nil
	}

	ribo, err := av.ribosomes.NewRibosome(dna)
	if err != nil {
		return Outcome{}, fmt.Errorf("building ribosome: %w", err)
	}

	access := ribosome.ValidateHostAccess{
		Workspace: ws.ValidationWorkspace(),
		Cell:      av.cell,
	}
	defer access.Workspace.Release()

	switch hdr := el.Header().(type) {
	case *types.DeleteLink:
		return av.runDeleteLinkValidation(ctx, ribo, access, zomes, hdr)
	case *types.CreateLink:
		return av.runCreateLinkValidation(ctx, casc, ribo, access, zomes, hdr)
	default:
		res, err := ribo.RunValidate(ctx, access, ribosome.ValidateInvocation{
			Zomes:   zomes,
			Element: el,
		})
		if err != nil {
			return Outcome{}, fmt.Errorf("validate callback: %w", err)
		}
		return fromValidateResult(res), nil
	}
}

// zomesToInvoke applies the selection rules in order: an app entry type on
// the header picks its zome; link headers resolve their single zome (the
// delete side through the referenced link add); a Delete borrows the type
// of the element it deletes; everything else invokes all zomes. A non-nil
// short outcome preempts the callback.
func (av *AppValidation) zomesToInvoke(
	ctx context.Context,
	casc *cascade.Cascade,
	dna *types.DnaFile,
	el *types.Element,
) (ribosome.ZomesToInvoke, *Outcome, error) {
	if _, et, ok := el.Header().EntryData(); ok && et.Kind == types.EntryTypeApp {
		return av.oneZome(dna, et.App.ZomeID)
	}

	switch hdr := el.Header().(type) {
	case *types.CreateLink:
		return av.oneZome(dna, hdr.ZomeID)

	case *types.DeleteLink:
		shh, outcome, err := av.retrieveHeaderOrAwait(ctx, casc, hdr.LinkAddAddress)
		if outcome != nil || err != nil {
			return ribosome.ZomesToInvoke{}, outcome, err
		}
		cl, ok := shh.Header.(*types.CreateLink)
		if !ok {
			// The header found at the link-add address has the
			// wrong kind; the right one may still arrive.
			o := AwaitingDeps(holohash.AnyFromHeader(hdr.LinkAddAddress))
			return ribosome.ZomesToInvoke{}, &o, nil
		}
		return av.oneZome(dna, cl.ZomeID)

	case *types.Delete:
		dep, outcome, err := av.retrieveOrAwait(ctx, casc, holohash.AnyFromHeader(hdr.DeletesAddress))
		if outcome != nil || err != nil {
			return ribosome.ZomesToInvoke{}, outcome, err
		}
		if _, et, ok := dep.Header().EntryData(); ok && et.Kind == types.EntryTypeApp {
			return av.oneZome(dna, et.App.ZomeID)
		}
		return ribosome.AllZomes(), nil, nil

	default:
		return ribosome.AllZomes(), nil, nil
	}
}

// oneZome resolves a zome ordinal against the dna. An out-of-range ordinal
// marks the header corrupt and rejects the op.
func (av *AppValidation) oneZome(dna *types.DnaFile, id types.ZomeID) (ribosome.ZomesToInvoke, *Outcome, error) {
	name, ok := dna.ZomeName(id)
	if !ok {
		av.log.Debug("header references zome outside dna",
			zap.Stringer("cell", av.api.CellID()),
			zap.Stringer("zome", id),
			zap.Error(&ZomeIndexError{Zome: id}),
		)
		o := Rejected("unknown zome id")
		return ribosome.ZomesToInvoke{}, &o, nil
	}
	return ribosome.OneZome(name), nil, nil
}

func (av *AppValidation) runCreateLinkValidation(
	ctx context.Context,
	casc *cascade.Cascade,
	ribo ribosome.Ribosome,
	access ribosome.ValidateLinkHostAccess,
	zomes ribosome.ZomesToInvoke,
	hdr *types.CreateLink,
) (Outcome, error) {
	base, outcome, err := av.retrieveEntryOrAwait(ctx, casc, hdr.BaseAddress)
	if outcome != nil || err != nil {
		return derefOutcome(outcome), err
	}
	target, outcome, err := av.retrieveEntryOrAwait(ctx, casc, hdr.TargetAddress)
	if outcome != nil || err != nil {
		return derefOutcome(outcome), err
	}

	zomeName, err := toZomeName(zomes)
	if err != nil {
		return Outcome{}, err
	}
	res, err := ribo.RunValidateLink(ctx, access, ribosome.ValidateCreateLinkInvocation{
		ZomeName: zomeName,
		LinkAdd:  hdr,
		Base:     *base,
		Target:   *target,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("validate_create_link callback: %w", err)
	}
	return fromValidateResult(res), nil
}

func (av *AppValidation) runDeleteLinkValidation(
	ctx context.Context,
	ribo ribosome.Ribosome,
	access ribosome.ValidateLinkHostAccess,
	zomes ribosome.ZomesToInvoke,
	hdr *types.DeleteLink,
) (Outcome, error) {
	zomeName, err := toZomeName(zomes)
	if err != nil {
		return Outcome{}, err
	}
	res, err := ribo.RunValidateLink(ctx, access, ribosome.ValidateDeleteLinkInvocation{
		ZomeName:   zomeName,
		LinkRemove: hdr,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("validate_delete_link callback: %w", err)
	}
	return fromValidateResult(res), nil
}

// toZomeName narrows a selection to the single zome links require.
func toZomeName(zomes ribosome.ZomesToInvoke) (types.ZomeName, error) {
	name, ok := zomes.One()
	if !ok {
		return "", ErrLinkMultipleZomes
	}
	return name, nil
}

// The retrieve helpers convert both absence and network failure into
// AwaitingDeps on the requested hash: a dependency gap parks the op
// instead of failing the pass. Local store errors stay fatal.

func (av *AppValidation) retrieveOrAwait(ctx context.Context, casc *cascade.Cascade, hash holohash.AnyDhtHash) (*types.Element, *Outcome, error) {
	el, err := casc.Retrieve(ctx, hash, cascade.Options{Timeout: defaultRetrieveTimeout})
	if err != nil {
		if errors.Is(err, cascade.ErrNetwork) {
			o := AwaitingDeps(hash)
			return nil, &o, nil
		}
		return nil, nil, err
	}
	if el == nil {
		o := AwaitingDeps(hash)
		return nil, &o, nil
	}
	return el, nil, nil
}

func (av *AppValidation) retrieveEntryOrAwait(ctx context.Context, casc *cascade.Cascade, eh holohash.EntryHash) (*types.Entry, *Outcome, error) {
	entry, err := casc.RetrieveEntry(ctx, eh, cascade.Options{Timeout: defaultRetrieveTimeout})
	if err != nil {
		if errors.Is(err, cascade.ErrNetwork) {
			o := AwaitingDeps(holohash.AnyFromEntry(eh))
			return nil, &o, nil
		}
		return nil, nil, err
	}
	if entry == nil {
		o := AwaitingDeps(holohash.AnyFromEntry(eh))
		return nil, &o, nil
	}
	return entry, nil, nil
}

func (av *AppValidation) retrieveHeaderOrAwait(ctx context.Context, casc *cascade.Cascade, hh holohash.HeaderHash) (*types.SignedHeaderHashed, *Outcome, error) {
	shh, err := casc.RetrieveHeader(ctx, hh, cascade.Options{Timeout: defaultRetrieveTimeout})
	if err != nil {
		if errors.Is(err, cascade.ErrNetwork) {
			o := AwaitingDeps(holohash.AnyFromHeader(hh))
			return nil, &o, nil
		}
		return nil, nil, err
	}
	if shh == nil {
		o := AwaitingDeps(holohash.AnyFromHeader(hh))
		return nil, &o, nil
	}
	return shh, nil, nil
}

func derefOutcome(o *Outcome) Outcome {
	if o == nil {
		return Outcome{}
	}
	return *o
}
