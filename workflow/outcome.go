// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package workflow

import (
	"strings"

	"github.com/luxfi/holo/holohash"
	"github.com/luxfi/holo/ribosome"
)

// OutcomeKind discriminates the three-valued verdict of app validation per
// op.
type OutcomeKind uint8

const (
	OutcomeAccepted OutcomeKind = iota
	OutcomeAwaitingDeps
	OutcomeRejected
)

// Outcome is the workflow's verdict on one op.
type Outcome struct {
	Kind   OutcomeKind
	Deps   []holohash.AnyDhtHash
	Reason string
}

// Accepted builds the accepting outcome.
func Accepted() Outcome {
	return Outcome{Kind: OutcomeAccepted}
}

// AwaitingDeps parks the op until the named dependencies arrive.
func AwaitingDeps(deps ...holohash.AnyDhtHash) Outcome {
	return Outcome{Kind: OutcomeAwaitingDeps, Deps: deps}
}

// Rejected records an active rejection with its reason.
func Rejected(reason string) Outcome {
	return Outcome{Kind: OutcomeRejected, Reason: reason}
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeAccepted:
		return "Accepted"
	case OutcomeAwaitingDeps:
		var b strings.Builder
		b.WriteString("AwaitingDeps(")
		for i, d := range o.Deps {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.String())
		}
		b.WriteString(")")
		return b.String()
	case OutcomeRejected:
		return "Rejected(" + o.Reason + ")"
	default:
		return "Invalid outcome"
	}
}

// fromValidateResult maps a callback verdict onto the outcome protocol.
func fromValidateResult(res ribosome.ValidateResult) Outcome {
	switch res.Kind {
	case ribosome.ResultValid:
		return Accepted()
	case ribosome.ResultInvalid:
		return Rejected(res.Reason)
	default:
		return AwaitingDeps(res.UnresolvedDeps...)
	}
}
