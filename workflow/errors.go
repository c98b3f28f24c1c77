// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package workflow

import (
	"errors"
	"fmt"

	"github.com/luxfi/holo/types"
)

// ErrLinkMultipleZomes reports a link header that resolved to the All zome
// selection. Links always belong to exactly one zome, so this is an
// internal routing error and fatalizes the pass.
var ErrLinkMultipleZomes = errors.New("link validation resolved to multiple zomes")

// DnaMissingError is fatal for a pass: the dna must be loaded for the cell
// being validated.
type DnaMissingError struct {
	Cell types.CellID
}

func (e *DnaMissingError) Error() string {
	return fmt.Sprintf("dna missing for %s", e.Cell)
}

// ZomeIndexError reports a header referencing a zome ordinal outside the
// dna's zome list. Such a header is corrupt and its op is rejected.
type ZomeIndexError struct {
	Zome types.ZomeID
}

func (e *ZomeIndexError) Error() string {
	return fmt.Sprintf("unknown zome id: %s", e.Zome)
}
