// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"
	"fmt"

	"github.com/luxfi/holo/types"
)

var (
	errLightHeaderMissing = errors.New("light op header not in pending store")
	errLightEntryMissing  = errors.New("light op entry not in pending store")
)

// LightToOp rehydrates a light op from the pending element store. Entries
// referenced by limbo headers are always resolvable from pending; a miss
// here means the staged store is corrupt.
func LightToOp(light types.DhtOpLight, pending *ElementBuf) (types.DhtOp, error) {
	shh, err := pending.GetHeader(light.Header)
	if err != nil {
		return nil, err
	}
	if shh == nil {
		return nil, fmt.Errorf("%w: %s", errLightHeaderMissing, light.Header)
	}

	var entry *types.Entry
	if !light.Entry.IsZero() {
		entry, err = pending.GetEntry(light.Entry)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, fmt.Errorf("%w: %s", errLightEntryMissing, light.Entry)
		}
	}
	return types.BuildOp(light.Kind, shh.Signature, shh.Header, entry)
}
