// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package holohash

import (
	"github.com/fxamacker/cbor/v2"
)

// Hashes serialize as cbor byte strings carrying the full 39 byte typed
// encoding, so the kind prefix survives every round trip. A zero hash
// serializes as an empty byte string.

func marshalHash(h Hash) ([]byte, error) {
	if h.IsZero() {
		return cbor.Marshal([]byte{})
	}
	return cbor.Marshal(h[:])
}

func unmarshalHash(data []byte, want Kind, composite bool) (Hash, error) {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return Hash{}, err
	}
	if len(raw) == 0 {
		return Hash{}, nil
	}
	h, err := FromBytes(raw)
	if err != nil {
		return Hash{}, err
	}
	kind, _ := h.Kind()
	if composite {
		switch kind {
		case KindEntry, KindHeader, KindAgent:
			return h, nil
		default:
			return Hash{}, ErrNotDhtKind
		}
	}
	if kind != want {
		return Hash{}, ErrWrongKind
	}
	return h, nil
}

func (h Hash) MarshalCBOR() ([]byte, error) { return marshalHash(h) }

func (h *Hash) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		*h = Hash{}
		return nil
	}
	parsed, err := FromBytes(raw)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func (h EntryHash) MarshalCBOR() ([]byte, error) { return marshalHash(Hash(h)) }

func (h *EntryHash) UnmarshalCBOR(data []byte) error {
	parsed, err := unmarshalHash(data, KindEntry, false)
	if err != nil {
		return err
	}
	*h = EntryHash(parsed)
	return nil
}

func (h HeaderHash) MarshalCBOR() ([]byte, error) { return marshalHash(Hash(h)) }

func (h *HeaderHash) UnmarshalCBOR(data []byte) error {
	parsed, err := unmarshalHash(data, KindHeader, false)
	if err != nil {
		return err
	}
	*h = HeaderHash(parsed)
	return nil
}

func (h AgentPubKey) MarshalCBOR() ([]byte, error) { return marshalHash(Hash(h)) }

func (h *AgentPubKey) UnmarshalCBOR(data []byte) error {
	parsed, err := unmarshalHash(data, KindAgent, false)
	if err != nil {
		return err
	}
	*h = AgentPubKey(parsed)
	return nil
}

func (h DhtOpHash) MarshalCBOR() ([]byte, error) { return marshalHash(Hash(h)) }

func (h *DhtOpHash) UnmarshalCBOR(data []byte) error {
	parsed, err := unmarshalHash(data, KindDhtOp, false)
	if err != nil {
		return err
	}
	*h = DhtOpHash(parsed)
	return nil
}

func (h DnaHash) MarshalCBOR() ([]byte, error) { return marshalHash(Hash(h)) }

func (h *DnaHash) UnmarshalCBOR(data []byte) error {
	parsed, err := unmarshalHash(data, KindDna, false)
	if err != nil {
		return err
	}
	*h = DnaHash(parsed)
	return nil
}

func (h AnyDhtHash) MarshalCBOR() ([]byte, error) { return marshalHash(Hash(h)) }

func (h *AnyDhtHash) UnmarshalCBOR(data []byte) error {
	parsed, err := unmarshalHash(data, 0, true)
	if err != nil {
		return err
	}
	*h = AnyDhtHash(parsed)
	return nil
}
