// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/holo/holohash"
)

// Headers, signed headers, entries and ops are wrapped in a self-describing
// cbor envelope: a format version plus a kind tag for union types. Limbo
// values and link metadata stored by package state are plain cbor and carry
// no envelope version. Canonical encoding keeps hashes of equal values
// equal.

// EnvelopeVersion is the current serialization envelope version.
const EnvelopeVersion uint8 = 1

var (
	errEnvelopeVersion = errors.New("unsupported envelope version")
	errHeaderKind      = errors.New("unknown header kind in envelope")
	errOpKind          = errors.New("unknown dht op kind in envelope")
)

var encMode = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

type headerEnvelope struct {
	V uint8           `cbor:"v"`
	K HeaderKind      `cbor:"k"`
	B cbor.RawMessage `cbor:"b"`
}

// EncodeHeader serializes a header with its envelope.
func EncodeHeader(h Header) ([]byte, error) {
	body, err := encMode.Marshal(h)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(&headerEnvelope{
		V: EnvelopeVersion,
		K: h.Kind(),
		B: body,
	})
}

// DecodeHeader reverses [EncodeHeader], reconstructing the concrete variant.
func DecodeHeader(b []byte) (Header, error) {
	var env headerEnvelope
	if err := cbor.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	if env.V != EnvelopeVersion {
		return nil, fmt.Errorf("%w: %d", errEnvelopeVersion, env.V)
	}

	var h Header
	switch env.K {
	case HeaderDna:
		h = &Dna{}
	case HeaderAgentValidationPkg:
		h = &AgentValidationPkg{}
	case HeaderInitZomesComplete:
		h = &InitZomesComplete{}
	case HeaderOpenChain:
		h = &OpenChain{}
	case HeaderCloseChain:
		h = &CloseChain{}
	case HeaderCreate:
		h = &Create{}
	case HeaderUpdate:
		h = &Update{}
	case HeaderDelete:
		h = &Delete{}
	case HeaderCreateLink:
		h = &CreateLink{}
	case HeaderDeleteLink:
		h = &DeleteLink{}
	default:
		return nil, fmt.Errorf("%w: %d", errHeaderKind, env.K)
	}
	if err := cbor.Unmarshal(env.B, h); err != nil {
		return nil, err
	}
	return h, nil
}

// HashHeader computes a header's typed hash over its canonical encoding.
func HashHeader(h Header) (holohash.HeaderHash, error) {
	b, err := EncodeHeader(h)
	if err != nil {
		return holohash.HeaderHash{}, err
	}
	return holohash.HeaderHashOf(b), nil
}

type entryEnvelope struct {
	V uint8           `cbor:"v"`
	B cbor.RawMessage `cbor:"b"`
}

// EncodeEntry serializes an entry with its envelope.
func EncodeEntry(e *Entry) ([]byte, error) {
	body, err := encMode.Marshal(e)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(&entryEnvelope{V: EnvelopeVersion, B: body})
}

// DecodeEntry reverses [EncodeEntry].
func DecodeEntry(b []byte) (*Entry, error) {
	var env entryEnvelope
	if err := cbor.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	if env.V != EnvelopeVersion {
		return nil, fmt.Errorf("%w: %d", errEnvelopeVersion, env.V)
	}
	e := &Entry{}
	if err := cbor.Unmarshal(env.B, e); err != nil {
		return nil, err
	}
	return e, nil
}

type signedHeaderEnvelope struct {
	V uint8           `cbor:"v"`
	K HeaderKind      `cbor:"k"`
	H cbor.RawMessage `cbor:"h"`
	S Signature       `cbor:"s"`
}

// MarshalCBOR flattens the interface-typed header through the envelope.
func (sh SignedHeader) MarshalCBOR() ([]byte, error) {
	body, err := encMode.Marshal(sh.Header)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(&signedHeaderEnvelope{
		V: EnvelopeVersion,
		K: sh.Header.Kind(),
		H: body,
		S: sh.Signature,
	})
}

func (sh *SignedHeader) UnmarshalCBOR(b []byte) error {
	var env signedHeaderEnvelope
	if err := cbor.Unmarshal(b, &env); err != nil {
		return err
	}
	if env.V != EnvelopeVersion {
		return fmt.Errorf("%w: %d", errEnvelopeVersion, env.V)
	}
	wrapped, err := encMode.Marshal(&headerEnvelope{V: env.V, K: env.K, B: env.H})
	if err != nil {
		return err
	}
	hdr, err := DecodeHeader(wrapped)
	if err != nil {
		return err
	}
	sh.Header = hdr
	sh.Signature = env.S
	return nil
}

// EncodeSignedHeader serializes a signed header for the header spaces.
func EncodeSignedHeader(sh SignedHeader) ([]byte, error) {
	return encMode.Marshal(sh)
}

// DecodeSignedHeader reverses [EncodeSignedHeader] and rehashes the header.
func DecodeSignedHeader(b []byte) (SignedHeaderHashed, error) {
	var sh SignedHeader
	if err := cbor.Unmarshal(b, &sh); err != nil {
		return SignedHeaderHashed{}, err
	}
	return NewSignedHeaderHashed(sh.Header, sh.Signature)
}

func (s Signature) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(s[:])
}

func (s *Signature) UnmarshalCBOR(b []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := SignatureFromBytes(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
