// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"fmt"
	"time"
)

// Timestamp is the wire clock used on headers and limbo values: seconds and
// nanoseconds since the unix epoch. Seconds come first so that bytewise
// ordering of the encoded form orders by time.
type Timestamp struct {
	Secs  int64  `cbor:"secs"`
	Nsecs uint32 `cbor:"nsecs"`
}

// Now captures the current wall clock.
func Now() Timestamp {
	return FromTime(time.Now())
}

// FromTime converts a [time.Time].
func FromTime(t time.Time) Timestamp {
	return Timestamp{
		Secs:  t.Unix(),
		Nsecs: uint32(t.Nanosecond()),
	}
}

// Time converts back to a [time.Time] in UTC.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Secs, int64(t.Nsecs)).UTC()
}

// Before reports whether [t] is strictly earlier than [o].
func (t Timestamp) Before(o Timestamp) bool {
	if t.Secs != o.Secs {
		return t.Secs < o.Secs
	}
	return t.Nsecs < o.Nsecs
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%09d", t.Secs, t.Nsecs)
}
