// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

func TestTriggerCoalesces(t *testing.T) {
	require := require.New(t)

	tx, rx := NewTrigger()
	tx.Trigger()
	tx.Trigger()
	tx.Trigger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(rx.Wait(ctx))

	// The extra triggers coalesced into the one wake.
	select {
	case <-rx.Chan():
		t.Fatal("expected coalesced triggers")
	default:
	}
}

func TestTriggerNeverBlocks(t *testing.T) {
	tx, _ := NewTrigger()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			tx.Trigger()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Trigger blocked")
	}
}

func TestWaitHonorsContext(t *testing.T) {
	require := require.New(t)

	_, rx := NewTrigger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(rx.Wait(ctx), context.Canceled)
}

func TestOneshotWriterCommits(t *testing.T) {
	require := require.New(t)

	base := memdb.New()
	vdb := versiondb.New(base)
	require.NoError(vdb.Put([]byte("k"), []byte("v")))

	w := NewOneshotWriter(vdb)
	require.NoError(w.WithWriter(func() error { return nil }))

	got, err := base.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("v"), got)
}

func TestOneshotWriterAbortsOnError(t *testing.T) {
	require := require.New(t)

	base := memdb.New()
	vdb := versiondb.New(base)
	require.NoError(vdb.Put([]byte("k"), []byte("v")))

	w := NewOneshotWriter(vdb)
	boom := errors.New("boom")
	require.ErrorIs(w.WithWriter(func() error { return boom }), boom)

	has, err := base.Has([]byte("k"))
	require.NoError(err)
	require.False(has)
}

func TestConsumerRunsOnTrigger(t *testing.T) {
	require := require.New(t)

	tx, rx := NewTrigger()
	ran := make(chan struct{}, 8)
	c := NewConsumer(log.NewNoOpLogger(), "test", rx, func(context.Context) (WorkComplete, error) {
		ran <- struct{}{}
		return Complete, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	tx.Trigger()
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("workflow did not run")
	}

	cancel()
	require.ErrorIs(<-errCh, context.Canceled)
}

func TestConsumerRerunsIncompleteWork(t *testing.T) {
	require := require.New(t)

	tx, rx := NewTrigger()
	runs := 0
	done := make(chan struct{})
	c := NewConsumer(log.NewNoOpLogger(), "test", rx, func(context.Context) (WorkComplete, error) {
		runs++
		if runs < 3 {
			return Incomplete, nil
		}
		close(done)
		return Complete, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	tx.Trigger()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("incomplete work was not re-run")
	}
	require.Equal(3, runs)
}
