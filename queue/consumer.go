// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/luxfi/log"
	"go.uber.org/zap"
)

// Workflow is one runnable pass. Implementations must be safe to re-run
// after an error: a failed pass leaves no observable writes.
type Workflow func(ctx context.Context) (WorkComplete, error)

// Consumer drives one cell's workflow: exactly one invocation in flight,
// woken by triggers, re-running immediately while work remains, and
// retrying failed passes with capped exponential backoff.
type Consumer struct {
	log      log.Logger
	name     string
	rx       *TriggerReceiver
	workflow Workflow
}

// NewConsumer wires a workflow to its trigger.
func NewConsumer(logger log.Logger, name string, rx *TriggerReceiver, wf Workflow) *Consumer {
	return &Consumer{
		log:      logger,
		name:     name,
		rx:       rx,
		workflow: wf,
	}
}

// Run loops until [ctx] is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	// Passes are retried for as long as the consumer lives.
	bo.MaxElapsedTime = 0
	bo.Reset()

	for {
		if err := c.rx.Wait(ctx); err != nil {
			return err
		}

		for {
			complete, err := c.workflow(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				wait := bo.NextBackOff()
				c.log.Error("workflow pass failed",
					zap.String("workflow", c.name),
					zap.Duration("retryIn", wait),
					zap.Error(err),
				)
				select {
				case <-time.After(wait):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			bo.Reset()
			if complete == Complete {
				break
			}
			c.log.Debug("workflow pass incomplete, re-running",
				zap.String("workflow", c.name),
			)
		}
	}
}
