/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
)

// Ticker performs one unit of simulated activity.
type Ticker interface {
	Tick(ctx context.Context) (*Outcome, error)
}

// Run calls t.Tick, waits interval, and repeats until ctx is done or maxTicks
// ticks have run (0 means no limit). Tick failures, panics included, are
// logged and never stop the loop. Run returns the number of ticks performed.
func Run(ctx context.Context, t Ticker, interval time.Duration, maxTicks int) int {
	log := clog.FromContext(ctx)

	var n int
	for ctx.Err() == nil {
		out, err := safeTick(ctx, t)
		n++
		switch {
		case err != nil:
			log.Warnf("Tick %d failed: %v", n, err)
		case out != nil:
			log.Debugf("Tick %d: action=%s branch=%q commits=%d pushed=%t", n, out.Action, out.Branch, out.Commits, out.Pushed)
		}

		if maxTicks > 0 && n >= maxTicks {
			break
		}

		select {
		case <-ctx.Done():
		case <-time.After(interval):
		}
	}
	return n
}

func safeTick(ctx context.Context, t Ticker) (out *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()
	return t.Tick(ctx)
}
