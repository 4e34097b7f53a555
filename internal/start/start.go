// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package start drives the nopb CLI's watch subcommand: a long-lived
// polling loop over a buffer file that must stop cleanly on SIGINT/SIGTERM
// instead of leaving a half-written compact or stat output behind.
package start

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// WatchFunc is a long-running loop started by Start; it must return
// promptly once ctx is canceled.
type WatchFunc func(ctx context.Context) error

// Start runs watch until SIGINT/SIGTERM arrives or watch returns on its
// own. On a signal it cancels watch's context and gives it stopTimeout to
// exit before returning anyway, so `nopb watch` never hangs on a buffer
// source that stopped responding.
func Start(ctx context.Context, stopTimeout time.Duration, watch WatchFunc) error {
	sig := make(chan os.Signal, 3)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	closeDone := sync.OnceFunc(func() { close(done) })

	var watchErr atomic.Value
	go func() {
		if err := watch(ctx); err != nil {
			watchErr.Store(err)
		}
		closeDone()
	}()

	select {
	case <-sig:
	case <-done:
	}
	cancel()

	go func() {
		<-time.After(stopTimeout)
		closeDone()
	}()
	<-done

	if err, ok := watchErr.Load().(error); ok {
		return err
	}
	return nil
}

// RunAll runs every watcher concurrently under one cancellation scope: the
// first to fail cancels ctx for the rest, so `nopb watch`'s poll loop and
// any future sibling background task (e.g. a stat reporter) shut down
// together rather than leaking goroutines.
func RunAll(ctx context.Context, watchers ...WatchFunc) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, w := range watchers {
		w := w
		group.Go(func() error { return w(ctx) })
	}
	return group.Wait()
}
