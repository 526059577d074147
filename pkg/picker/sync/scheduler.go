// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"github.com/DataDog/picker-sync/pkg/util/log"
)

// Scheduler triggers periodic all-media syncs on a controller. Each run
// executes on its own goroutine so a slow provider never stalls the ticker;
// at most one run is in flight, ticks that fire during a run are skipped.
type Scheduler struct {
	controller *Controller
	interval   time.Duration
	clk        clock.Clock

	runs    *atomic.Uint64
	skipped *atomic.Uint64
	running *atomic.Bool

	stopOnce gosync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler returns a stopped scheduler syncing c every interval.
func NewScheduler(c *Controller, interval time.Duration) *Scheduler {
	return newSchedulerWithClock(c, interval, clock.New())
}

func newSchedulerWithClock(c *Controller, interval time.Duration, clk clock.Clock) *Scheduler {
	return &Scheduler{
		controller: c,
		interval:   interval,
		clk:        clk,
		runs:       atomic.NewUint64(0),
		skipped:    atomic.NewUint64(0),
		running:    atomic.NewBool(false),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the tick loop. It returns immediately; syncs run on a
// background goroutine until Stop or ctx cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := s.clk.Ticker(s.interval)

	go func() {
		defer close(s.done)
		defer ticker.Stop()

		log.Infof("picker sync scheduler started, interval: %s", s.interval)
		for {
			select {
			case <-ticker.C:
				s.tick(ctx)
			case <-ctx.Done():
				log.Infof("picker sync scheduler stopping: %v", ctx.Err())
				return
			case <-s.stop:
				log.Infof("picker sync scheduler stopped")
				return
			}
		}
	}()
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Inc()
		log.Debugf("skipping scheduled sync: previous run still in flight")
		return
	}

	s.runs.Inc()
	go func() {
		defer s.running.Store(false)
		if err := s.controller.SyncAllMedia(ctx); err != nil {
			log.Errorf("scheduled sync failed: %v", err) //nolint:errcheck
		}
	}()
}

// Stop terminates the tick loop and waits for it to exit. A sync already in
// flight is left to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// Runs returns the number of syncs started by the scheduler.
func (s *Scheduler) Runs() uint64 { return s.runs.Load() }

// Skipped returns the number of ticks dropped because a sync was in flight.
func (s *Scheduler) Skipped() uint64 { return s.skipped.Load() }
