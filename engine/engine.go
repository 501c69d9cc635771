// Package engine implements the consume and archive runs: the
// bounded-parallel worker pool that drives a raw.Repository's lazy job
// sequence into tensor-store region writes, with a single writer thread
// and unordered job completion. Grounded on the ec/getxaction.go
// dispatch pattern - a worker pool feeding a single
// completion channel consumed by one goroutine - generalized from "one
// jogger per mountpath" to "N workers over one lazy job sequence".
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	"github.com/nwp-consumer/core/ncerr"
	"github.com/nwp-consumer/core/notify"
	"github.com/nwp-consumer/core/perfmon"
	"github.com/nwp-consumer/core/raw"
	"github.com/nwp-consumer/core/repometa"
	"github.com/nwp-consumer/core/tensorstore"
)

// jobResult is one completed job's outcome, handed to the engine's sole
// writer goroutine in whatever order jobs finish.
type jobResult struct {
	job       raw.Job
	fragments []tensorstore.Fragment
	err       error
}

// runJobs dispatches jobs across a pool of maxConcurrent workers and
// returns a channel of results in completion order. The channel is
// closed once every job has reported in. Dispatch runs in its own
// goroutine so the caller can start draining the channel immediately;
// otherwise, once the result buffer filled up, workers would block
// sending on out while holding every semaphore slot, and the dispatch
// loop - run inline, before this function had returned anything for
// anyone to drain - would deadlock against them.
func runJobs(ctx context.Context, jobs []raw.Job, maxConcurrent int) <-chan jobResult {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	out := make(chan jobResult, maxConcurrent)
	sem := semaphore.NewWeighted(int64(maxConcurrent))

	go func() {
		var wg sync.WaitGroup
		wg.Add(len(jobs))
		for _, j := range jobs {
			j := j
			if err := sem.Acquire(ctx, 1); err != nil {
				out <- jobResult{job: j, err: err}
				wg.Done()
				continue
			}
			go func() {
				defer sem.Release(1)
				defer wg.Done()
				frags, err := j.Run(ctx)
				out <- jobResult{job: j, fragments: frags, err: err}
			}()
		}
		wg.Wait()
		close(out)
	}()
	return out
}

// runOneInitTime executes the bounded-parallel fetch/write loop shared
// by a single consume run and by each per-init-time iteration of an
// archive run, writing every completed job's fragments into store and
// returning the number of job or write failures observed.
func runOneInitTime(ctx context.Context, repo raw.Repository, store *tensorstore.Store, it time.Time) (failed int, err error) {
	jobs, err := repo.FetchInitData(ctx, it)
	if err != nil {
		return 0, err
	}

	maxConcurrent := repo.Metadata().MaxConnections - 1
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	for res := range runJobs(ctx, jobs, maxConcurrent) {
		if res.err != nil {
			glog.Warningf("engine: job %s failed: %v", res.job, res.err)
			failed++
			continue
		}
		for _, frag := range res.fragments {
			if _, err := store.WriteToRegion(frag, nil); err != nil {
				glog.Warningf("engine: write_to_region failed for %s: %v", res.job, err)
				failed++
			}
		}
	}
	return failed, nil
}

// Consume fetches and writes one init-time's worth of data, start to finish.
func Consume(ctx context.Context, repo raw.Repository, storeRoot string, it *time.Time, sink notify.Sink) (string, error) {
	mon := perfmon.New(prometheus.DefaultRegisterer)
	mon.Start()

	model := repo.Metadata()
	resolvedIt := time.Time{}
	if it != nil {
		resolvedIt = *it
	} else {
		resolvedIt = model.LatestInitTimeAt(time.Now().UTC())
	}

	storeDir := tensorstore.ConsumeStorePath(storeRoot, model.Name, resolvedIt)
	expected := model.ExpectedCoordinates.ReplaceInitTime([]time.Time{resolvedIt})

	store, err := tensorstore.InitializeEmpty(storeDir, expected, model, false)
	if err != nil {
		mon.Stop()
		return "", err
	}

	if err := repo.Authenticate(ctx); err != nil {
		mon.Stop()
		return "", err
	}

	failed, err := runOneInitTime(ctx, repo, store, resolvedIt)
	if err != nil {
		mon.Stop()
		return "", err
	}
	if failed > 0 {
		mon.Stop()
		return storeDir, &ncerr.PartialFailure{Count: failed}
	}

	if err := store.Postprocess(model.Postprocess, archiveTargetDir(storeRoot, model, resolvedIt)); err != nil {
		mon.Stop()
		return "", err
	}

	perf := mon.Stop()
	if sink != nil {
		_ = sink.Notify(notify.Message{
			Kind:     notify.KindStoreCreated,
			Filename: storeDir,
			SizeMB:   int(math.Ceil(store.Attrs.SizeMB)),
			Perf:     perf,
			SentAt:   time.Now().UTC(),
		})
	}
	return storeDir, nil
}

// Archive fetches and writes every missing init-time in one calendar month.
func Archive(ctx context.Context, repo raw.Repository, storeRoot string, year, month int, sink notify.Sink) (string, error) {
	mon := perfmon.New(prometheus.DefaultRegisterer)
	mon.Start()

	model := repo.Metadata()
	initTimes := monthInitTimes(year, month, model.RunningHours)
	storeDir := tensorstore.ArchiveStorePath(storeRoot, model.Name, year, month, model.Postprocess.AppendToArchive)
	expected := model.ExpectedCoordinates.ReplaceInitTime(initTimes)

	store, err := tensorstore.InitializeEmpty(storeDir, expected, model, false)
	if err != nil {
		if _, ok := err.(*ncerr.StoreExists); ok {
			store, err = tensorstore.Open(storeDir, model)
		}
		if err != nil {
			mon.Stop()
			return "", err
		}
	}

	missing, err := store.MissingTimes()
	if err != nil {
		mon.Stop()
		return "", err
	}

	var failedTimes []time.Time
	for _, it := range missing {
		if err := repo.Authenticate(ctx); err != nil {
			mon.Stop()
			return "", err
		}
		failed, err := runOneInitTime(ctx, repo, store, it)
		if err != nil {
			mon.Stop()
			return "", err
		}
		if failed > 0 {
			failedTimes = append(failedTimes, it)
		}
	}

	if err := store.UpdateAttrs(failedTimes); err != nil {
		mon.Stop()
		return "", err
	}

	perf := mon.Stop()
	if sink != nil {
		_ = sink.Notify(notify.Message{
			Kind:     notify.KindStoreAppended,
			Filename: storeDir,
			SizeMB:   int(math.Ceil(store.Attrs.SizeMB)),
			Perf:     perf,
			SentAt:   time.Now().UTC(),
		})
	}
	return storeDir, nil
}

// archiveTargetDir computes the monthly/yearly store a consume run's
// postprocess step should merge into, per model.Postprocess.
func archiveTargetDir(storeRoot string, model repometa.Model, it time.Time) string {
	return tensorstore.ArchiveStorePath(storeRoot, model.Name, it.Year(), int(it.Month()), model.Postprocess.AppendToArchive)
}

// monthInitTimes enumerates every (date, hour) in the given calendar
// month whose hour lies in runningHours, in ascending order.
func monthInitTimes(year, month int, runningHours []int) []time.Time {
	hours := append([]int(nil), runningHours...)
	var out []time.Time
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Month() == time.Month(month); d = d.AddDate(0, 0, 1) {
		for _, h := range hours {
			out = append(out, time.Date(d.Year(), d.Month(), d.Day(), h, 0, 0, 0, time.UTC))
		}
	}
	return out
}
