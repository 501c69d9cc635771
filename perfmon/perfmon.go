// Package perfmon runs a background performance sampler for one consume
// or archive run: RSS sampled at ~5 Hz, exposed as a Prometheus gauge
// and summarized into notify.Perf when the run completes; CPU time is not
// sampled. Grounded on stats.Trunner's periodic sampling loop in
// stats/target_stats.go: a ticker-driven goroutine, a Stop channel,
// metrics registered once at construction.
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package perfmon

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nwp-consumer/core/notify"
)

const sampleInterval = 200 * time.Millisecond // ~5 Hz

// Monitor samples process RSS on its own goroutine until Stop is called.
type Monitor struct {
	rssGauge prometheus.Gauge

	startedAt time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}

	mu      sync.Mutex
	peakRSS float64 // MB
}

// New constructs a Monitor and registers its gauge with reg. Passing
// prometheus.DefaultRegisterer is the normal case; when reg already holds
// the gauge from an earlier Monitor, that gauge is reused, so repeated
// runs in one process don't collide.
func New(reg prometheus.Registerer) *Monitor {
	m := &Monitor{
		rssGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nwpc",
			Subsystem: "perfmon",
			Name:      "rss_megabytes",
			Help:      "Resident set size of the running consume/archive process, in megabytes.",
		}),
	}
	if reg != nil {
		if err := reg.Register(m.rssGauge); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				panic(err)
			}
			if g, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				m.rssGauge = g
			}
		}
	}
	return m
}

// Start begins sampling. Safe to call once per Monitor.
func (m *Monitor) Start() {
	m.startedAt = time.Now()
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go func() {
		defer close(m.doneCh)
		ticker := time.NewTicker(sampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
}

func (m *Monitor) sample() {
	mb, err := sampleRSS()
	if err != nil {
		return
	}
	m.rssGauge.Set(mb)
	m.mu.Lock()
	if mb > m.peakRSS {
		m.peakRSS = mb
	}
	m.mu.Unlock()
}

// Stop halts sampling and returns the run's performance summary. Safe to
// call at most once.
func (m *Monitor) Stop() notify.Perf {
	close(m.stopCh)
	<-m.doneCh

	m.mu.Lock()
	peak := m.peakRSS
	m.mu.Unlock()

	return notify.Perf{
		DurationSeconds: int(time.Since(m.startedAt).Round(time.Second).Seconds()),
		MemoryMB:        peak,
	}
}
