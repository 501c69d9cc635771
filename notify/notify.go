// Package notify implements the notification contract: a single JSON
// message shape, sent by the engine once a consume or archive run
// completes. Grounded on the stats reporting style of
// stats/target_stats.go, which publishes the same counters both to
// Prometheus and to a JSON status log - one message struct, several sinks.
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package notify

import (
	"time"
)

// Perf carries the performance monitor's summary for one run.
type Perf struct {
	DurationSeconds int     `json:"duration_seconds"`
	MemoryMB        float64 `json:"memory_mb"`
}

// Kind distinguishes the two defined message shapes.
type Kind string

const (
	KindStoreCreated  Kind = "store-created"
	KindStoreAppended Kind = "store-appended"
)

// Message is the notification payload sent after a consume or archive
// run completes.
type Message struct {
	Kind     Kind      `json:"kind"`
	Filename string    `json:"filename"`
	SizeMB   int       `json:"size_mb"`
	Perf     Perf      `json:"performance"`
	SentAt   time.Time `json:"sent_at"`
}

// Sink delivers a Message somewhere. Both reference sinks are best-
// effort: a notification failure never fails the run that produced it.
type Sink interface {
	Notify(m Message) error
}
