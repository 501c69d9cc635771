// Package ncerr defines the error taxonomy shared across the consumer core:
// every component that can fail returns one of these values rather than
// panicking, so the engine can decide per-kind whether to retry, skip, or
// abort the run.
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package ncerr

import "fmt"

// ConfigError is raised by authenticate() when required configuration is
// missing or malformed. Fatal: the caller fixes the environment and retries.
type ConfigError struct {
	Repo string
	Msg  string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config error [%s]: %s", e.Repo, e.Msg) }

// AuthError is raised by authenticate() when credentials are rejected.
// Fatal for consume; fatal for the init-time currently being processed
// in archive mode, which aborts the whole run (configuration drift).
type AuthError struct {
	Repo string
	Msg  string
}

func (e *AuthError) Error() string { return fmt.Sprintf("auth error [%s]: %s", e.Repo, e.Msg) }

// NetworkError is raised by a job's download step. Transient marks a
// failure that may clear on a later attempt; nothing retries it, so
// transient and non-transient instances alike surface as a per-job failure.
type NetworkError struct {
	URL       string
	Transient bool
	Cause     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error (transient=%v) fetching %s: %v", e.Transient, e.URL, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// DecodeError is raised by the decoder inside a job. Never retried.
type DecodeError struct {
	Path  string
	Cause error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode error on %s: %v", e.Path, e.Cause) }

func (e *DecodeError) Unwrap() error { return e.Cause }

// IOError is raised by store writes and attribute updates. The engine
// aggregates these into PartialFailure.
type IOError struct {
	Op    string
	Path  string
	Cause error
}

func (e *IOError) Error() string { return fmt.Sprintf("io error during %s on %s: %v", e.Op, e.Path, e.Cause) }

func (e *IOError) Unwrap() error { return e.Cause }

// PartialFailure is raised by the consume engine when one or more jobs or
// region-writes failed during an otherwise-completed run.
type PartialFailure struct {
	Count int
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("partial failure: %d job(s) or write(s) failed", e.Count)
}

// StoreExists is raised by initialize_empty when the target store directory
// already exists and overwrite was not requested. The archive engine treats
// this as "resume" rather than an error.
type StoreExists struct {
	Path string
}

func (e *StoreExists) Error() string { return fmt.Sprintf("store already exists at %s", e.Path) }

// UnknownParameter is raised by alternate-name parameter lookup. Never
// fatal - the variable carrying this name is simply dropped.
type UnknownParameter struct {
	Name string
}

func (e *UnknownParameter) Error() string { return fmt.Sprintf("unknown parameter name %q", e.Name) }
