// Package config resolves the process environment into the values every
// engine run needs: the raw cache root, the store root, the selected
// model name, and the provider-specific env values a Model's
// RequiredEnv/OptionalEnv name. Grounded on the GCO (global config
// owner) pattern in cmn/config.go: one process-wide, atomically
// published pointer set once at startup.
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package config

import (
	"os"
	"sync/atomic"

	"github.com/nwp-consumer/core/ncerr"
	"github.com/nwp-consumer/core/repometa"
)

// Env is the resolved configuration for one run.
type Env struct {
	RawDir   string
	StoreDir string
	Model    string
	Provider map[string]string // resolved required_env/optional_env values
}

// FromEnv resolves Env from the process environment, validating repo's
// required_env are all present and filling optional_env defaults,
// following the Validator/PropsValidator convention of cmn/config.go.
func FromEnv(repo repometa.Model) (*Env, error) {
	rawDir := os.Getenv("RAWDIR")
	if rawDir == "" {
		return nil, &ncerr.ConfigError{Repo: repo.Name, Msg: "RAWDIR is required"}
	}
	storeDir := os.Getenv("STOREDIR")
	if storeDir == "" {
		return nil, &ncerr.ConfigError{Repo: repo.Name, Msg: "STOREDIR is required"}
	}
	model := os.Getenv("MODEL")
	if model == "" {
		model = "default"
	}

	provider := make(map[string]string, len(repo.RequiredEnv)+len(repo.OptionalEnv))
	for _, ev := range repo.RequiredEnv {
		v, ok := os.LookupEnv(ev.Name)
		if !ok || v == "" {
			return nil, &ncerr.ConfigError{Repo: repo.Name, Msg: "required env " + ev.Name + " not set"}
		}
		provider[ev.Name] = v
	}
	for _, ev := range repo.OptionalEnv {
		v, ok := os.LookupEnv(ev.Name)
		if !ok || v == "" {
			v = ev.Default
		}
		provider[ev.Name] = v
	}

	return &Env{RawDir: rawDir, StoreDir: storeDir, Model: model, Provider: provider}, nil
}

// global is a process-wide, lock-free pointer to the active Env, set
// once at startup by the CLI entry point.
var global atomic.Pointer[Env]

// SetGlobal publishes env as the process-wide configuration.
func SetGlobal(env *Env) { global.Store(env) }

// Global returns the last value passed to SetGlobal, or nil if none.
func Global() *Env { return global.Load() }
