// Package cachestore abstracts the key-value cache the permission registrar
// stores its serialized snapshot in.
//
// Redis is the production implementation: the snapshot key is shared across
// every process of a deployment, and concurrent repopulation after an
// invalidation is resolved last-write-wins (each writer computes an
// equivalent snapshot, so no coordination is needed). Memory is a
// mutex-guarded in-process implementation for tests and single-instance
// setups.
package cachestore
