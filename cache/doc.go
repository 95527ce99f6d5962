// Package cache memoizes expensive inference results in a shared,
// TTL-capable key/value store.
//
// It provides the Cache interface with in-memory and Redis implementations,
// content-derived key construction (perceptual image fingerprints, BLAKE3
// file digests, path keys for read endpoints), TTL policies, and a Memoizer
// that wraps a computation with lookup and write-back.
//
// Store failures never surface to callers: a broken store behaves as a
// permanent miss and writes become no-ops. Only Ping reports store status.
package cache
