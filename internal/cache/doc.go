// Package cache stores transformed script output keyed by content
// fingerprint. Three backends are provided: an in-process LRU, a disk store
// that lays entries out as StoragePath/<k[:2]>/<k> files (temp file + rename),
// and a Redis store shared between replicas. All of them treat a missing or
// expired entry as a miss and surface only real I/O failures as errors, so
// the transform pipeline can fall back to running the transformer.
package cache
