// Package server hosts the Fiber HTTP service that serves StaticRoot and runs
// every response through the transform pipeline before it is written. The
// middleware chain is recover → request ID → ETag → transform hook → static
// files, so the ETag is computed over the transformed body while the cache
// gate still sees the upstream validators. Diagnostics under /-/ bypass the
// hook. Keep exports narrow and accept explicit dependencies.
package server
