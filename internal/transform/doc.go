// Package transform implements the response rewrite pipeline that sits between
// a handler and the wire: it decides whether an outgoing body should be run
// through a source transformer, materializes streamed bodies, consults an
// optional cache keyed by response validators, and masks transformer errors
// before they reach the client.
//
// The package is host agnostic. internal/server adapts Fiber responses into a
// RequestContext and writes the Result back; tests drive the pipeline with
// plain http.Header values.
package transform
