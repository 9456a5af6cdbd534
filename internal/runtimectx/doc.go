// Package runtimectx replaces the global mutable state a naive port of
// this runtime would reach for: every component that needs the worker's
// rank, a logger, the shared tick clock, or the collective-communication
// bus takes a *Context at construction instead of reading package-level
// globals.
package runtimectx
