package runtimectx

import (
	"go.uber.org/zap"

	"github.com/dreamware/toroidal-sim/internal/collectives"
)

// Context is handed to every component at construction in place of
// global mutable state (spec.md §9's design note): the worker's own
// rank, a logger scoped to that rank, the shared tick clock, and the
// collective-communication bus it drives every blocking operation
// through.
type Context struct {
	Rank   int
	Logger *zap.Logger
	Clock  Clock
	Bus    collectives.Bus
}

// New builds a Context for rank, wiring logger, clock, and bus. None of
// the fields are optional: every collaborator that takes a Context
// expects to find a usable logger and clock in it.
func New(rank int, logger *zap.Logger, clock Clock, bus collectives.Bus) *Context {
	return &Context{Rank: rank, Logger: logger, Clock: clock, Bus: bus}
}

// With returns a copy of ctx with logger replaced — used to scope a
// child logger (e.g. with a "component" field) without mutating the
// parent Context other collaborators still hold.
func (ctx *Context) With(logger *zap.Logger) *Context {
	next := *ctx
	next.Logger = logger
	return &next
}
