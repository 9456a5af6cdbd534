// Package scheduler implements the minimal scheduling data structure the
// coordination loop treats as an external collaborator (spec.md §1): a
// time/ordering-keyed priority queue of one-shot and repeating work
// items, stepped once per tick.
package scheduler
