// Package faults defines the runtime's error kinds and its propagation
// policy: most errors are fatal (abort the worker with a diagnostic naming
// rank, partition, and offending coordinate); only OutOfLocal reads are
// locally recovered, via the remote read proxy.
//
// There are no retries at this layer. A TransportFault (collective
// failure) is always fatal: the neighbor topology is static between
// rebalance commits, so a failed collective indicates a lost worker, which
// this runtime's failure model does not cover (spec Non-goals: no fault
// tolerance against worker loss).
package faults
