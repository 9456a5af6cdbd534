// Package collectives abstracts the group communication operations the
// coordination loop and halo/transport layers need — neighbor exchange,
// gather/scatter over a rebalance group, and a global minimum reduction —
// behind a Bus interface modeled on an MPI communicator. The only
// implementation in this package, called LocalBus in these docs (the
// unexported handle type Fabric.ForRank returns), runs every worker as a
// goroutine inside one process and requires no network: it exists so the
// rest of the runtime can be written against the collective-operation
// abstraction now and handed a real transport-backed Bus later without
// changing a caller.
package collectives
