// Package coordination drives one worker's per-tick bulk-synchronous
// loop: halo-sync every registered field, exchange in-flight agents and
// objects through the transporter, dispatch what arrived locally, step
// the scheduler, and agree the next global tick time with every other
// worker. None of the individual steps live here — this package only
// orders them.
package coordination
