// Package sim provides the discrete-event patient-flow engine.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - patient.go, transitions.go: patient lifecycle (Arrived → … → Departed) and its legal edges
//   - event.go, clock.go: event kinds and the (time, sequence) ordered pending set
//   - handlers.go: one handler per event kind, with per-kind state preconditions
//   - simulator.go: the run loop, resource requests and releases, horizon cutoff
//
// # Architecture
//
// A run is fully described by a Scenario (capacities, distributions,
// routing probabilities, capability record) and a seed. Every random draw
// comes from a PartitionedRNG stream, so baseline and enhanced runs of the
// same (hospital, seed) see the same arrivals and acuities.
//
// Resources are Pools with FIFO or acuity-first wait queues. A pool never
// schedules anything itself: Acquire and Release hand back grants and
// continuations, and the Simulator schedules them at the current time.
//
// Sub-packages:
//   - sim/compare/: runs every hospital × configuration × day and aggregates the deltas
//   - sim/trace/: event trace recording
//
// Hospital profiles live in profiles/hospitals.yaml and are embedded in the binary.
package sim
