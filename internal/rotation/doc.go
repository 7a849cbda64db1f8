// Package rotation owns the periodic state-rotation scheduler.
//
// Ownership boundary:
// - fixed label list and the single active label
//
// - per-label metric override table
//
// - snapshot computation and sink publication
//
// Tick order:
// - pick label -> compute metrics -> apply overrides -> swap active state -> publish
//
// - a tick is serialized; the next tick never starts while a publish is in flight.
//
// - sink failures are logged and counted, never fatal.
//
// The scheduler owns its ticker and cancellation; nothing here starts process-wide timers.
package rotation
