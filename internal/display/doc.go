// Package display provides rotation sinks: the places a snapshot goes after each tick.
//
// Ownership boundary:
// - snapshot rendering (log line, JSON line, gauges)
//
// - fan-out to several sinks
//
// Sinks never retry; the scheduler logs a failed publish and moves on.
package display
