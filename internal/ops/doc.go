// Package ops owns the string-argument operation surface over the engine.
//
// Ownership boundary:
// - provider metadata shape
// - provider execution interface
// - local provider registry primitives
package ops
