// Package sequence owns deterministic symbol generation and composition scoring.
//
// Ownership boundary:
// - four-symbol alphabet shape
//
// - hash-chain expansion from (seed, discriminator, length)
//
// - composition balance scoring
//
// Expansion chains digests over the growing byte buffer: block 0 is H(seed||discriminator),
// block n+1 is H(block 0 || ... || block n). Every block depends only on what came
// before it, so a shorter expansion is always a prefix of a longer one.
//
// Nothing in this package reads the clock, a random source or the filesystem.
package sequence
