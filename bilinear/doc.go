// Package bilinear provides the Type-III bilinear-group capability the rest
// of the core is built on: scalar and group arithmetic over BLS12-381, a
// pairing, canonical encodings, and a domain-separated hash-to-scalar.
//
// The rest of the core never imports gnark-crypto directly; it consumes only
// the concrete Fr/G1/G2/Gt types and functions defined here. The package is
// bound to BLS12-381 alone: there is no engine interface and no way to
// register a second curve (such as BN-256, which the Rust original supports
// via ffishim_bn256.rs).
package bilinear
