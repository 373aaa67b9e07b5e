// Package vectorcommit implements the Pedersen-style multi-base vector
// commitment of spec.md §4.2: Commit(m_1..m_l; t) = g^t * prod Y_i^{m_i} in
// G1, its homomorphic extend/remove operations, and a Schnorr-style
// sigma-protocol for knowledge of an opening with selective public reveal
// of indexed scalars.
//
// All group arithmetic below is written additively (Add/Neg/Mul-by-scalar)
// because that is the native representation bilinear.G1 exposes; it is the
// same object the spec's multiplicative notation describes.
package vectorcommit
