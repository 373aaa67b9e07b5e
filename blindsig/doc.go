// Package blindsig implements the Pointcheval-Sanders blind signature
// scheme of spec.md §4.3: key generation, blind signing on a vector
// commitment, unblinding, verification, re-randomization, and a
// sigma-protocol proof of knowledge of a signature (with optional public
// reveal of some message indices, used to disclose the payment nonce while
// hiding the rest of the wallet vector).
//
// Grounded on original_source/src/crypto/pssig.rs for the exact
// verification equation, adapted to the additive bilinear.G1/G2 API.
package blindsig
