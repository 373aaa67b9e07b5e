// Package nizkpay implements the combined NIZKPayProof of spec.md §4.5: a
// single non-interactive proof that a customer holds a valid pay-token on
// the old wallet, knows an opening of a freshly published commitment to the
// updated wallet, and that both post-payment balances remain in range.
//
// Unlike blindsig.ProveKnowledge and vectorcommit.ProveOpening, which each
// derive their own independent Fiat-Shamir challenge, this package builds
// one shared challenge over every sub-protocol's commit message, exactly as
// spec.md §4.5 requires ("hashing the per-sub-protocol commitments together
// ... into the Fiat-Shamir challenge"). The balance-conservation and
// range-proof components are linked to the signature-knowledge and
// opening-knowledge components by reusing the identical pre-challenge
// random nonce for each shared witness (old/new balCust, old/new
// balMerch); soundness of the linear relations (bc' = bc - ε, bm' = bm + ε,
// and "this is the same value the range proof bounds") follows from the
// standard Schnorr argument that a cheating prover cannot predict the
// verifier's challenge before committing.
//
// Grounded on blindsig/pok.go's Σ-protocol shape for the signature-knowledge
// half and vectorcommit/commit.go's for the opening half; the bit-
// decomposition range proof is a direct implementation of the Cramer–
// Damgård–Schoenmakers OR-proof spec.md §4.5 calls for.
package nizkpay
