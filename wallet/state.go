// Package wallet defines the fixed ell-element vector layout committed and
// blind-signed throughout the protocol (spec.md §3, §4.4): channelId,
// nonce, revLock, balCust, balMerch, and an optional closeTag. The index
// order below is load-bearing: every blind-signature key is dimensioned to
// match it exactly.
package wallet

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/lightninglabs/zkbolt/bilinear"
)

// Fixed vector indices, per spec.md §4.4.
const (
	IdxChannelID = 0
	IdxNonce     = 1
	IdxRevLock   = 2
	IdxBalCust   = 3
	IdxBalMerch  = 4
	IdxCloseTag  = 5

	// ElemCount is the dimension l every blind-signature key and
	// commitment base set is fixed to. A pay-message simply carries a
	// zero scalar in the closeTag slot instead of the message being
	// shorter: that is what makes the merchant's close-tag toggle a
	// pure vectorcommit.Extend/Remove on a single fixed slot rather
	// than a length change (spec.md §4.2, §4.4).
	ElemCount = 6
)

// State is the wallet vector. CloseTag is set only on close-messages; the
// merchant toggles it on/off via vectorcommit.Extend/Remove without
// learning the rest of the vector (spec.md §4.2).
type State struct {
	ChannelID bilinear.Fr
	Nonce     bilinear.Fr
	RevLock   bilinear.Fr
	BalCust   int64
	BalMerch  int64
	CloseTag  bool
}

// Vector renders the wallet as the fixed ElemCount-length scalar vector
// blind signatures operate on.
func (s *State) Vector() []bilinear.Fr {
	tag := bilinear.FrZero()
	if s.CloseTag {
		tag = bilinear.HClose
	}
	return []bilinear.Fr{
		s.ChannelID,
		s.Nonce,
		s.RevLock,
		bilinear.FrFromInt64(s.BalCust),
		bilinear.FrFromInt64(s.BalMerch),
		tag,
	}
}

// NewNonce samples a fresh one-time nonce from the caller-supplied CSPRNG.
// Per spec.md §9's "Global RNG" design note, every sampling operation in
// this module takes its randomness as an explicit parameter.
func NewNonce(rng io.Reader) (bilinear.Fr, error) {
	return bilinear.RandomFr(rng)
}

// RevSecret is the 32-byte preimage of a wallet's revLock.
type RevSecret [32]byte

// NewRevocation samples a fresh revSecret and derives its revLock, per
// spec.md invariant 5: revLock = H(revSecret), H = SHA-256.
func NewRevocation(rng io.Reader) (RevSecret, bilinear.Fr, error) {
	var secret RevSecret
	if _, err := io.ReadFull(rng, secret[:]); err != nil {
		return RevSecret{}, bilinear.Fr{}, fmt.Errorf("wallet: sampling revSecret: %w", err)
	}
	return secret, RevLockOf(secret), nil
}

// RevLockOf derives the revLock scalar for a given revSecret: the literal
// SHA-256 digest of the secret, reduced into the scalar field so it can sit
// in the wallet vector (spec.md invariant 5).
func RevLockOf(secret RevSecret) bilinear.Fr {
	digest := sha256.Sum256(secret[:])
	f, err := bilinear.FrFromBytes(digest[:])
	if err != nil {
		// digest is always exactly 32 bytes; FrFromBytes only rejects
		// on length mismatch.
		panic(err)
	}
	return f
}
