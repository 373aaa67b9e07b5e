package revocation

import (
	"sync"

	"github.com/lightninglabs/zkbolt/blindsig"
	"github.com/lightninglabs/zkbolt/chanerr"
)

// PendingKey identifies a pay-token held conditionally on a future
// revocation disclosure: the channel it belongs to, plus the revLock it is
// conditioned on. Scoping by channelId keeps the map safe to share across a
// merchant serving many customers without a cross-channel atomicity
// requirement (spec.md §4.6).
type PendingKey struct {
	ChannelID [32]byte
	RevLock   [32]byte
}

// Store holds a single channel's nonce-replay set and pending pay-token
// map. The merchant's FSM owns one Store per channel; a merchant process
// serving many channels keeps one Store per channelId and serializes
// mutation per key, never across channels (spec.md §4.6's concurrency
// note).
type Store struct {
	mu       sync.Mutex
	consumed map[[32]byte]struct{}
	pending  map[PendingKey]*blindsig.Signature
}

// NewStore returns an empty revocation store.
func NewStore() *Store {
	return &Store{
		consumed: make(map[[32]byte]struct{}),
		pending:  make(map[PendingKey]*blindsig.Signature),
	}
}

// CheckAndConsumeNonce atomically checks that nonce has not been seen
// before and records it. Returns a *chanerr.Error of KindNonceReplay if the
// nonce was already consumed; the caller MUST perform this check before any
// other state mutation for the payment (spec.md §4.6 ordering rule).
func (s *Store) CheckAndConsumeNonce(nonce [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.consumed[nonce]; seen {
		return chanerr.New(chanerr.KindNonceReplay, "revocation: nonce already consumed")
	}
	s.consumed[nonce] = struct{}{}
	return nil
}

// HoldPendingPayToken records the pay-token conditionally due once revLock
// is disclosed. Called only after the corresponding nonce has been
// recorded, per spec.md §4.6.
func (s *Store) HoldPendingPayToken(channelID, revLock [32]byte, token *blindsig.Signature) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[PendingKey{ChannelID: channelID, RevLock: revLock}] = token
}

// ReleasePayToken returns the pay-token held for (channelID, revLock) and
// removes it from the store, so a revocation cannot be redeemed twice. It
// does NOT verify H(revSecret) = revLock; callers must perform that check
// first and treat a missing entry as spec.md's RevocationMismatch.
func (s *Store) ReleasePayToken(channelID, revLock [32]byte) (*blindsig.Signature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := PendingKey{ChannelID: channelID, RevLock: revLock}
	token, ok := s.pending[key]
	if !ok {
		return nil, chanerr.New(chanerr.KindRevocationMismatch, "revocation: no pending pay-token for revLock")
	}
	delete(s.pending, key)
	return token, nil
}
