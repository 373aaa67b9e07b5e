package revocation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/blindsig"
	"github.com/lightninglabs/zkbolt/chanerr"
)

func TestNonceReplayRejected(t *testing.T) {
	s := NewStore()
	var nonce [32]byte
	nonce[0] = 1

	require.NoError(t, s.CheckAndConsumeNonce(nonce))

	err := s.CheckAndConsumeNonce(nonce)
	require.Error(t, err)
	require.True(t, chanerr.Is(err, chanerr.KindNonceReplay))
}

func TestPendingPayTokenLifecycle(t *testing.T) {
	s := NewStore()
	var channelID, revLock [32]byte
	channelID[0] = 0xaa
	revLock[0] = 0xbb

	token := &blindsig.Signature{
		H:  bilinear.G1Generator(),
		HH: bilinear.G1Generator(),
	}

	s.HoldPendingPayToken(channelID, revLock, token)

	got, err := s.ReleasePayToken(channelID, revLock)
	require.NoError(t, err)
	require.Equal(t, token, got)

	// A second release for the same key is now a RevocationMismatch: the
	// token has already been redeemed.
	_, err = s.ReleasePayToken(channelID, revLock)
	require.Error(t, err)
	require.True(t, chanerr.Is(err, chanerr.KindRevocationMismatch))
}

func TestReleaseUnknownRevLock(t *testing.T) {
	s := NewStore()
	var channelID, revLock [32]byte
	revLock[0] = 0xcc

	_, err := s.ReleasePayToken(channelID, revLock)
	require.Error(t, err)
	require.True(t, chanerr.Is(err, chanerr.KindRevocationMismatch))
}

func TestNonceScopedAcrossChannelsSharesSet(t *testing.T) {
	// Per spec.md §4.6, a merchant keeps one Store per channel; within a
	// single Store the nonce set is flat, so this documents that a
	// caller must not share one Store across channelIds if it wants
	// per-channel nonce spaces.
	s := NewStore()
	var nonce [32]byte
	nonce[0] = 7

	require.NoError(t, s.CheckAndConsumeNonce(nonce))
	err := s.CheckAndConsumeNonce(nonce)
	require.True(t, chanerr.Is(err, chanerr.KindNonceReplay))
}
