package zkchannel

import (
	"io"
	"sync"

	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/blindsig"
	"github.com/lightninglabs/zkbolt/chanerr"
	"github.com/lightninglabs/zkbolt/nizkpay"
	"github.com/lightninglabs/zkbolt/protocol"
	"github.com/lightninglabs/zkbolt/revocation"
	"github.com/lightninglabs/zkbolt/vectorcommit"
	"github.com/lightninglabs/zkbolt/wallet"
)

// MerchantState owns the merchant's view of one channel: its PS keypair,
// the channel's commitment bases (shared with the customer via
// ChannelParams), and the nonce/pay-token bookkeeping spec.md §4.6
// requires. One instance per channel, the way CustomerState is one
// instance per channel; a merchant serving many customers owns one
// MerchantState (and one revocation.Store) per channelId, per spec.md §5's
// concurrency note.
type MerchantState struct {
	mu sync.Mutex

	params *ChannelParams
	sk     *blindsig.SecretKey

	phase     Phase
	channelID bilinear.Fr

	store *revocation.Store
}

// NewMerchantState builds a fresh per-channel merchant handle. sk must be
// the secret key underlying params.MerchPK. A zero params.RangeBits is
// replaced by nizkpay.RangeBits in the handle's own copy of params.
func NewMerchantState(params *ChannelParams, sk *blindsig.SecretKey) *MerchantState {
	if params.RangeBits <= 0 {
		withDefault := *params
		withDefault.RangeBits = nizkpay.RangeBits
		params = &withDefault
	}
	return &MerchantState{
		params: params,
		sk:     sk,
		phase:  PhaseInit,
		store:  revocation.NewStore(),
	}
}

// ChannelState returns the Init message this merchant broadcasts before
// any customer has established a channel against it.
func (m *MerchantState) ChannelState() *protocol.ChannelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &protocol.ChannelState{
		MerchPS:   m.params.MerchPK,
		RangeBase: m.params.RangeBase,
		RangeBits: uint32(m.params.RangeBits),
	}
}

// Phase reports the merchant's current view of the channel's lifecycle.
func (m *MerchantState) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Close marks the channel closed locally; further Pay/Revocation calls
// are rejected.
func (m *MerchantState) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = PhaseClosed
}

// revealedValue extracts the disclosed value at idx from an opening
// proof's revealed-index list, failing closed if the index the caller
// needs was never actually disclosed.
func revealedValue(proof *vectorcommit.OpeningProof, idx int) (bilinear.Fr, error) {
	for i, revealed := range proof.RevealIndex {
		if revealed == idx {
			return proof.RevealValue[i], nil
		}
	}
	return bilinear.Fr{}, chanerr.Newf(chanerr.KindProofInvalid, "zkchannel: opening proof does not reveal index %d", idx)
}

// HandleEstablish verifies the customer's opening commitment and proof,
// checks the revealed channelId matches the one derived from the channel
// token (spec.md invariant 3), and issues a close-token (blind signature
// on the wallet extended with the close tag) and a pay-token (blind
// signature on the bare wallet).
func (m *MerchantState) HandleEstablish(rng io.Reader, msg *protocol.Establish) (*protocol.CloseToken, *protocol.PayToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseInit {
		return nil, nil, chanerr.Newf(chanerr.KindInternalInvariant, "zkchannel: establish handled twice in phase %s", m.phase)
	}

	params := m.params.MerchPK.CommitParams()
	if err := params.VerifyOpening(msg.Commitment, msg.Proof); err != nil {
		return nil, nil, err
	}

	revealedChannelID, err := revealedValue(msg.Proof, wallet.IdxChannelID)
	if err != nil {
		return nil, nil, err
	}
	wantChannelID, err := msg.Token.ChannelID()
	if err != nil {
		return nil, nil, err
	}
	if !revealedChannelID.Equal(wantChannelID) {
		return nil, nil, chanerr.New(chanerr.KindProofInvalid, "zkchannel: revealed channelId does not match channel token")
	}

	balCust, err := revealedValue(msg.Proof, wallet.IdxBalCust)
	if err != nil {
		return nil, nil, err
	}
	balMerch, err := revealedValue(msg.Proof, wallet.IdxBalMerch)
	if err != nil {
		return nil, nil, err
	}
	if balCust.BigInt().Sign() < 0 || balMerch.BigInt().Sign() < 0 {
		return nil, nil, chanerr.New(chanerr.KindBalanceOverflow, "zkchannel: negative opening balance revealed")
	}

	closeCommitment, err := params.Extend(msg.Commitment, wallet.IdxCloseTag, bilinear.HClose)
	if err != nil {
		return nil, nil, err
	}
	closeSig, err := blindsig.SignBlind(rng, m.sk, closeCommitment)
	if err != nil {
		return nil, nil, err
	}
	paySig, err := blindsig.SignBlind(rng, m.sk, msg.Commitment)
	if err != nil {
		return nil, nil, err
	}

	m.channelID = wantChannelID
	m.phase = PhaseActivated

	if logger != nil {
		logger.Debugw("zkchannel: merchant issued establish tokens")
	}
	return &protocol.CloseToken{Sig: closeSig}, &protocol.PayToken{Sig: paySig}, nil
}

// HandlePay verifies a PayProof (the mandatory epsilon=0 unlink, or any
// later payment), checks and consumes the revealed old nonce, and issues
// the corresponding close-token. It also pre-signs the pay-token for the
// new state and holds it pending the matching revocation disclosure,
// keyed by the old wallet's revLock — revealed directly in the proof
// (spec.md §4.6's ordering discipline: verify proof, record nonce, issue
// close-token, hold pay-token, release only on valid revocation). Both the
// close-token and pay-token are re-randomized for the unlink payment, per
// spec.md §6, so the customer's post-unlink proofs cannot be linked back
// to activation.
func (m *MerchantState) HandlePay(rng io.Reader, msg *protocol.Pay) (*protocol.CloseToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseActivated && m.phase != PhaseOpen {
		return nil, chanerr.Newf(chanerr.KindInternalInvariant, "zkchannel: pay handled in phase %s", m.phase)
	}

	if err := nizkpay.Verify(m.params.MerchPK, m.params.RangeBase, m.params.RangeBits,
		msg.Commitment, msg.Epsilon, msg.Proof); err != nil {
		return nil, err
	}
	if !msg.Proof.ChannelID.Equal(m.channelID) {
		return nil, chanerr.New(chanerr.KindProofInvalid, "zkchannel: proof channelId does not match this channel")
	}

	oldNonce := msg.Proof.OldNonce.Bytes()
	if err := m.store.CheckAndConsumeNonce(oldNonce); err != nil {
		return nil, err
	}

	params := m.params.MerchPK.CommitParams()
	closeCommitment, err := params.Extend(msg.Commitment, wallet.IdxCloseTag, bilinear.HClose)
	if err != nil {
		return nil, err
	}
	closeSig, err := blindsig.SignBlind(rng, m.sk, closeCommitment)
	if err != nil {
		return nil, err
	}
	paySig, err := blindsig.SignBlind(rng, m.sk, msg.Commitment)
	if err != nil {
		return nil, err
	}

	unlink := m.phase == PhaseActivated
	if unlink {
		closeSig, err = blindsig.Randomize(rng, closeSig)
		if err != nil {
			return nil, err
		}
		paySig, err = blindsig.Randomize(rng, paySig)
		if err != nil {
			return nil, err
		}
		m.phase = PhaseOpen
	}

	oldRevLock := msg.Proof.OldRevLock.Bytes()
	m.store.HoldPendingPayToken(m.channelID.Bytes(), oldRevLock, paySig)

	if logger != nil {
		logger.Debugw("zkchannel: merchant issued close-token, holding pay-token pending revocation",
			"unlink", unlink)
	}
	return &protocol.CloseToken{Sig: closeSig}, nil
}

// HandleRevocation checks that revSecret actually opens the revLock the
// matching HandlePay call held a pay-token under, and releases that
// pay-token only on a match (spec.md invariant: the merchant MUST NOT
// release the new pay-token on a revocation mismatch, and the customer's
// prior close-token remains the only valid one in that case).
func (m *MerchantState) HandleRevocation(rev *protocol.Revocation) (*protocol.PayToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseActivated && m.phase != PhaseOpen {
		return nil, chanerr.Newf(chanerr.KindInternalInvariant, "zkchannel: revocation handled in phase %s", m.phase)
	}

	if !wallet.RevLockOf(wallet.RevSecret(rev.RevSecret)).Equal(rev.RevLock) {
		return nil, chanerr.New(chanerr.KindRevocationMismatch, "zkchannel: revSecret does not open revLock")
	}

	sig, err := m.store.ReleasePayToken(m.channelID.Bytes(), rev.RevLock.Bytes())
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Debugw("zkchannel: merchant released pay-token on valid revocation")
	}
	return &protocol.PayToken{Sig: sig}, nil
}
