package zkchannel

import (
	"io"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/blindsig"
	"github.com/lightninglabs/zkbolt/chanerr"
	"github.com/lightninglabs/zkbolt/nizkpay"
	"github.com/lightninglabs/zkbolt/protocol"
	"github.com/lightninglabs/zkbolt/vectorcommit"
	"github.com/lightninglabs/zkbolt/wallet"
)

// CustomerState owns one customer's view of one channel: the current
// wallet and its commitment randomness, the unblinded close- and
// pay-tokens authorizing it, the just-superseded state's revocation pair
// (retained until the merchant rotates it), and an in-flight pending state
// awaiting the merchant's reply. Exclusive owner of custPriv, per spec.md
// §3. Guarded by mu the way lnwallet.LightningChannel guards a single
// party's commitment chains.
type CustomerState struct {
	mu sync.Mutex

	params   *ChannelParams
	token    protocol.ChannelToken
	custPriv *btcec.PrivateKey
	channelID bilinear.Fr

	phase Phase
	index int

	Intermediary Intermediary

	wallet     *wallet.State
	randomness bilinear.Fr
	revSecret  wallet.RevSecret
	closeToken *blindsig.Signature
	payToken   *blindsig.Signature

	prevRevLock    bilinear.Fr
	prevRevSecret  wallet.RevSecret
	prevCloseToken *blindsig.Signature
	haveRotation   bool

	pending           bool
	pendingWallet     *wallet.State
	pendingRandomness bilinear.Fr
	pendingRevSecret  wallet.RevSecret
	pendingEpsilon    int64
	pendingUnlink     bool
}

// NewCustomerState builds a customer's channel handle against a merchant's
// broadcast ChannelState, fixing the channel token (and thus channelId, per
// spec.md invariant 3) before any wallet exists.
func NewCustomerState(state *protocol.ChannelState, custPriv *btcec.PrivateKey, merchPub *btcec.PublicKey) (*CustomerState, error) {
	if state == nil || state.MerchPS == nil {
		return nil, chanerr.New(chanerr.KindStateUninitialized, "zkchannel: channel state missing merchant PS key")
	}
	if custPriv == nil || merchPub == nil {
		return nil, chanerr.New(chanerr.KindStateUninitialized, "zkchannel: customer state missing long-term keys")
	}

	token := protocol.ChannelToken{
		CustPubKey:  custPriv.PubKey(),
		MerchPubKey: merchPub,
		MerchPS:     state.MerchPS,
	}
	channelID, err := token.ChannelID()
	if err != nil {
		return nil, err
	}

	return &CustomerState{
		params: &ChannelParams{
			MerchPK:   state.MerchPS,
			RangeBase: state.RangeBase,
			RangeBits: int(state.RangeBits),
		},
		token:     token,
		custPriv:  custPriv,
		channelID: channelID,
		phase:     PhaseInit,
	}, nil
}

// Establish builds the initial wallet w0 and the establish message: the
// channel token, its commitment C0, and the opening proof revealing
// channelId/balCust/balMerch while hiding nonce/revLock (spec.md §4.2,
// §6). The new wallet is held pending until Activate confirms both tokens.
func (c *CustomerState) Establish(rng io.Reader, b0Cust, b0Merch int64) (*protocol.Establish, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInit {
		return nil, chanerr.Newf(chanerr.KindInternalInvariant, "zkchannel: establish called in phase %s", c.phase)
	}
	if b0Cust < 0 || b0Merch < 0 {
		return nil, chanerr.New(chanerr.KindBalanceOverflow, "zkchannel: negative opening balance")
	}

	w0, revSecret, err := freshWallet(rng, c.channelID, b0Cust, b0Merch, false)
	if err != nil {
		return nil, err
	}

	t0, err := bilinear.RandomFr(rng)
	if err != nil {
		return nil, err
	}

	params := c.params.MerchPK.CommitParams()
	commitment, err := params.Commit(w0.Vector(), t0)
	if err != nil {
		return nil, err
	}

	proof, err := params.ProveOpening(rng, commitment, w0.Vector(), t0,
		[]int{wallet.IdxChannelID, wallet.IdxBalCust, wallet.IdxBalMerch})
	if err != nil {
		return nil, err
	}

	c.pending = true
	c.pendingWallet = w0
	c.pendingRandomness = t0
	c.pendingRevSecret = revSecret
	c.pendingEpsilon = 0
	c.pendingUnlink = false

	return &protocol.Establish{
		Token:      c.token,
		Commitment: commitment,
		Proof:      proof,
	}, nil
}

// Activate verifies the merchant's close-token and pay-token on the
// pending initial wallet and, on success, promotes it to the channel's
// current state (spec.md §4.6 Init -> Activated).
func (c *CustomerState) Activate(closeTok *protocol.CloseToken, payTok *protocol.PayToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInit || !c.pending {
		return chanerr.Newf(chanerr.KindInternalInvariant, "zkchannel: activate called in phase %s", c.phase)
	}

	closeVec := c.pendingWallet.Vector()
	closeVec[wallet.IdxCloseTag] = bilinear.HClose
	unblindedClose := blindsig.Unblind(c.pendingRandomness, closeTok.Sig)
	if err := blindsig.Verify(c.params.MerchPK, closeVec, unblindedClose); err != nil {
		return err
	}

	unblindedPay := blindsig.Unblind(c.pendingRandomness, payTok.Sig)
	if err := blindsig.Verify(c.params.MerchPK, c.pendingWallet.Vector(), unblindedPay); err != nil {
		return err
	}

	c.wallet = c.pendingWallet
	c.randomness = c.pendingRandomness
	c.revSecret = c.pendingRevSecret
	c.closeToken = unblindedClose
	c.payToken = unblindedPay
	c.pending = false
	c.phase = PhaseActivated

	if logger != nil {
		logger.Debugw("zkchannel: customer activated", "index", c.index)
	}
	return nil
}

// Pay builds the next PayProof message for signed payment epsilon
// (negative is a refund). The first call after Activate MUST pass
// epsilon == 0 — the mandatory unlink payment — after which any epsilon
// bounded by the current balances is accepted (spec.md §4.6).
func (c *CustomerState) Pay(rng io.Reader, epsilon int64) (*protocol.Pay, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	unlink := c.phase == PhaseActivated
	switch c.phase {
	case PhaseActivated:
		if epsilon != 0 {
			return nil, chanerr.New(chanerr.KindInternalInvariant, "zkchannel: unlink payment must carry epsilon=0")
		}
	case PhaseOpen:
	default:
		return nil, chanerr.Newf(chanerr.KindInternalInvariant, "zkchannel: pay called in phase %s", c.phase)
	}
	if c.pending {
		return nil, chanerr.New(chanerr.KindInternalInvariant, "zkchannel: a payment is already in flight")
	}

	newBalCust := c.wallet.BalCust - epsilon
	newBalMerch := c.wallet.BalMerch + epsilon
	if newBalCust < 0 || newBalMerch < 0 {
		return nil, chanerr.New(chanerr.KindBalanceOverflow, "zkchannel: payment would drive a balance negative")
	}

	if c.Intermediary != nil {
		if err := c.Intermediary.Init(epsilon, nil); err != nil {
			return nil, err
		}
	}

	newWallet, revSecret, err := freshWallet(rng, c.channelID, newBalCust, newBalMerch, false)
	if err != nil {
		return nil, err
	}
	newRandomness, err := bilinear.RandomFr(rng)
	if err != nil {
		return nil, err
	}

	params := c.params.MerchPK.CommitParams()
	commitment, err := params.Commit(newWallet.Vector(), newRandomness)
	if err != nil {
		return nil, err
	}

	oldSig, err := blindsig.Randomize(rng, c.payToken)
	if err != nil {
		return nil, err
	}
	proof, err := nizkpay.Prove(rng, c.params.MerchPK, c.params.RangeBase, c.params.RangeBits,
		c.wallet, oldSig, newWallet, newRandomness, epsilon)
	if err != nil {
		return nil, err
	}

	if c.Intermediary != nil {
		if _, err := c.Intermediary.Output(nil); err != nil {
			return nil, err
		}
	}

	c.pending = true
	c.pendingWallet = newWallet
	c.pendingRandomness = newRandomness
	c.pendingRevSecret = revSecret
	c.pendingEpsilon = epsilon
	c.pendingUnlink = unlink

	return &protocol.Pay{Proof: proof, Commitment: commitment, Epsilon: epsilon}, nil
}

// ReceiveCloseToken verifies the merchant's close-token for the in-flight
// pending state and, on success, commits it as the channel's current
// state, retaining the just-superseded (revLock, revSecret, closeToken)
// for disclosure via RevealRevocation (spec.md §4.6 idempotence rule: the
// new state is committed only upon receiving a valid close-token).
func (c *CustomerState) ReceiveCloseToken(tok *protocol.CloseToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pending {
		return chanerr.New(chanerr.KindInternalInvariant, "zkchannel: no payment in flight")
	}

	closeVec := c.pendingWallet.Vector()
	closeVec[wallet.IdxCloseTag] = bilinear.HClose
	unblinded := blindsig.Unblind(c.pendingRandomness, tok.Sig)
	if err := blindsig.Verify(c.params.MerchPK, closeVec, unblinded); err != nil {
		return err
	}

	c.prevRevLock = c.wallet.RevLock
	c.prevRevSecret = c.revSecret
	c.prevCloseToken = c.closeToken
	c.haveRotation = true

	c.wallet = c.pendingWallet
	c.randomness = c.pendingRandomness
	c.revSecret = c.pendingRevSecret
	c.closeToken = unblinded
	c.payToken = nil

	if c.pendingUnlink {
		c.phase = PhaseOpen
	}
	c.index++
	c.pending = false
	c.pendingWallet = nil

	if logger != nil {
		logger.Debugw("zkchannel: customer committed new state", "index", c.index, "phase", c.phase.String())
	}
	return nil
}

// RevealRevocation returns the just-superseded state's (revLock, revSecret)
// pair for disclosure to the merchant, authorizing release of the pay-token
// for the now-current state.
func (c *CustomerState) RevealRevocation() (*protocol.Revocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.haveRotation {
		return nil, chanerr.New(chanerr.KindInternalInvariant, "zkchannel: no revocation pending disclosure")
	}
	return &protocol.Revocation{
		RevLock:   c.prevRevLock,
		RevSecret: c.prevRevSecret,
	}, nil
}

// ReceivePayToken verifies the merchant's pay-token for the current state
// and, on success, stores it (enabling the next Pay call) and rotates out
// the previous close-token.
func (c *CustomerState) ReceivePayToken(tok *protocol.PayToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.payToken != nil {
		return chanerr.New(chanerr.KindInternalInvariant, "zkchannel: pay-token already held for current state")
	}

	unblinded := blindsig.Unblind(c.randomness, tok.Sig)
	if err := blindsig.Verify(c.params.MerchPK, c.wallet.Vector(), unblinded); err != nil {
		return err
	}

	c.payToken = unblinded
	c.prevCloseToken = nil
	c.haveRotation = false

	if logger != nil {
		logger.Debugw("zkchannel: customer rotated pay-token", "index", c.index)
	}
	return nil
}

// Close marks the channel closed locally: no further Pay/Establish calls
// are accepted. It does not itself broadcast anything — that is the
// escrow package's and the caller's responsibility (spec.md §3's "the core
// itself has no notion of channel closed" beyond this local bookkeeping).
func (c *CustomerState) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseClosed
	if logger != nil {
		logger.Debugw("zkchannel: customer closed channel locally")
	}
}

// Phase returns the channel's current local phase.
func (c *CustomerState) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Balances returns the current wallet's balances.
func (c *CustomerState) Balances() (balCust, balMerch int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wallet.BalCust, c.wallet.BalMerch
}

// Commitment returns the current committed-to wallet's vector commitment,
// used by a higher layer wiring escrow outputs against the live state.
func (c *CustomerState) Commitment() (vectorcommit.Commitment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	params := c.params.MerchPK.CommitParams()
	return params.Commit(c.wallet.Vector(), c.randomness)
}

// freshWallet samples a new one-time nonce and revocation pair and
// assembles a wallet.State for channelID with the given balances.
func freshWallet(rng io.Reader, channelID bilinear.Fr, balCust, balMerch int64, closeTag bool) (*wallet.State, wallet.RevSecret, error) {
	nonce, err := wallet.NewNonce(rng)
	if err != nil {
		return nil, wallet.RevSecret{}, err
	}
	revSecret, revLock, err := wallet.NewRevocation(rng)
	if err != nil {
		return nil, wallet.RevSecret{}, err
	}
	return &wallet.State{
		ChannelID: channelID,
		Nonce:     nonce,
		RevLock:   revLock,
		BalCust:   balCust,
		BalMerch:  balMerch,
		CloseTag:  closeTag,
	}, revSecret, nil
}
