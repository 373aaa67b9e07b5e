package nizkpay

import (
	"io"

	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/blindsig"
	"github.com/lightninglabs/zkbolt/chanerr"
	"github.com/lightninglabs/zkbolt/vectorcommit"
	"github.com/lightninglabs/zkbolt/wallet"
)

// Proof is the combined NIZKPayProof of spec.md §4.5. A customer produces
// one of these per payment: it proves knowledge of a valid pay-token on
// the old wallet (revealing the old nonce, for replay-checking, and the
// old revLock, so the merchant can key its pending pay-token hold before
// the later revocation disclosure supplies the matching revSecret), an
// opening of the newly published commitment to the updated wallet
// (revealing channelId and the close tag, which must be zero), and that
// both resulting balances stay in range, with every sub-claim bound
// together under one Fiat-Shamir challenge. The old pay-token's (h, H)
// pair travels alongside the proof, re-randomized so it carries no
// linkage to the session it was issued in (spec.md §4.3's Randomize).
//
// Revealing the old revLock here, rather than only at the later
// disclosure step, is load-bearing: original_source/src/channels.rs's
// merchant-side pay handler takes the old revLock as an explicit
// argument alongside the proof and keys its pending-token store with it
// before verification even returns, precisely because the signature-
// knowledge equation below binds the revealed value to the one actually
// signed into the old wallet — a customer cannot declare a revLock that
// does not match what close_token/pay_token were issued over.
//
// ChannelID is a single value, revealed and checked against the SAME
// revealed index in both the signature-knowledge and opening-knowledge
// equations below, rather than a pair of independently-proven values:
// spec.md invariant 3 requires channelId constant for the channel's
// lifetime (cid' = cid, per §4.5 item 3), and privacy never requires
// hiding it (it is a fixed, already-known identifier for the channel's
// whole life, unlike the nonce/revLock pair that must refresh every
// payment). Using one revealed field for both halves is what makes that
// equality a consequence of proof validity instead of an unchecked claim.
type Proof struct {
	OldSig     *blindsig.Signature
	OldNonce   bilinear.Fr
	OldRevLock bilinear.Fr

	SigA         bilinear.Gt
	SigZStar     bilinear.Fr
	SigZBalCust  bilinear.Fr
	SigZBalMerch bilinear.Fr
	SigZClose    bilinear.Fr

	ChannelID bilinear.Fr

	OpenA         bilinear.G1
	OpenZR        bilinear.Fr
	OpenZNonce    bilinear.Fr
	OpenZRevLock  bilinear.Fr
	OpenZBalCust  bilinear.Fr
	OpenZBalMerch bilinear.Fr

	RangeCust  *RangeProof
	RangeMerch *RangeProof
}

// epsilonCommitState bundles the commit-phase state of every sub-protocol,
// held between the commit and respond phases so the combined challenge can
// be computed over all of it at once.
type epsilonCommitState struct {
	tStar, tBalCust, tBalMerch, tCloseOld bilinear.Fr
	sigA                                  bilinear.Gt

	tR, tNonceNew, tRevLockNew bilinear.Fr
	openA                      bilinear.G1

	rangeCust, rangeMerch *rangeCommitState
}

// Prove builds a combined NIZKPayProof that oldSig is a valid (unblinded,
// re-randomized) signature under pk on oldWallet, that newCommitment =
// Commit(newWallet; newRandomness) under params, and that newWallet's
// balances are the result of moving epsilon from the customer to the
// merchant (epsilon may be negative, per spec.md §4.5's refund case)
// while staying within [0, 2^rangeBits). rangeBase is the "nothing up my
// sleeve" second base the range proof's bit commitments use; it must be
// independent of params.G and every Y in params.Ys.
func Prove(rng io.Reader, pk *blindsig.PublicKey, rangeBase bilinear.G1, rangeBits int,
	oldWallet *wallet.State, oldSig *blindsig.Signature,
	newWallet *wallet.State, newRandomness bilinear.Fr, epsilon int64) (*Proof, error) {

	if newWallet.BalCust != oldWallet.BalCust-epsilon {
		return nil, chanerr.New(chanerr.KindInternalInvariant, "nizkpay: newWallet.BalCust does not reflect epsilon")
	}
	if newWallet.BalMerch != oldWallet.BalMerch+epsilon {
		return nil, chanerr.New(chanerr.KindInternalInvariant, "nizkpay: newWallet.BalMerch does not reflect epsilon")
	}
	if newWallet.CloseTag {
		return nil, chanerr.New(chanerr.KindInternalInvariant, "nizkpay: pay proof built over a close-tagged wallet")
	}
	if !newWallet.ChannelID.Equal(oldWallet.ChannelID) {
		return nil, chanerr.New(chanerr.KindInternalInvariant, "nizkpay: newWallet.ChannelID does not match oldWallet.ChannelID")
	}

	params := pk.CommitParams()
	oldVec := oldWallet.Vector()
	newVec := newWallet.Vector()

	st := &epsilonCommitState{}

	var err error
	if st.tStar, err = bilinear.RandomFr(rng); err != nil {
		return nil, err
	}
	if st.tBalCust, err = bilinear.RandomFr(rng); err != nil {
		return nil, err
	}
	if st.tBalMerch, err = bilinear.RandomFr(rng); err != nil {
		return nil, err
	}
	if st.tCloseOld, err = bilinear.RandomFr(rng); err != nil {
		return nil, err
	}

	hG2 := bilinear.Pair(oldSig.H, bilinear.G2Generator())
	a := hG2.Exp(st.tStar)
	a = a.Mul(bilinear.Pair(oldSig.H, pk.Y2s[wallet.IdxBalCust]).Exp(st.tBalCust))
	a = a.Mul(bilinear.Pair(oldSig.H, pk.Y2s[wallet.IdxBalMerch]).Exp(st.tBalMerch))
	a = a.Mul(bilinear.Pair(oldSig.H, pk.Y2s[wallet.IdxCloseTag]).Exp(st.tCloseOld))
	st.sigA = a

	if st.tR, err = bilinear.RandomFr(rng); err != nil {
		return nil, err
	}
	if st.tNonceNew, err = bilinear.RandomFr(rng); err != nil {
		return nil, err
	}
	if st.tRevLockNew, err = bilinear.RandomFr(rng); err != nil {
		return nil, err
	}

	openA := params.G.Mul(st.tR)
	openA = openA.Add(params.Ys[wallet.IdxNonce].Mul(st.tNonceNew))
	openA = openA.Add(params.Ys[wallet.IdxRevLock].Mul(st.tRevLockNew))
	openA = openA.Add(params.Ys[wallet.IdxBalCust].Mul(st.tBalCust))
	openA = openA.Add(params.Ys[wallet.IdxBalMerch].Mul(st.tBalMerch))
	st.openA = openA

	if st.rangeCust, err = commitRangeProof(rng, rangeBase, params.Ys[wallet.IdxBalCust], newWallet.BalCust, rangeBits, st.tBalCust); err != nil {
		return nil, err
	}
	if st.rangeMerch, err = commitRangeProof(rng, rangeBase, params.Ys[wallet.IdxBalMerch], newWallet.BalMerch, rangeBits, st.tBalMerch); err != nil {
		return nil, err
	}

	challenge := combinedChallenge(st, oldWallet.Nonce, oldWallet.RevLock, newWallet.ChannelID, epsilon)

	proof := &Proof{
		OldSig:     oldSig,
		OldNonce:   oldWallet.Nonce,
		OldRevLock: oldWallet.RevLock,

		SigA:         st.sigA,
		SigZStar:     st.tStar,
		SigZBalCust:  st.tBalCust.Add(challenge.Mul(oldVec[wallet.IdxBalCust])),
		SigZBalMerch: st.tBalMerch.Add(challenge.Mul(oldVec[wallet.IdxBalMerch])),
		SigZClose:    st.tCloseOld.Add(challenge.Mul(oldVec[wallet.IdxCloseTag])),

		ChannelID: newWallet.ChannelID,

		OpenA:         st.openA,
		OpenZR:        st.tR.Add(challenge.Mul(newRandomness)),
		OpenZNonce:    st.tNonceNew.Add(challenge.Mul(newVec[wallet.IdxNonce])),
		OpenZRevLock:  st.tRevLockNew.Add(challenge.Mul(newVec[wallet.IdxRevLock])),
		OpenZBalCust:  st.tBalCust.Add(challenge.Mul(newVec[wallet.IdxBalCust])),
		OpenZBalMerch: st.tBalMerch.Add(challenge.Mul(newVec[wallet.IdxBalMerch])),

		RangeCust:  st.rangeCust.respond(challenge),
		RangeMerch: st.rangeMerch.respond(challenge),
	}
	return proof, nil
}

// combinedChallenge hashes every sub-protocol's commit message, plus the
// public values the proof binds to (the revealed old nonce and old revLock,
// the claimed channelId, and epsilon), into the single Fiat-Shamir challenge every
// response below is computed against.
func combinedChallenge(st *epsilonCommitState, oldNonce, oldRevLock, channelID bilinear.Fr, epsilon int64) bilinear.Fr {
	t0Cust, t1Cust := st.rangeCust.bitTs()
	t0Merch, t1Merch := st.rangeMerch.bitTs()
	return combinedChallengeFromParts(
		st.sigA, st.openA,
		st.rangeCust.valueCommit, st.rangeMerch.valueCommit,
		t0Cust, t1Cust, t0Merch, t1Merch,
		oldNonce, oldRevLock, channelID, epsilon,
	)
}

func combinedChallengeFromParts(sigA bilinear.Gt, openA bilinear.G1, rangeCustCommit, rangeMerchCommit bilinear.G1,
	t0Cust, t1Cust, t0Merch, t1Merch []bilinear.G1,
	oldNonce, oldRevLock, channelID bilinear.Fr, epsilon int64) bilinear.Fr {

	ab := openA.Bytes()
	rc := rangeCustCommit.Bytes()
	rm := rangeMerchCommit.Bytes()
	onb := oldNonce.Bytes()
	orb := oldRevLock.Bytes()
	cidb := channelID.Bytes()
	epsFr := bilinear.FrFromInt64(epsilon)
	epsb := epsFr.Bytes()

	parts := [][]byte{sigA.Bytes(), ab[:], rc[:], rm[:], onb[:], orb[:], cidb[:], epsb[:]}
	for _, g := range t0Cust {
		b := g.Bytes()
		parts = append(parts, b[:])
	}
	for _, g := range t1Cust {
		b := g.Bytes()
		parts = append(parts, b[:])
	}
	for _, g := range t0Merch {
		b := g.Bytes()
		parts = append(parts, b[:])
	}
	for _, g := range t1Merch {
		b := g.Bytes()
		parts = append(parts, b[:])
	}

	return bilinear.HashToFr("zkbolt/nizkpay/combined-challenge", parts...)
}

// Verify checks a combined NIZKPayProof against pk (whose Y1s also serve
// as the commitment bases) and the new commitment newCommitment for the
// claimed epsilon.
func Verify(pk *blindsig.PublicKey, rangeBase bilinear.G1, rangeBits int,
	newCommitment vectorcommit.Commitment, epsilon int64, proof *Proof) error {

	if len(pk.Y2s) != wallet.ElemCount {
		return chanerr.Newf(chanerr.KindProofInvalid, "nizkpay: expected %d-element key, got %d", wallet.ElemCount, len(pk.Y2s))
	}
	if proof.OldSig.H.IsIdentity() {
		return chanerr.New(chanerr.KindProofInvalid, "nizkpay: old pay-token h is identity")
	}

	params := pk.CommitParams()

	t0Cust, t1Cust := bitTsFromProof(proof.RangeCust)
	t0Merch, t1Merch := bitTsFromProof(proof.RangeMerch)
	challenge := combinedChallengeFromParts(
		proof.SigA, proof.OpenA,
		proof.RangeCust.ValueCommit, proof.RangeMerch.ValueCommit,
		t0Cust, t1Cust, t0Merch, t1Merch,
		proof.OldNonce, proof.OldRevLock, proof.ChannelID, epsilon,
	)

	if err := verifySigHalf(pk, challenge, proof); err != nil {
		return err
	}
	if err := verifyOpenHalf(params, newCommitment, challenge, proof); err != nil {
		return err
	}

	epsFr := bilinear.FrFromInt64(epsilon)
	if !proof.SigZBalCust.Sub(proof.OpenZBalCust).Equal(challenge.Mul(epsFr)) {
		return chanerr.New(chanerr.KindProofInvalid, "nizkpay: customer balance does not conserve epsilon")
	}
	if !proof.OpenZBalMerch.Sub(proof.SigZBalMerch).Equal(challenge.Mul(epsFr)) {
		return chanerr.New(chanerr.KindProofInvalid, "nizkpay: merchant balance does not conserve epsilon")
	}

	if err := verifyRangeProof(rangeBase, params.Ys[wallet.IdxBalCust], proof.RangeCust, rangeBits, challenge); err != nil {
		return err
	}
	if err := verifyRangeProof(rangeBase, params.Ys[wallet.IdxBalMerch], proof.RangeMerch, rangeBits, challenge); err != nil {
		return err
	}

	return nil
}

func bitTsFromProof(rp *RangeProof) (t0s, t1s []bilinear.G1) {
	t0s = make([]bilinear.G1, len(rp.BitProofs))
	t1s = make([]bilinear.G1, len(rp.BitProofs))
	for k, bp := range rp.BitProofs {
		t0s[k], t1s[k] = bp.T0, bp.T1
	}
	return t0s, t1s
}

// verifySigHalf checks the signature-knowledge equation, mirroring
// blindsig.VerifyKnowledge's shape but with the old nonce, old revLock,
// and channelId as revealed indices, and the remaining responses threaded
// in from the combined proof instead of an independent challenge.
func verifySigHalf(pk *blindsig.PublicKey, challenge bilinear.Fr, proof *Proof) error {
	h := proof.OldSig.H

	lhs := bilinear.Pair(h, pk.X2).Exp(challenge)
	lhs = lhs.Mul(bilinear.Pair(h, bilinear.G2Generator()).Exp(proof.SigZStar))
	lhs = lhs.Mul(bilinear.Pair(h, pk.Y2s[wallet.IdxBalCust]).Exp(proof.SigZBalCust))
	lhs = lhs.Mul(bilinear.Pair(h, pk.Y2s[wallet.IdxBalMerch]).Exp(proof.SigZBalMerch))
	lhs = lhs.Mul(bilinear.Pair(h, pk.Y2s[wallet.IdxCloseTag]).Exp(proof.SigZClose))
	lhs = lhs.Mul(bilinear.Pair(h, pk.Y2s[wallet.IdxNonce]).Exp(challenge.Mul(proof.OldNonce)))
	lhs = lhs.Mul(bilinear.Pair(h, pk.Y2s[wallet.IdxRevLock]).Exp(challenge.Mul(proof.OldRevLock)))
	lhs = lhs.Mul(bilinear.Pair(h, pk.Y2s[wallet.IdxChannelID]).Exp(challenge.Mul(proof.ChannelID)))

	rhs := bilinear.Pair(proof.OldSig.HH, bilinear.G2Generator()).Exp(challenge).Mul(proof.SigA)

	if !lhs.Equal(rhs) {
		return chanerr.New(chanerr.KindProofInvalid, "nizkpay: signature-knowledge equation failed")
	}
	return nil
}

// verifyOpenHalf checks the opening-knowledge equation against
// newCommitment, with channelId and the (zero) close tag as the revealed
// indices. proof.ChannelID is the SAME value verifySigHalf already bound
// into the old wallet's signature-knowledge equation, so a mismatched
// channelId between old and new wallets fails verification rather than
// passing unchecked.
func verifyOpenHalf(params *vectorcommit.Params, newCommitment vectorcommit.Commitment, challenge bilinear.Fr, proof *Proof) error {
	cPrime := newCommitment.C
	cPrime = cPrime.Add(params.Ys[wallet.IdxChannelID].Mul(proof.ChannelID).Neg())
	// closeTag is revealed as the zero scalar: Y_close^0 is the identity,
	// so no term needs subtracting for it.

	lhs := params.G.Mul(proof.OpenZR)
	lhs = lhs.Add(params.Ys[wallet.IdxNonce].Mul(proof.OpenZNonce))
	lhs = lhs.Add(params.Ys[wallet.IdxRevLock].Mul(proof.OpenZRevLock))
	lhs = lhs.Add(params.Ys[wallet.IdxBalCust].Mul(proof.OpenZBalCust))
	lhs = lhs.Add(params.Ys[wallet.IdxBalMerch].Mul(proof.OpenZBalMerch))

	rhs := proof.OpenA.Add(cPrime.Mul(challenge))

	if !lhs.Equal(rhs) {
		return chanerr.New(chanerr.KindProofInvalid, "nizkpay: opening-knowledge equation failed")
	}
	return nil
}
