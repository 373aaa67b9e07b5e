package nizkpay

import (
	"io"

	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/chanerr"
)

// RangeBits is the default bit width spec.md §4.5 fixes RANGE_BITS to.
// zkchannel.NewMerchantState applies it when ChannelParams.RangeBits is
// unset; Prove and Verify always take the bit width as an argument.
const RangeBits = 32

// RangeProof proves a value committed in ValueCommit lies in
// [0, 2^bits) by decomposing it into bits, each individually proven to be
// 0 or 1, recombined homomorphically.
type RangeProof struct {
	ValueCommit bilinear.G1
	BitCommits  []bilinear.G1
	BitProofs   []*bitProof
}

// rangeCommitState is a range proof's commit-phase output plus the prover's
// secret per-bit state, held until the combined challenge is known.
type rangeCommitState struct {
	hBase, valueBase bilinear.G1
	valueCommit      bilinear.G1
	bitCommits       []bilinear.G1
	bitStates        []*bitCommitState
}

// commitRangeProof runs the commit phase of a range proof: it decomposes
// value into bits wide bits, fixes valueCommit and every bit's commitment
// and T-messages, all without needing the eventual combined challenge.
// valueNonce is the exact pre-challenge randomness already used elsewhere in
// the combined proof for this witness (e.g. the balCust Schnorr nonce):
// reusing it here is what links this range proof to the opening proof's
// claim about the same balance, per DESIGN.md.
func commitRangeProof(rng io.Reader, hBase, valueBase bilinear.G1, value int64,
	bits int, valueNonce bilinear.Fr) (*rangeCommitState, error) {

	if value < 0 {
		return nil, chanerr.Newf(chanerr.KindBalanceOverflow, "nizkpay: value %d is negative", value)
	}
	if value >= int64(1)<<uint(bits) {
		return nil, chanerr.Newf(chanerr.KindBalanceOverflow, "nizkpay: value %d exceeds %d-bit range", value, bits)
	}

	bitVals := make([]int, bits)
	v := value
	for k := 0; k < bits; k++ {
		bitVals[k] = int(v & 1)
		v >>= 1
	}

	bitRands := make([]bilinear.Fr, bits)
	sumRand := bilinear.FrZero()
	for k := 0; k < bits-1; k++ {
		r, err := bilinear.RandomFr(rng)
		if err != nil {
			return nil, err
		}
		bitRands[k] = r
		weight := bilinear.FrFromInt64(int64(1) << uint(k))
		sumRand = sumRand.Add(weight.Mul(r))
	}
	// The final bit's randomness is fixed so that the weighted sum of all
	// bit randomness equals valueNonce exactly, making
	// sum(2^k * BitCommit_k) == ValueCommit a pure structural identity.
	lastWeight := bilinear.FrFromInt64(int64(1) << uint(bits-1))
	bitRands[bits-1] = valueNonce.Sub(sumRand).Mul(lastWeight.Inverse())

	valueCommit := hBase.Mul(valueNonce).Add(valueBase.Mul(bilinear.FrFromInt64(value)))

	bitCommits := make([]bilinear.G1, bits)
	bitStates := make([]*bitCommitState, bits)
	for k := 0; k < bits; k++ {
		st, _, _, err := commitBit(rng, hBase, valueBase, bitVals[k], bitRands[k])
		if err != nil {
			return nil, err
		}
		bitCommits[k] = st.bitCommit
		bitStates[k] = st
	}

	return &rangeCommitState{
		hBase: hBase, valueBase: valueBase,
		valueCommit: valueCommit,
		bitCommits:  bitCommits,
		bitStates:   bitStates,
	}, nil
}

// bitTs returns, for every bit, its (T0, T1) commit messages in order, for
// folding into the combined Fiat-Shamir transcript.
func (st *rangeCommitState) bitTs() (t0s, t1s []bilinear.G1) {
	t0s = make([]bilinear.G1, len(st.bitStates))
	t1s = make([]bilinear.G1, len(st.bitStates))
	for k, bs := range st.bitStates {
		t0s[k], t1s[k] = bs.t0, bs.t1
	}
	return t0s, t1s
}

// respond finishes every bit proof once the combined challenge is known.
func (st *rangeCommitState) respond(challenge bilinear.Fr) *RangeProof {
	proofs := make([]*bitProof, len(st.bitStates))
	for k, bs := range st.bitStates {
		proofs[k] = bs.respond(challenge)
	}
	return &RangeProof{
		ValueCommit: st.valueCommit,
		BitCommits:  st.bitCommits,
		BitProofs:   proofs,
	}
}

// verifyRangeProof checks every bit proof and the structural recombination
// of the bit commitments into ValueCommit.
func verifyRangeProof(hBase, valueBase bilinear.G1, proof *RangeProof, bits int, challenge bilinear.Fr) error {
	if len(proof.BitCommits) != bits || len(proof.BitProofs) != bits {
		return chanerr.Newf(chanerr.KindProofInvalid, "nizkpay: expected %d range bits, got %d/%d",
			bits, len(proof.BitCommits), len(proof.BitProofs))
	}

	var recombined bilinear.G1
	first := true
	for k := 0; k < bits; k++ {
		if err := verifyBit(hBase, valueBase, proof.BitCommits[k], proof.BitProofs[k], challenge); err != nil {
			return err
		}
		weight := bilinear.FrFromInt64(int64(1) << uint(k))
		term := proof.BitCommits[k].Mul(weight)
		if first {
			recombined = term
			first = false
		} else {
			recombined = recombined.Add(term)
		}
	}

	if !recombined.Equal(proof.ValueCommit) {
		return chanerr.New(chanerr.KindProofInvalid, "nizkpay: bit commitments do not recombine to value commitment")
	}
	return nil
}
