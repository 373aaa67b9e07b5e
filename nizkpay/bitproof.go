package nizkpay

import (
	"io"

	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/chanerr"
	"github.com/lightninglabs/zkbolt/serde"
)

// bitProof is a Cramer-Damgard-Schoenmakers disjunctive Schnorr proof that
// a Pedersen commitment bitCommit = hBase^r * valueBase^b opens to b = 0 or
// b = 1, without revealing which.
type bitProof struct {
	T0 bilinear.G1 // commit message for the b=0 branch
	T1 bilinear.G1 // commit message for the b=1 branch
	C0 bilinear.Fr // challenge share for the b=0 branch
	C1 bilinear.Fr // challenge share for the b=1 branch (C0+C1 == shared challenge)
	Z0 bilinear.Fr // response for the b=0 branch
	Z1 bilinear.Fr // response for the b=1 branch
}

// bitCommitState is a bit proof's commit-phase output plus the prover's
// secret state needed to finish the proof once the combined Fiat-Shamir
// challenge is known. Every NIZKPayProof shares one challenge across every
// bit of both range proofs, so the commit and response phases of this
// sub-protocol must be split exactly as they are here.
type bitCommitState struct {
	hBase, valueBase bilinear.G1
	bitCommit        bilinear.G1
	t0, t1           bilinear.G1
	realBranch       int
	r                bilinear.Fr // real randomness for bitCommit
	kReal            bilinear.Fr
	cFake            bilinear.Fr
	zFake            bilinear.Fr
}

// commitBit runs the commit phase: it fixes bitCommit and both branches'
// T messages without needing the eventual challenge.
func commitBit(rng io.Reader, hBase, valueBase bilinear.G1, bit int, r bilinear.Fr) (*bitCommitState, bilinear.G1, bilinear.G1, error) {
	bitCommit := hBase.Mul(r)
	if bit == 1 {
		bitCommit = bitCommit.Add(valueBase)
	}

	kReal, err := bilinear.RandomFr(rng)
	if err != nil {
		return nil, bilinear.G1{}, bilinear.G1{}, err
	}
	cFake, err := bilinear.RandomFr(rng)
	if err != nil {
		return nil, bilinear.G1{}, bilinear.G1{}, err
	}
	zFake, err := bilinear.RandomFr(rng)
	if err != nil {
		return nil, bilinear.G1{}, bilinear.G1{}, err
	}

	var fakeStatement bilinear.G1
	if bit == 0 {
		fakeStatement = bitCommit.Add(valueBase.Neg())
	} else {
		fakeStatement = bitCommit
	}
	tFake := hBase.Mul(zFake).Add(fakeStatement.Mul(cFake).Neg())
	tReal := hBase.Mul(kReal)

	st := &bitCommitState{
		hBase: hBase, valueBase: valueBase, bitCommit: bitCommit,
		realBranch: bit, r: r, kReal: kReal, cFake: cFake, zFake: zFake,
	}
	if bit == 0 {
		st.t0, st.t1 = tReal, tFake
	} else {
		st.t0, st.t1 = tFake, tReal
	}
	return st, st.t0, st.t1, nil
}

// respond finishes the proof once the combined challenge is known.
func (st *bitCommitState) respond(challenge bilinear.Fr) *bitProof {
	cReal := challenge.Sub(st.cFake)
	zReal := st.kReal.Add(cReal.Mul(st.r))

	proof := &bitProof{T0: st.t0, T1: st.t1}
	if st.realBranch == 0 {
		proof.C0, proof.Z0 = cReal, zReal
		proof.C1, proof.Z1 = st.cFake, st.zFake
	} else {
		proof.C0, proof.Z0 = st.cFake, st.zFake
		proof.C1, proof.Z1 = cReal, zReal
	}
	return proof
}

// verifyBit checks that proof's two challenge shares sum to challenge and
// that both branch equations hold.
func verifyBit(hBase, valueBase, bitCommit bilinear.G1, proof *bitProof, challenge bilinear.Fr) error {
	if !proof.C0.Add(proof.C1).Equal(challenge) {
		return chanerr.New(chanerr.KindProofInvalid, "nizkpay: bit proof challenge split mismatch")
	}

	lhs0 := hBase.Mul(proof.Z0)
	rhs0 := proof.T0.Add(bitCommit.Mul(proof.C0))
	if !lhs0.Equal(rhs0) {
		return chanerr.New(chanerr.KindProofInvalid, "nizkpay: bit proof branch-0 equation failed")
	}

	statement1 := bitCommit.Add(valueBase.Neg())
	lhs1 := hBase.Mul(proof.Z1)
	rhs1 := proof.T1.Add(statement1.Mul(proof.C1))
	if !lhs1.Equal(rhs1) {
		return chanerr.New(chanerr.KindProofInvalid, "nizkpay: bit proof branch-1 equation failed")
	}

	return nil
}

// DecodeBitProof reads a bitProof written field-by-field by a caller (e.g.
// package protocol, which cannot name this unexported type directly but
// can hold and wire up the value this returns).
func DecodeBitProof(r io.Reader) (*bitProof, error) {
	t0, err := serde.ReadG1(r)
	if err != nil {
		return nil, err
	}
	t1, err := serde.ReadG1(r)
	if err != nil {
		return nil, err
	}
	c0, err := serde.ReadFr(r)
	if err != nil {
		return nil, err
	}
	c1, err := serde.ReadFr(r)
	if err != nil {
		return nil, err
	}
	z0, err := serde.ReadFr(r)
	if err != nil {
		return nil, err
	}
	z1, err := serde.ReadFr(r)
	if err != nil {
		return nil, err
	}
	return &bitProof{T0: t0, T1: t1, C0: c0, C1: c1, Z0: z0, Z1: z1}, nil
}
