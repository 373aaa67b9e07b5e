package blindsig

import (
	"fmt"
	"io"

	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/chanerr"
)

// KnowledgeProof is a non-interactive sigma-protocol proof of knowledge of
// an unblinded signature's message vector, per spec.md §4.3: the prover
// commits to random exponents for each hidden message plus a single extra
// "g2" exponent (t*), and reveals the messages listed in RevealIndex in
// the clear. The witness for the extra exponent is fixed to zero for an
// honest prover, so ZStar equals t*; the verification equation still
// carries the e(h, g2)^ZStar term.
type KnowledgeProof struct {
	A           bilinear.Gt
	ZStar       bilinear.Fr
	ZHidden     []bilinear.Fr
	RevealIndex []int
	RevealValue []bilinear.Fr
}

func hiddenIndices(total int, reveal []int) []int {
	revealed := make(map[int]bool, len(reveal))
	for _, i := range reveal {
		revealed[i] = true
	}
	hidden := make([]int, 0, total-len(reveal))
	for i := 0; i < total; i++ {
		if !revealed[i] {
			hidden = append(hidden, i)
		}
	}
	return hidden
}

func sigChallenge(a bilinear.Gt, sig *Signature, revealIdx []int, revealVal []bilinear.Fr) bilinear.Fr {
	g1 := bilinear.G1Generator().Bytes()
	g2 := bilinear.G2Generator().Bytes()
	hb := sig.H.Bytes()
	hhb := sig.HH.Bytes()
	parts := [][]byte{g1[:], g2[:], hb[:], hhb[:], a.Bytes()}
	for i, idx := range revealIdx {
		var idxBytes [8]byte
		idxBytes[7] = byte(idx)
		vb := revealVal[i].Bytes()
		parts = append(parts, idxBytes[:], vb[:])
	}
	return bilinear.HashToFr("zkbolt/blindsig/sig-knowledge", parts...)
}

// ProveKnowledge proves knowledge of messages (an unblinded signature's
// opening) without revealing the entries not listed in revealIndex.
func ProveKnowledge(rng io.Reader, pk *PublicKey, messages []bilinear.Fr, sig *Signature, revealIndex []int) (*KnowledgeProof, error) {
	if len(messages) != len(pk.Y2s) {
		return nil, fmt.Errorf("blindsig: expected %d messages, got %d", len(pk.Y2s), len(messages))
	}
	hidden := hiddenIndices(len(messages), revealIndex)

	hG2 := bilinear.Pair(sig.H, bilinear.G2Generator())

	tStar, err := bilinear.RandomFr(rng)
	if err != nil {
		return nil, err
	}
	a := hG2.Exp(tStar)

	tHidden := make([]bilinear.Fr, len(hidden))
	hY2 := make([]bilinear.Gt, len(hidden))
	for k, idx := range hidden {
		t, err := bilinear.RandomFr(rng)
		if err != nil {
			return nil, err
		}
		tHidden[k] = t
		hY2[k] = bilinear.Pair(sig.H, pk.Y2s[idx])
		a = a.Mul(hY2[k].Exp(t))
	}

	revealVal := make([]bilinear.Fr, len(revealIndex))
	for i, idx := range revealIndex {
		revealVal[i] = messages[idx]
	}

	challenge := sigChallenge(a, sig, revealIndex, revealVal)

	zStar := tStar // + challenge.Mul(zero) for the fixed v=0 witness
	zHidden := make([]bilinear.Fr, len(hidden))
	for k, idx := range hidden {
		zHidden[k] = tHidden[k].Add(challenge.Mul(messages[idx]))
	}

	return &KnowledgeProof{
		A:           a,
		ZStar:       zStar,
		ZHidden:     zHidden,
		RevealIndex: revealIndex,
		RevealValue: revealVal,
	}, nil
}

// VerifyKnowledge checks a KnowledgeProof against a public signature
// instance (h, H) and public key.
func VerifyKnowledge(pk *PublicKey, sig *Signature, proof *KnowledgeProof) error {
	l := len(pk.Y2s)
	if len(proof.RevealIndex) != len(proof.RevealValue) {
		return chanerr.New(chanerr.KindProofInvalid, "blindsig: reveal index/value length mismatch")
	}
	hidden := hiddenIndices(l, proof.RevealIndex)
	if len(hidden) != len(proof.ZHidden) {
		return chanerr.New(chanerr.KindProofInvalid, "blindsig: hidden response count mismatch")
	}
	if sig.H.IsIdentity() {
		return chanerr.New(chanerr.KindProofInvalid, "blindsig: h is identity")
	}

	challenge := sigChallenge(proof.A, sig, proof.RevealIndex, proof.RevealValue)

	lhs := bilinear.Pair(sig.H, pk.X2).Exp(challenge)
	for k, idx := range hidden {
		term := bilinear.Pair(sig.H, pk.Y2s[idx]).Exp(proof.ZHidden[k])
		lhs = lhs.Mul(term)
	}
	lhs = lhs.Mul(bilinear.Pair(sig.H, bilinear.G2Generator()).Exp(proof.ZStar))
	for i, idx := range proof.RevealIndex {
		term := bilinear.Pair(sig.H, pk.Y2s[idx]).Exp(challenge.Mul(proof.RevealValue[i]))
		lhs = lhs.Mul(term)
	}

	rhs := bilinear.Pair(sig.HH, bilinear.G2Generator()).Exp(challenge).Mul(proof.A)

	if !lhs.Equal(rhs) {
		return chanerr.New(chanerr.KindProofInvalid, "blindsig: signature-knowledge equation failed")
	}
	return nil
}
