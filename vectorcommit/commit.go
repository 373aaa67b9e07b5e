package vectorcommit

import (
	"fmt"
	"io"

	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/chanerr"
)

// Params holds the commitment bases (g, Y_1..Y_l) shared by the customer
// and merchant for a channel. Bases are derived once at channel-param
// generation time and are immutable thereafter; every Commitment produced
// under a given Params is homomorphically compatible with every other.
type Params struct {
	G  bilinear.G1
	Ys []bilinear.G1
}

// Len returns the vector dimension l.
func (p *Params) Len() int { return len(p.Ys) }

// Commitment is a single G1 element: C = g^t * prod Y_i^{m_i}.
type Commitment struct {
	C bilinear.G1
}

// Commit computes Commit(messages; r). len(messages) must equal Len().
func (p *Params) Commit(messages []bilinear.Fr, r bilinear.Fr) (Commitment, error) {
	if len(messages) != len(p.Ys) {
		return Commitment{}, fmt.Errorf("vectorcommit: expected %d messages, got %d",
			len(p.Ys), len(messages))
	}
	acc := p.G.Mul(r)
	for i, m := range messages {
		acc = acc.Add(p.Ys[i].Mul(m))
	}
	return Commitment{C: acc}, nil
}

// Extend homomorphically folds in a single extra Y_index^{value} term
// without knowledge of the original randomness. The merchant uses this to
// turn a received commitment into C * Y_close^{H("close")} when issuing a
// close-token (spec.md §4.2).
func (p *Params) Extend(c Commitment, index int, value bilinear.Fr) (Commitment, error) {
	if index < 0 || index >= len(p.Ys) {
		return Commitment{}, fmt.Errorf("vectorcommit: index %d out of range [0,%d)", index, len(p.Ys))
	}
	return Commitment{C: c.C.Add(p.Ys[index].Mul(value))}, nil
}

// Remove is Extend's inverse: it subtracts Y_index^{value}, turning a
// close-tagged commitment back into a bare pay-message commitment.
func (p *Params) Remove(c Commitment, index int, value bilinear.Fr) (Commitment, error) {
	if index < 0 || index >= len(p.Ys) {
		return Commitment{}, fmt.Errorf("vectorcommit: index %d out of range [0,%d)", index, len(p.Ys))
	}
	return Commitment{C: c.C.Add(p.Ys[index].Mul(value).Neg())}, nil
}

// OpeningProof is a non-interactive Schnorr proof of knowledge of an
// opening (messages, r) of a Commitment, with the indices in RevealIndex
// disclosed in the clear via RevealValue.
type OpeningProof struct {
	A            bilinear.G1
	ZR           bilinear.Fr
	ZHidden       []bilinear.Fr // one response per hidden index, in ascending index order
	RevealIndex  []int
	RevealValue  []bilinear.Fr
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

func openingChallenge(domain string, a bilinear.G1, c bilinear.G1, revealIdx []int, revealVal []bilinear.Fr) bilinear.Fr {
	parts := [][]byte{}
	ab := a.Bytes()
	cb := c.Bytes()
	parts = append(parts, ab[:], cb[:])
	for i, idx := range revealIdx {
		var idxBytes [8]byte
		idxBytes[7] = byte(idx)
		vb := revealVal[i].Bytes()
		parts = append(parts, idxBytes[:], vb[:])
	}
	return bilinear.HashToFr(domain, parts...)
}

// ProveOpening produces a sigma-protocol proof of knowledge of (messages,
// r) such that c.C == Commit(messages; r), revealing messages at
// revealIndex in the clear. Used at establish time to reveal channelId,
// balCust, and balMerch while hiding nonce and revLock (spec.md §4.2).
func (p *Params) ProveOpening(rng io.Reader, c Commitment, messages []bilinear.Fr, r bilinear.Fr, revealIndex []int) (*OpeningProof, error) {
	if len(messages) != len(p.Ys) {
		return nil, fmt.Errorf("vectorcommit: expected %d messages, got %d", len(p.Ys), len(messages))
	}
	hidden := hiddenIndices(len(p.Ys), revealIndex)

	tr, err := bilinear.RandomFr(rng)
	if err != nil {
		return nil, err
	}
	a := p.G.Mul(tr)
	tHidden := make([]bilinear.Fr, len(hidden))
	for k, idx := range hidden {
		t, err := bilinear.RandomFr(rng)
		if err != nil {
			return nil, err
		}
		tHidden[k] = t
		a = a.Add(p.Ys[idx].Mul(t))
	}

	revealVal := make([]bilinear.Fr, len(revealIndex))
	for i, idx := range revealIndex {
		revealVal[i] = messages[idx]
	}

	challenge := openingChallenge("zkbolt/vectorcommit/opening", a, c.C, revealIndex, revealVal)

	zr := tr.Add(challenge.Mul(r))
	zHidden := make([]bilinear.Fr, len(hidden))
	for k, idx := range hidden {
		zHidden[k] = tHidden[k].Add(challenge.Mul(messages[idx]))
	}

	return &OpeningProof{
		A:           a,
		ZR:          zr,
		ZHidden:     zHidden,
		RevealIndex: revealIndex,
		RevealValue: revealVal,
	}, nil
}

// VerifyOpening checks a proof produced by ProveOpening against the total
// vector length l. It returns chanerr.KindProofInvalid on any mismatch.
func (p *Params) VerifyOpening(c Commitment, proof *OpeningProof) error {
	if len(proof.RevealIndex) != len(proof.RevealValue) {
		return chanerr.New(chanerr.KindProofInvalid, "vectorcommit: reveal index/value length mismatch")
	}
	hidden := hiddenIndices(len(p.Ys), proof.RevealIndex)
	if len(hidden) != len(proof.ZHidden) {
		return chanerr.New(chanerr.KindProofInvalid, "vectorcommit: hidden response count mismatch")
	}

	challenge := openingChallenge("zkbolt/vectorcommit/opening", proof.A, c.C, proof.RevealIndex, proof.RevealValue)

	// C' removes the publicly revealed terms, reducing the check to the
	// hidden sub-vector only.
	cPrime := c.C
	for i, idx := range proof.RevealIndex {
		cPrime = cPrime.Add(p.Ys[idx].Mul(proof.RevealValue[i]).Neg())
	}

	lhs := p.G.Mul(proof.ZR)
	for k, idx := range hidden {
		lhs = lhs.Add(p.Ys[idx].Mul(proof.ZHidden[k]))
	}

	rhs := proof.A.Add(cPrime.Mul(challenge))

	if !lhs.Equal(rhs) {
		return chanerr.New(chanerr.KindProofInvalid, "vectorcommit: opening proof equation failed")
	}
	return nil
}
