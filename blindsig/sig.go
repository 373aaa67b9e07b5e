package blindsig

import (
	"fmt"
	"io"

	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/chanerr"
	"github.com/lightninglabs/zkbolt/vectorcommit"
)

// SecretKey is sk = (x, y_1..y_l).
type SecretKey struct {
	X  bilinear.Fr
	Ys []bilinear.Fr
}

// PublicKey carries both the G1 and G2 images of every secret scalar: the
// G2 images support the verification pairing equation, the G1 images are
// the commitment bases the customer blinds against (they are the same
// bases vectorcommit.Params uses).
type PublicKey struct {
	X1  bilinear.G1
	X2  bilinear.G2
	Y1s []bilinear.G1
	Y2s []bilinear.G2
}

// CommitParams returns the vectorcommit.Params whose bases (g, Y1s) this
// key's blind signatures are compatible with.
func (pk *PublicKey) CommitParams() *vectorcommit.Params {
	return &vectorcommit.Params{G: bilinear.G1Generator(), Ys: pk.Y1s}
}

// Len returns the vector dimension l.
func (pk *PublicKey) Len() int { return len(pk.Y2s) }

// KeyGen samples a fresh PS keypair for an l-element message vector.
func KeyGen(rng io.Reader, l int) (*SecretKey, *PublicKey, error) {
	if l <= 0 {
		return nil, nil, fmt.Errorf("blindsig: vector length must be positive, got %d", l)
	}
	x, err := bilinear.RandomFr(rng)
	if err != nil {
		return nil, nil, err
	}
	ys := make([]bilinear.Fr, l)
	y1s := make([]bilinear.G1, l)
	y2s := make([]bilinear.G2, l)
	for i := 0; i < l; i++ {
		y, err := bilinear.RandomFr(rng)
		if err != nil {
			return nil, nil, err
		}
		ys[i] = y
		y1s[i] = bilinear.G1ScalarBaseMul(y)
		y2s[i] = bilinear.G2ScalarBaseMul(y)
	}

	sk := &SecretKey{X: x, Ys: ys}
	pk := &PublicKey{
		X1:  bilinear.G1ScalarBaseMul(x),
		X2:  bilinear.G2ScalarBaseMul(x),
		Y1s: y1s,
		Y2s: y2s,
	}
	return sk, pk, nil
}

// Signature is a PS signature (h, H), both elements of G1.
type Signature struct {
	H  bilinear.G1 // h = g^u
	HH bilinear.G1 // H = (X * C)^u  (pre-unblind) or h^{x+sum y_i m_i} (post-unblind)
}

// SignBlind signs a vector commitment without learning the committed
// vector: h = g^u, H = (X*C)^u for fresh random u.
func SignBlind(rng io.Reader, sk *SecretKey, commitment vectorcommit.Commitment) (*Signature, error) {
	u, err := bilinear.RandomFr(rng)
	if err != nil {
		return nil, err
	}
	x1 := bilinear.G1ScalarBaseMul(sk.X)
	base := x1.Add(commitment.C)
	return &Signature{
		H:  bilinear.G1Generator().Mul(u),
		HH: base.Mul(u),
	}, nil
}

// Unblind removes the commitment randomness t: (h, H) -> (h, H - h^t).
func Unblind(t bilinear.Fr, sig *Signature) *Signature {
	return &Signature{
		H:  sig.H,
		HH: sig.HH.Add(sig.H.Mul(t).Neg()),
	}
}

// Verify checks an unblinded signature against the plain message vector:
// e(h, X2 + sum Y2_i^{m_i}) =? e(H, g2). A signature with h == identity is
// always rejected, per spec.md §4.3.
func Verify(pk *PublicKey, messages []bilinear.Fr, sig *Signature) error {
	if len(messages) != len(pk.Y2s) {
		return chanerr.Newf(chanerr.KindSignatureInvalid,
			"blindsig: expected %d messages, got %d", len(pk.Y2s), len(messages))
	}
	if sig.H.IsIdentity() {
		return chanerr.New(chanerr.KindSignatureInvalid, "blindsig: h is identity")
	}

	exponent := pk.X2
	for i, m := range messages {
		exponent = exponent.Add(pk.Y2s[i].Mul(m))
	}

	lhs := bilinear.Pair(sig.H, exponent)
	rhs := bilinear.Pair(sig.HH, bilinear.G2Generator())
	if !lhs.Equal(rhs) {
		return chanerr.New(chanerr.KindSignatureInvalid, "blindsig: pairing verification equation failed")
	}
	return nil
}

// VerifyBlind verifies a still-blinded signature by unblinding it with t
// first, then checking it against the plain message vector. Exposed as a
// convenience matching spec.md §4.3; equivalent to Unblind then Verify.
func VerifyBlind(pk *PublicKey, messages []bilinear.Fr, t bilinear.Fr, sig *Signature) error {
	return Verify(pk, messages, Unblind(t, sig))
}

// Randomize multiplies both signature components by a fresh scalar,
// producing a signature indistinguishable from an independently sampled
// one on the same message vector (used to break linkage at unlink time).
func Randomize(rng io.Reader, sig *Signature) (*Signature, error) {
	rho, err := bilinear.RandomFr(rng)
	if err != nil {
		return nil, err
	}
	return &Signature{
		H:  sig.H.Mul(rho),
		HH: sig.HH.Mul(rho),
	}, nil
}
