package bilinear

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// Canonical encoded sizes for the Type-III group, as fixed by spec.md §6.
const (
	SizeFr = fr.Bytes // 32-byte big-endian scalars
	SizeG1 = bls12381.SizeOfG1AffineCompressed
	SizeG2 = bls12381.SizeOfG2AffineCompressed
	SizeGt = bls12381.SizeOfGT
)

// Fr is a scalar field element.
type Fr struct {
	e fr.Element
}

// FrFromInt64 builds an Fr from a small signed integer, used for balances
// and fixed tags such as H("close").
func FrFromInt64(v int64) Fr {
	var f Fr
	f.e.SetInt64(v)
	return f
}

// FrZero returns the additive identity.
func FrZero() Fr {
	var f Fr
	f.e.SetZero()
	return f
}

// RandomFr samples a uniform scalar using the supplied CSPRNG. The RNG is
// always an explicit parameter per spec.md §9 ("Global RNG" design note);
// this package never reaches for a package-level or thread-local source.
func RandomFr(rng io.Reader) (Fr, error) {
	// Sample 16 extra bytes of entropy beyond the 32-byte modulus so that
	// reduction mod r introduces no meaningful bias.
	buf := make([]byte, SizeFr+16)
	if _, err := io.ReadFull(rng, buf); err != nil {
		return Fr{}, fmt.Errorf("bilinear: sampling scalar: %w", err)
	}
	v := new(big.Int).SetBytes(buf)
	v.Mod(v, fr.Modulus())

	var f Fr
	f.e.SetBigInt(v)
	return f, nil
}

// Bytes returns the canonical 32-byte big-endian encoding.
func (f Fr) Bytes() [SizeFr]byte {
	return f.e.Bytes()
}

// FrFromBytes decodes a canonical scalar encoding, reducing modulo r so
// that any raw 32-byte value (e.g. a SHA-256 digest) maps deterministically
// into the field even if it exceeds the group order.
func FrFromBytes(b []byte) (Fr, error) {
	if len(b) != SizeFr {
		return Fr{}, fmt.Errorf("bilinear: scalar must be %d bytes, got %d", SizeFr, len(b))
	}
	v := new(big.Int).SetBytes(b)
	v.Mod(v, fr.Modulus())
	var f Fr
	f.e.SetBigInt(v)
	return f, nil
}

func (f Fr) Add(g Fr) Fr {
	var out Fr
	out.e.Add(&f.e, &g.e)
	return out
}

func (f Fr) Sub(g Fr) Fr {
	var out Fr
	out.e.Sub(&f.e, &g.e)
	return out
}

func (f Fr) Mul(g Fr) Fr {
	var out Fr
	out.e.Mul(&f.e, &g.e)
	return out
}

func (f Fr) Neg() Fr {
	var out Fr
	out.e.Neg(&f.e)
	return out
}

func (f Fr) Inverse() Fr {
	var out Fr
	out.e.Inverse(&f.e)
	return out
}

func (f Fr) IsZero() bool { return f.e.IsZero() }

func (f Fr) Equal(g Fr) bool { return f.e.Equal(&g.e) }

func (f Fr) BigInt() *big.Int {
	var i big.Int
	f.e.BigInt(&i)
	return &i
}

// HashToFr implements spec.md §4.1's hash_to_fr: SHA-256 of a
// domain-separated preimage, then reduction mod r. The domain tag prevents
// cross-protocol hash collisions between, e.g., channelId derivation and
// the Fiat-Shamir transcript.
func HashToFr(domain string, parts ...[]byte) Fr {
	h := sha256.New()
	h.Write([]byte(domain))
	for _, p := range parts {
		var lenPrefix [8]byte
		putUint64(lenPrefix[:], uint64(len(p)))
		h.Write(lenPrefix[:])
		h.Write(p)
	}
	digest := h.Sum(nil)

	v := new(big.Int).SetBytes(digest)
	v.Mod(v, fr.Modulus())

	var f Fr
	f.e.SetBigInt(v)
	return f
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v)
		v >>= 8
	}
}

// HClose is the cached H("close") tag described in spec.md §6; every
// close-message wallet carries this scalar as its closeTag element.
var HClose = HashToFr("zkbolt/close-tag")

// G1 is a point in the first source group.
type G1 struct {
	p bls12381.G1Affine
}

// G2 is a point in the second source group.
type G2 struct {
	p bls12381.G2Affine
}

// Gt is a point in the pairing target group.
type Gt struct {
	p bls12381.GT
}

var g1Gen, g2Gen = func() (bls12381.G1Affine, bls12381.G2Affine) {
	_, _, g1, g2 := bls12381.Generators()
	return g1, g2
}()

// G1Generator returns the fixed G1 base point shared by every channel.
func G1Generator() G1 { return G1{p: g1Gen} }

// G2Generator returns the fixed G2 base point shared by every channel.
func G2Generator() G2 { return G2{p: g2Gen} }

// G1ScalarBaseMul computes s*G1Generator().
func G1ScalarBaseMul(s Fr) G1 {
	return G1Generator().Mul(s)
}

// G2ScalarBaseMul computes s*G2Generator().
func G2ScalarBaseMul(s Fr) G2 {
	return G2Generator().Mul(s)
}

func (g G1) Add(h G1) G1 {
	var gj, hj bls12381.G1Jac
	gj.FromAffine(&g.p)
	hj.FromAffine(&h.p)
	gj.AddAssign(&hj)
	var out G1
	out.p.FromJacobian(&gj)
	return out
}

func (g G1) Neg() G1 {
	var out G1
	out.p.Neg(&g.p)
	return out
}

func (g G1) Mul(s Fr) G1 {
	var gj bls12381.G1Jac
	gj.FromAffine(&g.p)
	gj.ScalarMultiplication(&gj, s.BigInt())
	var out G1
	out.p.FromJacobian(&gj)
	return out
}

func (g G1) Equal(h G1) bool { return g.p.Equal(&h.p) }

func (g G1) IsIdentity() bool { return g.p.IsInfinity() }

func (g G1) Bytes() [SizeG1]byte { return g.p.Bytes() }

func G1FromBytes(b []byte) (G1, error) {
	var out G1
	if _, err := out.p.SetBytes(b); err != nil {
		return G1{}, fmt.Errorf("bilinear: decoding G1: %w", err)
	}
	return out, nil
}

// HashToG1 maps a domain-separated message onto a G1 point using the
// RFC 9380 hash-to-curve suite, producing a base with no known discrete
// log relation to any other public point. Used to derive "nothing up my
// sleeve" Pedersen bases, as opposed to RandomFr+G1ScalarBaseMul, which
// would leak the very relation a commitment's binding property depends on
// being unknown.
func HashToG1(domain string, msg []byte) (G1, error) {
	dst := []byte(domain)
	p, err := bls12381.HashToG1(msg, dst)
	if err != nil {
		return G1{}, fmt.Errorf("bilinear: hash-to-curve: %w", err)
	}
	return G1{p: p}, nil
}

func (g G2) Add(h G2) G2 {
	var gj, hj bls12381.G2Jac
	gj.FromAffine(&g.p)
	hj.FromAffine(&h.p)
	gj.AddAssign(&hj)
	var out G2
	out.p.FromJacobian(&gj)
	return out
}

func (g G2) Neg() G2 {
	var out G2
	out.p.Neg(&g.p)
	return out
}

func (g G2) Mul(s Fr) G2 {
	var gj bls12381.G2Jac
	gj.FromAffine(&g.p)
	gj.ScalarMultiplication(&gj, s.BigInt())
	var out G2
	out.p.FromJacobian(&gj)
	return out
}

func (g G2) Equal(h G2) bool { return g.p.Equal(&h.p) }

func (g G2) Bytes() [SizeG2]byte { return g.p.Bytes() }

func G2FromBytes(b []byte) (G2, error) {
	var out G2
	if _, err := out.p.SetBytes(b); err != nil {
		return G2{}, fmt.Errorf("bilinear: decoding G2: %w", err)
	}
	return out, nil
}

// Pair computes e(g1, g2) in the target group.
func Pair(g1 G1, g2 G2) Gt {
	res, err := bls12381.Pair([]bls12381.G1Affine{g1.p}, []bls12381.G2Affine{g2.p})
	if err != nil {
		// Pair only errors on mismatched slice lengths, which cannot
		// happen with the fixed-arity call above.
		panic(fmt.Sprintf("bilinear: pairing: %v", err))
	}
	return Gt{p: res}
}

// MultiPair computes the product ∏ e(g1[i], g2[i]) with a single final
// exponentiation. The NIZKPayProof and BlindSig verifiers do not use it;
// they call Pair once per term.
func MultiPair(g1 []G1, g2 []G2) (Gt, error) {
	if len(g1) != len(g2) {
		return Gt{}, fmt.Errorf("bilinear: mismatched multi-pairing arity: %d vs %d", len(g1), len(g2))
	}
	a := make([]bls12381.G1Affine, len(g1))
	b := make([]bls12381.G2Affine, len(g2))
	for i := range g1 {
		a[i] = g1[i].p
		b[i] = g2[i].p
	}
	res, err := bls12381.Pair(a, b)
	if err != nil {
		return Gt{}, fmt.Errorf("bilinear: multi-pairing: %w", err)
	}
	return Gt{p: res}, nil
}

func (g Gt) Mul(h Gt) Gt {
	var out Gt
	out.p.Mul(&g.p, &h.p)
	return out
}

func (g Gt) Exp(s Fr) Gt {
	var out Gt
	out.p.Exp(g.p, s.BigInt())
	return out
}

func (g Gt) Equal(h Gt) bool { return g.p.Equal(&h.p) }

func (g Gt) Bytes() []byte {
	b := g.p.Bytes()
	return b[:]
}

// GtFromBytes decodes a canonical target-group element encoding.
func GtFromBytes(b []byte) (Gt, error) {
	var out Gt
	if _, err := out.p.SetBytes(b); err != nil {
		return Gt{}, fmt.Errorf("bilinear: decoding Gt: %w", err)
	}
	return out, nil
}
