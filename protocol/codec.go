package protocol

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/blindsig"
	"github.com/lightninglabs/zkbolt/chanerr"
	"github.com/lightninglabs/zkbolt/nizkpay"
	"github.com/lightninglabs/zkbolt/serde"
	"github.com/lightninglabs/zkbolt/vectorcommit"
)

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, chanerr.Wrap(chanerr.KindSerializationError, "protocol: reading uint32", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// secp256k1 public keys are fixed 33-byte compressed points.
const pubKeySize = 33

func writePubKey(w io.Writer, pub *btcec.PublicKey) error {
	b := pub.SerializeCompressed()
	_, err := w.Write(b)
	return err
}

func readPubKey(r io.Reader) (*btcec.PublicKey, error) {
	b := make([]byte, pubKeySize)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, chanerr.Wrap(chanerr.KindSerializationError, "protocol: reading public key", err)
	}
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, chanerr.Wrap(chanerr.KindSerializationError, "protocol: decoding public key", err)
	}
	return pub, nil
}

func writePSPublicKey(w io.Writer, pk *blindsig.PublicKey) error {
	if err := serde.WriteG1(w, pk.X1); err != nil {
		return err
	}
	if err := serde.WriteG2(w, pk.X2); err != nil {
		return err
	}
	if err := serde.WriteG1Vector(w, pk.Y1s); err != nil {
		return err
	}
	return serde.WriteG2Vector(w, pk.Y2s)
}

func readPSPublicKey(r io.Reader) (*blindsig.PublicKey, error) {
	x1, err := serde.ReadG1(r)
	if err != nil {
		return nil, err
	}
	x2, err := serde.ReadG2(r)
	if err != nil {
		return nil, err
	}
	y1s, err := serde.ReadG1Vector(r)
	if err != nil {
		return nil, err
	}
	y2s, err := serde.ReadG2Vector(r)
	if err != nil {
		return nil, err
	}
	return &blindsig.PublicKey{X1: x1, X2: x2, Y1s: y1s, Y2s: y2s}, nil
}

func writeSignature(w io.Writer, sig *blindsig.Signature) error {
	if err := serde.WriteG1(w, sig.H); err != nil {
		return err
	}
	return serde.WriteG1(w, sig.HH)
}

func readSignature(r io.Reader) (*blindsig.Signature, error) {
	h, err := serde.ReadG1(r)
	if err != nil {
		return nil, err
	}
	hh, err := serde.ReadG1(r)
	if err != nil {
		return nil, err
	}
	return &blindsig.Signature{H: h, HH: hh}, nil
}

func writeIntVector(w io.Writer, idx []int) error {
	if len(idx) > 255 {
		return chanerr.Newf(chanerr.KindSerializationError, "protocol: index vector too long: %d", len(idx))
	}
	if _, err := w.Write([]byte{byte(len(idx))}); err != nil {
		return err
	}
	for _, i := range idx {
		if _, err := w.Write([]byte{byte(i)}); err != nil {
			return err
		}
	}
	return nil
}

func readIntVector(r io.Reader) ([]int, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, chanerr.Wrap(chanerr.KindSerializationError, "protocol: reading index vector length", err)
	}
	out := make([]int, n[0])
	for i := range out {
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, chanerr.Wrap(chanerr.KindSerializationError, "protocol: reading index", err)
		}
		out[i] = int(b[0])
	}
	return out, nil
}

func writeOpeningProof(w io.Writer, p *vectorcommit.OpeningProof) error {
	if err := serde.WriteG1(w, p.A); err != nil {
		return err
	}
	if err := serde.WriteFr(w, p.ZR); err != nil {
		return err
	}
	if err := serde.WriteFrVector(w, p.ZHidden); err != nil {
		return err
	}
	if err := writeIntVector(w, p.RevealIndex); err != nil {
		return err
	}
	return serde.WriteFrVector(w, p.RevealValue)
}

func readOpeningProof(r io.Reader) (*vectorcommit.OpeningProof, error) {
	a, err := serde.ReadG1(r)
	if err != nil {
		return nil, err
	}
	zr, err := serde.ReadFr(r)
	if err != nil {
		return nil, err
	}
	zHidden, err := serde.ReadFrVector(r)
	if err != nil {
		return nil, err
	}
	revealIdx, err := readIntVector(r)
	if err != nil {
		return nil, err
	}
	revealVal, err := serde.ReadFrVector(r)
	if err != nil {
		return nil, err
	}
	return &vectorcommit.OpeningProof{
		A: a, ZR: zr, ZHidden: zHidden, RevealIndex: revealIdx, RevealValue: revealVal,
	}, nil
}

// writeRangeProof encodes a nizkpay.RangeProof field-by-field. RangeProof's
// BitProofs elements are an unexported sub-type; their exported T0/T1/C0/
// C1/Z0/Z1 fields are still reachable through the already-constructed
// pointers this package holds, so no accessor needs adding upstream.
func writeRangeProof(w io.Writer, rp *nizkpay.RangeProof) error {
	if err := serde.WriteG1(w, rp.ValueCommit); err != nil {
		return err
	}
	if err := serde.WriteG1Vector(w, rp.BitCommits); err != nil {
		return err
	}
	if len(rp.BitProofs) > 255 {
		return chanerr.Newf(chanerr.KindSerializationError, "protocol: range proof has too many bits: %d", len(rp.BitProofs))
	}
	if _, err := w.Write([]byte{byte(len(rp.BitProofs))}); err != nil {
		return err
	}
	for _, bp := range rp.BitProofs {
		if err := serde.WriteG1(w, bp.T0); err != nil {
			return err
		}
		if err := serde.WriteG1(w, bp.T1); err != nil {
			return err
		}
		if err := serde.WriteFr(w, bp.C0); err != nil {
			return err
		}
		if err := serde.WriteFr(w, bp.C1); err != nil {
			return err
		}
		if err := serde.WriteFr(w, bp.Z0); err != nil {
			return err
		}
		if err := serde.WriteFr(w, bp.Z1); err != nil {
			return err
		}
	}
	return nil
}

func readRangeProof(r io.Reader) (*nizkpay.RangeProof, error) {
	valueCommit, err := serde.ReadG1(r)
	if err != nil {
		return nil, err
	}
	bitCommits, err := serde.ReadG1Vector(r)
	if err != nil {
		return nil, err
	}
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, chanerr.Wrap(chanerr.KindSerializationError, "protocol: reading bit proof count", err)
	}

	rp := &nizkpay.RangeProof{ValueCommit: valueCommit, BitCommits: bitCommits}
	for i := 0; i < int(n[0]); i++ {
		bp, err := nizkpay.DecodeBitProof(r)
		if err != nil {
			return nil, err
		}
		rp.BitProofs = append(rp.BitProofs, bp)
	}
	return rp, nil
}

func writeNizkPayProof(w io.Writer, p *nizkpay.Proof) error {
	if err := writeSignature(w, p.OldSig); err != nil {
		return err
	}
	if err := serde.WriteFr(w, p.OldNonce); err != nil {
		return err
	}
	if err := serde.WriteFr(w, p.OldRevLock); err != nil {
		return err
	}
	if err := serde.WriteGt(w, p.SigA); err != nil {
		return err
	}
	for _, f := range []bilinear.Fr{p.SigZStar, p.SigZBalCust, p.SigZBalMerch, p.SigZClose} {
		if err := serde.WriteFr(w, f); err != nil {
			return err
		}
	}
	if err := serde.WriteFr(w, p.ChannelID); err != nil {
		return err
	}
	if err := serde.WriteG1(w, p.OpenA); err != nil {
		return err
	}
	for _, f := range []bilinear.Fr{p.OpenZR, p.OpenZNonce, p.OpenZRevLock, p.OpenZBalCust, p.OpenZBalMerch} {
		if err := serde.WriteFr(w, f); err != nil {
			return err
		}
	}
	if err := writeRangeProof(w, p.RangeCust); err != nil {
		return err
	}
	return writeRangeProof(w, p.RangeMerch)
}

func readNizkPayProof(r io.Reader) (*nizkpay.Proof, error) {
	oldSig, err := readSignature(r)
	if err != nil {
		return nil, err
	}
	oldNonce, err := serde.ReadFr(r)
	if err != nil {
		return nil, err
	}
	oldRevLock, err := serde.ReadFr(r)
	if err != nil {
		return nil, err
	}
	sigA, err := serde.ReadGt(r)
	if err != nil {
		return nil, err
	}
	scalars := make([]bilinear.Fr, 4)
	for i := range scalars {
		scalars[i], err = serde.ReadFr(r)
		if err != nil {
			return nil, err
		}
	}
	channelID, err := serde.ReadFr(r)
	if err != nil {
		return nil, err
	}
	openA, err := serde.ReadG1(r)
	if err != nil {
		return nil, err
	}
	openScalars := make([]bilinear.Fr, 5)
	for i := range openScalars {
		openScalars[i], err = serde.ReadFr(r)
		if err != nil {
			return nil, err
		}
	}
	rangeCust, err := readRangeProof(r)
	if err != nil {
		return nil, err
	}
	rangeMerch, err := readRangeProof(r)
	if err != nil {
		return nil, err
	}

	return &nizkpay.Proof{
		OldSig:     oldSig,
		OldNonce:   oldNonce,
		OldRevLock: oldRevLock,

		SigA:         sigA,
		SigZStar:     scalars[0],
		SigZBalCust:  scalars[1],
		SigZBalMerch: scalars[2],
		SigZClose:    scalars[3],

		ChannelID: channelID,

		OpenA:         openA,
		OpenZR:        openScalars[0],
		OpenZNonce:    openScalars[1],
		OpenZRevLock:  openScalars[2],
		OpenZBalCust:  openScalars[3],
		OpenZBalMerch: openScalars[4],

		RangeCust:  rangeCust,
		RangeMerch: rangeMerch,
	}, nil
}
