package serde

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/chanerr"
)

// Tag identifies the concrete type a persisted or wire blob holds, written
// as the first byte of every self-delimited form (spec.md §6).
type Tag uint8

const (
	TagChannelParams Tag = iota + 1
	TagChannelToken
	TagCustomerState
	TagMerchantState
	TagMessage
)

// MaxBlobSize bounds any single versioned blob, guarding against a
// malformed length header causing an unbounded allocation.
const MaxBlobSize = 1 << 24 // 16 MiB

// WriteBlob frames payload as tag (1 byte) + length (4 bytes BE) + payload,
// the self-delimited form spec.md §6 requires for persisted state.
func WriteBlob(w io.Writer, tag Tag, payload []byte) error {
	var header [5]byte
	header[0] = byte(tag)
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadBlob reads a frame written by WriteBlob.
func ReadBlob(r io.Reader) (Tag, []byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, chanerr.Wrap(chanerr.KindSerializationError, "serde: reading blob header", err)
	}
	tag := Tag(header[0])
	n := binary.BigEndian.Uint32(header[1:])
	if n > MaxBlobSize {
		return 0, nil, chanerr.Newf(chanerr.KindSerializationError, "serde: blob length %d exceeds maximum", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, chanerr.Wrap(chanerr.KindSerializationError, "serde: reading blob payload", err)
	}
	return tag, payload, nil
}

// WriteInt64 writes a signed 64-bit little-endian integer, per spec.md §6
// ("All integers are signed 64-bit little-endian on the wire").
func WriteInt64(w io.Writer, v int64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	_, err := w.Write(b[:])
	return err
}

// ReadInt64 reads a value written by WriteInt64.
func ReadInt64(r io.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, chanerr.Wrap(chanerr.KindSerializationError, "serde: reading int64", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// WriteFr writes a scalar's canonical 32-byte big-endian encoding.
func WriteFr(w io.Writer, f bilinear.Fr) error {
	b := f.Bytes()
	_, err := w.Write(b[:])
	return err
}

// ReadFr reads a scalar written by WriteFr.
func ReadFr(r io.Reader) (bilinear.Fr, error) {
	var b [bilinear.SizeFr]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return bilinear.Fr{}, chanerr.Wrap(chanerr.KindSerializationError, "serde: reading scalar", err)
	}
	f, err := bilinear.FrFromBytes(b[:])
	if err != nil {
		return bilinear.Fr{}, chanerr.Wrap(chanerr.KindSerializationError, "serde: decoding scalar", err)
	}
	return f, nil
}

// WriteG1 writes a G1 point's canonical compressed encoding.
func WriteG1(w io.Writer, p bilinear.G1) error {
	b := p.Bytes()
	_, err := w.Write(b[:])
	return err
}

// ReadG1 reads a point written by WriteG1.
func ReadG1(r io.Reader) (bilinear.G1, error) {
	b := make([]byte, bilinear.SizeG1)
	if _, err := io.ReadFull(r, b); err != nil {
		return bilinear.G1{}, chanerr.Wrap(chanerr.KindSerializationError, "serde: reading G1 point", err)
	}
	p, err := bilinear.G1FromBytes(b)
	if err != nil {
		return bilinear.G1{}, chanerr.Wrap(chanerr.KindSerializationError, "serde: decoding G1 point", err)
	}
	return p, nil
}

// WriteG2 writes a G2 point's canonical compressed encoding.
func WriteG2(w io.Writer, p bilinear.G2) error {
	b := p.Bytes()
	_, err := w.Write(b[:])
	return err
}

// ReadG2 reads a point written by WriteG2.
func ReadG2(r io.Reader) (bilinear.G2, error) {
	b := make([]byte, bilinear.SizeG2)
	if _, err := io.ReadFull(r, b); err != nil {
		return bilinear.G2{}, chanerr.Wrap(chanerr.KindSerializationError, "serde: reading G2 point", err)
	}
	p, err := bilinear.G2FromBytes(b)
	if err != nil {
		return bilinear.G2{}, chanerr.Wrap(chanerr.KindSerializationError, "serde: decoding G2 point", err)
	}
	return p, nil
}

// WriteGt writes a target-group element's canonical encoding.
func WriteGt(w io.Writer, g bilinear.Gt) error {
	_, err := w.Write(g.Bytes())
	return err
}

// ReadGt reads a value written by WriteGt.
func ReadGt(r io.Reader) (bilinear.Gt, error) {
	b := make([]byte, bilinear.SizeGt)
	if _, err := io.ReadFull(r, b); err != nil {
		return bilinear.Gt{}, chanerr.Wrap(chanerr.KindSerializationError, "serde: reading Gt element", err)
	}
	g, err := bilinear.GtFromBytes(b)
	if err != nil {
		return bilinear.Gt{}, chanerr.Wrap(chanerr.KindSerializationError, "serde: decoding Gt element", err)
	}
	return g, nil
}

// WriteG1Vector writes a count-prefixed (1 byte) vector of G1 points.
func WriteG1Vector(w io.Writer, ps []bilinear.G1) error {
	if len(ps) > 255 {
		return fmt.Errorf("serde: G1 vector too long: %d", len(ps))
	}
	if _, err := w.Write([]byte{byte(len(ps))}); err != nil {
		return err
	}
	for _, p := range ps {
		if err := WriteG1(w, p); err != nil {
			return err
		}
	}
	return nil
}

// ReadG1Vector reads a vector written by WriteG1Vector.
func ReadG1Vector(r io.Reader) ([]bilinear.G1, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, chanerr.Wrap(chanerr.KindSerializationError, "serde: reading vector length", err)
	}
	out := make([]bilinear.G1, n[0])
	for i := range out {
		p, err := ReadG1(r)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// WriteG2Vector writes a count-prefixed (1 byte) vector of G2 points.
func WriteG2Vector(w io.Writer, ps []bilinear.G2) error {
	if len(ps) > 255 {
		return fmt.Errorf("serde: G2 vector too long: %d", len(ps))
	}
	if _, err := w.Write([]byte{byte(len(ps))}); err != nil {
		return err
	}
	for _, p := range ps {
		if err := WriteG2(w, p); err != nil {
			return err
		}
	}
	return nil
}

// ReadG2Vector reads a vector written by WriteG2Vector.
func ReadG2Vector(r io.Reader) ([]bilinear.G2, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, chanerr.Wrap(chanerr.KindSerializationError, "serde: reading vector length", err)
	}
	out := make([]bilinear.G2, n[0])
	for i := range out {
		p, err := ReadG2(r)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// WriteFrVector writes a count-prefixed (1 byte) vector of scalars.
func WriteFrVector(w io.Writer, vs []bilinear.Fr) error {
	if len(vs) > 255 {
		return fmt.Errorf("serde: scalar vector too long: %d", len(vs))
	}
	if _, err := w.Write([]byte{byte(len(vs))}); err != nil {
		return err
	}
	for _, v := range vs {
		if err := WriteFr(w, v); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrVector reads a vector written by WriteFrVector.
func ReadFrVector(r io.Reader) ([]bilinear.Fr, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, chanerr.Wrap(chanerr.KindSerializationError, "serde: reading vector length", err)
	}
	out := make([]bilinear.Fr, n[0])
	for i := range out {
		f, err := ReadFr(r)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// Write32 writes a fixed 32-byte array verbatim (nonce-sized opaque
// values, e.g. a revocation secret).
func Write32(w io.Writer, b [32]byte) error {
	_, err := w.Write(b[:])
	return err
}

// Read32 reads a value written by Write32.
func Read32(r io.Reader) ([32]byte, error) {
	var b [32]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return b, chanerr.Wrap(chanerr.KindSerializationError, "serde: reading 32-byte value", err)
	}
	return b, nil
}
