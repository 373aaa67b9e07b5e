package protocol

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/blindsig"
	"github.com/lightninglabs/zkbolt/nizkpay"
	"github.com/lightninglabs/zkbolt/serde"
	"github.com/lightninglabs/zkbolt/vectorcommit"
)

// ChannelToken is the customer-facing bundle spec.md §3 describes: once the
// customer's long-term key is inserted it fixes channelId via
// hash_to_fr(serialize(token)).
type ChannelToken struct {
	CustPubKey *btcec.PublicKey
	MerchPubKey *btcec.PublicKey
	MerchPS    *blindsig.PublicKey
}

// Encode writes the token in the fixed field order ChannelID derives from.
func (t *ChannelToken) Encode(w io.Writer) error {
	if err := writePubKey(w, t.CustPubKey); err != nil {
		return err
	}
	if err := writePubKey(w, t.MerchPubKey); err != nil {
		return err
	}
	return writePSPublicKey(w, t.MerchPS)
}

// Decode is Encode's inverse.
func (t *ChannelToken) Decode(r io.Reader) error {
	cust, err := readPubKey(r)
	if err != nil {
		return err
	}
	merch, err := readPubKey(r)
	if err != nil {
		return err
	}
	ps, err := readPSPublicKey(r)
	if err != nil {
		return err
	}
	t.CustPubKey, t.MerchPubKey, t.MerchPS = cust, merch, ps
	return nil
}

// ChannelID derives channelId = hash_to_fr(serialize(token)), per spec.md
// invariant 3.
func (t *ChannelToken) ChannelID() (bilinear.Fr, error) {
	var buf bytes.Buffer
	if err := t.Encode(&buf); err != nil {
		return bilinear.Fr{}, err
	}
	return bilinear.HashToFr("zkbolt/protocol/channel-id", buf.Bytes()), nil
}

// ChannelState is the Init message: the merchant broadcasts its public
// channel parameters and PS public key.
type ChannelState struct {
	MerchPS   *blindsig.PublicKey
	RangeBase bilinear.G1
	RangeBits uint32
}

func (m *ChannelState) MsgType() MessageType { return MsgChannelState }

func (m *ChannelState) Encode(w io.Writer) error {
	if err := writePSPublicKey(w, m.MerchPS); err != nil {
		return err
	}
	if err := serde.WriteG1(w, m.RangeBase); err != nil {
		return err
	}
	return writeUint32(w, m.RangeBits)
}

func (m *ChannelState) Decode(r io.Reader) error {
	ps, err := readPSPublicKey(r)
	if err != nil {
		return err
	}
	base, err := serde.ReadG1(r)
	if err != nil {
		return err
	}
	bits, err := readUint32(r)
	if err != nil {
		return err
	}
	m.MerchPS, m.RangeBase, m.RangeBits = ps, base, bits
	return nil
}

// Establish is the customer's opening message: its channel token, the
// initial commitment C0, and the opening proof revealing channelId,
// balCust, and balMerch while hiding nonce and revLock.
type Establish struct {
	Token      ChannelToken
	Commitment vectorcommit.Commitment
	Proof      *vectorcommit.OpeningProof
}

func (m *Establish) MsgType() MessageType { return MsgEstablish }

func (m *Establish) Encode(w io.Writer) error {
	if err := m.Token.Encode(w); err != nil {
		return err
	}
	if err := serde.WriteG1(w, m.Commitment.C); err != nil {
		return err
	}
	return writeOpeningProof(w, m.Proof)
}

func (m *Establish) Decode(r io.Reader) error {
	if err := m.Token.Decode(r); err != nil {
		return err
	}
	c, err := serde.ReadG1(r)
	if err != nil {
		return err
	}
	proof, err := readOpeningProof(r)
	if err != nil {
		return err
	}
	m.Commitment = vectorcommit.Commitment{C: c}
	m.Proof = proof
	return nil
}

// CloseToken carries a blind PS signature on a wallet with the close tag
// set, authorizing the customer to broadcast a closing transaction at that
// state.
type CloseToken struct {
	Sig *blindsig.Signature
}

func (m *CloseToken) MsgType() MessageType { return MsgCloseToken }
func (m *CloseToken) Encode(w io.Writer) error { return writeSignature(w, m.Sig) }
func (m *CloseToken) Decode(r io.Reader) error {
	sig, err := readSignature(r)
	if err != nil {
		return err
	}
	m.Sig = sig
	return nil
}

// PayToken carries a blind PS signature on the wallet without the close
// tag, required to generate the next pay-proof.
type PayToken struct {
	Sig *blindsig.Signature
}

func (m *PayToken) MsgType() MessageType { return MsgPayToken }
func (m *PayToken) Encode(w io.Writer) error { return writeSignature(w, m.Sig) }
func (m *PayToken) Decode(r io.Reader) error {
	sig, err := readSignature(r)
	if err != nil {
		return err
	}
	m.Sig = sig
	return nil
}

// Pay is PayProof(ε): the combined NIZKPayProof, the new commitment, and
// the signed epsilon moved from customer to merchant (negative for a
// refund). Covers both the mandatory Unlink payment (ε=0) and every
// subsequent Pay.
type Pay struct {
	Proof      *nizkpay.Proof
	Commitment vectorcommit.Commitment
	Epsilon    int64
}

func (m *Pay) MsgType() MessageType { return MsgPay }

func (m *Pay) Encode(w io.Writer) error {
	if err := writeNizkPayProof(w, m.Proof); err != nil {
		return err
	}
	if err := serde.WriteG1(w, m.Commitment.C); err != nil {
		return err
	}
	return serde.WriteInt64(w, m.Epsilon)
}

func (m *Pay) Decode(r io.Reader) error {
	proof, err := readNizkPayProof(r)
	if err != nil {
		return err
	}
	c, err := serde.ReadG1(r)
	if err != nil {
		return err
	}
	eps, err := serde.ReadInt64(r)
	if err != nil {
		return err
	}
	m.Proof = proof
	m.Commitment = vectorcommit.Commitment{C: c}
	m.Epsilon = eps
	return nil
}

// Revocation discloses the previous state's revLock/revSecret pair,
// authorizing the merchant to release the corresponding pay-token.
type Revocation struct {
	RevLock   bilinear.Fr
	RevSecret [32]byte
}

func (m *Revocation) MsgType() MessageType { return MsgRevocation }

func (m *Revocation) Encode(w io.Writer) error {
	if err := serde.WriteFr(w, m.RevLock); err != nil {
		return err
	}
	return serde.Write32(w, m.RevSecret)
}

func (m *Revocation) Decode(r io.Reader) error {
	lock, err := serde.ReadFr(r)
	if err != nil {
		return err
	}
	secret, err := serde.Read32(r)
	if err != nil {
		return err
	}
	m.RevLock, m.RevSecret = lock, secret
	return nil
}
