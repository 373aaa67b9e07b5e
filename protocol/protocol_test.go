package protocol

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/blindsig"
	"github.com/lightninglabs/zkbolt/nizkpay"
	"github.com/lightninglabs/zkbolt/wallet"
	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T) (*btcec.PrivateKey, *btcec.PrivateKey) {
	t.Helper()
	cust, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	merch, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return cust, merch
}

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	var buf bytes.Buffer
	_, err := WriteMessage(&buf, msg)
	require.NoError(t, err)

	got, err := ReadMessage(&buf)
	require.NoError(t, err)
	require.Equal(t, msg.MsgType(), got.MsgType())
	return got
}

func TestChannelTokenRoundTrip(t *testing.T) {
	cust, merch := testKeys(t)
	_, pk, err := blindsig.KeyGen(rand.Reader, wallet.ElemCount)
	require.NoError(t, err)

	token := &ChannelToken{CustPubKey: cust.PubKey(), MerchPubKey: merch.PubKey(), MerchPS: pk}

	var buf bytes.Buffer
	require.NoError(t, token.Encode(&buf))

	var decoded ChannelToken
	require.NoError(t, decoded.Decode(&buf))
	require.True(t, token.CustPubKey.IsEqual(decoded.CustPubKey))
	require.True(t, token.MerchPubKey.IsEqual(decoded.MerchPubKey))

	id1, err := token.ChannelID()
	require.NoError(t, err)
	id2, err := decoded.ChannelID()
	require.NoError(t, err)
	require.True(t, id1.Equal(id2))
}

func TestChannelStateRoundTrip(t *testing.T) {
	_, pk, err := blindsig.KeyGen(rand.Reader, wallet.ElemCount)
	require.NoError(t, err)
	rangeBase, err := bilinear.HashToG1("zkbolt/protocol/test-range-base", []byte("t"))
	require.NoError(t, err)

	msg := &ChannelState{MerchPS: pk, RangeBase: rangeBase, RangeBits: 32}
	got := roundTrip(t, msg).(*ChannelState)
	require.True(t, got.RangeBase.Equal(rangeBase))
	require.Equal(t, uint32(32), got.RangeBits)
}

func TestCloseTokenAndPayTokenRoundTrip(t *testing.T) {
	sig := &blindsig.Signature{H: bilinear.G1Generator(), HH: bilinear.G1Generator()}

	gotClose := roundTrip(t, &CloseToken{Sig: sig}).(*CloseToken)
	require.True(t, gotClose.Sig.H.Equal(sig.H))

	gotPay := roundTrip(t, &PayToken{Sig: sig}).(*PayToken)
	require.True(t, gotPay.Sig.HH.Equal(sig.HH))
}

func TestRevocationRoundTrip(t *testing.T) {
	var secret [32]byte
	_, err := rand.Read(secret[:])
	require.NoError(t, err)
	lock, err := bilinear.RandomFr(rand.Reader)
	require.NoError(t, err)

	msg := &Revocation{RevLock: lock, RevSecret: secret}
	got := roundTrip(t, msg).(*Revocation)
	require.True(t, got.RevLock.Equal(lock))
	require.Equal(t, secret, got.RevSecret)
}

func TestEstablishRoundTrip(t *testing.T) {
	cust, merch := testKeys(t)
	_, pk, err := blindsig.KeyGen(rand.Reader, wallet.ElemCount)
	require.NoError(t, err)
	params := pk.CommitParams()

	w := &wallet.State{BalCust: 100, BalMerch: 0}
	chanID, err := bilinear.RandomFr(rand.Reader)
	require.NoError(t, err)
	w.ChannelID = chanID
	nonce, err := wallet.NewNonce(rand.Reader)
	require.NoError(t, err)
	w.Nonce = nonce
	_, revLock, err := wallet.NewRevocation(rand.Reader)
	require.NoError(t, err)
	w.RevLock = revLock

	r, err := bilinear.RandomFr(rand.Reader)
	require.NoError(t, err)
	commitment, err := params.Commit(w.Vector(), r)
	require.NoError(t, err)

	proof, err := params.ProveOpening(rand.Reader, commitment, w.Vector(), r, []int{wallet.IdxChannelID, wallet.IdxBalCust, wallet.IdxBalMerch})
	require.NoError(t, err)
	require.NoError(t, params.VerifyOpening(commitment, proof))

	msg := &Establish{
		Token:      ChannelToken{CustPubKey: cust.PubKey(), MerchPubKey: merch.PubKey(), MerchPS: pk},
		Commitment: commitment,
		Proof:      proof,
	}
	got := roundTrip(t, msg).(*Establish)
	require.True(t, got.Commitment.C.Equal(commitment.C))
	require.NoError(t, params.VerifyOpening(got.Commitment, got.Proof))
}

func TestPayRoundTrip(t *testing.T) {
	sk, pk, err := blindsig.KeyGen(rand.Reader, wallet.ElemCount)
	require.NoError(t, err)
	params := pk.CommitParams()
	rangeBase, err := bilinear.HashToG1("zkbolt/protocol/test-range-base", []byte("pay"))
	require.NoError(t, err)

	oldWallet := &wallet.State{BalCust: 200, BalMerch: 50}
	chanID, err := bilinear.RandomFr(rand.Reader)
	require.NoError(t, err)
	oldWallet.ChannelID = chanID
	nonce, err := wallet.NewNonce(rand.Reader)
	require.NoError(t, err)
	oldWallet.Nonce = nonce
	_, revLock, err := wallet.NewRevocation(rand.Reader)
	require.NoError(t, err)
	oldWallet.RevLock = revLock

	r, err := bilinear.RandomFr(rand.Reader)
	require.NoError(t, err)
	commitment, err := params.Commit(oldWallet.Vector(), r)
	require.NoError(t, err)
	blindSig, err := blindsig.SignBlind(rand.Reader, sk, commitment)
	require.NoError(t, err)
	oldSig := blindsig.Unblind(r, blindSig)

	newNonce, err := wallet.NewNonce(rand.Reader)
	require.NoError(t, err)
	_, newRevLock, err := wallet.NewRevocation(rand.Reader)
	require.NoError(t, err)
	newWallet := &wallet.State{
		ChannelID: oldWallet.ChannelID,
		Nonce:     newNonce,
		RevLock:   newRevLock,
		BalCust:   150,
		BalMerch:  100,
	}

	newRandomness, err := bilinear.RandomFr(rand.Reader)
	require.NoError(t, err)
	newCommitment, err := params.Commit(newWallet.Vector(), newRandomness)
	require.NoError(t, err)

	proof, err := nizkpay.Prove(rand.Reader, pk, rangeBase, 16, oldWallet, oldSig, newWallet, newRandomness, 50)
	require.NoError(t, err)

	msg := &Pay{Proof: proof, Commitment: newCommitment, Epsilon: 50}
	got := roundTrip(t, msg).(*Pay)
	require.Equal(t, int64(50), got.Epsilon)
	require.NoError(t, nizkpay.Verify(pk, rangeBase, 16, got.Commitment, got.Epsilon, got.Proof))
}
