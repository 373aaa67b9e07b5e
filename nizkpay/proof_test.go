package nizkpay

import (
	"crypto/rand"
	"testing"

	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/blindsig"
	"github.com/lightninglabs/zkbolt/wallet"
	"github.com/stretchr/testify/require"
)

const testRangeBits = 16

func testSetup(t *testing.T) (*blindsig.SecretKey, *blindsig.PublicKey, bilinear.G1) {
	t.Helper()
	sk, pk, err := blindsig.KeyGen(rand.Reader, wallet.ElemCount)
	require.NoError(t, err)

	rangeBase, err := bilinear.HashToG1("zkbolt/nizkpay/test-range-base", []byte("test"))
	require.NoError(t, err)

	return sk, pk, rangeBase
}

func issuePayToken(t *testing.T, sk *blindsig.SecretKey, pk *blindsig.PublicKey, w *wallet.State) *blindsig.Signature {
	t.Helper()
	params := pk.CommitParams()
	r, err := bilinear.RandomFr(rand.Reader)
	require.NoError(t, err)
	commitment, err := params.Commit(w.Vector(), r)
	require.NoError(t, err)
	blindSig, err := blindsig.SignBlind(rand.Reader, sk, commitment)
	require.NoError(t, err)
	sig := blindsig.Unblind(r, blindSig)
	require.NoError(t, blindsig.Verify(pk, w.Vector(), sig))
	randomized, err := blindsig.Randomize(rand.Reader, sig)
	require.NoError(t, err)
	return randomized
}

func freshWallet(t *testing.T, custBal, merchBal int64) *wallet.State {
	t.Helper()
	channelID, err := bilinear.RandomFr(rand.Reader)
	require.NoError(t, err)
	nonce, err := wallet.NewNonce(rand.Reader)
	require.NoError(t, err)
	_, revLock, err := wallet.NewRevocation(rand.Reader)
	require.NoError(t, err)
	return &wallet.State{
		ChannelID: channelID,
		Nonce:     nonce,
		RevLock:   revLock,
		BalCust:   custBal,
		BalMerch:  merchBal,
	}
}

func payWallet(t *testing.T, old *wallet.State) *wallet.State {
	t.Helper()
	nonce, err := wallet.NewNonce(rand.Reader)
	require.NoError(t, err)
	_, revLock, err := wallet.NewRevocation(rand.Reader)
	require.NoError(t, err)
	return &wallet.State{
		ChannelID: old.ChannelID,
		Nonce:     nonce,
		RevLock:   revLock,
		BalCust:   old.BalCust,
		BalMerch:  old.BalMerch,
	}
}

func TestProveVerifyAcceptsValidPayment(t *testing.T) {
	sk, pk, rangeBase := testSetup(t)
	params := pk.CommitParams()

	oldWallet := freshWallet(t, 1000, 500)
	oldSig := issuePayToken(t, sk, pk, oldWallet)

	newWallet := payWallet(t, oldWallet)
	var epsilon int64 = 100
	newWallet.BalCust -= epsilon
	newWallet.BalMerch += epsilon

	newRandomness, err := bilinear.RandomFr(rand.Reader)
	require.NoError(t, err)
	newCommitment, err := params.Commit(newWallet.Vector(), newRandomness)
	require.NoError(t, err)

	proof, err := Prove(rand.Reader, pk, rangeBase, testRangeBits, oldWallet, oldSig, newWallet, newRandomness, epsilon)
	require.NoError(t, err)

	err = Verify(pk, rangeBase, testRangeBits, newCommitment, epsilon, proof)
	require.NoError(t, err)
}

func TestProveVerifyAcceptsRefund(t *testing.T) {
	sk, pk, rangeBase := testSetup(t)
	params := pk.CommitParams()

	oldWallet := freshWallet(t, 900, 600)
	oldSig := issuePayToken(t, sk, pk, oldWallet)

	newWallet := payWallet(t, oldWallet)
	var epsilon int64 = -50
	newWallet.BalCust -= epsilon
	newWallet.BalMerch += epsilon

	newRandomness, err := bilinear.RandomFr(rand.Reader)
	require.NoError(t, err)
	newCommitment, err := params.Commit(newWallet.Vector(), newRandomness)
	require.NoError(t, err)

	proof, err := Prove(rand.Reader, pk, rangeBase, testRangeBits, oldWallet, oldSig, newWallet, newRandomness, epsilon)
	require.NoError(t, err)

	err = Verify(pk, rangeBase, testRangeBits, newCommitment, epsilon, proof)
	require.NoError(t, err)
}

func TestVerifyRejectsTamperedEpsilon(t *testing.T) {
	sk, pk, rangeBase := testSetup(t)
	params := pk.CommitParams()

	oldWallet := freshWallet(t, 1000, 500)
	oldSig := issuePayToken(t, sk, pk, oldWallet)

	newWallet := payWallet(t, oldWallet)
	var epsilon int64 = 100
	newWallet.BalCust -= epsilon
	newWallet.BalMerch += epsilon

	newRandomness, err := bilinear.RandomFr(rand.Reader)
	require.NoError(t, err)
	newCommitment, err := params.Commit(newWallet.Vector(), newRandomness)
	require.NoError(t, err)

	proof, err := Prove(rand.Reader, pk, rangeBase, testRangeBits, oldWallet, oldSig, newWallet, newRandomness, epsilon)
	require.NoError(t, err)

	err = Verify(pk, rangeBase, testRangeBits, newCommitment, epsilon+1, proof)
	require.Error(t, err)
}

func TestProveRejectsOutOfRangeBalance(t *testing.T) {
	sk, pk, rangeBase := testSetup(t)

	oldWallet := freshWallet(t, 1<<20, 0)
	oldSig := issuePayToken(t, sk, pk, oldWallet)

	newWallet := payWallet(t, oldWallet)
	var epsilon int64 = -(1 << 18) // drives balCust above 2^testRangeBits
	newWallet.BalCust -= epsilon
	newWallet.BalMerch += epsilon

	newRandomness, err := bilinear.RandomFr(rand.Reader)
	require.NoError(t, err)

	_, err = Prove(rand.Reader, pk, rangeBase, testRangeBits, oldWallet, oldSig, newWallet, newRandomness, epsilon)
	require.Error(t, err)
}

func TestVerifyRejectsMismatchedNewCommitment(t *testing.T) {
	sk, pk, rangeBase := testSetup(t)
	params := pk.CommitParams()

	oldWallet := freshWallet(t, 1000, 500)
	oldSig := issuePayToken(t, sk, pk, oldWallet)

	newWallet := payWallet(t, oldWallet)
	var epsilon int64 = 100
	newWallet.BalCust -= epsilon
	newWallet.BalMerch += epsilon

	newRandomness, err := bilinear.RandomFr(rand.Reader)
	require.NoError(t, err)
	newCommitment, err := params.Commit(newWallet.Vector(), newRandomness)
	require.NoError(t, err)

	proof, err := Prove(rand.Reader, pk, rangeBase, testRangeBits, oldWallet, oldSig, newWallet, newRandomness, epsilon)
	require.NoError(t, err)

	otherRandomness, err := bilinear.RandomFr(rand.Reader)
	require.NoError(t, err)
	otherCommitment, err := params.Commit(newWallet.Vector(), otherRandomness)
	require.NoError(t, err)
	require.NotEqual(t, newCommitment, otherCommitment)

	err = Verify(pk, rangeBase, testRangeBits, otherCommitment, epsilon, proof)
	require.Error(t, err)
}
