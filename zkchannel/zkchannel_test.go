package zkchannel

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/blindsig"
	"github.com/lightninglabs/zkbolt/chanerr"
	"github.com/lightninglabs/zkbolt/protocol"
	"github.com/lightninglabs/zkbolt/wallet"
)

// testPair builds a customer and merchant sharing a fresh channel, with no
// balances established yet.
func testPair(t *testing.T) (*CustomerState, *MerchantState) {
	t.Helper()

	sk, pk, err := blindsig.KeyGen(rand.Reader, wallet.ElemCount)
	require.NoError(t, err)

	rangeBase, err := bilinear.HashToG1("zkbolt-test/range-base", []byte("nothing up my sleeve"))
	require.NoError(t, err)

	custPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	merchPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	params := &ChannelParams{
		MerchPK:   pk,
		RangeBase: rangeBase,
		RangeBits: 16,
	}

	merchant := NewMerchantState(params, sk)
	state := merchant.ChannelState()

	customer, err := NewCustomerState(state, custPriv, merchPriv.PubKey())
	require.NoError(t, err)

	return customer, merchant
}

// establishAndActivate runs the Init and Activate rounds, leaving both
// parties in PhaseActivated with the given opening balances.
func establishAndActivate(t *testing.T, customer *CustomerState, merchant *MerchantState, b0Cust, b0Merch int64) {
	t.Helper()

	est, err := customer.Establish(rand.Reader, b0Cust, b0Merch)
	require.NoError(t, err)

	closeTok, payTok, err := merchant.HandleEstablish(rand.Reader, est)
	require.NoError(t, err)

	require.NoError(t, customer.Activate(closeTok, payTok))
	require.Equal(t, PhaseActivated, customer.Phase())
	require.Equal(t, PhaseActivated, merchant.Phase())
}

// runPay drives one full pay round (proof -> close-token -> revocation ->
// pay-token) to completion and returns the new balances.
func runPay(t *testing.T, customer *CustomerState, merchant *MerchantState, epsilon int64) (balCust, balMerch int64) {
	t.Helper()

	payMsg, err := customer.Pay(rand.Reader, epsilon)
	require.NoError(t, err)

	closeTok, err := merchant.HandlePay(rand.Reader, payMsg)
	require.NoError(t, err)

	require.NoError(t, customer.ReceiveCloseToken(closeTok))

	rev, err := customer.RevealRevocation()
	require.NoError(t, err)

	payTok, err := merchant.HandleRevocation(rev)
	require.NoError(t, err)

	require.NoError(t, customer.ReceivePayToken(payTok))

	return customer.Balances()
}

func TestHappyPath(t *testing.T) {
	customer, merchant := testPair(t)
	establishAndActivate(t, customer, merchant, 150, 10)

	balCust, balMerch := runPay(t, customer, merchant, 0)
	require.Equal(t, int64(150), balCust)
	require.Equal(t, int64(10), balMerch)
	require.Equal(t, PhaseOpen, customer.Phase())
	require.Equal(t, PhaseOpen, merchant.Phase())

	balCust, balMerch = runPay(t, customer, merchant, 20)
	require.Equal(t, int64(130), balCust)
	require.Equal(t, int64(30), balMerch)

	balCust, balMerch = runPay(t, customer, merchant, 10)
	require.Equal(t, int64(120), balCust)
	require.Equal(t, int64(40), balMerch)
}

func TestRefund(t *testing.T) {
	customer, merchant := testPair(t)
	establishAndActivate(t, customer, merchant, 50, 100)
	runPay(t, customer, merchant, 0)

	balCust, balMerch := runPay(t, customer, merchant, -30)
	require.Equal(t, int64(80), balCust)
	require.Equal(t, int64(70), balMerch)
}

func TestOverdraftRejected(t *testing.T) {
	customer, merchant := testPair(t)
	establishAndActivate(t, customer, merchant, 10, 0)
	runPay(t, customer, merchant, 0)

	_, err := customer.Pay(rand.Reader, 20)
	require.Error(t, err)
	require.True(t, chanerr.Is(err, chanerr.KindBalanceOverflow))

	_ = merchant
}

func TestReplayRejected(t *testing.T) {
	customer, merchant := testPair(t)
	establishAndActivate(t, customer, merchant, 150, 10)
	runPay(t, customer, merchant, 0)

	payMsg, err := customer.Pay(rand.Reader, 20)
	require.NoError(t, err)

	closeTok, err := merchant.HandlePay(rand.Reader, payMsg)
	require.NoError(t, err)
	require.NoError(t, customer.ReceiveCloseToken(closeTok))
	rev, err := customer.RevealRevocation()
	require.NoError(t, err)
	payTok, err := merchant.HandleRevocation(rev)
	require.NoError(t, err)
	require.NoError(t, customer.ReceivePayToken(payTok))

	// Resubmitting the identical (already-consumed) PayProof must be
	// rejected on its revealed old nonce, independent of anything else
	// in the message.
	_, err = merchant.HandlePay(rand.Reader, payMsg)
	require.Error(t, err)
	require.True(t, chanerr.Is(err, chanerr.KindNonceReplay))
}

func TestRevocationCheatingDetected(t *testing.T) {
	customer, merchant := testPair(t)
	establishAndActivate(t, customer, merchant, 150, 10)
	runPay(t, customer, merchant, 0)

	payMsg, err := customer.Pay(rand.Reader, 20)
	require.NoError(t, err)

	closeTok, err := merchant.HandlePay(rand.Reader, payMsg)
	require.NoError(t, err)

	require.NoError(t, customer.ReceiveCloseToken(closeTok))

	rev, err := customer.RevealRevocation()
	require.NoError(t, err)

	// Fabricate a revSecret that does not open the real revLock.
	var fake wallet.RevSecret
	copy(fake[:], bytes.Repeat([]byte{0xff}, 32))
	rev.RevSecret = fake

	_, err = merchant.HandleRevocation(rev)
	require.Error(t, err)
	require.True(t, chanerr.Is(err, chanerr.KindRevocationMismatch))

	// The customer's now-superseded close-token is still a good
	// signature on the state it was issued over; the channel just has
	// no pay-token for the new state until a valid revocation arrives.
	real, err := customer.RevealRevocation()
	require.NoError(t, err)
	payTok, err := merchant.HandleRevocation(real)
	require.NoError(t, err)
	require.NoError(t, customer.ReceivePayToken(payTok))
}

func TestCrossStateUnlinkability(t *testing.T) {
	customer, merchant := testPair(t)

	est, err := customer.Establish(rand.Reader, 150, 10)
	require.NoError(t, err)
	activationCommitment := est.Commitment

	closeTok, payTok, err := merchant.HandleEstablish(rand.Reader, est)
	require.NoError(t, err)
	require.NoError(t, customer.Activate(closeTok, payTok))

	payMsg, err := customer.Pay(rand.Reader, 0)
	require.NoError(t, err)

	require.False(t, payMsg.Commitment.C.Equal(activationCommitment.C),
		"post-unlink commitment must not equal the activation commitment")

	var protocolMsg protocol.Message = payMsg
	_ = protocolMsg
}
