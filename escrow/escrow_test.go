package escrow

import (
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func randKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv
}

func TestFundingPkScriptBuildsP2WSHOutput(t *testing.T) {
	custPriv, merchPriv := randKey(t), randKey(t)

	redeemScript, pkScript, err := FundingPkScript(custPriv.PubKey(), merchPriv.PubKey(), 100_000)
	require.NoError(t, err)
	require.NotEmpty(t, redeemScript)
	require.NotEmpty(t, pkScript)

	// P2WSH output scripts are OP_0 <32-byte hash>.
	require.Len(t, pkScript, 34)
}

func TestFundingPkScriptRejectsNonPositiveAmount(t *testing.T) {
	custPriv, merchPriv := randKey(t), randKey(t)
	_, _, err := FundingPkScript(custPriv.PubKey(), merchPriv.PubKey(), 0)
	require.Error(t, err)
}

func TestDisputeKeyDerivationMatchesPrivateKey(t *testing.T) {
	selfPriv := randKey(t)

	var revSecret [32]byte
	_, err := rand.Read(revSecret[:])
	require.NoError(t, err)

	disputePub := DeriveDisputePubKey(selfPriv.PubKey(), revSecret[:])
	disputePriv := DeriveDisputePrivKey(selfPriv, revSecret[:])

	require.True(t, disputePub.IsEqual(disputePriv.PubKey()))
}

func TestBuildMerchCloseTxHasTwoOutputs(t *testing.T) {
	custPriv, merchPriv := randKey(t), randKey(t)
	custDisputePriv := randKey(t)

	escrowTx := BuildEscrowTx(nil, []byte{0x00, 0x20}, 100_000, nil, 0)
	escrowOut := OutpointFromTx(escrowTx, 0)

	tx, selfScript, err := BuildMerchCloseTx(
		escrowOut, 144,
		merchPriv.PubKey(), custDisputePriv.PubKey(), custPriv.PubKey(),
		60_000, 40_000,
	)
	require.NoError(t, err)
	require.Len(t, tx.TxOut, 2)
	require.Equal(t, int64(60_000), tx.TxOut[0].Value)
	require.Equal(t, int64(40_000), tx.TxOut[1].Value)
	require.Equal(t, selfScript, tx.TxOut[0].PkScript)
	require.Equal(t, int32(defaultTxVersion), tx.Version)
}

func TestBuildCustCloseFromMerchCloseSingleOutput(t *testing.T) {
	custPriv := randKey(t)
	merchTx := wire.NewMsgTx(2)
	merchTx.AddTxOut(wire.NewTxOut(60_000, []byte{0x00}))
	outpoint := OutpointFromTx(merchTx, 0)

	tx, err := BuildCustCloseFromMerchClose(outpoint, nil, 60_000, custPriv.PubKey())
	require.NoError(t, err)
	require.Len(t, tx.TxOut, 1)
	require.Equal(t, int64(60_000), tx.TxOut[0].Value)
}
