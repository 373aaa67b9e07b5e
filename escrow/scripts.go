package escrow

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/btcutil"
)

// witnessScriptHash wraps a redeem script in a version-0 P2WSH output
// script, per BIP-141.
func witnessScriptHash(redeemScript []byte) ([]byte, error) {
	bldr := txscript.NewScriptBuilder()
	bldr.AddOp(txscript.OP_0)
	scriptHash := sha256.Sum256(redeemScript)
	bldr.AddData(scriptHash[:])
	return bldr.Script()
}

// MultisigScript builds the 2-of-2 escrow redeem script securing a
// channel's funding output, per spec.md §5. Public keys are placed in
// descending lexicographic order of their compressed encodings, matching the
// order SpendMultisig pushes the corresponding signatures in.
func MultisigScript(custPub, merchPub *btcec.PublicKey) ([]byte, error) {
	a := custPub.SerializeCompressed()
	b := merchPub.SerializeCompressed()
	if bytes.Compare(a, b) == -1 {
		a, b = b, a
	}

	bldr := txscript.NewScriptBuilder()
	bldr.AddOp(txscript.OP_2)
	bldr.AddData(a)
	bldr.AddData(b)
	bldr.AddOp(txscript.OP_2)
	bldr.AddOp(txscript.OP_CHECKMULTISIG)
	return bldr.Script()
}

// FundingPkScript builds the escrow redeem script and its P2WSH funding
// output paying amt satoshis into the 2-of-2 multisig.
func FundingPkScript(custPub, merchPub *btcec.PublicKey, amt int64) (redeemScript []byte, pkScript []byte, err error) {
	if amt <= 0 {
		return nil, nil, fmt.Errorf("escrow: funding amount must be positive, got %d", amt)
	}
	redeemScript, err = MultisigScript(custPub, merchPub)
	if err != nil {
		return nil, nil, err
	}
	pkScript, err = witnessScriptHash(redeemScript)
	if err != nil {
		return nil, nil, err
	}
	return redeemScript, pkScript, nil
}

// SpendMultisig orders the two escrow signatures to match MultisigScript's
// sorted public key order, and prepends the OP_CHECKMULTISIG off-by-one nil
// stack element.
func SpendMultisig(redeemScript []byte, custPub, custSig, merchPub, merchSig []byte) [][]byte {
	witness := make([][]byte, 4)
	witness[0] = nil
	if bytes.Compare(custPub, merchPub) == -1 {
		witness[1] = merchSig
		witness[2] = custSig
	} else {
		witness[1] = custSig
		witness[2] = merchSig
	}
	witness[3] = redeemScript
	return witness
}

// SelfOrDisputeScript builds the "pay to self after a CSV delay, or pay
// immediately to the dispute key" redeem script shared by the merchant-close
// and customer-close outputs (spec.md §5). The dispute key is only ever
// spendable by whichever party learns the revSecret behind the disputeKey's
// homomorphic derivation (DeriveDisputePubKey below) — for a merchant-close
// output that is the customer (normal cooperative path); for a
// customer-close output that is the merchant, once a stale revSecret leaks
// on-chain.
//
//	OP_IF
//	    <disputeKey> OP_CHECKSIG
//	OP_ELSE
//	    <selfKey> OP_CHECKSIGVERIFY
//	    <csvDelay> OP_CHECKSEQUENCEVERIFY
//	OP_ENDIF
func SelfOrDisputeScript(csvDelay uint32, selfKey, disputeKey *btcec.PublicKey) ([]byte, error) {
	bldr := txscript.NewScriptBuilder()

	bldr.AddOp(txscript.OP_IF)
	bldr.AddData(disputeKey.SerializeCompressed())
	bldr.AddOp(txscript.OP_CHECKSIG)
	bldr.AddOp(txscript.OP_ELSE)
	bldr.AddData(selfKey.SerializeCompressed())
	bldr.AddOp(txscript.OP_CHECKSIGVERIFY)
	bldr.AddInt64(int64(csvDelay))
	bldr.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	bldr.AddOp(txscript.OP_DROP)
	bldr.AddOp(txscript.OP_ENDIF)

	return bldr.Script()
}

// UnencumberedScript builds a plain P2WKH output script, used for the
// counterparty's side of a close transaction, which is always spendable
// immediately.
func UnencumberedScript(key *btcec.PublicKey) ([]byte, error) {
	bldr := txscript.NewScriptBuilder()
	bldr.AddOp(txscript.OP_0)
	bldr.AddData(btcutil.Hash160(key.SerializeCompressed()))
	return bldr.Script()
}

// DeriveDisputePubKey computes the dispute public key reachable once
// revSecret is known: disputeKey = selfKey + revSecret*G. Per spec.md
// invariant 5, revSecret is the 32-byte preimage behind a wallet's revLock;
// anyone who observes it on-chain (because the customer broadcast a
// superseded close transaction) can derive the matching private key with
// DeriveDisputePrivKey and sweep the output.
func DeriveDisputePubKey(selfKey *btcec.PublicKey, revSecret []byte) *btcec.PublicKey {
	var revPoint btcec.JacobianPoint
	revScalar := new(big.Int).SetBytes(revSecret)
	revScalar.Mod(revScalar, btcec.S256().N)
	var k btcec.ModNScalar
	k.SetByteSlice(revScalar.Bytes())
	btcec.ScalarBaseMultNonConst(&k, &revPoint)

	var selfPoint btcec.JacobianPoint
	selfKey.AsJacobian(&selfPoint)

	var sum btcec.JacobianPoint
	btcec.AddNonConst(&selfPoint, &revPoint, &sum)
	sum.ToAffine()
	return btcec.NewPublicKey(&sum.X, &sum.Y)
}

// DeriveDisputePrivKey computes the private key for DeriveDisputePubKey's
// output, given selfPriv and the disclosed revSecret: disputePriv =
// selfPriv + revSecret mod N.
func DeriveDisputePrivKey(selfPriv *btcec.PrivateKey, revSecret []byte) *btcec.PrivateKey {
	revScalar := new(big.Int).SetBytes(revSecret)
	sum := new(big.Int).Add(selfPriv.ToECDSA().D, revScalar)
	sum.Mod(sum, btcec.S256().N)

	sumBytes := sum.FillBytes(make([]byte, 32))
	return btcec.PrivKeyFromBytes(sumBytes)
}
