package zkchannel

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightninglabs/zkbolt/bilinear"
	"github.com/lightninglabs/zkbolt/blindsig"
)

// ChannelParams is the public bundle spec.md §3 describes: the merchant's
// PS public key (which doubles as the commitment bases, per
// blindsig.PublicKey.CommitParams), the range-proof base and bit-width, the
// merchant's long-term transaction key, and the CSV delay package escrow's
// close-transaction scripts lock the self-output under. Constructed once
// and shared by reference, the way lnwallet.Config shares *chaincfg.Params.
type ChannelParams struct {
	MerchPK    *blindsig.PublicKey
	RangeBase  bilinear.G1
	RangeBits  int
	MerchTxPub *btcec.PublicKey
	CSVDelay   uint32
}

// Phase is the local-only protocol-phase tag supplementing spec.md §4.6:
// the core "has no notion of channel closed" for on-chain purposes, but
// still needs to reject an out-of-order message with a typed error rather
// than silently corrupt state. Grounded on original_source/src/channels.rs's
// ChannelStatus (Established -> CustActivated -> PendingClose/ConfirmedClose).
type Phase uint8

const (
	// PhaseInit is the customer/merchant's state before the
	// establish round-trip has produced a signed initial wallet.
	PhaseInit Phase = iota

	// PhaseActivated is the state after close_token0/pay_token0 are
	// verified, before the mandatory unlink payment completes.
	PhaseActivated

	// PhaseOpen is the state after unlink has completed; any number
	// of further payments may proceed.
	PhaseOpen

	// PhaseClosed is set once a party has initiated channel closure
	// locally; further pay/unlink calls are rejected.
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "Init"
	case PhaseActivated:
		return "Activated"
	case PhaseOpen:
		return "Open"
	case PhaseClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Intermediary is the opaque extension hook of spec.md §9 ("dynamic
// extension sub-objects... model as a trait/capability with init/output,
// dispatched by a single tagged variant at the edge; the core takes the
// capability by reference and never downcasts"), realizing
// original_source/src/extensions/extension.rs. A CustomerState calls Init
// before building a payment proof and Output after, passing the payment
// amount and a nil info slice; the core never inspects what an
// Intermediary does with either.
type Intermediary interface {
	// Init is called with the signed payment amount before a PayProof
	// is built.
	Init(amount int64, info []byte) error

	// Output is called after a PayProof is built. CustomerState.Pay
	// only checks its error: the returned bytes are discarded and do
	// not reach Pay's caller.
	Output(info []byte) ([]byte, error)
}
