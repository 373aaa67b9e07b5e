// Package zkchannel owns the channel state machine of spec.md §4.6: establish,
// activate, unlink, pay, and the local bookkeeping around close. It is the
// top-level package the rest of this module's packages compose into —
// bilinear, vectorcommit, blindsig, and wallet supply the wallet vector and
// its blind signature; nizkpay supplies the combined payment proof;
// revocation supplies the merchant's nonce/pay-token bookkeeping; escrow
// supplies the on-chain transaction templates a higher layer signs once a
// CustomerState or MerchantState transition above returns successfully.
//
// Grounded on lnwallet.LightningChannel: one mutex-guarded struct per party
// per channel, pure-function transitions that return a message or a typed
// error without partially mutating state on failure, and an injected RNG
// on every call that samples randomness.
package zkchannel
