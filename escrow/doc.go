// Package escrow binds the channel's off-chain balances to an on-chain
// 2-of-2 multisig output, per spec.md §5 (EscrowBinding). It builds the
// escrow funding output, the merchant's CSV-timelocked close path, the two
// customer-close variants, and a merchant-dispute transaction that claims a
// customer's escrow output after it reveals a spent revLock's revSecret
// on-chain.
//
// Grounded on lnwallet/script_utils.go's genMultiSigScript/witnessScriptHash
// (the funding output), commitScriptToSelf/deriveRevocationPubkey (the
// CSV-or-revocation spend path, repurposed here so disclosing a wallet's
// revSecret derives the dispute private key homomorphically rather than a
// commitment-revocation key), using the btcsuite/btcd stack for
// scripts, transactions, and BIP-143 witness signatures.
package escrow
