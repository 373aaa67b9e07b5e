// Package revocation implements the merchant's nonce and pay-token bookkeeping
// described in spec.md §4.6: a one-time-use nonce set and a map from a
// not-yet-disclosed revLock to the pay-token conditionally held for it. Both
// maps are scoped per channelId, per the Open Question decision recorded in
// DESIGN.md (spec.md §9 leaves the key shape to the implementer, noting only
// that the hex-string keys in the original are an artifact of a string-keyed
// map and not part of the design).
//
// Grounded on elkrem/serdes.go's fixed-key map bookkeeping style and the
// ordering discipline spec.md §4.6 lays out: verify proof, then record
// nonce, then record pending pay-token, then release on valid revocation.
package revocation
