// Package serde implements the deterministic byte-level serialization
// spec.md §6 requires for every wire and on-disk form: canonical group
// element and scalar encodings, signed 64-bit little-endian integers, and
// type-tagged, self-delimited blobs for persisted state. A blob's tag names
// the kind of value it holds; no format version is recorded.
//
// Grounded on lnwire/message.go's WriteMessage/ReadMessage framing
// (type/length header around an opaque payload) and elkrem/serdes.go's
// count-prefixed fixed-width record convention.
package serde
