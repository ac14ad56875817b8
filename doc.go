// Package exmdbpp implements the tagged-property data model, restriction
// filter tree, and small wire structures used by the exmdb protocol: a
// TCP-framed, length-prefixed RPC for administering a Microsoft
// Exchange-compatible message store.
//
// The low-level framing codec lives in the internal wire package; the
// client connection and request catalog live in the client package; the
// composed multi-round-trip operations live in the queries package.
package exmdbpp
