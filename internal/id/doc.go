// Package id generates URL-safe identifiers.
//
// An identifier is the 16 bytes of a UUIDv4 encoded as unpadded base32
// (RFC 4648), lowercased: 26 characters, safe in URLs, file paths, and
// storage keys.
package id
