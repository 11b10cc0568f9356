// Package cipher seals will fragments with an authenticated cipher.
//
// # Key Derivation
//
// A user key is 32 bytes. It is derived deterministically from the user
// identifier, either with HKDF-SHA256 over the identifier and a passphrase
// (DeriveKey) or from the legacy single-byte derivation (LegacyByte, then
// ExpandByte). The same inputs always produce the same key, so a will can
// be reopened years after it was stored. An all-zero key is rejected.
//
// # Blob Format
//
// Every encrypted fragment has the layout:
//
//	[version 1][nonce 24][secretbox(tag 1 | size 8 BE | body)]
//
// The nonce is random, so sealing the same fragment twice yields different
// output. The tag names the compression applied to body (none, lz4, zstd)
// and size is the plaintext length. Data that does not shrink is stored
// uncompressed regardless of the configured tag.
//
// A wrong key or a modified blob fails authentication and returns
// errors.ErrCipher. No output file is written in that case.
package cipher
