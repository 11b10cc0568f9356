// Package vault stores a will as encrypted fragments under obfuscated
// names and restores it from its fragment map.
//
// Store splits the source (package shard), seals every fragment with the
// user key (package cipher) and writes it to the storage directory as
// sys_<random hex>.dat. The fragment map, from logical fragment name to
// obfuscated path, is the only way back from the storage directory to the
// will; it is persisted by MapStore as
//
//	<map dir>/map_<user>_<source mtime>.json
//
// Plaintext fragments only ever exist inside a private work directory that
// is removed when Store or Retrieve returns.
package vault
