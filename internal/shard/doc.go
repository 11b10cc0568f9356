// Package shard partitions a file into ordered fragments and reassembles
// them.
//
// Split divides a byte range into three parts, recursively, until the
// requested depth is reached or a range is shorter than MinSplitLength.
// The last part of every division takes the remainder. Fragments are named
//
//	<prefix>_shard_<ordinal %06d>.bin
//
// where prefix is derived from the source file name (see Prefix) and the
// ordinal is the fragment's position in the file. Merge discovers the
// fragments of a prefix, orders them by ordinal and concatenates them.
// Concatenating the fragments of a split in ordinal order reproduces the
// source byte for byte.
package shard
