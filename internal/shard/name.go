package shard

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	prefixTag = "temp_"
	shardTag  = "_shard_"
	extension = ".bin"
	minDigits = 6
)

// Prefix returns the fragment prefix for a source file: "temp_" followed
// by the base name with every '.' replaced by '_'.
func Prefix(sourcePath string) string {
	return prefixTag + strings.ReplaceAll(filepath.Base(sourcePath), ".", "_")
}

// FragmentName returns the logical name of fragment index under prefix.
func FragmentName(prefix string, index int) string {
	return fmt.Sprintf("%s%s%06d%s", prefix, shardTag, index, extension)
}

// ParseName splits a logical fragment name into its prefix and ordinal.
// The ordinal must be at least six ASCII digits. ok is false for any name
// that FragmentName could not have produced.
func ParseName(name string) (prefix string, index int, ok bool) {
	if strings.ContainsAny(name, `/\`) || !strings.HasSuffix(name, extension) {
		return "", 0, false
	}
	stem := strings.TrimSuffix(name, extension)
	at := strings.LastIndex(stem, shardTag)
	if at <= 0 {
		return "", 0, false
	}
	digits := stem[at+len(shardTag):]
	if len(digits) < minDigits {
		return "", 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return "", 0, false
	}
	// Reject ordinals with more leading zeros than %06d emits.
	if len(digits) > minDigits && digits[0] == '0' {
		return "", 0, false
	}
	return stem[:at], n, true
}

// PrefixOf returns the prefix of a logical fragment name, or "" if name is
// not a fragment name.
func PrefixOf(name string) string {
	prefix, _, ok := ParseName(name)
	if !ok {
		return ""
	}
	return prefix
}
