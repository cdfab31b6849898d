package prefix

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// Algorithm names the digest function used to derive prefix segments.
type Algorithm string

const (
	MD5     Algorithm = "md5"
	SHA1    Algorithm = "sha1"
	SHA256  Algorithm = "sha256"
	BLAKE2b Algorithm = "blake2b"
	XXHash  Algorithm = "xxhash"
)

// Algorithms lists the supported digest functions.
func Algorithms() []Algorithm {
	return []Algorithm{MD5, SHA1, SHA256, BLAKE2b, XXHash}
}

// HexLen returns the number of hex characters the algorithm's digest has, or
// zero for an unknown algorithm.
func (a Algorithm) HexLen() int {
	switch a {
	case MD5:
		return md5.Size * 2
	case SHA1:
		return sha1.Size * 2
	case SHA256:
		return sha256.Size * 2
	case BLAKE2b:
		return blake2b.Size256 * 2
	case XXHash:
		return 16
	}

	return 0
}

// HexDigest returns the lowercase hex digest of the UTF-8 bytes of s. It
// returns an empty string for an unknown algorithm.
func (a Algorithm) HexDigest(s string) string {
	data := []byte(s)

	switch a {
	case MD5:
		sum := md5.Sum(data)
		return hex.EncodeToString(sum[:])
	case SHA1:
		sum := sha1.Sum(data)
		return hex.EncodeToString(sum[:])
	case SHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	case BLAKE2b:
		sum := blake2b.Sum256(data)
		return hex.EncodeToString(sum[:])
	case XXHash:
		// Zero-padded so that leading zero nibbles still count as segments.
		h := strconv.FormatUint(xxhash.Sum64(data), 16)
		return zeros[:16-len(h)] + h
	}

	return ""
}

const zeros = "0000000000000000"
