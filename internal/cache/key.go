package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// KeyLen is the length of a cache key in hex characters. 32 characters keep
// 128 bits of the SHA-256 digest, which is far beyond what collision safety
// requires here while keeping paths readable.
const KeyLen = 32

// Key identifies a compiled artifact. It is the truncated lowercase hex
// SHA-256 digest of the normalized source, and doubles as the artifact's
// file name under the cache root.
type Key string

func (k Key) String() string {
	return string(k)
}

// ParseKey reports whether s is a well-formed cache key and returns it.
// Directory listings use this to skip foreign files.
func ParseKey(s string) (Key, bool) {
	if len(s) != KeyLen {
		return "", false
	}

	for _, c := range []byte(s) {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", false
		}
	}

	return Key(s), true
}

// Keyer derives cache keys from source bytes. The zero value hashes the
// source alone, so identical source always maps to the same key across
// toolchain upgrades. Setting Fingerprint mixes an opaque toolchain
// identifier into the digest, which retires every cached artifact when the
// compiler changes.
type Keyer struct {
	Fingerprint string
}

// KeyFor returns the cache key for the given normalized source bytes.
func (kr Keyer) KeyFor(src []byte) Key {
	h := sha256.New()

	if kr.Fingerprint != "" {
		io.WriteString(h, kr.Fingerprint)
		h.Write([]byte{0})
	}

	h.Write(src)

	return Key(hex.EncodeToString(h.Sum(nil))[:KeyLen])
}

// KeyFor derives a key with the default policy, hashing the source alone.
func KeyFor(src []byte) Key {
	return Keyer{}.KeyFor(src)
}
