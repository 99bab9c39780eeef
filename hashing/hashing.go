// Package hashing computes content hashes of values that know how to feed
// themselves into a hash.Hash.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"

	"github.com/zeebo/xxh3"
)

// HashFunc is a function that takes a Hashable object
// and returns a string representation of its hashing.
// Sha256 and Xxh3 are both HashFuncs.
type HashFunc func(hashable Hashable) (string, error)

// Hashable is an interface that allows an object to update
// a hash.Hash with its contents.
type Hashable interface {
	UpdateHash(h hash.Hash) error
}

// Sha256 returns the hex-encoded SHA256 of hashable.
func Sha256(hashable Hashable) (string, error) {
	return sum(sha256.New(), hashable)
}

// Xxh3 returns the hex-encoded 64-bit XXH3 of hashable. It is not
// cryptographic; use it for fingerprints and cache keys.
func Xxh3(hashable Hashable) (string, error) {
	return sum(xxh3.New(), hashable)
}

func sum(h hash.Hash, hashable Hashable) (string, error) {
	if err := hashable.UpdateHash(h); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

type HashableString string

func (s HashableString) UpdateHash(h hash.Hash) error {
	_, err := h.Write([]byte(s))

	return err
}

// HashableStrings hashes each element followed by a zero byte, so that
// ["ab", "c"] and ["a", "bc"] differ.
type HashableStrings []string

func (s HashableStrings) UpdateHash(h hash.Hash) error {
	for _, str := range s {
		if _, err := h.Write([]byte(str)); err != nil {
			return err
		}

		if _, err := h.Write([]byte{0}); err != nil {
			return err
		}
	}

	return nil
}
