package sequence

import (
	"errors"
	"fmt"
	"hash"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	sha256 "github.com/minio/sha256-simd"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

var ErrUnknownHash = errors.New("sequence: unknown hash algorithm")

// Hash names a digest used as the deterministic byte source.
type Hash string

const (
	HashSHA256    Hash = "sha256"
	HashSHA3      Hash = "sha3-256"
	HashBlake2b   Hash = "blake2b-256"
	HashKeccak256 Hash = "keccak256"
	DefaultHash        = HashSHA256
)

var hashFactories = map[Hash]func() hash.Hash{
	HashSHA256: sha256.New,
	HashSHA3:   sha3.New256,
	HashBlake2b: func() hash.Hash {
		// blake2b only errors for keys longer than 64 bytes.
		h, _ := blake2b.New256(nil)
		return h
	},
	HashKeccak256: func() hash.Hash {
		return crypto.NewKeccakState()
	},
}

// ParseHash resolves a configured algorithm name. Empty selects DefaultHash.
func ParseHash(raw string) (Hash, error) {
	name := Hash(strings.ToLower(strings.TrimSpace(raw)))
	if name == "" {
		return DefaultHash, nil
	}
	switch name {
	case "sha3", "sha3_256":
		name = HashSHA3
	case "blake2b", "blake2b_256":
		name = HashBlake2b
	case "keccak", "keccak-256":
		name = HashKeccak256
	}
	if _, ok := hashFactories[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownHash, raw)
	}
	return name, nil
}

// Hashes lists supported algorithm names in sorted order.
func Hashes() []Hash {
	out := make([]Hash, 0, len(hashFactories))
	for h := range hashFactories {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (h Hash) new() (hash.Hash, error) {
	factory, ok := hashFactories[h]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHash, string(h))
	}
	return factory(), nil
}
