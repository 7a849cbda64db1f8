package sequence

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAlphabet = errors.New("sequence: invalid alphabet")
	ErrInvalidLength   = errors.New("sequence: invalid length")
	ErrEmptySequence   = errors.New("sequence: empty sequence")
)

// AlphabetSize is the fixed number of symbols; byte values map by byte mod AlphabetSize.
const AlphabetSize = 4

// Alphabet is an ordered set of four single-byte symbols.
// Positions 0 and 1 form group one, positions 2 and 3 form group two.
type Alphabet [AlphabetSize]byte

// DefaultAlphabet is A,T,C,G.
var DefaultAlphabet = Alphabet{'A', 'T', 'C', 'G'}

// NewAlphabet validates symbols and builds an Alphabet.
func NewAlphabet(symbols []string) (Alphabet, error) {
	var a Alphabet
	if len(symbols) != AlphabetSize {
		return a, fmt.Errorf("%w: need %d symbols, got %d", ErrInvalidAlphabet, AlphabetSize, len(symbols))
	}
	seen := make(map[byte]struct{}, AlphabetSize)
	for i, raw := range symbols {
		s := strings.TrimSpace(raw)
		if len(s) != 1 || s[0] < '!' || s[0] > '~' {
			return Alphabet{}, fmt.Errorf("%w: symbol %d %q must be one printable byte", ErrInvalidAlphabet, i, raw)
		}
		if _, ok := seen[s[0]]; ok {
			return Alphabet{}, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidAlphabet, s)
		}
		seen[s[0]] = struct{}{}
		a[i] = s[0]
	}
	return a, nil
}

// Symbol maps a digest byte onto the alphabet.
func (a Alphabet) Symbol(b byte) byte {
	return a[b%AlphabetSize]
}

// Index returns the alphabet position of sym, or -1.
func (a Alphabet) Index(sym byte) int {
	for i, s := range a {
		if s == sym {
			return i
		}
	}
	return -1
}

func (a Alphabet) String() string {
	return string(a[:])
}
