package sequence

import (
	"fmt"
)

// Sequence is an immutable run of alphabet symbols.
type Sequence struct {
	alphabet Alphabet
	symbols  []byte
}

// NewSequence builds a Sequence from literal symbols, rejecting bytes outside the alphabet.
func NewSequence(alphabet Alphabet, symbols string) (Sequence, error) {
	for i := 0; i < len(symbols); i++ {
		if alphabet.Index(symbols[i]) < 0 {
			return Sequence{}, fmt.Errorf("%w: symbol %q at %d not in alphabet %s",
				ErrInvalidAlphabet, symbols[i], i, alphabet)
		}
	}
	return Sequence{alphabet: alphabet, symbols: []byte(symbols)}, nil
}

func (s Sequence) Len() int { return len(s.symbols) }

func (s Sequence) Alphabet() Alphabet { return s.alphabet }

// At returns the symbol at position i.
func (s Sequence) At(i int) byte { return s.symbols[i] }

// Bytes returns a copy of the symbols.
func (s Sequence) Bytes() []byte {
	out := make([]byte, len(s.symbols))
	copy(out, s.symbols)
	return out
}

func (s Sequence) String() string { return string(s.symbols) }

// Prefix returns the first n symbols; n is clamped to [0, Len()].
func (s Sequence) Prefix(n int) Sequence {
	if n < 0 {
		n = 0
	}
	if n > len(s.symbols) {
		n = len(s.symbols)
	}
	return Sequence{alphabet: s.alphabet, symbols: s.symbols[:n:n]}
}

// Expander turns seeds into sequences with a fixed alphabet and hash.
type Expander struct {
	alphabet Alphabet
	hash     Hash
}

// NewExpander validates the hash algorithm and builds an Expander.
func NewExpander(alphabet Alphabet, h Hash) (*Expander, error) {
	if _, err := h.new(); err != nil {
		return nil, err
	}
	return &Expander{alphabet: alphabet, hash: h}, nil
}

// DefaultExpander uses DefaultAlphabet and DefaultHash.
func DefaultExpander() *Expander {
	return &Expander{alphabet: DefaultAlphabet, hash: DefaultHash}
}

func (e *Expander) Alphabet() Alphabet { return e.alphabet }

func (e *Expander) Hash() Hash { return e.hash }

// Expand produces exactly length symbols from seed and discriminator.
func (e *Expander) Expand(seed, discriminator string, length int) (Sequence, error) {
	if length <= 0 {
		return Sequence{}, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	buf, err := e.chain(seed, discriminator, length)
	if err != nil {
		return Sequence{}, err
	}
	symbols := make([]byte, length)
	for i := range symbols {
		symbols[i] = e.alphabet.Symbol(buf[i])
	}
	return Sequence{alphabet: e.alphabet, symbols: symbols}, nil
}

// chain returns at least n bytes of the digest chain.
// h always holds the hash state over exactly buf, so h.Sum yields H(buf) without
// re-reading the buffer.
func (e *Expander) chain(seed, discriminator string, n int) ([]byte, error) {
	h, err := e.hash.new()
	if err != nil {
		return nil, err
	}
	h.Write([]byte(seed))
	h.Write([]byte(discriminator))
	block := h.Sum(nil)

	size := len(block)
	buf := make([]byte, 0, ((n+size-1)/size)*size)
	buf = append(buf, block...)

	h.Reset()
	h.Write(block)
	for len(buf) < n {
		block = h.Sum(block[:0])
		buf = append(buf, block...)
		h.Write(block)
	}
	return buf, nil
}

// Expand runs the default expander.
func Expand(seed, discriminator string, length int) (Sequence, error) {
	return DefaultExpander().Expand(seed, discriminator, length)
}
