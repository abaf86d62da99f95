package bitset

import "math/bits"

// WordBits is the number of bits packed into each backing word.
const WordBits = 64

// WordsForBits returns the number of uint64 words needed to hold n bits.
func WordsForBits(n int) int {
	return (n + WordBits - 1) / WordBits
}

func wordIndex(i int) int { return i / WordBits }

// bitMask returns the mask for bit i within its word, with bit 0 at the
// most significant bit of the word (see package doc).
func bitMask(i int) uint64 {
	return uint64(1) << uint(WordBits-1-(i%WordBits))
}

// tailMask returns a mask selecting only the live (non-padding) bits of
// the last word of an n-bit bit-set, MSB-first.
func tailMask(n int) uint64 {
	rem := n % WordBits
	if rem == 0 {
		return ^uint64(0)
	}
	return ^uint64(0) << uint(WordBits-rem)
}

// BitSet is a fixed-width bit vector, MSB-first, usable either as an
// owned allocation or as a view over a caller-supplied word slice (e.g. a
// row of a contiguous signature arena). It is not safe for concurrent
// mutation.
type BitSet struct {
	words []uint64
	nbits int
}

// New allocates a zeroed BitSet of nbits bits.
func New(nbits int) *BitSet {
	return &BitSet{words: make([]uint64, WordsForBits(nbits)), nbits: nbits}
}

// View wraps an existing word slice (len(words) must be >= WordsForBits(nbits))
// without copying; mutations through the returned BitSet write back into words.
func View(words []uint64, nbits int) *BitSet {
	return &BitSet{words: words[:WordsForBits(nbits)], nbits: nbits}
}

// Len returns the number of bits.
func (b *BitSet) Len() int { return b.nbits }

// Words exposes the backing word slice.
func (b *BitSet) Words() []uint64 { return b.words }

// Set sets bit i.
func (b *BitSet) Set(i int) {
	b.words[wordIndex(i)] |= bitMask(i)
}

// Clear clears bit i.
func (b *BitSet) Clear(i int) {
	b.words[wordIndex(i)] &^= bitMask(i)
}

// SetTo sets bit i to val.
func (b *BitSet) SetTo(i int, val bool) {
	if val {
		b.Set(i)
	} else {
		b.Clear(i)
	}
}

// Get returns whether bit i is set.
func (b *BitSet) Get(i int) bool {
	return b.words[wordIndex(i)]&bitMask(i) != 0
}

// PopCount returns the number of set bits.
func (b *BitSet) PopCount() int {
	if len(b.words) == 0 {
		return 0
	}
	count := 0
	for _, w := range b.words[:len(b.words)-1] {
		count += bits.OnesCount64(w)
	}
	count += bits.OnesCount64(b.words[len(b.words)-1] & tailMask(b.nbits))
	return count
}

// HammingDistance returns the number of bit positions at which b and other
// differ. Both must have the same length.
func (b *BitSet) HammingDistance(other *BitSet) int {
	if len(b.words) == 0 {
		return 0
	}
	dist := 0
	last := len(b.words) - 1
	for i := 0; i < last; i++ {
		dist += bits.OnesCount64(b.words[i] ^ other.words[i])
	}
	dist += bits.OnesCount64((b.words[last] ^ other.words[last]) & tailMask(b.nbits))
	return dist
}

// CopyFrom overwrites b's bits with other's. Both must have the same length.
func (b *BitSet) CopyFrom(other *BitSet) {
	copy(b.words, other.words)
}

// Clone returns an independent copy.
func (b *BitSet) Clone() *BitSet {
	words := make([]uint64, len(b.words))
	copy(words, b.words)
	return &BitSet{words: words, nbits: b.nbits}
}

// Arena is contiguous, fixed-width storage for many equal-length
// bit-sets, laid out row-major so that signature i occupies
// words[i*WordsForBits(width) : (i+1)*WordsForBits(width)]. It backs the
// LSH signature store described in spec.md §4.3, where each cell's
// signature must live at a predictable, packed offset.
type Arena struct {
	words       []uint64
	width       int
	wordsPerRow int
}

// NewArena allocates a zeroed Arena holding rows rows of width bits each.
func NewArena(rows, width int) *Arena {
	wpr := WordsForBits(width)
	return &Arena{words: make([]uint64, rows*wpr), width: width, wordsPerRow: wpr}
}

// Row returns a BitSet view over row i; mutations write back into the arena.
func (a *Arena) Row(i int) *BitSet {
	start := i * a.wordsPerRow
	return View(a.words[start:start+a.wordsPerRow], a.width)
}

// Rows returns the number of rows currently backing the arena.
func (a *Arena) Rows() int {
	if a.wordsPerRow == 0 {
		return 0
	}
	return len(a.words) / a.wordsPerRow
}

// Width returns the bit width of each row.
func (a *Arena) Width() int { return a.width }

// WordsPerRow returns the number of uint64 words occupied by each row.
func (a *Arena) WordsPerRow() int { return a.wordsPerRow }
