// Package bitset implements the fixed-width bit-vectors used to store LSH
// signatures, per spec.md §4.3.
//
// Bits are numbered so that bit 0 is the most significant bit of word 0:
// this makes integer and lexicographic order of the word array coincide
// with bit-index order. Hamming distance between two equal-length
// bit-sets is computed via popcount over XOR'd words.
package bitset
