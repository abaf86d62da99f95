// Package mmvec provides fixed-layout, file-backed containers used to
// persist the expression store: Vector[T] (a contiguous, mmap-backed
// array), VectorOfVectors[T] (a jagged array with a table-of-contents),
// and StringTable (an open-addressing interning map built on both).
//
// Every file begins with a 256-byte Header carrying a magic number and
// size fields, followed immediately by the payload. Growth beyond the
// current capacity remaps the file after truncating it to the next
// 4 KiB page boundary; new capacity is 1.5x the requested size.
package mmvec

// PageSize is the fixed page size files are truncated to multiples of.
const PageSize = 4096
