// Package arena implements a bump allocator over a caller-supplied
// memory region. The processor core re-partitions its two fixed regions
// through a fresh Allocator on every structural mode change; allocation
// is append-only within one partitioning pass and the whole layout is
// discarded and redone on the next pass.
package arena

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrExhausted indicates that a partitioning pass requested more memory
// than the underlying region holds.
var ErrExhausted = errors.New("arena: region exhausted")

// regionAlign keeps every allocation aligned for any of the sample
// types handed out by View.
const regionAlign = 8

// Sample constrains the element types that can view arena memory.
type Sample interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~uint32 | ~float32
}

// Allocator hands out consecutive sub-regions of a single byte region.
type Allocator struct {
	region []byte
	offset int
}

// New creates an allocator over region. The region is retained, not
// copied; allocations alias its memory.
func New(region []byte) *Allocator {
	return &Allocator{region: region}
}

// Remaining returns the number of bytes still available.
func (a *Allocator) Remaining() int {
	return len(a.region) - a.offset
}

// Bytes allocates n bytes, aligned so that any sample type may view
// the result.
func (a *Allocator) Bytes(n int) ([]byte, error) {
	aligned := (a.offset + regionAlign - 1) &^ (regionAlign - 1)
	if n < 0 || aligned+n > len(a.region) {
		return nil, fmt.Errorf("%w: need %d bytes, %d available",
			ErrExhausted, n, len(a.region)-aligned)
	}
	a.offset = aligned + n
	return a.region[aligned : aligned+n : aligned+n], nil
}

// Alloc allocates a typed slice of n elements from the allocator's
// region. The slice aliases the region's memory, so two views created
// over the same Bytes allocation observe each other's writes.
func Alloc[T Sample](a *Allocator, n int) ([]T, error) {
	var zero T
	raw, err := a.Bytes(n * int(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	return View[T](raw, n), nil
}

// View reinterprets raw as a slice of n samples of type T. raw must be
// at least n*sizeof(T) bytes and aligned for T; allocations returned by
// Allocator.Bytes always are.
func View[T Sample](raw []byte, n int) []T {
	if n == 0 {
		return nil
	}
	var zero T
	if n*int(unsafe.Sizeof(zero)) > len(raw) {
		panic("arena: view larger than backing region")
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), n)
}
