// Package search looks for pointer paths from an anchor to a value or an
// address, for building process.PointerPath values by hand.
package search

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"emuram/process"
	"emuram/process/memory_map"
)

// Searcher holds configuration for the search
type Searcher struct {
	MaxStructSize uint64
	MaxDepth      int
	MinAlignment  uint64
	MaxResults    int
	PointerSize   process.PointerSize
	Endian        process.Endian
	SearchFor     func([]byte) bool
}

// Option is a function that configures a Searcher
type Option func(*Searcher)

func WithMaxStructSize(size uint64) Option {
	return func(s *Searcher) {
		s.MaxStructSize = size
	}
}

func WithMaxDepth(depth int) Option {
	return func(s *Searcher) {
		s.MaxDepth = depth
	}
}

func WithMinAlignment(align uint64) Option {
	return func(s *Searcher) {
		s.MinAlignment = align
	}
}

// WithMaxResults stops the search once n paths are found; zero means no limit
func WithMaxResults(n int) Option {
	return func(s *Searcher) {
		s.MaxResults = n
	}
}

// WithPointerSize sets the width of the pointers followed, Bit64 by default
func WithPointerSize(size process.PointerSize) Option {
	return func(s *Searcher) {
		s.PointerSize = size
	}
}

// WithEndian sets the byte order pointers are decoded in
func WithEndian(e process.Endian) Option {
	return func(s *Searcher) {
		s.Endian = e
	}
}

// WithSearchForType matches the encoding of val. The byte order is the one
// given, not the searcher's pointer order, so a big-endian value can be found
// through little-endian host pointers.
func WithSearchForType[T any](val T, endian process.Endian) Option {
	want, err := binary.Append(nil, endian.Order(), val)
	return func(s *Searcher) {
		if err != nil || len(want) == 0 {
			return
		}
		s.SearchFor = func(data []byte) bool {
			return bytes.HasPrefix(data, want)
		}
	}
}

// WithSearchForAddress matches a pointer to target, encoded at the
// searcher's pointer width and byte order
func WithSearchForAddress(target process.Address) Option {
	return func(s *Searcher) {
		s.SearchFor = func(data []byte) bool {
			v, ok := decodePointer(data, s.PointerSize, s.Endian)
			return ok && v == target
		}
	}
}

// SearchResult represents a found path to the target
type SearchResult struct {
	Path    []int64         // offsets from base, usable as PointerPath.Offsets
	Address process.Address // where the match was read
}

// PointerPath turns the result into a path rooted at base
func (r SearchResult) PointerPath(base process.Address, size process.PointerSize, endian process.Endian) process.PointerPath {
	return process.PointerPath{Base: base, Size: size, Endian: endian, Offsets: r.Path}
}

func (r SearchResult) String() string {
	s := ""
	for i, off := range r.Path {
		if i > 0 {
			s += " -> "
		}
		s += fmt.Sprintf("%#x", off)
	}
	return fmt.Sprintf("[%s] @ %s", s, r.Address)
}

// Search performs a recursive search for the target starting at base. Only
// pointers into readable regions of the current memory map are followed.
func Search(proc process.Process, base process.Address, options ...Option) ([]SearchResult, error) {
	s := &Searcher{
		MaxStructSize: 256,
		MaxDepth:      3,
		MinAlignment:  4,
		PointerSize:   process.Bit64,
	}

	for _, opt := range options {
		opt(s)
	}

	if s.SearchFor == nil {
		return nil, fmt.Errorf("no search target specified")
	}
	if !s.PointerSize.Valid() {
		return nil, fmt.Errorf("pointer size %d: %w", s.PointerSize, process.ErrInvalidPointer)
	}
	if s.MinAlignment == 0 {
		s.MinAlignment = 1
	}

	ranges, err := proc.MemoryRanges()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}
	memory_map.Sort(ranges)

	width := uint64(s.PointerSize)
	var results []SearchResult
	visited := make(map[process.Address]bool)

	done := func() bool {
		return s.MaxResults > 0 && len(results) >= s.MaxResults
	}

	var searchRecursive func(addr process.Address, depth int, path []int64)
	searchRecursive = func(addr process.Address, depth int, path []int64) {
		if depth > s.MaxDepth || visited[addr] || done() {
			return
		}
		visited[addr] = true

		// structs at the end of a mapping are read up to its end
		r := memory_map.Find(uint64(addr), ranges)
		if r == nil || !r.IsReadable() {
			return
		}
		size := min(s.MaxStructSize, r.End()-uint64(addr))

		data, err := proc.ReadMemory(addr, process.ProcessMemorySize(size))
		if err != nil {
			return
		}

		for offset := uint64(0); offset < uint64(len(data)); offset += s.MinAlignment {
			if s.SearchFor(data[offset:]) {
				results = append(results, SearchResult{
					Path:    extend(path, offset),
					Address: addr.Add(offset),
				})
				if done() {
					return
				}
			}

			if depth == s.MaxDepth || offset%width != 0 {
				continue
			}
			ptr, ok := decodePointer(data[offset:], s.PointerSize, s.Endian)
			if !ok || ptr.IsNull() {
				continue
			}
			if target := memory_map.Find(uint64(ptr), ranges); target != nil && target.IsReadable() {
				searchRecursive(ptr, depth+1, extend(path, offset))
			}
		}
	}

	searchRecursive(base, 0, nil)

	return results, nil
}

func extend(path []int64, offset uint64) []int64 {
	out := make([]int64, len(path), len(path)+1)
	copy(out, path)
	return append(out, int64(offset))
}

func decodePointer(data []byte, size process.PointerSize, endian process.Endian) (process.Address, bool) {
	if len(data) < int(size) {
		return process.NULL, false
	}
	order := endian.Order()
	switch size {
	case process.Bit16:
		return process.Address(order.Uint16(data)), true
	case process.Bit32:
		return process.Address(order.Uint32(data)), true
	case process.Bit64:
		return process.Address(order.Uint64(data)), true
	}
	return process.NULL, false
}
