package signature

import (
	"emuram/process"
)

const (
	pageSize  = 0x1000
	chunkSize = 16 * pageSize
)

// ScanOnce reads [addr, addr+size) in a single read and returns the address
// of the first match. An unreadable range reports no match.
func (s Signature) ScanOnce(p process.Process, addr process.Address, size uint64) (process.Address, bool) {
	if size < uint64(s.Len()) {
		return process.NULL, false
	}
	data, err := p.ReadMemory(addr, process.ProcessMemorySize(size))
	if err != nil {
		return process.NULL, false
	}
	i := s.Find(data)
	if i < 0 {
		return process.NULL, false
	}
	return addr.Add(uint64(i)), true
}

// Scan finds the first match in [addr, addr+size), reading page-aligned
// chunks that overlap by Len()-1 bytes. Chunks that cannot be read are
// skipped one page at a time.
func (s Signature) Scan(p process.Process, addr process.Address, size uint64) (process.Address, bool) {
	var found process.Address
	ok := false
	s.walk(p, addr, size, func(base process.Address, data []byte, limit int) bool {
		if i := s.Find(data); i >= 0 && i < limit {
			found, ok = base.Add(uint64(i)), true
			return false
		}
		return true
	})
	return found, ok
}

// ScanProcessRange scans a module's full address range
func (s Signature) ScanProcessRange(p process.Process, addr process.Address, size uint64) (process.Address, bool) {
	return s.Scan(p, addr, size)
}

// ScanModule resolves a module by name and scans its whole image
func (s Signature) ScanModule(p process.Process, name string) (process.Address, bool) {
	base, size, err := p.GetModuleRange(name)
	if err != nil {
		return process.NULL, false
	}
	return s.ScanProcessRange(p, base, size)
}

// ScanAll returns every match in [addr, addr+size) in ascending order
func (s Signature) ScanAll(p process.Process, addr process.Address, size uint64) []process.Address {
	var out []process.Address
	s.walk(p, addr, size, func(base process.Address, data []byte, limit int) bool {
		for _, i := range s.FindAll(data) {
			if i < limit {
				out = append(out, base.Add(uint64(i)))
			}
		}
		return true
	})
	return out
}

// walk feeds fn successive windows of the range. limit is the number of
// leading offsets that belong to this window; offsets past it are left to
// the next window so overlapping bytes are not reported twice.
func (s Signature) walk(p process.Process, addr process.Address, size uint64, fn func(base process.Address, data []byte, limit int) bool) {
	n := uint64(s.Len())
	if n == 0 || size < n {
		return
	}
	end := uint64(addr) + size
	overlap := n - 1

	for cur := uint64(addr); cur < end; {
		next := min((cur&^(pageSize-1))+chunkSize, end)

		if data, ok := readWindow(p, cur, next, end, overlap); ok {
			if !fn(process.Address(cur), data, int(next-cur)) {
				return
			}
			cur = next
			continue
		}

		// fall back to single pages inside the failed chunk
		for page := cur; page < next; {
			pageEnd := min((page&^(pageSize-1))+pageSize, next)
			if data, ok := readWindow(p, page, pageEnd, end, overlap); ok {
				if !fn(process.Address(page), data, int(pageEnd-page)) {
					return
				}
			}
			page = pageEnd
		}
		cur = next
	}
}

// readWindow reads [from, to) plus up to overlap bytes beyond to. If the
// overlap cannot be read, the window is retried without it.
func readWindow(p process.Process, from, to, end, overlap uint64) ([]byte, bool) {
	ext := min(to+overlap, end)
	if data, err := p.ReadMemory(process.Address(from), process.ProcessMemorySize(ext-from)); err == nil {
		return data, true
	}
	if ext == to {
		return nil, false
	}
	data, err := p.ReadMemory(process.Address(from), process.ProcessMemorySize(to-from))
	return data, err == nil
}
