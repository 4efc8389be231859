package search_test

import (
	"testing"

	"emuram/process"
	"emuram/process/memory_map"
	"emuram/process_blob"
	"emuram/search"
)

const rw = memory_map.FlagRead | memory_map.FlagWrite

// base -> +0x18 -> struct -> +0x10 -> value 0xDEADBEEF
func chain64() *process_blob.ProcessDump {
	p := process_blob.NewProcessDump()
	p.AddZeroRegion(0x10000, 0x100, rw, "")
	p.AddZeroRegion(0x20000, 0x100, rw, "")
	_ = p.PutUint64(0x10018, 0x20000)
	_ = p.PutUint32(0x20010, 0xDEADBEEF)
	return p
}

func TestSearchValue(t *testing.T) {
	p := chain64()

	results, err := search.Search(p, 0x10000, search.WithSearchForType(uint32(0xDEADBEEF), process.Little))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results: %v", len(results), results)
	}

	r := results[0]
	if r.Address != 0x20010 || len(r.Path) != 2 || r.Path[0] != 0x18 || r.Path[1] != 0x10 {
		t.Fatalf("result = %s", r)
	}

	v, err := process.Resolve[uint32](p, r.PointerPath(0x10000, process.Bit64, process.Little))
	if err != nil || v != 0xDEADBEEF {
		t.Fatalf("Resolve = %#x, %v", v, err)
	}
}

func TestSearchBigEndianValue(t *testing.T) {
	p := chain64()
	_ = p.Put(0x20040, []byte{0x12, 0x34, 0x56, 0x78})

	results, err := search.Search(p, 0x10000, search.WithSearchForType(uint32(0x12345678), process.Big))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Address != 0x20040 {
		t.Fatalf("results = %v", results)
	}
}

func TestSearchAddress32(t *testing.T) {
	p := process_blob.NewProcessDump()
	p.AddZeroRegion(0x1000, 0x100, rw, "")
	p.AddZeroRegion(0x2000, 0x100, rw, "")
	_ = p.PutUint32(0x1004, 0x2000)
	_ = p.PutUint32(0x2008, 0x00A00000)

	results, err := search.Search(p, 0x1000,
		search.WithPointerSize(process.Bit32),
		search.WithSearchForAddress(0x00A00000),
	)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path[0] != 4 || results[0].Path[1] != 8 {
		t.Fatalf("results = %v", results)
	}

	addr, err := results[0].PointerPath(0x1000, process.Bit32, process.Little).Deref(p)
	if err != nil || addr != 0x2008 {
		t.Fatalf("Deref = %s, %v", addr, err)
	}
}

func TestSearchLimits(t *testing.T) {
	p := chain64()
	target := search.WithSearchForType(uint32(0xDEADBEEF), process.Little)

	results, err := search.Search(p, 0x10000, target, search.WithMaxDepth(0))
	if err != nil || len(results) != 0 {
		t.Fatalf("depth 0: %v, %v", results, err)
	}

	_ = p.PutUint32(0x10008, 0xDEADBEEF)
	results, err = search.Search(p, 0x10000, target, search.WithMaxResults(1))
	if err != nil || len(results) != 1 || results[0].Address != 0x10008 {
		t.Fatalf("max results: %v, %v", results, err)
	}
}

func TestSearchCycles(t *testing.T) {
	p := process_blob.NewProcessDump()
	p.AddZeroRegion(0x10000, 0x40, rw, "")
	_ = p.PutUint64(0x10000, 0x10000)

	results, err := search.Search(p, 0x10000, search.WithSearchForAddress(0x99999), search.WithMaxDepth(8))
	if err != nil || len(results) != 0 {
		t.Fatalf("results = %v, %v", results, err)
	}
}

func TestSearchRequiresTarget(t *testing.T) {
	p := chain64()
	if _, err := search.Search(p, 0x10000); err == nil {
		t.Fatal("expected an error without a search target")
	}
}
