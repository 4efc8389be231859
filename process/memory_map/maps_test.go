package memory_map

import "testing"

func TestParseMapsLine(t *testing.T) {
	tests := []struct {
		line  string
		want  MemoryRange
		valid bool
	}{
		{
			line:  "7f5c1a000000-7f5c1a048000 rw-p 00000000 00:00 0",
			want:  MemoryRange{Address: 0x7f5c1a000000, Size: 0x48000, Flags: FlagRead | FlagWrite},
			valid: true,
		},
		{
			line:  "00400000-0040b000 r-xp 00000000 08:01 1234 /usr/bin/cat",
			want:  MemoryRange{Address: 0x400000, Size: 0xb000, Flags: FlagRead | FlagExecute | FlagPath, Path: "/usr/bin/cat"},
			valid: true,
		},
		{
			line:  "10000000-10001000 r--p 00000000 08:01 99 /home/user/.wine/drive_c/Program Files/mGBA/mGBA.exe",
			want:  MemoryRange{Address: 0x10000000, Size: 0x1000, Flags: FlagRead | FlagPath, Path: "/home/user/.wine/drive_c/Program Files/mGBA/mGBA.exe"},
			valid: true,
		},
		{
			line:  "7ffd4a1c2000-7ffd4a1e3000 rw-p 00000000 00:00 0 [stack]",
			want:  MemoryRange{Address: 0x7ffd4a1c2000, Size: 0x21000, Flags: FlagRead | FlagWrite},
			valid: true,
		},
		{line: "garbage", valid: false},
		{line: "2000-1000 rw-p 0 0 0", valid: false},
	}

	for _, tt := range tests {
		got, ok := ParseMapsLine(tt.line)
		if ok != tt.valid {
			t.Fatalf("%q: valid = %v, want %v", tt.line, ok, tt.valid)
		}
		if ok && got != tt.want {
			t.Errorf("%q: got %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestFindAndModuleRange(t *testing.T) {
	ranges := []MemoryRange{
		{Address: 0x3000, Size: 0x1000, Flags: FlagRead | FlagPath, Path: `C:\emu\MGBA.DLL`},
		{Address: 0x1000, Size: 0x1000, Flags: FlagRead | FlagPath, Path: "/opt/emu/mgba.dll"},
		{Address: 0x2000, Size: 0x1000, Flags: FlagRead | FlagWrite},
	}
	Sort(ranges)

	if r := Find(0x2800, ranges); r == nil || r.Address != 0x2000 {
		t.Fatalf("Find(0x2800) = %v", r)
	}
	if r := Find(0x4000, ranges); r != nil {
		t.Fatalf("Find(0x4000) = %v, want nil", r)
	}
	if !IsValidRange(0x2000, 0x1000, ranges) {
		t.Errorf("full region should be valid")
	}
	if IsValidRange(0x2800, 0x1000, ranges) {
		t.Errorf("range crossing a region end should be invalid")
	}

	start, size, ok := ModuleRange("mgba.dll", ranges)
	if !ok || start != 0x1000 || size != 0x3000 {
		t.Fatalf("ModuleRange = %x %x %v", start, size, ok)
	}
	if _, _, ok := ModuleRange("missing.dll", ranges); ok {
		t.Fatalf("missing module should not resolve")
	}
}

func TestFlagsString(t *testing.T) {
	if s := (FlagRead | FlagExecute | FlagPath).String(); s != "r-xp" {
		t.Fatalf("got %q", s)
	}
}
