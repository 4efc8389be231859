package memory_map

import (
	"strconv"
	"strings"
)

// ParseMapsLine parses one line of /proc/[pid]/maps, e.g.
//
//	7f5c1a000000-7f5c1a048000 rw-p 00000000 00:00 0
//	00400000-0040b000 r-xp 00000000 08:01 1234 /usr/bin/cat
func ParseMapsLine(line string) (MemoryRange, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return MemoryRange{}, false
	}

	addrRange := strings.Split(fields[0], "-")
	if len(addrRange) != 2 {
		return MemoryRange{}, false
	}

	startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
	if err != nil {
		return MemoryRange{}, false
	}

	endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
	if err != nil || endAddr < startAddr {
		return MemoryRange{}, false
	}

	item := MemoryRange{
		Address: startAddr,
		Size:    endAddr - startAddr,
		Flags:   parsePerms(fields[1]),
	}

	// the path column may contain spaces
	if len(fields) >= 6 {
		path := strings.Join(fields[5:], " ")
		if !strings.HasPrefix(path, "[") {
			item.Path = strings.TrimSuffix(path, " (deleted)")
			item.Flags |= FlagPath
		}
	}

	return item, true
}

func parsePerms(perms string) Flags {
	var f Flags
	if len(perms) > 0 && perms[0] == 'r' {
		f |= FlagRead
	}
	if len(perms) > 1 && perms[1] == 'w' {
		f |= FlagWrite
	}
	if len(perms) > 2 && perms[2] == 'x' {
		f |= FlagExecute
	}
	return f
}
