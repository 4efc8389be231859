package emutest

import (
	"strconv"
	"strings"
)

// Assemble turns "48 8B 05 ?? ?? ?? ??" (separators optional) into bytes;
// wildcard bytes take values from fill in order and default to zero.
func Assemble(hex string, fill ...byte) []byte {
	digits := strings.NewReplacer(" ", "", ",", "", "\t", "", "\n", "").Replace(hex)
	if len(digits)%2 != 0 {
		panic("emutest: odd number of hex digits in " + hex)
	}

	out := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		tok := digits[i : i+2]
		if strings.Contains(tok, "?") {
			var b byte
			if len(fill) > 0 {
				b, fill = fill[0], fill[1:]
			}
			out = append(out, b)
			continue
		}
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			panic("emutest: bad byte " + tok)
		}
		out = append(out, byte(v))
	}
	return out
}
