// Package signature finds byte patterns with wildcards in process memory.
package signature

import (
	"bytes"
	"fmt"
	"strings"
)

// Signature is an immutable byte pattern with a parallel mask. A mask byte
// of 0xFF compares the whole byte, 0x00 ignores it, and 0xF0 or 0x0F compare
// a single nibble.
type Signature struct {
	pattern []byte
	mask    []byte
	simple  bool
	skip    [256]int
}

// Parse compiles a literal such as "48 8B 05 ?? ?? ?? ?? 81 E1 FF FF 03 00".
// Bytes may be separated by spaces or commas or written back to back, but a
// separator never splits a byte.
// "??" is a wildcard byte, "B?" or "?B" wildcard one nibble.
func Parse(literal string) (Signature, error) {
	tokens := strings.FieldsFunc(literal, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', ',':
			return true
		}
		return false
	})

	for _, tok := range tokens {
		if len(tok)%2 != 0 {
			return Signature{}, fmt.Errorf("signature %q: token %q is not whole bytes", literal, tok)
		}
	}
	digits := strings.Join(tokens, "")
	if len(digits) == 0 {
		return Signature{}, fmt.Errorf("signature %q: empty pattern", literal)
	}

	var s Signature
	s.pattern = make([]byte, len(digits)/2)
	s.mask = make([]byte, len(digits)/2)

	for i := 0; i < len(digits); i += 2 {
		hi, hiMask, ok := nibble(digits[i])
		if !ok {
			return Signature{}, fmt.Errorf("signature %q: invalid character %q", literal, digits[i])
		}
		lo, loMask, ok := nibble(digits[i+1])
		if !ok {
			return Signature{}, fmt.Errorf("signature %q: invalid character %q", literal, digits[i+1])
		}
		s.pattern[i/2] = hi<<4 | lo
		s.mask[i/2] = hiMask<<4 | loMask
	}

	s.compile()
	return s, nil
}

// MustParse is Parse for package-level signature tables
func MustParse(literal string) Signature {
	s, err := Parse(literal)
	if err != nil {
		panic(err)
	}
	return s
}

// MustParseAll compiles an ordered list of fallback signatures
func MustParseAll(literals ...string) []Signature {
	out := make([]Signature, len(literals))
	for i, l := range literals {
		out[i] = MustParse(l)
	}
	return out
}

func nibble(c byte) (value, mask byte, ok bool) {
	switch {
	case c == '?':
		return 0, 0x0, true
	case c >= '0' && c <= '9':
		return c - '0', 0xF, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, 0xF, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, 0xF, true
	}
	return 0, 0, false
}

// compile builds the bad-character skip table. A position that is not an
// exact byte can match anything, so it caps every shift.
func (s *Signature) compile() {
	n := len(s.pattern)

	s.simple = true
	for _, m := range s.mask {
		if m != 0xFF {
			s.simple = false
			break
		}
	}

	shift := n
	for j := 0; j < n-1; j++ {
		if s.mask[j] != 0xFF {
			shift = n - 1 - j
		}
	}
	for c := range s.skip {
		s.skip[c] = shift
	}
	for j := 0; j < n-1; j++ {
		if s.mask[j] == 0xFF && n-1-j < s.skip[s.pattern[j]] {
			s.skip[s.pattern[j]] = n - 1 - j
		}
	}
}

// Len returns the pattern length in bytes
func (s Signature) Len() int {
	return len(s.pattern)
}

func (s Signature) String() string {
	var sb strings.Builder
	for i := range s.pattern {
		if i > 0 {
			sb.WriteByte(' ')
		}
		hex := fmt.Sprintf("%02X", s.pattern[i])
		if s.mask[i]&0xF0 == 0 {
			hex = "?" + hex[1:]
		}
		if s.mask[i]&0x0F == 0 {
			hex = hex[:1] + "?"
		}
		sb.WriteString(hex)
	}
	return sb.String()
}

// matchAt reports whether the pattern matches data starting at data[0]
func (s Signature) matchAt(data []byte) bool {
	for j := len(s.pattern) - 1; j >= 0; j-- {
		if data[j]&s.mask[j] != s.pattern[j]&s.mask[j] {
			return false
		}
	}
	return true
}

// Find returns the lowest offset in data where the pattern matches, or -1
func (s Signature) Find(data []byte) int {
	n := len(s.pattern)
	if n == 0 || len(data) < n {
		return -1
	}
	if s.simple {
		return bytes.Index(data, s.pattern)
	}

	for i := 0; i <= len(data)-n; i += s.skip[data[i+n-1]] {
		if s.matchAt(data[i:]) {
			return i
		}
	}
	return -1
}

// FindAll returns every offset in data where the pattern matches, including overlapping ones
func (s Signature) FindAll(data []byte) []int {
	var out []int
	for start := 0; ; {
		i := s.Find(data[start:])
		if i < 0 {
			return out
		}
		out = append(out, start+i)
		start += i + 1
	}
}
