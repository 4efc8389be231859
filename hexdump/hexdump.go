// Package hexdump renders process memory for the CLI, with signature match
// highlighting and a pointer column checked against the memory map.
package hexdump

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	"emuram/process"
	"emuram/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// Span marks Len bytes starting at Start, relative to the dumped data
type Span struct {
	Start int
	Len   int
}

func (s Span) contains(i int) bool {
	return i >= s.Start && i < s.Start+s.Len
}

// Options defines options for customizing the hexdump output
type Options struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// GroupSize defines the grouping of bytes (usually 1, 2, 4, or 8)
	GroupSize int

	ShowASCII bool

	// StartOffset is the address printed for the first byte
	StartOffset uint64

	// OffsetWidth is the width of the offset column in hex digits
	OffsetWidth int

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// Plain disables color escapes
	Plain bool

	OffsetColor              coloransi.ColorCode
	HexColor                 coloransi.ColorCode
	ASCIIColor               coloransi.ColorCode
	NonPrintableColor        coloransi.ColorCode
	ZeroColor                coloransi.ColorCode
	HighlightColor           coloransi.ColorCode
	HighlightBackgroundColor coloransi.ColorCode

	// Highlights are drawn in HighlightColor, typically signature matches
	Highlights []Span

	// PointerSize enables the pointer column when non-zero. Every aligned
	// value on the line that lands in a readable region of MemoryMap is
	// printed after the ASCII column.
	PointerSize process.PointerSize
	Endian      process.Endian
	MemoryMap   []memory_map.MemoryRange
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() Options {
	return Options{
		BytesPerLine:             16,
		GroupSize:                1,
		ShowASCII:                true,
		OffsetWidth:              8,
		OffsetColor:              coloransi.Cyan,
		HexColor:                 coloransi.Green,
		ASCIIColor:               coloransi.White,
		NonPrintableColor:        coloransi.Red,
		ZeroColor:                coloransi.BrightBlack,
		HighlightColor:           coloransi.Yellow,
		HighlightBackgroundColor: coloransi.Black,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options Options) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.GroupSize <= 0 {
		options.GroupSize = 1
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 8
	}
	if options.PointerSize != 0 {
		memory_map.Sort(options.MemoryMap)
	}

	d := dumper{w: writer, o: options}
	lines := 0
	for start := 0; start < len(data); start += options.BytesPerLine {
		if options.MaxLines > 0 && lines >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-start)
			break
		}
		end := min(start+options.BytesPerLine, len(data))
		d.line(data, start, end)
		lines++
	}
}

// Memory reads size bytes at addr and dumps them with addresses as offsets
func Memory(p process.Process, addr process.Address, size uint64, options Options) (string, error) {
	data, err := p.ReadMemory(addr, process.ProcessMemorySize(size))
	if err != nil {
		return "", fmt.Errorf("read %d bytes at %s: %w", size, addr, err)
	}
	options.StartOffset = uint64(addr)
	return Dump(data, options), nil
}

type dumper struct {
	w io.Writer
	o Options
}

func (d dumper) paint(fg coloransi.ColorCode, s string) string {
	if d.o.Plain {
		return s
	}
	return coloransi.Foreground(fg, s)
}

func (d dumper) highlight(s string) string {
	if d.o.Plain {
		return s
	}
	return coloransi.Color(d.o.HighlightColor, d.o.HighlightBackgroundColor, s)
}

func (d dumper) highlighted(i int) bool {
	for _, s := range d.o.Highlights {
		if s.contains(i) {
			return true
		}
	}
	return false
}

// hexWidth is the printed width of the hex column for n bytes
func (d dumper) hexWidth(n int) int {
	if n == 0 {
		return 0
	}
	groups := (n + d.o.GroupSize - 1) / d.o.GroupSize
	w := 2*n + groups - 1
	if d.split(n) {
		w += 2
	}
	return w
}

// split reports whether the " | " divider is drawn on a line of n bytes
func (d dumper) split(n int) bool {
	half := d.o.BytesPerLine / 2
	return d.o.BytesPerLine >= 8 && n > half && half%d.o.GroupSize == 0
}

func (d dumper) line(data []byte, start, end int) {
	var b strings.Builder
	n := end - start

	offset := fmt.Sprintf("%0*x", d.o.OffsetWidth, d.o.StartOffset+uint64(start))
	b.WriteString(d.paint(d.o.OffsetColor, offset))
	b.WriteString("  ")

	half := d.o.BytesPerLine / 2
	for i := start; i < end; i++ {
		rel := i - start
		if rel > 0 {
			switch {
			case d.split(n) && rel == half:
				b.WriteString(" | ")
			case rel%d.o.GroupSize == 0:
				b.WriteByte(' ')
			}
		}
		hex := fmt.Sprintf("%02x", data[i])
		switch {
		case d.highlighted(i):
			b.WriteString(d.highlight(hex))
		case data[i] == 0:
			b.WriteString(d.paint(d.o.ZeroColor, hex))
		default:
			b.WriteString(d.paint(d.o.HexColor, hex))
		}
	}
	if pad := d.hexWidth(d.o.BytesPerLine) - d.hexWidth(n); pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}

	if d.o.ShowASCII {
		b.WriteString(" | ")
		for i := start; i < end; i++ {
			if d.split(n) && i-start == half {
				b.WriteByte(' ')
			}
			c := rune(data[i])
			switch {
			case d.highlighted(i) && unicode.IsPrint(c):
				b.WriteString(d.highlight(string(c)))
			case d.highlighted(i):
				b.WriteString(d.highlight("."))
			case c == 0:
				b.WriteString(d.paint(d.o.ZeroColor, "."))
			case c > unicode.MaxASCII || !unicode.IsPrint(c):
				b.WriteString(d.paint(d.o.NonPrintableColor, "."))
			default:
				b.WriteString(d.paint(d.o.ASCIIColor, string(c)))
			}
		}
	}

	if ptrs := d.pointers(data[start:end]); len(ptrs) > 0 {
		b.WriteString(" | ")
		b.WriteString(d.paint(coloransi.Yellow, strings.Join(ptrs, " ")))
	}

	fmt.Fprintln(d.w, b.String())
}

func (d dumper) pointers(line []byte) []string {
	width := int(d.o.PointerSize)
	if !d.o.PointerSize.Valid() || len(d.o.MemoryMap) == 0 {
		return nil
	}
	order := d.o.Endian.Order()
	var out []string
	for i := 0; i+width <= len(line); i += width {
		var v uint64
		switch d.o.PointerSize {
		case process.Bit16:
			v = uint64(order.Uint16(line[i:]))
		case process.Bit32:
			v = uint64(order.Uint32(line[i:]))
		case process.Bit64:
			v = order.Uint64(line[i:])
		}
		if v == 0 {
			continue
		}
		if r := memory_map.Find(v, d.o.MemoryMap); r != nil && r.IsReadable() {
			out = append(out, fmt.Sprintf("0x%x", v))
		}
	}
	return out
}
