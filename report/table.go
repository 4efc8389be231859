// Package report renders the CLI's tabular output.
package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// FormatFunc formats or colorizes a cell value after widths are computed
type FormatFunc func(value string) string

// ColumnSpec defines a column's properties
type ColumnSpec struct {
	Header     string
	BlankValue string // shown for empty cells, "-" by default
	FormatFunc FormatFunc
	MinWidth   int
	AlignRight bool
}

type row struct {
	cells     []string
	separator bool
}

// Table collects rows and renders them with aligned columns
type Table struct {
	columns []ColumnSpec
	rows    []row
	widths  []int
}

func NewTable(cols ...ColumnSpec) *Table {
	t := &Table{
		columns: cols,
		widths:  make([]int, len(cols)),
	}
	for i := range t.columns {
		if t.columns[i].BlankValue == "" {
			t.columns[i].BlankValue = "-"
		}
		t.widths[i] = max(t.columns[i].MinWidth, VisibleLength(t.columns[i].Header))
	}
	return t
}

// AddRow adds a row; missing or empty cells get the column's BlankValue and
// extra cells are dropped
func (t *Table) AddRow(data ...string) {
	cells := make([]string, len(t.columns))
	for i := range cells {
		if i < len(data) && data[i] != "" {
			cells[i] = data[i]
		} else {
			cells[i] = t.columns[i].BlankValue
		}
		t.widths[i] = max(t.widths[i], VisibleLength(cells[i]))
	}
	t.rows = append(t.rows, row{cells: cells})
}

func (t *Table) AddSeparator() {
	t.rows = append(t.rows, row{separator: true})
}

func (t *Table) Len() int {
	n := 0
	for _, r := range t.rows {
		if !r.separator {
			n++
		}
	}
	return n
}

// Render writes the header, a rule and every row
func (t *Table) Render(w io.Writer) error {
	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = t.pad(i, col.Header)
	}
	if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(headers, " "), " ")); err != nil {
		return err
	}
	if err := t.rule(w); err != nil {
		return err
	}

	for _, r := range t.rows {
		if r.separator {
			if err := t.rule(w); err != nil {
				return err
			}
			continue
		}
		formatted := make([]string, len(r.cells))
		for i, val := range r.cells {
			padded := t.pad(i, val)
			if f := t.columns[i].FormatFunc; f != nil {
				// format the value, keep the padding outside the escapes
				padded = strings.Replace(padded, val, f(val), 1)
			}
			formatted[i] = padded
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(formatted, " "), " ")); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) rule(w io.Writer) error {
	sep := make([]string, len(t.columns))
	for i := range sep {
		sep[i] = strings.Repeat("-", t.widths[i])
	}
	_, err := fmt.Fprintln(w, strings.Join(sep, " "))
	return err
}

func (t *Table) pad(i int, s string) string {
	n := t.widths[i] - VisibleLength(s)
	if n <= 0 {
		return s
	}
	if t.columns[i].AlignRight {
		return strings.Repeat(" ", n) + s
	}
	return s + strings.Repeat(" ", n)
}

// VisibleLength counts runes outside ANSI SGR escapes
func VisibleLength(s string) int {
	length := 0
	inEscape := false
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		switch {
		case r == '\033':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			length++
		}
	}
	return length
}

// StateFormatter colors session state names
func StateFormatter(s string) string {
	switch s {
	case "attached":
		return coloransi.Foreground(coloransi.Green, s)
	case "degraded":
		return coloransi.Foreground(coloransi.Yellow, s)
	case "lost":
		return coloransi.Foreground(coloransi.Red, s)
	case "-", "unattached":
		return coloransi.Foreground(coloransi.BrightBlack, s)
	}
	return s
}

// AddressFormatter greys out null addresses
func AddressFormatter(s string) string {
	if s == "-" || s == "0x0" || strings.TrimLeft(strings.TrimPrefix(s, "0x"), "0") == "" {
		return coloransi.Foreground(coloransi.BrightBlack, s)
	}
	return coloransi.Foreground(coloransi.Cyan, s)
}
