package report

import (
	"bytes"
	"strings"
	"testing"
)

func TestTableRender(t *testing.T) {
	tbl := NewTable(
		ColumnSpec{Header: "family"},
		ColumnSpec{Header: "backend", MinWidth: 10},
		ColumnSpec{Header: "n", AlignRight: true},
	)
	tbl.AddRow("gba", "retroarch", "12")
	tbl.AddSeparator()
	tbl.AddRow("ps2", "")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"family backend     n",
		"------ ---------- --",
		"gba    retroarch  12",
		"------ ---------- --",
		"ps2    -           -",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len = %d", tbl.Len())
	}
}

func TestTableFormatterKeepsAlignment(t *testing.T) {
	tbl := NewTable(
		ColumnSpec{Header: "state", FormatFunc: StateFormatter},
		ColumnSpec{Header: "ram"},
	)
	tbl.AddRow("lost", "0x0")
	tbl.AddRow("attached", "0x20000")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if VisibleLength(lines[2]) != VisibleLength("lost     0x0") {
		t.Errorf("colored row width %d: %q", VisibleLength(lines[2]), lines[2])
	}
	if !strings.Contains(lines[2], "\033[") {
		t.Errorf("state not colored: %q", lines[2])
	}
}

func TestVisibleLength(t *testing.T) {
	if n := VisibleLength("\033[31mred\033[0m ✓"); n != 5 {
		t.Errorf("VisibleLength = %d", n)
	}
}
