package main

import (
	"io"
	"strings"

	"emuram/report"

	"github.com/spf13/cobra"
)

func newBackendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backends [family...]",
		Short: "List the supported emulators.",
		Long: `List every executable each family recognises and the backend that handles
it. Retroarch backends also list the cores they can read.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fams, err := enabledFamilies(args)
			if err != nil {
				return err
			}
			return renderBackends(cmd.OutOrStdout(), fams)
		},
	}
}

func renderBackends(w io.Writer, fams []family) error {
	tbl := report.NewTable(
		report.ColumnSpec{Header: "family"},
		report.ColumnSpec{Header: "process"},
		report.ColumnSpec{Header: "backend"},
		report.ColumnSpec{Header: "cores"},
	)
	for i, f := range fams {
		if i > 0 {
			tbl.AddSeparator()
		}
		for _, e := range f.Processes {
			cores := ""
			if e.Backend == "retroarch" {
				cores = strings.Join(f.Cores, ", ")
			}
			tbl.AddRow(f.Name, e.Name, e.Backend, cores)
		}
	}
	return tbl.Render(w)
}
