package main

import (
	"fmt"
	"path/filepath"

	"emuram/emulator"
	"emuram/hexdump"
	"emuram/process"
	"emuram/process_blob"
	"emuram/report"

	gopsprocess "github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
)

func newDumpCommand() *cobra.Command {
	dumpCommand := &cobra.Command{
		Use:   "dump",
		Short: "Save process snapshots and replay discovery against them.",
	}

	var pid int
	saveCommand := &cobra.Command{
		Use:   "save --pid N [dir]",
		Short: "Save the memory map and every readable range of a process.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := conf.DumpDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no output directory: pass one or set dump-dir in the config")
			}

			p, err := openPID(pid)
			if err != nil {
				return err
			}
			defer p.Close()

			name := processName(pid)
			if len(args) == 0 {
				dir = filepath.Join(dir, fmt.Sprintf("%s-%d", name, pid))
			}
			stats, err := process_blob.Save(p, name, dir, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d ranges to %s (%d unreadable, %d too large, %d read errors)\n",
				stats.Saved, dir, stats.NotReadable, stats.TooLarge, stats.ReadErrors)
			return nil
		},
	}
	saveCommand.Flags().IntVar(&pid, "pid", 0, "Process ID to save.")

	var processOverride string
	discoverCommand := &cobra.Command{
		Use:   "discover <family> <dir>",
		Short: "Run RAM discovery against a saved snapshot.",
		Long: `Load a snapshot written by "dump save" and run the family's discovery on
it, choosing the backend from the recorded process name (or --process).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := lookupFamily(args[0])
			if err != nil {
				return err
			}
			dump, err := process_blob.LoadProcessDump(args[1])
			if err != nil {
				return err
			}
			name := dump.Name
			if processOverride != "" {
				name = processOverride
			}
			t, err := discover(dump, f, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Describe())
			return nil
		},
	}
	discoverCommand.Flags().StringVar(&processOverride, "process", "", "Process name that selects the backend.")

	var addr string
	var size uint64
	var plain bool
	showCommand := &cobra.Command{
		Use:   "show <dir>",
		Short: "Print a snapshot's memory map, or hexdump part of it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dump, err := process_blob.LoadProcessDump(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (pid %d), %d ranges, %d modules\n", dump.Name, dump.PID, len(dump.MemoryMap), len(dump.ModuleTable))

			if addr == "" {
				tbl := report.NewTable(
					report.ColumnSpec{Header: "start", FormatFunc: report.AddressFormatter},
					report.ColumnSpec{Header: "end"},
					report.ColumnSpec{Header: "perm"},
					report.ColumnSpec{Header: "size", AlignRight: true},
					report.ColumnSpec{Header: "path"},
				)
				for _, r := range dump.MemoryMap {
					tbl.AddRow(fmt.Sprintf("%#016x", r.Address), fmt.Sprintf("%#016x", r.End()), r.Flags.String(), fmt.Sprint(r.Size), r.Path)
				}
				return tbl.Render(w)
			}

			at, err := parseAddress(addr)
			if err != nil {
				return err
			}
			opts := hexdump.DefaultOptions()
			opts.Plain = plain
			opts.OffsetWidth = 16
			opts.PointerSize = process.Bit64
			opts.MemoryMap = dump.MemoryMap
			out, err := hexdump.Memory(dump, at, size, opts)
			if err != nil {
				return err
			}
			fmt.Fprint(w, out)
			return nil
		},
	}
	showCommand.Flags().StringVar(&addr, "addr", "", "Address to hexdump.")
	showCommand.Flags().Uint64Var(&size, "size", 256, "Bytes to hexdump.")
	showCommand.Flags().BoolVar(&plain, "plain", false, "Disable colors.")

	dumpCommand.AddCommand(saveCommand, discoverCommand, showCommand)
	return dumpCommand
}

// discover runs one update of f's backend for name against p
func discover(p process.Process, f family, name string) (emulator.Target, error) {
	t, ok := f.AttachProcess(p, name)
	if !ok {
		return nil, fmt.Errorf("%q is not a known %s emulator", name, f.Name)
	}
	if !t.Update() {
		return t, fmt.Errorf("%s: RAM not found (%s)", name, t.State())
	}
	return t, nil
}

// processName asks the OS for the executable name, falling back to "pid"
func processName(pid int) string {
	proc, err := gopsprocess.NewProcess(int32(pid))
	if err != nil {
		return "pid"
	}
	name, err := proc.Name()
	if err != nil || name == "" {
		return "pid"
	}
	return name
}
