package main

import (
	"fmt"
	"io"

	"emuram/emulator"
	"emuram/hexdump"
	"emuram/process"
	"emuram/process/memory_map"
	"emuram/signature"

	"github.com/spf13/cobra"
)

type scanOptions struct {
	pid      int
	sig      string
	module   string
	all      bool
	max      int
	context  int
	disasm   int
	bits     int
	plain    bool
	parallel int
}

func newScanCommand() *cobra.Command {
	var o scanOptions

	cmd := &cobra.Command{
		Use:   "scan --pid N --sig PATTERN (--module NAME | --all)",
		Short: "Scan a process for a byte signature.",
		Long: `Scan a module, or every readable range, for a signature such as
"48 8B 05 ?? ?? ?? ?? 25 F0 3F 00 00" and print a hexdump and a disassembly
at each hit. Rip-relative operands are resolved to absolute addresses.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("parallel") {
				o.parallel = conf.ScanParallelism
			}
			p, err := openPID(o.pid)
			if err != nil {
				return err
			}
			defer p.Close()
			return runScan(cmd, p, o)
		},
	}

	cmd.Flags().IntVar(&o.pid, "pid", 0, "Process ID to scan.")
	cmd.Flags().StringVar(&o.sig, "sig", "", "Signature, hex bytes with ?? wildcards.")
	cmd.Flags().StringVar(&o.module, "module", "", "Scan only this module.")
	cmd.Flags().BoolVar(&o.all, "all", false, "Scan every readable range.")
	cmd.Flags().IntVar(&o.max, "max", 16, "Stop after this many hits.")
	cmd.Flags().IntVar(&o.context, "context", 16, "Bytes of hexdump before and after each hit.")
	cmd.Flags().IntVar(&o.disasm, "disasm", 4, "Instructions to disassemble at each hit.")
	cmd.Flags().IntVar(&o.bits, "bits", 0, "Disassembly mode, 32 or 64 (default from the module header).")
	cmd.Flags().BoolVar(&o.plain, "plain", false, "Disable colors.")
	cmd.Flags().IntVar(&o.parallel, "parallel", 4, "Concurrent range readers with --all (default from config).")
	return cmd
}

func runScan(cmd *cobra.Command, p process.Process, o scanOptions) error {
	if o.sig == "" {
		return fmt.Errorf("--sig is required")
	}
	if o.module == "" && !o.all {
		return fmt.Errorf("one of --module or --all is required")
	}
	sig, err := signature.Parse(o.sig)
	if err != nil {
		return err
	}

	ranges, err := p.MemoryRanges()
	if err != nil {
		return err
	}

	var hits []process.Address
	bits := o.bits
	if o.module != "" {
		base, size, err := p.GetModuleRange(o.module)
		if err != nil {
			return err
		}
		if bits == 0 {
			if is64, ok := emulator.Is64Bit(p, base); ok && !is64 {
				bits = 32
			}
		}
		hits = sig.ScanAll(p, base, size)
	} else {
		if hits, err = signature.ScanAllRanges(cmd.Context(), p, sig, ranges, o.parallel); err != nil {
			return err
		}
	}
	if bits == 0 {
		bits = 64
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s: %d hits\n", sig, len(hits))
	if len(hits) > o.max {
		hits = hits[:o.max]
	}
	for _, hit := range hits {
		printHit(w, p, hit, sig.Len(), bits, ranges, o)
	}
	return nil
}

func printHit(w io.Writer, p process.Process, hit process.Address, length, bits int, ranges []memory_map.MemoryRange, o scanOptions) {
	fmt.Fprintf(w, "\n%s\n", hit)

	before := uint64(min(o.context, int(hit)))
	opts := hexdump.DefaultOptions()
	opts.Plain = o.plain
	opts.OffsetWidth = 16
	opts.Highlights = []hexdump.Span{{Start: int(before), Len: length}}
	opts.PointerSize = process.Bit64
	if bits == 32 {
		opts.PointerSize = process.Bit32
	}
	opts.MemoryMap = ranges
	if dump, err := hexdump.Memory(p, hit-process.Address(before), before+uint64(length+o.context), opts); err == nil {
		fmt.Fprint(w, dump)
	} else {
		fmt.Fprintln(w, "  ", err)
	}

	if o.disasm <= 0 {
		return
	}
	code, err := p.ReadMemory(hit, process.ProcessMemorySize(16*o.disasm))
	if err != nil {
		return
	}
	for _, inst := range emulator.Disassemble(code, hit, bits, o.disasm) {
		line := "  " + inst.String()
		if bits == 64 {
			if target, _, ok := emulator.DecodeRIPTarget(inst.Bytes, inst.Address); ok {
				line += fmt.Sprintf("    ; -> %s", target)
			}
		}
		fmt.Fprintln(w, line)
	}
}
