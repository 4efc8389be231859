package main

import (
	"fmt"
	"io"

	"emuram/process"
	"emuram/search"

	"github.com/spf13/cobra"
)

type pathsOptions struct {
	pid     int
	base    string
	target  string
	module  string
	depth   int
	width   int
	maxSize uint64
	max     int
}

func newPathsCommand() *cobra.Command {
	var o pathsOptions

	cmd := &cobra.Command{
		Use:   "paths --pid N (--base ADDR | --module NAME) --target ADDR",
		Short: "Search for pointer paths from an anchor to an address.",
		Long: `Walk pointers outward from an anchor (an address, or a module's load
address) looking for a pointer equal to the target, typically a located RAM
base. Each result is an offset list usable as a pointer path.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openPID(o.pid)
			if err != nil {
				return err
			}
			defer p.Close()
			return runPaths(cmd.OutOrStdout(), p, o)
		},
	}

	cmd.Flags().IntVar(&o.pid, "pid", 0, "Process ID to search.")
	cmd.Flags().StringVar(&o.base, "base", "", "Anchor address.")
	cmd.Flags().StringVar(&o.module, "module", "", "Use this module's load address as the anchor.")
	cmd.Flags().StringVar(&o.target, "target", "", "Address the path must end at.")
	cmd.Flags().IntVar(&o.depth, "depth", 3, "Maximum pointers to follow.")
	cmd.Flags().IntVar(&o.width, "width", 8, "Pointer width in bytes, 4 or 8.")
	cmd.Flags().Uint64Var(&o.maxSize, "struct-size", 0x400, "Bytes scanned behind each pointer.")
	cmd.Flags().IntVar(&o.max, "max", 32, "Stop after this many paths.")
	return cmd
}

func runPaths(w io.Writer, p process.Process, o pathsOptions) error {
	if o.target == "" {
		return fmt.Errorf("--target is required")
	}
	target, err := parseAddress(o.target)
	if err != nil {
		return err
	}

	var base process.Address
	switch {
	case o.module != "":
		if base, err = p.GetModuleAddress(o.module); err != nil {
			return err
		}
	case o.base != "":
		if base, err = parseAddress(o.base); err != nil {
			return err
		}
	default:
		return fmt.Errorf("one of --base or --module is required")
	}

	size := process.PointerSize(o.width)
	if size != process.Bit32 && size != process.Bit64 {
		return fmt.Errorf("--width must be 4 or 8, got %d", o.width)
	}

	results, err := search.Search(p, base,
		search.WithSearchForAddress(target),
		search.WithPointerSize(size),
		search.WithMinAlignment(uint64(size)),
		search.WithMaxDepth(o.depth),
		search.WithMaxStructSize(o.maxSize),
		search.WithMaxResults(o.max),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%d paths from %s to %s\n", len(results), base, target)
	for _, r := range results {
		fmt.Fprintln(w, r)
	}
	return nil
}
