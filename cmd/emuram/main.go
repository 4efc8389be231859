// Command emuram locates and inspects the emulated RAM of running console
// emulators.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"emuram/config"
	"emuram/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool

	conf = config.Default()
	log  = logger.NewLogger(coloransi.Color(coloransi.ColorLimeGreen, coloransi.ColorOrange, "emuram"))
)

const emuramLongDesc = `emuram finds the emulated RAM of console emulators (GBA, GameCube, Wii,
Genesis, PlayStation 1 and 2, Master System) by scanning their code for
known instruction patterns, and keeps the located address fresh while the
emulator runs.

Settings are read from $XDG_CONFIG_HOME/emuram/config.yml unless --config
is given. Command line flags override the file.`

func newRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "emuram",
		Short:         "Locate and read emulated console RAM.",
		Long:          emuramLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("debug") {
				c.Debug = debug
			}
			conf = c
			return nil
		},
	}

	rootCommand.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file.")
	rootCommand.PersistentFlags().BoolVar(&debug, "debug", false, "Log every update, not just state changes.")

	rootCommand.AddCommand(
		newBackendsCommand(),
		newAttachCommand(),
		newScanCommand(),
		newDumpCommand(),
		newPathsCommand(),
	)
	return rootCommand
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// parseAddress accepts decimal or 0x-prefixed hex
func parseAddress(s string) (process.Address, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return process.NULL, fmt.Errorf("bad address %q: %w", s, err)
	}
	return process.Address(v), nil
}

func openPID(pid int) (process.Process, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("--pid is required")
	}
	p, err := newOpener().OpenProcess(process.ProcessID(pid))
	if err != nil {
		return nil, fmt.Errorf("attach to process %d: %w", pid, err)
	}
	return p, nil
}
