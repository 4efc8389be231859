package main

import (
	"context"
	"fmt"
	"time"

	"emuram/emulator"
	"emuram/watcher"

	"github.com/spf13/cobra"
)

func newAttachCommand() *cobra.Command {
	var (
		interval time.Duration
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "attach [family...]",
		Short: "Wait for an emulator and track its RAM.",
		Long: `Wait until a supported emulator is running, then locate its RAM and keep
the address fresh until the emulator exits or Ctrl-C is pressed.

Families are tried in order; without arguments every family enabled in the
config is tried.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fams, err := enabledFamilies(args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("interval") {
				interval = conf.PollInterval
			}

			ctx := cmd.Context()
			t, err := waitAttach(ctx, fams, interval)
			if err != nil {
				return err
			}
			defer t.Process().Close()

			if once {
				t.Update()
				fmt.Fprintln(cmd.OutOrStdout(), t.Describe())
				return nil
			}
			return watch(ctx, t, interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 16*time.Millisecond, "Time between updates (default from config).")
	cmd.Flags().BoolVar(&once, "once", false, "Run discovery once, print the result and exit.")
	return cmd
}

// waitAttach retries every family until one of their processes is running
func waitAttach(ctx context.Context, fams []family, interval time.Duration) (emulator.Target, error) {
	if len(fams) == 0 {
		return nil, fmt.Errorf("no families enabled")
	}
	opener := newOpener()
	retry := max(interval, 500*time.Millisecond)
	log.Infoln("waiting for an emulator")
	for {
		for _, f := range fams {
			if t, ok := f.Attach(opener); ok {
				log.Infoln("attached", f.Name, "pid", t.Process().GetPID())
				return t, nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retry):
		}
	}
}

// watch polls t until its process exits or ctx is cancelled, logging state
// and RAM base changes
func watch(ctx context.Context, t emulator.Target, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var state watcher.Watcher[emulator.State]
	var described watcher.Watcher[string]

	for first := true; ; first = false {
		if !t.IsOpen() {
			log.Infoln("emulator exited")
			return nil
		}

		t.Update()
		s := state.UpdateInfallible(t.State())
		d := described.UpdateInfallible(t.Describe())
		if first || s.Changed() || d.Changed() {
			log.Infoln(d.Current)
		} else if conf.Debug {
			log.Debugln(d.Current)
		}
		if s.ChangedTo(emulator.Lost) {
			log.Warn("lost the RAM base, rediscovering")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
