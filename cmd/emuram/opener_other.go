//go:build !linux && !windows

package main

import (
	"fmt"
	"runtime"

	"emuram/process"
)

type unsupportedOpener struct{}

func newOpener() process.Opener {
	return unsupportedOpener{}
}

func (unsupportedOpener) OpenProcess(pid process.ProcessID) (process.Process, error) {
	return nil, fmt.Errorf("%s: %w", runtime.GOOS, process.ErrProcessNotFound)
}

func (unsupportedOpener) OpenProcessByName(name string) (process.Process, error) {
	return nil, fmt.Errorf("%s: %w", runtime.GOOS, process.ErrProcessNotFound)
}
