//go:build linux

package main

import (
	"emuram/process"
	"emuram/process_linux"
)

func newOpener() process.Opener {
	return process_linux.NewHelper()
}
