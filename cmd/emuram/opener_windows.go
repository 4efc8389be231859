//go:build windows

package main

import (
	"emuram/process"
	"emuram/process_windows"
)

func newOpener() process.Opener {
	return process_windows.NewHelper()
}
