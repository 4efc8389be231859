package gba

import (
	"emuram/process"
)

// emuHawk runs mGBA as mgba.dll, so RAM is found the same way and the
// core module anchors liveness.
type emuHawk struct {
	core process.Address
}

func (l *emuHawk) FindRAM(p process.Process) (RAM, bool) {
	core, err := p.GetModuleAddress("mgba.dll")
	if err != nil {
		return RAM{}, false
	}
	ram, ok := findMGBABlock(p)
	if !ok {
		return RAM{}, false
	}
	l.core = core
	return ram, true
}

func (l *emuHawk) KeepAlive(p process.Process, _ *RAM) bool {
	if l.core.IsNull() {
		return false
	}
	_, err := process.Read[uint8](p, l.core)
	return err == nil
}
