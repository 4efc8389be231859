package main

import (
	"fmt"
	"strings"

	"emuram/emulator"
	"emuram/emulator/gba"
	"emuram/emulator/gcn"
	"emuram/emulator/genesis"
	"emuram/emulator/ps1"
	"emuram/emulator/ps2"
	"emuram/emulator/sms"
	"emuram/emulator/wii"
	"emuram/process"
)

// registryEntry is one row of a family's process or core table
type registryEntry struct {
	Name    string
	Backend string
}

// family erases a console package's concrete Emulator type
type family struct {
	Name          string
	Attach        func(process.Opener) (emulator.Target, bool)
	AttachProcess func(process.Process, string) (emulator.Target, bool)
	Processes     []registryEntry
	Cores         []string
}

func attacher[E emulator.Target](f func(process.Opener) (E, bool)) func(process.Opener) (emulator.Target, bool) {
	return func(o process.Opener) (emulator.Target, bool) {
		e, ok := f(o)
		if !ok {
			return nil, false
		}
		return e, true
	}
}

func processAttacher[E emulator.Target](f func(process.Process, string) (E, bool)) func(process.Process, string) (emulator.Target, bool) {
	return func(p process.Process, name string) (emulator.Target, bool) {
		e, ok := f(p, name)
		if !ok {
			return nil, false
		}
		return e, true
	}
}

func processTable[T interface {
	comparable
	fmt.Stringer
}](r emulator.Registry[T]) []registryEntry {
	var out []registryEntry
	for _, e := range r.Entries() {
		out = append(out, registryEntry{Name: e.Name, Backend: e.Tag.String()})
	}
	return out
}

func coreNames[T comparable](r emulator.Registry[T]) []string {
	var out []string
	for _, e := range r.Entries() {
		out = append(out, e.Name)
	}
	return out
}

var families = []family{
	{
		Name:          "gba",
		Attach:        attacher(gba.Attach),
		AttachProcess: processAttacher(gba.AttachProcess),
		Processes:     processTable(gba.Processes),
		Cores:         coreNames(gba.Cores),
	},
	{
		Name:          "gcn",
		Attach:        attacher(gcn.Attach),
		AttachProcess: processAttacher(gcn.AttachProcess),
		Processes:     processTable(gcn.Processes),
		Cores:         coreNames(gcn.Cores),
	},
	{
		Name:          "wii",
		Attach:        attacher(wii.Attach),
		AttachProcess: processAttacher(wii.AttachProcess),
		Processes:     processTable(wii.Processes),
		Cores:         coreNames(wii.Cores),
	},
	{
		Name:          "genesis",
		Attach:        attacher(genesis.Attach),
		AttachProcess: processAttacher(genesis.AttachProcess),
		Processes:     processTable(genesis.Processes),
		Cores:         coreNames(genesis.Cores),
	},
	{
		Name:          "ps1",
		Attach:        attacher(ps1.Attach),
		AttachProcess: processAttacher(ps1.AttachProcess),
		Processes:     processTable(ps1.Processes),
		Cores:         coreNames(ps1.Cores),
	},
	{
		Name:          "ps2",
		Attach:        attacher(ps2.Attach),
		AttachProcess: processAttacher(ps2.AttachProcess),
		Processes:     processTable(ps2.Processes),
		Cores:         coreNames(ps2.Cores),
	},
	{
		Name:          "sms",
		Attach:        attacher(sms.Attach),
		AttachProcess: processAttacher(sms.AttachProcess),
		Processes:     processTable(sms.Processes),
		Cores:         coreNames(sms.Cores),
	},
}

func lookupFamily(name string) (family, error) {
	for _, f := range families {
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	names := make([]string, len(families))
	for i, f := range families {
		names[i] = f.Name
	}
	return family{}, fmt.Errorf("unknown family %q, expected one of %s", name, strings.Join(names, ", "))
}

// enabledFamilies resolves names, or every family allowed by the config
// when names is empty
func enabledFamilies(names []string) ([]family, error) {
	if len(names) > 0 {
		out := make([]family, 0, len(names))
		for _, n := range names {
			f, err := lookupFamily(n)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
		return out, nil
	}
	var out []family
	for _, f := range families {
		if conf.WantsFamily(f.Name) {
			out = append(out, f)
		}
	}
	return out, nil
}
