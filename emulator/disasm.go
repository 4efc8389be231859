package emulator

import (
	"fmt"

	"emuram/process"

	"golang.org/x/arch/x86/x86asm"
)

// DecodeRIPTarget decodes one amd64 instruction at pc and returns the
// absolute address of its rip-relative memory operand or branch target.
func DecodeRIPTarget(code []byte, pc process.Address) (process.Address, int, bool) {
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return process.NULL, 0, false
	}
	next := int64(pc) + int64(inst.Len)
	for _, arg := range inst.Args {
		switch a := arg.(type) {
		case x86asm.Mem:
			if a.Base == x86asm.RIP {
				// x86asm zero-extends disp32
				return process.Address(next + int64(int32(a.Disp))), inst.Len, true
			}
		case x86asm.Rel:
			return process.Address(next + int64(a)), inst.Len, true
		}
	}
	return process.NULL, inst.Len, false
}

// Instruction is one decoded line of a disassembly listing
type Instruction struct {
	Address process.Address
	Bytes   []byte
	Text    string
}

func (i Instruction) String() string {
	return fmt.Sprintf("%s  % -24x %s", i.Address, i.Bytes, i.Text)
}

// Disassemble decodes up to count instructions from code, which was read at
// pc. mode is 32 or 64. Undecodable bytes end the listing.
func Disassemble(code []byte, pc process.Address, mode, count int) []Instruction {
	var out []Instruction
	for off := 0; off < len(code) && len(out) < count; {
		inst, err := x86asm.Decode(code[off:], mode)
		if err != nil || inst.Len == 0 {
			break
		}
		at := pc.Add(uint64(off))
		out = append(out, Instruction{
			Address: at,
			Bytes:   code[off : off+inst.Len],
			Text:    x86asm.IntelSyntax(inst, uint64(at), nil),
		})
		off += inst.Len
	}
	return out
}
