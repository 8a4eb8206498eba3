// Package disasm decodes F18A words back into GA144 mnemonics (spec.md
// §2, "Disassembler", and §4.1).
//
// Grounded on the teacher's debug_disasm_z80.go / DisassembledLine shape
// (Address/HexBytes/Mnemonic/Size/IsBranch/BranchTarget), adapted here from
// a variable-length byte instruction stream to a fixed-width 18-bit word
// with up to four opcode slots.
package disasm

import (
	"fmt"
	"strings"

	ga144 "github.com/skmp/cubed-sub001"
)

// mnemonics maps each opcode to its GA144 source-level token (§4.4).
var mnemonics = map[byte]string{
	ga144.OpReturn:       ";",
	ga144.OpExecute:      "ex",
	ga144.OpJump:         "jump",
	ga144.OpCall:         "call",
	ga144.OpUnext:        "unext",
	ga144.OpNext:         "next",
	ga144.OpIf:           "if",
	ga144.OpMinusIf:      "-if",
	ga144.OpFetchP:       "@p",
	ga144.OpFetchPlus:    "@+",
	ga144.OpFetchB:       "@b",
	ga144.OpFetch:        "@",
	ga144.OpStoreP:       "!p",
	ga144.OpStorePlus:    "!+",
	ga144.OpStoreB:       "!b",
	ga144.OpStore:        "!",
	ga144.OpMultiplyStep: "+*",
	ga144.OpShiftLeft2:   "2*",
	ga144.OpShiftRight2:  "2/",
	ga144.OpNot:          "-",
	ga144.OpPlus:         "+",
	ga144.OpAnd:          "and",
	ga144.OpOr:           "or",
	ga144.OpDrop:         "drop",
	ga144.OpDup:          "dup",
	ga144.OpPop:          "pop",
	ga144.OpOver:         "over",
	ga144.OpAFetch:       "a",
	ga144.OpNop:          ".",
	ga144.OpPush:         "push",
	ga144.OpBStore:       "b!",
	ga144.OpAStore:       "a!",
}

// branchMnemonics is the subset of opcodes that consume a branch address
// (§4.4).
var branchMnemonics = map[byte]bool{
	ga144.OpJump:    true,
	ga144.OpCall:    true,
	ga144.OpNext:    true,
	ga144.OpIf:      true,
	ga144.OpMinusIf: true,
}

// Line is one disassembled word: its address, raw hex, and the decoded
// slot-by-slot mnemonic text, mirroring the teacher's DisassembledLine
// (Address/HexBytes/Mnemonic/Size/IsBranch/BranchTarget), with HexWord in
// place of HexBytes and no Size field, since every GA144 instruction
// occupies exactly one 18-bit word regardless of how many of its four
// slots are used.
type Line struct {
	Address      uint16
	HexWord      string
	Mnemonic     string
	IsBranch     bool
	BranchTarget uint32
}

// DecodeWord disassembles one word into a Line at the given address. Slot
// mnemonics are joined with a space; a branch opcode's address operand is
// appended after its mnemonic (e.g. "call 0042").
func DecodeWord(addr uint16, w ga144.Word) Line {
	slots := ga144.DecodeWord(w)
	parts := make([]string, 0, len(slots))
	line := Line{Address: addr, HexWord: fmt.Sprintf("%05X", uint32(w)&0x3FFFF)}
	for _, s := range slots {
		name, ok := mnemonics[s.Opcode]
		if !ok {
			name = fmt.Sprintf("op%d", s.Opcode)
		}
		if s.HasAddr {
			parts = append(parts, fmt.Sprintf("%s %04X", name, s.Addr))
			if branchMnemonics[s.Opcode] {
				line.IsBranch = true
				line.BranchTarget = s.Addr
			}
		} else {
			parts = append(parts, name)
		}
	}
	line.Mnemonic = strings.Join(parts, " ")
	return line
}

// DecodeRange disassembles count consecutive words starting at addr, read
// through readMem (so callers can disassemble RAM, ROM, or any other
// in-memory word source without this package depending on *ga144.Node),
// mirroring the teacher's disassembleZ80(readMem, addr, count) shape.
func DecodeRange(readMem func(addr uint16) ga144.Word, addr uint16, count int) []Line {
	lines := make([]Line, 0, count)
	for i := 0; i < count; i++ {
		a := addr + uint16(i)
		lines = append(lines, DecodeWord(a, readMem(a)))
	}
	return lines
}
