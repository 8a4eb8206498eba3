package ga144

import "testing"

func TestEncodeDecodeWordRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		ops  []byte
		addr uint32
	}{
		{"all-nop", []byte{OpNop, OpNop, OpNop, OpNop}, 0},
		{"alu-triplet", []byte{OpDup, OpPlus, OpDrop, OpNop}, 0},
		{"jump-slot0", []byte{OpJump}, 0x145},
		{"call-slot1", []byte{OpDup, OpCall}, 0x3F},
		{"next-slot2", []byte{OpDup, OpDup, OpNext}, 0x7},
		{"return-slot0", []byte{OpReturn}, 0},
		{"execute-slot0", []byte{OpExecute}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w, err := EncodeWord(c.ops, c.addr)
			if err != nil {
				t.Fatalf("EncodeWord: %v", err)
			}
			slots := DecodeWord(w)
			if len(slots) == 0 {
				t.Fatalf("DecodeWord returned no slots")
			}
			last := slots[len(slots)-1]
			wantOp := c.ops[len(c.ops)-1]
			if last.Opcode != wantOp {
				t.Fatalf("last decoded opcode = %d, want %d", last.Opcode, wantOp)
			}
			if isBranch(wantOp) {
				if !last.HasAddr || last.Addr != c.addr {
					t.Fatalf("branch addr = %d (hasAddr=%v), want %d", last.Addr, last.HasAddr, c.addr)
				}
			}
		})
	}
}

func TestEncodeWordRejectsBadSlot3(t *testing.T) {
	if _, err := EncodeWord([]byte{OpNop, OpNop, OpNop, OpJump}, 0); err == nil {
		t.Fatalf("expected error encoding a non-multiple-of-4 opcode at slot 3")
	}
}

func TestEncodeWordRejectsOversizedAddress(t *testing.T) {
	// slot 0 has 13 address bits (0..0x1FFF); 0x2000 overflows it.
	if _, err := EncodeWord([]byte{OpJump}, 0x2000); err == nil {
		t.Fatalf("expected error for an address that doesn't fit slot 0's field")
	}
}

func TestEncodeWordRejectsEmptyOrOversizedSlotList(t *testing.T) {
	if _, err := EncodeWord(nil, 0); err == nil {
		t.Fatalf("expected error for zero opcodes")
	}
	if _, err := EncodeWord([]byte{OpNop, OpNop, OpNop, OpNop, OpNop}, 0); err == nil {
		t.Fatalf("expected error for more than 4 opcodes")
	}
}

func TestRawDataMasksTo18Bits(t *testing.T) {
	w := RawData(0xFFFFFFFF)
	if uint32(w) != wordMask {
		t.Fatalf("RawData(0xFFFFFFFF) = 0x%X, want 0x%X", uint32(w), wordMask)
	}
}

func TestDecodeSlotAtMatchesFullDecode(t *testing.T) {
	w, err := EncodeWord([]byte{OpDup, OpOver, OpDrop, OpNop}, 0)
	if err != nil {
		t.Fatalf("EncodeWord: %v", err)
	}
	full := DecodeWord(w)
	for _, s := range full {
		op, hasAddr, addr := decodeSlotAt(w, s.Index)
		if op != s.Opcode || hasAddr != s.HasAddr || addr != s.Addr {
			t.Fatalf("decodeSlotAt(%d) = (%d,%v,%d), want (%d,%v,%d)", s.Index, op, hasAddr, addr, s.Opcode, s.HasAddr, s.Addr)
		}
	}
}
