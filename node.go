// node.go - F18A node: registers, stacks, memory, and the fetch/execute cycle

package ga144

// NodeState is the scheduling state of one F18A node (§3, §9: modeled as a
// tagged variant rather than a class hierarchy — there is no inheritance
// here, just a struct and an enum).
type NodeState int

const (
	StateRunning NodeState = iota
	StateBlockedRead
	StateBlockedWrite
	StateSuspended
)

// Node is one F18A processor: its register file, circular stacks, local
// RAM/ROM, and the bookkeeping the controller needs to schedule it.
type Node struct {
	Coord Coord
	index int // 0..143 controller slot, set at construction

	// Registers (§3).
	P  uint16 // 9-bit program counter
	I  Word   // current instruction word
	A  uint32 // 18-bit
	B  uint16 // 9-bit, default = IO port address
	T  uint32 // top of data stack
	S  uint32 // second of data stack
	R  uint32 // top of return stack
	IO uint32 // 18-bit IO register

	slotIndex   int
	activeIndex int

	dataStack   [DataStackDepth]uint32
	dataDepth   int
	returnStack [ReturnStackDepth]uint32
	returnDepth int

	ram [RAMSize]uint32
	rom [ROMSize]uint32

	pin17 bool
	wd    bool // armed wake polarity, latched from IO bit ioWDBit

	state   NodeState
	thermal thermalState
	seed    uint32 // thermal PRNG seed, reapplied by Reset

	// blockedAddr records the port address a BLOCKED_READ/BLOCKED_WRITE
	// node is waiting on, so the controller knows which channel(s) to
	// retry when conditions change.
	blockedAddr uint32

	// pendingMultiport holds the set of directions a blocked multiport
	// read registered against, so they can all be cleared on delivery.
	pendingMultiport []Direction

	// needFetch is true when the next executeInstruction call must load a
	// fresh word into I before dispatching a slot (§4.4 fetch phase).
	needFetch bool

	// resumeFn, when non-nil, finishes a memory op that blocked partway
	// through (push/pop plus pointer advance) once its rendezvous
	// completes; blockedOp records which opcode it belongs to so thermal
	// timing can still be charged on completion.
	resumeFn  func(value uint32)
	blockedOp byte

	pendingStoreValue uint32
	pendingStoreValid bool
}

// NewNode constructs a node at coord with a given controller slot index
// and ROM image (copied into the node's own ROM array at construction;
// stores to the ROM address range change that copy, not rom).
func NewNode(coord Coord, index int, rom []uint32, seed uint32) *Node {
	n := &Node{
		Coord:   coord,
		index:   index,
		B:       PortIO,
		thermal: newThermalState(seed + uint32(index)),
		seed:    seed + uint32(index),
	}
	copy(n.rom[:], rom)
	n.Reset()
	return n
}

// Reset rewrites RAM from the node's ROM reference and re-seeds thermal
// state, matching the chip-level reset lifecycle (§3).
func (n *Node) Reset() {
	copy(n.ram[:], n.rom[:])
	n.P = 0
	n.I = 0
	n.A = 0
	n.B = PortIO
	n.T = 0
	n.S = 0
	n.R = 0
	n.IO = 0
	n.slotIndex = 0
	n.dataDepth = 0
	n.returnDepth = 0
	n.pin17 = false
	n.wd = false
	n.state = StateRunning
	n.blockedAddr = 0
	n.pendingMultiport = nil
	n.needFetch = true
	n.resumeFn = nil
	n.blockedOp = 0
	n.pendingStoreValid = false
	n.thermal = newThermalState(n.seed)
}

// advanceSlot moves to the next slot of the current word, or arms a fresh
// fetch if the word is exhausted (§4.4).
func (n *Node) advanceSlot() {
	if n.slotIndex >= 3 {
		n.needFetch = true
	} else {
		n.slotIndex++
	}
}

// endWord ends the current word immediately regardless of slotIndex, used
// by branch/return/execute opcodes that consume the rest of the word.
func (n *Node) endWord() {
	n.needFetch = true
}

// takeStoreValue pops T for a store opcode the first time it's called for
// this instruction; if the store blocks, the value is held here rather
// than re-popped on completion.
func (n *Node) takeStoreValue() uint32 {
	if !n.pendingStoreValid {
		n.pendingStoreValue = n.popData()
		n.pendingStoreValid = true
	}
	return n.pendingStoreValue
}

func (n *Node) clearStoreValue() {
	n.pendingStoreValid = false
}

// LoadImage installs a CompiledNode's memory and initial register state,
// following §6's {coord, mem, len, p?, a?, b?, io?, stack?} shape.
func (n *Node) LoadImage(img CompiledNode) {
	for i := 0; i < RAMSize && i < len(img.Mem); i++ {
		if img.Mem[i] != nil {
			n.ram[i] = uint32(*img.Mem[i])
		}
	}
	if img.P != nil {
		n.P = *img.P
	}
	if img.A != nil {
		n.A = *img.A
	}
	if img.B != nil {
		n.B = *img.B
	}
	if img.IO != nil {
		n.IO = *img.IO
		n.applyIOWrite(n.IO)
	}
	for _, v := range img.Stack {
		n.pushData(v)
	}
}

// --- data/return stack helpers (circular, §3) ---

func (n *Node) pushData(v uint32) {
	if n.dataDepth > 0 {
		n.dataStack[(n.dataDepth-1)%DataStackDepth] = n.S
	}
	n.S = n.T
	n.T = v
	n.dataDepth++
}

func (n *Node) popData() uint32 {
	v := n.T
	if n.dataDepth > 0 {
		n.dataDepth--
	}
	n.T = n.S
	if n.dataDepth > 0 {
		n.S = n.dataStack[(n.dataDepth-1)%DataStackDepth]
	} else {
		n.S = 0
	}
	return v
}

func (n *Node) pushReturn(v uint32) {
	if n.returnDepth > 0 {
		n.returnStack[(n.returnDepth-1)%ReturnStackDepth] = n.R
	}
	n.R = v
	n.returnDepth++
}

func (n *Node) popReturn() uint32 {
	v := n.R
	if n.returnDepth > 0 {
		n.returnDepth--
	}
	if n.returnDepth > 0 {
		n.R = n.returnStack[(n.returnDepth-1)%ReturnStackDepth]
	} else {
		n.R = 0
	}
	return v
}

// --- local memory access (§3: RAM 0x00-0x3F, ROM 0x80-0xBF) ---

func (n *Node) readLocal(addr uint16) uint32 {
	a := addr & localAddrMask
	if addr&0x80 != 0 {
		return n.rom[a]
	}
	return n.ram[a]
}

// ReadLocal exposes readLocal for external inspection (disassembly,
// CLI/debugger snapshots) without granting write access to RAM/ROM.
func (n *Node) ReadLocal(addr uint16) uint32 {
	return n.readLocal(addr)
}

func (n *Node) writeLocal(addr uint16, v uint32) {
	a := addr & localAddrMask
	if addr&0x80 != 0 {
		n.rom[a] = v & wordMask
		return
	}
	n.ram[a] = v & wordMask
}

// --- IO register synthesis (§3) ---

// synthesizeIO recomputes the live-readable value of the IO register from
// pin/port state, called whenever the IO address is read.
func (n *Node) synthesizeIO(rightChan *channel) uint32 {
	v := n.IO &^ uint32(ioPin1Mask) &^ uint32(ioPin17Mask) &^ (1 << ioRrBit) &^ (1 << ioRwBit)
	if n.pin17 {
		v |= Pin17DriveHigh << ioPin17Shift
	} else {
		v |= Pin17DriveLow << ioPin17Shift
	}
	if rightChan != nil {
		if rightChan.hasReader {
			v |= 1 << ioRrBit
		}
		if rightChan.hasWriter {
			v |= 1 << ioRwBit
		}
	}
	return v & wordMask
}

// applyIOWrite latches a write to the IO register: pin1/pin17 drive bits
// and the WD wake-polarity select.
func (n *Node) applyIOWrite(v uint32) {
	n.IO = v & wordMask
	drive := (v >> ioPin17Shift) & 0x3
	switch drive {
	case Pin17DriveHigh:
		n.pin17 = true
	case Pin17DriveLow:
		n.pin17 = false
	default:
		// hi-Z / weak pulldown: leave the latch as the serial driver
		// or a previous drive left it.
	}
	n.wd = (v>>ioWDBit)&1 != 0
}

// SetPin17 is called by the serial driver to drive this node's wake pin
// directly, bypassing an IO-register write (§4.6).
func (n *Node) SetPin17(high bool) {
	n.pin17 = high
}

// wakeSatisfied reports whether a read from this node's own wake port
// would complete immediately right now (§4.4, §8 "wake-pin rule"):
// WD=0 waits for HIGH and returns 1; WD=1 waits for LOW and returns 0.
func (n *Node) wakeSatisfied() (value uint32, ok bool) {
	if !n.wd {
		if n.pin17 {
			return 1, true
		}
		return 0, false
	}
	if !n.pin17 {
		return 0, true
	}
	return 0, false
}
