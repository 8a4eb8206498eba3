// controller.go - GA144 scheduler: owns all 144 nodes and the event queue
//
// Grounded on memory_bus.go's SystemBus (single owner of shared state,
// address-range dispatch) and coprocessor_manager.go's manager loop, both
// repurposed here to drive node stepping instead of CPU/peripheral MMIO.

package ga144

import "fmt"

// idleSweepInterval is how many dequeued events pass between leakage
// charges to suspended nodes (§4.5 "≈1000 events").
const idleSweepInterval = 1000

// GA144 owns the full 144-node mesh, the shared event queue, the port
// fabric linking adjacent nodes, and the tagged I/O observation ring.
type GA144 struct {
	nodes    [144]*Node
	channels map[linkKey]*channel

	queue *EventQueue
	ring  *IORing

	serial *serialDriver

	eventsSinceIdleSweep int
	lastIdleSweepTime    float64

	breakpointHit bool
}

// linkKey names one end of a physical channel: a node index and the
// direction from that node. An internal channel is stored under the keys
// of both its endpoints; a boundary channel under its one node's key.
type linkKey struct {
	node int
	dir  Direction
}

// emptyROM is the blank ROM image NewGA144 gives every node. The emulator
// ships no real ROM contents (that's GreenArrays' firmware, not part of
// this spec); callers that need booted behavior load a Program that
// already contains the post-boot node images, or supply their own ROM via
// NewGA144WithROM.
var emptyROM [ROMSize]uint32

// NewGA144 builds a fresh 144-node mesh with empty ROM, seeded thermal
// PRNGs, and fully wired port channels (§4.5, §9 "cyclic neighbor graph" —
// channels are addressed by integer index, not owning references).
func NewGA144(seed uint32) *GA144 {
	return NewGA144WithROM(seed, nil)
}

// NewGA144WithROM is NewGA144 with an explicit 64-word ROM image shared by
// every node (a real deployment would pass GA144's documented node0/node708
// ROMs; tests typically pass nil for a blank chip and load images directly).
func NewGA144WithROM(seed uint32, rom []uint32) *GA144 {
	if rom == nil {
		rom = emptyROM[:]
	}
	g := &GA144{
		channels: make(map[linkKey]*channel),
		queue:    NewEventQueue(),
		ring:     NewIORing(),
	}
	for i := 0; i < 144; i++ {
		g.nodes[i] = NewNode(coordFromIndex(i), i, rom, seed)
	}
	g.wireChannels()
	g.serial = newSerialDriver(g)
	return g
}

// wireChannels builds one channel per physical link in each of the four
// directions from every node, marking mesh-edge links as permanent
// boundaries (peer index -1, §4.4 "node failures": boundary ports block
// forever).
func (g *GA144) wireChannels() {
	for i := 0; i < 144; i++ {
		row, col := coordFromIndex(i).RowCol()
		neighbors := map[Direction]int{
			DirRight: neighborIndex(row, col, 0, 1),
			DirLeft:  neighborIndex(row, col, 0, -1),
			DirDown:  neighborIndex(row, col, 1, 0),
			DirUp:    neighborIndex(row, col, -1, 0),
		}
		for dir, peer := range neighbors {
			key := linkKey{node: i, dir: dir}
			if _, exists := g.channels[key]; exists {
				continue
			}
			c := &channel{peerA: i, peerB: peer}
			g.channels[key] = c
			if peer >= 0 {
				g.channels[linkKey{node: peer, dir: oppositeDirection(dir)}] = c
			}
		}
	}
}

func neighborIndex(row, col, dRow, dCol int) int {
	nr, nc := row+dRow, col+dCol
	if nr < 0 || nr > 7 || nc < 0 || nc > 17 {
		return -1
	}
	return nr*18 + nc
}

func oppositeDirection(d Direction) Direction {
	switch d {
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	case DirUp:
		return DirDown
	default:
		return DirUp
	}
}

func (g *GA144) channelFor(nodeIdx int, dir Direction) *channel {
	return g.channels[linkKey{node: nodeIdx, dir: dir}]
}

// Reset restores every node to its post-construction ROM state and empties
// the event queue, ring, and serial driver, then re-enqueues every node to
// run from P=0.
func (g *GA144) Reset() {
	g.queue = NewEventQueue()
	g.ring = NewIORing()
	g.serial = newSerialDriver(g)
	g.eventsSinceIdleSweep = 0
	g.lastIdleSweepTime = 0
	g.breakpointHit = false
	for i, n := range g.nodes {
		n.Reset()
		_ = g.queue.Insert(0, EventNode, uint16(i))
	}
}

// LoadProgram installs every CompiledNode's image directly (no serial
// boot), then enqueues an initial event for each loaded node at its own
// starting P (§6 "load_program").
func (g *GA144) LoadProgram(p *Program) {
	for _, img := range p.Nodes {
		idx := img.Coord.index()
		if idx < 0 {
			continue
		}
		g.nodes[idx].LoadImage(img)
		_ = g.queue.Insert(g.nodes[idx].thermal.simulatedTime, EventNode, uint16(idx))
	}
}

// EnqueueSerialBits schedules a bit sequence onto coord's pin17 (§4.6).
func (g *GA144) EnqueueSerialBits(coord Coord, segments []BitSegment) error {
	idx := coord.index()
	if idx < 0 {
		return fmt.Errorf("ga144: invalid coord %d", coord)
	}
	return g.serial.Enqueue(idx, segments)
}

// Node returns the live node at coord for inspection (used by tests);
// callers must not retain it across a Reset.
func (g *GA144) Node(coord Coord) *Node {
	idx := coord.index()
	if idx < 0 {
		return nil
	}
	return g.nodes[idx]
}

// Ring exposes the I/O observation ring for observers.
func (g *GA144) Ring() *IORing { return g.ring }

// NodeSnapshot is a copy of one node's observable state at the moment it
// was taken (§6 "snapshot(coord)"). It shares nothing with the live node,
// so callers may hold it across further stepping.
type NodeSnapshot struct {
	Coord Coord
	State NodeState

	P  uint16
	I  Word
	A  uint32
	B  uint16
	T  uint32
	S  uint32
	R  uint32
	IO uint32

	SimulatedTime float64
	RAM           [RAMSize]uint32
}

// Snapshot captures the node at coord, or ok=false for an invalid coord.
func (g *GA144) Snapshot(coord Coord) (NodeSnapshot, bool) {
	idx := coord.index()
	if idx < 0 {
		return NodeSnapshot{}, false
	}
	return g.snapshotNode(g.nodes[idx]), true
}

// SnapshotAll captures every node on the chip in index order (§6
// "snapshot()").
func (g *GA144) SnapshotAll() []NodeSnapshot {
	out := make([]NodeSnapshot, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = g.snapshotNode(n)
	}
	return out
}

func (g *GA144) snapshotNode(n *Node) NodeSnapshot {
	s := NodeSnapshot{
		Coord: n.Coord,
		State: n.state,
		P:     n.P,
		I:     n.I,
		A:     n.A,
		B:     n.B,
		T:     n.T,
		S:     n.S,
		R:     n.R,
		IO:    n.IO,

		SimulatedTime: n.thermal.simulatedTime,
	}
	s.RAM = n.ram
	return s
}

// SetBreakpoint arms or disarms the chip-level breakpoint flag a debugger
// can set; the scheduler checks it after every instruction (§4.4).
func (g *GA144) SetBreakpoint(hit bool) { g.breakpointHit = hit }

// StepN runs up to n scheduler events (dequeue → execute → re-enqueue) and
// reports whether the breakpoint flag was observed set. It is the
// workhorse behind both step_n and step_until_done (§6, §4.5).
func (g *GA144) StepN(n int) (breakpointHit bool) {
	for i := 0; i < n; i++ {
		if !g.stepOnce() {
			break
		}
		if g.breakpointHit {
			return true
		}
	}
	return false
}

// StepUntilDone runs until the queue is empty or budget events have been
// consumed, returning whether the queue drained before the budget ran out
// (§6 "step_until_done").
func (g *GA144) StepUntilDone(budget int) bool {
	for i := 0; i < budget; i++ {
		if g.queue.Len() == 0 {
			return true
		}
		if !g.stepOnce() {
			return true
		}
		if g.breakpointHit {
			return false
		}
	}
	return g.queue.Len() == 0
}

// stepOnce dequeues and processes exactly one event, applying the hot-loop
// optimization for NODE events that remain immediately runnable (§4.5).
// It returns false if the queue was empty.
func (g *GA144) stepOnce() bool {
	ev, ok := g.queue.Dequeue()
	if !ok {
		return false
	}
	g.eventsSinceIdleSweep++
	if g.eventsSinceIdleSweep >= idleSweepInterval {
		g.idleSweep(ev.Time)
		g.eventsSinceIdleSweep = 0
	}

	switch ev.Type {
	case EventSerial:
		g.serial.Fire(ev.Payload)
	case EventNode:
		g.runNodeEvent(int(ev.Payload), ev.Time)
	}
	return true
}

// runNodeEvent executes one instruction for the node named by idx at time
// t, re-enqueueing it (directly, without another queue round-trip) as long
// as it stays runnable and its next time doesn't pass the current queue
// head — the hot-loop optimization described in §4.5.
func (g *GA144) runNodeEvent(idx int, t float64) {
	n := g.nodes[idx]
	for {
		n.thermal.simulatedTime = t
		nextT := g.executeInstruction(n)
		if n.state != StateRunning {
			return
		}
		if g.breakpointHit {
			_ = g.queue.Insert(nextT, EventNode, uint16(idx))
			return
		}
		headT, ok := g.queue.PeekTime()
		if !ok || nextT > headT {
			_ = g.queue.Insert(nextT, EventNode, uint16(idx))
			return
		}
		t = nextT
	}
}

// idleSweep charges leakage to every suspended node for the simulated time
// that has elapsed since the last sweep (§4.5 "idle sweep").
func (g *GA144) idleSweep(now float64) {
	elapsed := now - g.lastIdleSweepTime
	g.lastIdleSweepTime = now
	if elapsed <= 0 {
		return
	}
	for _, n := range g.nodes {
		if n.state != StateRunning {
			n.thermal.IdleDecay(elapsed)
		}
	}
}

// blockNode parks n in the given state, waiting on addr, and cancels its
// pending NODE event (§4.3 RemoveAllMatching, §5 "cancellation").
func (g *GA144) blockNode(n *Node, state NodeState, addr uint32) {
	n.state = state
	n.blockedAddr = addr
	g.queue.RemoveAllMatching(EventNode, uint16(n.index))
}

// wakeNode returns n to RUNNING and re-enqueues it at its current
// simulated time (§5 "waking re-enqueues it at its current simulated
// time"), clearing any leftover multiport reader registrations first.
func (g *GA144) wakeNode(n *Node) {
	if n.pendingMultiport != nil {
		for _, d := range n.pendingMultiport {
			g.channelFor(n.index, d).clearReader(n.index)
		}
		n.pendingMultiport = nil
	}
	n.state = StateRunning
	n.blockedAddr = 0
	_ = g.queue.Insert(n.thermal.simulatedTime, EventNode, uint16(n.index))
}

// completeAndWake finishes a blocked memory op (via its stored resumeFn),
// charges thermal timing for the opcode that blocked, and re-enqueues the
// node. value is the delivered word for a completed read; ignored for a
// completed write (the value was already taken from the stack when the
// write was first attempted).
func (g *GA144) completeAndWake(n *Node, value uint32) {
	fn := n.resumeFn
	n.resumeFn = nil
	if fn != nil {
		fn(value)
	}
	n.thermal.Step(n.blockedOp)
	g.wakeNode(n)
}

// checkWake re-evaluates a node's own wake-port condition after its pin17
// latch changes (driven only by the serial driver, never by another
// node's instructions — §4.4 wake-pin semantics are strictly per-node).
func (g *GA144) checkWake(n *Node) {
	if n.state != StateBlockedRead {
		return
	}
	dir, ok := directionFromAddress(uint16(n.blockedAddr))
	if !ok || dir != wakeDirection(n.Coord) {
		return
	}
	if v, ok := n.wakeSatisfied(); ok {
		g.completeAndWake(n, v)
	}
}
