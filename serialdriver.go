// serialdriver.go - Drives nodes' pin17 lines from timed bit schedules (§4.6)
//
// Grounded on spec.md §4.6; the per-node timed dispatch idiom
// follows the teacher's audio_chip.go pattern of holding absolute event
// times and re-arming the next one lazily rather than scheduling an entire
// waveform up front.

package ga144

// interStreamGapNS is the minimum gap enforced between the end of a
// pending bit schedule and the start of a newly appended one (§4.6
// "≈1 ms").
const interStreamGapNS = 1e6

// serialTarget tracks the pending bit schedule for one node's pin17.
type serialTarget struct {
	segments   []BitSegment
	edgeIndex  int     // next segment not yet delivered
	edgeStart  float64 // absolute sim time the current segment begins
	tailTimeNS float64 // absolute sim time the schedule's last segment ends
	scheduled  bool    // whether a SERIAL event is currently pending for this target
}

// serialDriver owns every node's pending pin17 schedule. Each node has its
// own independent schedule, and the driver does not limit live schedules
// to one target: several nodes may be driven at the same time. A further
// Enqueue for a node whose schedule is still pending extends that node's
// schedule.
type serialDriver struct {
	g       *GA144
	targets map[int]*serialTarget
}

func newSerialDriver(g *GA144) *serialDriver {
	return &serialDriver{g: g, targets: make(map[int]*serialTarget)}
}

// Enqueue appends segments to nodeIdx's pin17 schedule, starting
// immediately if the node has no pending schedule or strictly after the
// existing tail plus the inter-stream gap otherwise (§4.6, §7 "host
// misuse... new stream scheduled strictly after tail + gap"). With the
// strict checks compiled in (-tags ga144debug), enqueueing over a pending
// schedule panics with ErrSerialBusy instead of deferring.
func (d *serialDriver) Enqueue(nodeIdx int, segments []BitSegment) error {
	if len(segments) == 0 {
		return nil
	}
	t, ok := d.targets[nodeIdx]
	if !ok {
		t = &serialTarget{}
		d.targets[nodeIdx] = t
	}

	if t.edgeIndex >= len(t.segments) {
		now := d.g.nodes[nodeIdx].thermal.simulatedTime
		t.segments = t.segments[:0]
		t.edgeIndex = 0
		t.edgeStart = now
		t.tailTimeNS = now
	} else {
		if debugChecks {
			panic(ErrSerialBusy{Coord: uint16(coordFromIndex(nodeIdx))})
		}
		// The gap before an appended stream is carried as an explicit LOW
		// segment so Fire's edge arithmetic stays aligned with tailTimeNS
		// (§4.6: a new stream starts strictly after tail + gap, and idle
		// is LOW).
		t.segments = appendSeg(t.segments, false, interStreamGapNS)
		t.tailTimeNS += interStreamGapNS
	}
	for _, s := range segments {
		t.segments = appendSeg(t.segments, s.High, s.DurationNS)
		t.tailTimeNS += s.DurationNS
	}

	if !t.scheduled {
		d.armNext(nodeIdx, t)
	}
	return nil
}

// armNext enqueues a single SERIAL event for target's next un-delivered
// edge (§4.6 "enqueues a single SERIAL event for the next un-delivered
// edge"). The event payload is just the node index: the driver keeps each
// target's own edgeIndex, so there is never more than one pending SERIAL
// event per node and nothing else needs encoding into the 16-bit payload.
func (d *serialDriver) armNext(nodeIdx int, t *serialTarget) {
	if t.edgeIndex >= len(t.segments) {
		t.scheduled = false
		return
	}
	t.scheduled = true
	_ = d.g.queue.Insert(t.edgeStart, EventSerial, uint16(nodeIdx))
}

// Fire handles one SERIAL event: sets the target node's pin17 to the
// segment's level, re-evaluates any wake-pin read blocked on it, advances
// to the next segment, and arms the following edge if one remains.
func (d *serialDriver) Fire(payload uint16) {
	nodeIdx := int(payload)
	t, ok := d.targets[nodeIdx]
	if !ok || t.edgeIndex >= len(t.segments) {
		return
	}
	seg := t.segments[t.edgeIndex]
	n := d.g.nodes[nodeIdx]
	n.SetPin17(seg.High)
	d.g.checkWake(n)

	t.edgeStart += seg.DurationNS
	t.edgeIndex++
	d.armNext(nodeIdx, t)
}
