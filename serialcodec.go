// serialcodec.go - RS232 8N1 bit-segment codec (§4.8)
//
// Grounded on spec.md §4.8 directly; the segment-coalescing idiom mirrors
// the teacher's audio_chip.go timed-event representation (a run of equal
// values collapsed to one duration), repurposed here for a pin level
// instead of a waveform sample.

package ga144

import "fmt"

// BitSegment is one run of a constant pin level for durationNS simulated
// nanoseconds (§3 "bit schedule").
type BitSegment struct {
	High       bool
	DurationNS float64
}

// EncodeRS232 encodes data as an 8N1 RS232 bit schedule at baud, with an
// optional leadInIdleNS of LOW idle prefixed before the first start bit
// (§4.8). Adjacent equal-value segments are merged.
func EncodeRS232(data []byte, baud int, leadInIdleNS float64) []BitSegment {
	bitNS := BitNS(baud)
	var segs []BitSegment
	if leadInIdleNS > 0 {
		segs = appendSeg(segs, false, leadInIdleNS)
	}
	for _, b := range data {
		segs = appendSeg(segs, true, bitNS) // start bit: HIGH
		for i := 0; i < 8; i++ {
			bit := (b >> uint(i)) & 1
			// data bits are inverted: 1 -> LOW, 0 -> HIGH (§4.8).
			segs = appendSeg(segs, bit == 0, bitNS)
		}
		segs = appendSeg(segs, false, bitNS) // stop bit: LOW
	}
	if len(data) > 0 {
		segs = appendSeg(segs, false, 2*bitNS) // trailing idle
	}
	return segs
}

// appendSeg appends a segment, merging it into the previous one if the
// level matches (§4.8 "adjacent equal-value segments are merged").
func appendSeg(segs []BitSegment, high bool, durationNS float64) []BitSegment {
	if n := len(segs); n > 0 && segs[n-1].High == high {
		segs[n-1].DurationNS += durationNS
		return segs
	}
	return append(segs, BitSegment{High: high, DurationNS: durationNS})
}

// DecodeRS232 decodes a bit schedule produced at baud back into bytes,
// mirroring EncodeRS232's framing exactly (§4.8, §8 round-trip law):
// skip LOW until a LOW->HIGH edge (start bit), advance half a bit past the
// start bit to sample bit 0's center, sample eight bits at bitNS intervals
// (un-inverting), skip the stop bit, and resync at the next rising edge.
func DecodeRS232(segs []BitSegment, baud int) ([]byte, error) {
	bitNS := BitNS(baud)
	edges := segmentEdges(segs)
	var out []byte
	i := 0
	for i < len(edges) {
		// Find the next LOW->HIGH transition (a start bit).
		for i < len(edges) && !(edges[i].high && (i == 0 || !edges[i-1].high)) {
			i++
		}
		if i >= len(edges) {
			break
		}
		startTime := edges[i].at
		sampleBase := startTime + 1.5*bitNS // middle of bit 0
		var b byte
		for bit := 0; bit < 8; bit++ {
			t := sampleBase + float64(bit)*bitNS
			high, ok := levelAt(edges, t)
			if !ok {
				return out, fmt.Errorf("ga144: rs232 decode: truncated frame at byte %d bit %d", len(out), bit)
			}
			if !high {
				b |= 1 << uint(bit)
			}
		}
		out = append(out, b)
		// Advance past this frame: start + 8 data + stop = 10 bits.
		frameEnd := startTime + 10*bitNS
		for i < len(edges) && edges[i].at < frameEnd {
			i++
		}
	}
	return out, nil
}

// edge is one level transition at absolute time at, with the level that
// begins there.
type edge struct {
	at   float64
	high bool
}

// segmentEdges converts a segment list into absolute-time transition
// points, closed by one final edge (repeating the last level) at the time
// the schedule ends.
func segmentEdges(segs []BitSegment) []edge {
	edges := make([]edge, 0, len(segs)+1)
	t := 0.0
	for _, s := range segs {
		edges = append(edges, edge{at: t, high: s.High})
		t += s.DurationNS
	}
	if len(segs) > 0 {
		edges = append(edges, edge{at: t, high: segs[len(segs)-1].High})
	}
	return edges
}

// levelAt reports the pin level at absolute time t, or false/false if t is
// past the end of the schedule.
func levelAt(edges []edge, t float64) (high bool, ok bool) {
	if len(edges) == 0 || t >= edges[len(edges)-1].at {
		return false, false
	}
	result := edges[0].high
	found := false
	for _, e := range edges {
		if e.at > t {
			break
		}
		result = e.high
		found = true
	}
	return result, found
}
