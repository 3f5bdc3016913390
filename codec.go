package seqid

import "time"

// Parts is an ID split back into its fields.
type Parts struct {
	Tick     uint64
	Time     time.Time
	NodeID   uint64
	Sequence uint64
}

// Encode packs the fields into an ID:
//
//	tick<<(NodeIDBits+SequenceBits) | nodeID<<SequenceBits | sequence
//
// Values wider than their field are masked. Callers that need to reject
// them check against MaxTick, MaxNodeID and MaxSequence first.
func (l Layout) Encode(tick, nodeID, sequence uint64) ID {
	id := (tick & l.MaxTick()) << l.tickShift()
	id |= (nodeID & l.MaxNodeID()) << l.SequenceBits
	id |= sequence & mask(l.SequenceBits)
	return ID(id)
}

// DecodeTick returns the tick field of id.
func (l Layout) DecodeTick(id ID) uint64 {
	return (uint64(id) >> l.tickShift()) & l.MaxTick()
}

// DecodeNodeID returns the node id field of id.
func (l Layout) DecodeNodeID(id ID) uint64 {
	return (uint64(id) >> l.SequenceBits) & l.MaxNodeID()
}

// DecodeSequence returns the sequence field of id.
func (l Layout) DecodeSequence(id ID) uint64 {
	return uint64(id) & mask(l.SequenceBits)
}

// DecodeTime converts the tick field of id back to wall-clock time. The
// result is truncated to the tick resolution.
func (l Layout) DecodeTime(id ID, epoch time.Time) time.Time {
	µs := l.DecodeTick(id) * pow10(l.MicrosTenPower)
	return time.UnixMicro(epoch.UnixMicro() + int64(µs))
}

// Decompose splits id into all of its fields.
func (l Layout) Decompose(id ID, epoch time.Time) Parts {
	return Parts{
		Tick:     l.DecodeTick(id),
		Time:     l.DecodeTime(id, epoch),
		NodeID:   l.DecodeNodeID(id),
		Sequence: l.DecodeSequence(id),
	}
}
