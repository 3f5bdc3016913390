package seqid

import "time"

// maxMicrosTenPower is the largest exponent whose power of ten fits in a uint64.
const maxMicrosTenPower = 19

// Layout describes how an ID splits into its fields, from the most
// significant bit down:
//
//	[unused][tick since epoch][node id][sequence]
//
// The unused bits are always zero. Keeping at least one of them makes every
// ID a non-negative int64.
type Layout struct {
	UnusedBits    uint8
	TimestampBits uint8
	NodeIDBits    uint8
	SequenceBits  uint8

	// MicrosTenPower sets the tick resolution: one tick is
	// 10^MicrosTenPower microseconds.
	MicrosTenPower uint8
}

// NewLayout derives the timestamp width from the remaining bit budget.
func NewLayout(unusedBits, nodeIDBits, sequenceBits, microsTenPower uint8) (Layout, error) {
	l := Layout{
		UnusedBits:     unusedBits,
		NodeIDBits:     nodeIDBits,
		SequenceBits:   sequenceBits,
		MicrosTenPower: microsTenPower,
	}
	if err := l.check(); err != nil {
		return Layout{}, err
	}
	l.TimestampBits = 64 - sequenceBits - nodeIDBits - unusedBits
	return l, nil
}

func (l Layout) check() error {
	if l.SequenceBits >= 64 {
		return &ConfigError{Param: "sequence_bits", Value: l.SequenceBits, Constraint: "must be below 64"}
	}
	if l.NodeIDBits >= 64 {
		return &ConfigError{Param: "node_id_bits", Value: l.NodeIDBits, Constraint: "must be below 64"}
	}
	if l.UnusedBits > 64 {
		return &ConfigError{Param: "unused_bits", Value: l.UnusedBits, Constraint: "must be at most 64"}
	}
	if sum := int(l.UnusedBits) + int(l.NodeIDBits) + int(l.SequenceBits); sum > 64 {
		return &ConfigError{
			Param:      "unused_bits+node_id_bits+sequence_bits",
			Value:      sum,
			Constraint: "sum must be at most 64",
		}
	}
	if l.MicrosTenPower > maxMicrosTenPower {
		return &ConfigError{Param: "micros_ten_power", Value: l.MicrosTenPower, Constraint: "must be at most 19"}
	}
	return nil
}

// Validate reports whether the widths add up to exactly 64 bits.
func (l Layout) Validate() error {
	if err := l.check(); err != nil {
		return err
	}
	if sum := int(l.UnusedBits) + int(l.TimestampBits) + int(l.NodeIDBits) + int(l.SequenceBits); sum != 64 {
		return &ConfigError{Param: "layout", Value: sum, Constraint: "bit widths must sum to 64"}
	}
	return nil
}

// MaxNodeID is the largest node id the layout can carry.
func (l Layout) MaxNodeID() uint64 { return mask(l.NodeIDBits) }

// MaxSequence is the number of ids available per tick.
func (l Layout) MaxSequence() uint64 { return 1 << l.SequenceBits }

// MaxTick is the largest tick the timestamp field can carry.
func (l Layout) MaxTick() uint64 { return mask(l.TimestampBits) }

// TickDuration is the length of one tick.
// It saturates at the largest time.Duration.
func (l Layout) TickDuration() time.Duration {
	micros := pow10(l.MicrosTenPower)
	if micros > uint64(maxDuration/time.Microsecond) {
		return maxDuration
	}
	return time.Duration(micros) * time.Microsecond
}

// Lifetime is how long after the epoch the timestamp field runs out.
// It saturates at the largest time.Duration.
func (l Layout) Lifetime() time.Duration {
	tick := l.TickDuration()
	ticks := l.MaxTick()
	if tick <= 0 || ticks > uint64(maxDuration/tick) {
		return maxDuration
	}
	return time.Duration(ticks) * tick
}

func (l Layout) tickShift() uint8 { return l.NodeIDBits + l.SequenceBits }

func mask(bits uint8) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return 1<<bits - 1
}

func pow10(n uint8) uint64 {
	p := uint64(1)
	for i := uint8(0); i < n; i++ {
		p *= 10
	}
	return p
}
