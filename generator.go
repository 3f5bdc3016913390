package seqid

import (
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// DefaultEpoch is the custom epoch used when none is configured.
var DefaultEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Config is everything a Generator needs. It is validated once by
// NewGenerator and never changes afterwards.
type Config struct {
	Epoch          time.Time
	NodeIDBits     uint8
	NodeID         uint64
	SequenceBits   uint8
	UnusedBits     uint8
	MicrosTenPower uint8

	// BackoffCooldownStart is the first sleep while waiting for the clock.
	// Every further poll doubles it.
	BackoffCooldownStart time.Duration

	// MaxBackoff caps the doubled sleep. Zero means uncapped, in which case
	// running into the largest time.Duration fails with ErrBackoffOverflow.
	MaxBackoff time.Duration
}

// DefaultConfig returns 9 node bits, 11 sequence bits and ticks of a tenth
// of a millisecond since DefaultEpoch.
func DefaultConfig() Config {
	return Config{
		Epoch:                DefaultEpoch,
		NodeIDBits:           9,
		SequenceBits:         11,
		MicrosTenPower:       2,
		BackoffCooldownStart: 1500 * time.Nanosecond,
	}
}

// Layout validates the bit widths and derives the timestamp width.
func (c Config) Layout() (Layout, error) {
	return NewLayout(c.UnusedBits, c.NodeIDBits, c.SequenceBits, c.MicrosTenPower)
}

// Validate checks every field and returns the first violation as a
// *ConfigError.
func (c Config) Validate() error {
	layout, err := c.Layout()
	if err != nil {
		return err
	}
	if c.Epoch.IsZero() {
		return &ConfigError{Param: "custom_epoch", Value: c.Epoch, Constraint: "must be set"}
	}
	if c.NodeID > layout.MaxNodeID() {
		return &ConfigError{
			Param:      "node_id",
			Value:      c.NodeID,
			Constraint: fmt.Sprintf("must be at most %d for %d node id bits", layout.MaxNodeID(), c.NodeIDBits),
		}
	}
	if c.BackoffCooldownStart <= 0 {
		return &ConfigError{Param: "cooldown_ns", Value: int64(c.BackoffCooldownStart), Constraint: "must be positive"}
	}
	if c.MaxBackoff < 0 || (c.MaxBackoff > 0 && c.MaxBackoff < c.BackoffCooldownStart) {
		return &ConfigError{Param: "max_backoff", Value: c.MaxBackoff, Constraint: "must be zero or at least cooldown_ns"}
	}
	return nil
}

// DefaultGenerator is used by New. Replace it with SetNodeID or SetDefault
// once at startup, before generating IDs.
var DefaultGenerator = mustGenerator(DefaultConfig())

// SetNodeID rebuilds DefaultGenerator from DefaultConfig with the given node.
func SetNodeID(node uint64) error {
	cfg := DefaultConfig()
	cfg.NodeID = node
	return SetDefault(cfg)
}

// SetDefault rebuilds DefaultGenerator from cfg.
func SetDefault(cfg Config, opts ...Option) error {
	g, err := NewGenerator(cfg, opts...)
	if err != nil {
		return err
	}
	DefaultGenerator = g
	return nil
}

// New generates an ID using DefaultGenerator and panics on error.
func New() ID {
	return DefaultGenerator.Must()
}

func mustGenerator(cfg Config) *Generator {
	g, err := NewGenerator(cfg)
	if err != nil {
		panic(err)
	}
	return g
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// WithSleep replaces time.Sleep in the backoff loops.
func WithSleep(sleep func(time.Duration)) Option {
	return func(g *Generator) { g.sleep = sleep }
}

// WithLogger sets the logger used for clock regressions and stalls.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// Generator hands out IDs for a single node. NextID is serialized by an
// internal mutex, so a Generator may be shared between goroutines.
type Generator struct {
	mu sync.Mutex

	layout     Layout
	epoch      time.Time
	nodeID     uint64
	maxSeq     uint64
	cooldown   time.Duration
	maxBackoff time.Duration

	clock  Clock
	sleep  func(time.Duration)
	logger *zap.Logger

	// tick is the tick of the last ID handed out, or the tick primed after
	// the sequence ran out. Meaningless until started is set.
	started  bool
	tick     uint64
	sequence uint64
}

// NewGenerator validates cfg and returns a Generator for cfg.NodeID.
func NewGenerator(cfg Config, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	layout, _ := cfg.Layout()

	g := &Generator{
		layout:     layout,
		epoch:      cfg.Epoch,
		nodeID:     cfg.NodeID,
		maxSeq:     layout.MaxSequence(),
		cooldown:   cfg.BackoffCooldownStart,
		maxBackoff: cfg.MaxBackoff,
		clock:      SystemClock,
		sleep:      time.Sleep,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.Uint64("node_id", g.nodeID))
	g.logger.Debug("generator ready",
		zap.Time("epoch", g.epoch),
		zap.Uint8("unused_bits", layout.UnusedBits),
		zap.Uint8("timestamp_bits", layout.TimestampBits),
		zap.Uint8("node_id_bits", layout.NodeIDBits),
		zap.Uint8("sequence_bits", layout.SequenceBits),
		zap.Uint8("micros_ten_power", layout.MicrosTenPower),
	)
	return g, nil
}

// NextID returns the next ID. It blocks while the sequence for the current
// tick is used up or while the clock is behind the last tick handed out.
//
// Errors are ClockError, ErrTickOverflow and ErrBackoffOverflow; none of them
// is worth retrying.
func (g *Generator) NextID() (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, hasLast := g.tick, g.started
	tick, err := g.now()
	if err != nil {
		return Nil, err
	}

	if hasLast {
		switch {
		case tick < last:
			g.logger.Warn("clock moved backwards",
				zap.Uint64("last_tick", last),
				zap.Uint64("current_tick", tick),
				zap.Uint64("sequence", g.sequence),
			)
			if g.sequence >= g.maxSeq {
				if tick, err = g.waitNext(last); err != nil {
					return Nil, err
				}
				g.sequence = 0
			} else if tick, err = g.waitUntil(last); err != nil {
				return Nil, err
			}
		case tick != last:
			g.sequence = 0
		case g.sequence >= g.maxSeq:
			// Only reachable if priming the next tick failed last call.
			if tick, err = g.waitNext(last); err != nil {
				return Nil, err
			}
			g.sequence = 0
		}
	}

	if tick > g.layout.MaxTick() {
		return Nil, fmt.Errorf("%w: tick %d, at most %d fit in %d bits",
			ErrTickOverflow, tick, g.layout.MaxTick(), g.layout.TimestampBits)
	}
	g.tick, g.started = tick, true
	id := g.layout.Encode(tick, g.nodeID, g.sequence)

	g.sequence++
	if g.sequence == g.maxSeq {
		g.logger.Debug("sequence exhausted, waiting for next tick", zap.Uint64("tick", tick))
		next, err := g.waitNext(tick)
		if err != nil {
			return Nil, err
		}
		g.tick, g.sequence = next, 0
	}
	return id, nil
}

// Must returns the next ID and panics on error.
func (g *Generator) Must() ID {
	return Must(g.NextID())
}

func (g *Generator) now() (uint64, error) {
	return TickAt(g.clock.Now(), g.epoch, g.layout.MicrosTenPower)
}

// waitNext blocks until the clock is strictly past last.
func (g *Generator) waitNext(last uint64) (uint64, error) {
	return g.await(last, false)
}

// waitUntil blocks until the clock has caught up with last.
func (g *Generator) waitUntil(last uint64) (uint64, error) {
	return g.await(last, true)
}

// await polls the clock, sleeping with exponential backoff in between, and
// returns the first tick that satisfies the wait.
func (g *Generator) await(last uint64, orEqual bool) (uint64, error) {
	b := g.newBackOff()
	for {
		tick, err := g.now()
		if err != nil {
			return 0, err
		}
		if tick > last || (orEqual && tick == last) {
			return tick, nil
		}
		d := b.NextBackOff()
		if g.maxBackoff == 0 && (d <= 0 || d == maxDuration) {
			return 0, fmt.Errorf("%w: still at tick %d waiting on %d, started at %s",
				ErrBackoffOverflow, tick, last, g.cooldown)
		}
		g.sleep(d)
	}
}

func (g *Generator) newBackOff() *backoff.ExponentialBackOff {
	maxInterval := g.maxBackoff
	if maxInterval == 0 {
		maxInterval = maxDuration
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     g.cooldown,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxInterval,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

// Layout returns the bit layout of the IDs this generator produces.
func (g *Generator) Layout() Layout { return g.layout }

// Epoch returns the custom epoch ticks are counted from.
func (g *Generator) Epoch() time.Time { return g.epoch }

// NodeID returns the node id stamped into every ID.
func (g *Generator) NodeID() uint64 { return g.nodeID }

func (g *Generator) DecodeTick(id ID) uint64     { return g.layout.DecodeTick(id) }
func (g *Generator) DecodeNodeID(id ID) uint64   { return g.layout.DecodeNodeID(id) }
func (g *Generator) DecodeSequence(id ID) uint64 { return g.layout.DecodeSequence(id) }
func (g *Generator) DecodeTime(id ID) time.Time  { return g.layout.DecodeTime(id, g.epoch) }

// Decompose splits id using this generator's layout and epoch.
func (g *Generator) Decompose(id ID) Parts { return g.layout.Decompose(id, g.epoch) }
