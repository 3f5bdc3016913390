package seqid

import (
	"math"
	"time"
)

const maxDuration = time.Duration(math.MaxInt64)

// Clock is the time source the generator reads ticks from.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// TickSince returns the ticks elapsed from epoch to now, where one tick is
// 10^microsTenPower microseconds.
func TickSince(epoch time.Time, microsTenPower uint8) (uint64, error) {
	return TickAt(time.Now(), epoch, microsTenPower)
}

// TickAt is TickSince with an explicit "now".
//
// For exponents of 3 and above the elapsed time is truncated to whole
// milliseconds first and the remaining exponent applied to that, so
// millisecond layouts agree with systems counting in milliseconds.
func TickAt(now, epoch time.Time, microsTenPower uint8) (uint64, error) {
	if now.Before(epoch) {
		return 0, &ClockError{Epoch: epoch, Now: now}
	}
	elapsed := now.Sub(epoch)
	if elapsed == maxDuration {
		// Sub saturates past ~292 years.
		return 0, &ClockError{Epoch: epoch, Now: now}
	}

	var ticks uint64
	power := microsTenPower
	if power >= 3 {
		ticks = uint64(elapsed.Milliseconds())
		power -= 3
	} else {
		ticks = uint64(elapsed.Microseconds())
	}
	if power == 0 {
		return ticks, nil
	}
	return ticks / pow10(power), nil
}
