// Bit-rate accounting, grounded on the teacher's rtmp_session.go
// BitRateCache (interval accumulator updated on every received message,
// logged through LogDebugSession rather than exposed as a stats call).

package main

import (
	"math"
	"strconv"
	"time"
)

const bitRateUpdateIntervalMs = 1000

// bitRateCache accumulates received bytes over a rolling interval and
// derives an instantaneous bit/s figure once the interval elapses.
type bitRateCache struct {
	intervalMs int64
	lastUpdate int64
	bytes      uint64
	current    uint64
}

func newBitRateCache() *bitRateCache {
	return &bitRateCache{
		intervalMs: bitRateUpdateIntervalMs,
		lastUpdate: time.Now().UnixMilli(),
	}
}

// observe records n received bytes and, once the interval has elapsed,
// recomputes the bit rate and reports whether it changed this call.
func (c *bitRateCache) observe(n uint32) (updated bool) {
	c.bytes += uint64(n)
	now := time.Now().UnixMilli()
	diff := now - c.lastUpdate
	if diff < c.intervalMs {
		return false
	}

	c.current = uint64(math.Round(float64(c.bytes) * 8 / float64(diff)))
	c.bytes = 0
	c.lastUpdate = now
	return true
}

func (c *bitRateCache) bitsPerSecond() uint64 {
	return c.current
}

func (s *Session) trackBitRate(n uint32) {
	if s.bitRate.observe(n) {
		LogDebugSession(s.ID, s.RemoteAddr, "bitrate is now: "+strconv.FormatUint(s.bitRate.bitsPerSecond(), 10))
	}
}
