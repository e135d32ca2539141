// Package random provides deterministic seeded random streams derived
// from textual seed material.
package random

import (
	"math"
	"strings"
)

// separator joins seed material parts before hashing. It is a control
// character so that part boundaries cannot be forged by user input.
const separator = "\x1f"

// fnvOffset and fnvPrime are the 32-bit FNV-1a parameters.
const (
	fnvOffset uint32 = 2166136261
	fnvPrime  uint32 = 16777619
)

// JoinParts canonicalizes ordered seed material parts into one seed-text
// string. DeriveSeed(JoinParts(parts...)) == DeriveSeed(parts...).
func JoinParts(parts ...string) string {
	return strings.Join(parts, separator)
}

// DeriveSeed combines seed material parts into a single 32-bit seed.
//
// The same ordered parts always produce the same seed, on every platform:
// only 32-bit integer arithmetic with wraparound is used. Callers that want
// a time-varying seed must include a timestamp or nonce as one of the
// parts; DeriveSeed itself never consults the clock.
func DeriveSeed(parts ...string) uint32 {
	joined := strings.Join(parts, separator)
	hash := fnvOffset
	for i := 0; i < len(joined); i++ {
		hash ^= uint32(joined[i])
		hash *= fnvPrime
	}
	return hash
}

// Stream is a deterministic pseudo-random stream. Two streams created from
// the same seed produce identical sequences; independent streams never
// share state. Stream is not safe for concurrent use; create one stream
// per goroutine.
type Stream struct {
	state uint32
}

// New returns a stream seeded with the given value. A zero seed is
// remapped to a fixed non-zero constant because xorshift has a fixed
// point at zero.
func New(seed uint32) *Stream {
	if seed == 0 {
		seed = fnvOffset
	}
	return &Stream{state: seed}
}

// Uint32 advances the stream and returns the next raw 32-bit value
// using the xorshift32 construction.
func (s *Stream) Uint32() uint32 {
	x := s.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	s.state = x
	return x
}

// Float64 returns the next value in [0, 1).
func (s *Stream) Float64() float64 {
	return float64(s.Uint32()) / (math.MaxUint32 + 1)
}

// Intn returns a value in [0, n). It returns 0 when n <= 0 rather than
// panicking, mirroring Pick's behavior on empty input.
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.Float64() * float64(n))
}

// Pick draws a uniform element from values. The second return is false
// when values is empty; Pick never indexes out of bounds.
func (s *Stream) Pick(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	return values[s.Intn(len(values))], true
}
