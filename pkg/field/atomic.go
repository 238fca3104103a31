package field

import (
	"math"
	"sync/atomic"
)

// atomicF32 is a lock-free float32 stored as its IEEE bit pattern.
// Independent scalar parameters (radius, length) use this instead of a
// mutex: a single word can never tear at the hardware level.
type atomicF32 struct {
	bits atomic.Uint32
}

func (a *atomicF32) Load() float32 {
	return math.Float32frombits(a.bits.Load())
}

func (a *atomicF32) Store(v float32) {
	a.bits.Store(math.Float32bits(v))
}
