// SPDX-License-Identifier: MIT
package playback

import (
	"math"
	"runtime"
	"sync/atomic"

	"loopfx/internal/region"
)

// regionCell publishes a Region from a single writer to any number of readers
// without locks. The writer bumps seq to odd, stores, then bumps it back to
// even; readers retry until they see the same even seq on both sides.
type regionCell struct {
	seq        atomic.Uint64
	start, end atomic.Uint64
}

func (c *regionCell) store(r region.Region) {
	c.seq.Add(1)
	c.start.Store(math.Float64bits(r.Start))
	c.end.Store(math.Float64bits(r.End))
	c.seq.Add(1)
}

func (c *regionCell) load() region.Region {
	for {
		s := c.seq.Load()
		if s&1 == 0 {
			r := region.Region{
				Start: math.Float64frombits(c.start.Load()),
				End:   math.Float64frombits(c.end.Load()),
			}
			if c.seq.Load() == s {
				return r
			}
		}
		runtime.Gosched()
	}
}

// atomicFloat is a float64 stored as its bit pattern.
type atomicFloat struct{ bits atomic.Uint64 }

func (f *atomicFloat) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }
