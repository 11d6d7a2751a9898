// SPDX-License-Identifier: MIT
package region

import (
	"fmt"
	"strings"
)

// Mode selects how the transport treats the ends of the asset and region.
type Mode int32

const (
	Off             Mode = iota // play once, stop at the end
	FullLoop                    // loop the whole asset
	FixedRegionLoop             // loop the region set by the user
	RandomRegion                // loop long random regions, re-drawn on exhaustion
	GranularRegion              // hop between short random grains
)

var modeNames = [...]string{"off", "full", "region", "random", "granular"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int32(m))
	}
	return modeNames[m]
}

// ParseMode accepts the names printed by String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return Off, fmt.Errorf("unknown loop mode %q (want one of %s)", s, strings.Join(modeNames[:], ", "))
}

// Bounded reports whether playback is confined to a region.
func (m Mode) Bounded() bool {
	return m == FixedRegionLoop || m == RandomRegion || m == GranularRegion
}

// Regenerates reports whether an exhausted region is replaced by a new one.
func (m Mode) Regenerates() bool {
	return m == RandomRegion || m == GranularRegion
}

// Next cycles through the modes in declaration order.
func (m Mode) Next() Mode {
	return (m + 1) % Mode(len(modeNames))
}
