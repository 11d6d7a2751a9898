// SPDX-License-Identifier: MIT

/*
Package bitint holds the small power-of-two helpers used for sizing audio
blocks and analysis windows. Everything here is constant time and safe to call
from the audio callback.

	frames := bitint.NextPowerOfTwo(1000) // 1024
	ok := bitint.IsPowerOfTwo(frames)     // true
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two that is >= size.
// Non-positive sizes yield 1. Subtracting one first keeps exact powers of two
// unchanged: Len(8-1) = 3, 1<<3 = 8.
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of two that is <= size, or 0 for
// non-positive sizes. Analysis windows use it to fit inside a snapshot.
func PrevPowerOfTwo(size int) int {
	if size <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of two
// has a single bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns the exponent of a power of two n. The result is undefined for
// other inputs.
func Log2(n int) int {
	return bits.TrailingZeros(uint(n))
}
