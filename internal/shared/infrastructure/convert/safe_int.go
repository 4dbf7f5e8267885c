// Package convert holds overflow-checked integer conversions for config values.
package convert

import (
	"fmt"
	"math"
)

// IntToInt32Clamped converts v to int32, clamping at the bounds.
func IntToInt32Clamped(v int) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

// IntToUint32Clamped converts v to uint32, clamping negatives to 0.
func IntToUint32Clamped(v int) uint32 {
	if v < 0 {
		return 0
	}
	if uint64(v) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// IntToUintSafe converts v to uint and panics on a negative value.
// Use it only where the caller has already bounded v.
func IntToUintSafe(v int) uint {
	if v < 0 {
		panic(fmt.Sprintf("cannot convert negative int to uint: %d", v))
	}
	return uint(v)
}
