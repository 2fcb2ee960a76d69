package oto

import "math"

// FloatBufferTo16BitLE appends buff to dst as clipped 16-bit little-endian
// integers and returns the extended slice.
func FloatBufferTo16BitLE(buff []float32, dst []byte) []byte {
	for _, v := range buff {
		var uv int16
		switch {
		case v < -1.0:
			uv = -math.MaxInt16
		case v > 1.0:
			uv = math.MaxInt16
		default:
			uv = int16(v * math.MaxInt16)
		}
		dst = append(dst, byte(uv), byte(uint16(uv)>>8))
	}
	return dst
}
