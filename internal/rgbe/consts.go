// Package rgbe holds the byte-level pieces of the Radiance picture format:
// scanline run-length decoding and shared-exponent pixel conversion.
package rgbe

// Byte offsets of the components in a raw pixel.
const (
	R = 0
	G = 1
	B = 2
	E = 3
)

// PixelSize is the byte length of one raw pixel.
const PixelSize = 4

const (
	minNewRLELength = 8      // Shorter scanlines are always flat or old-scheme.
	maxNewRLELength = 0x7fff // The lead-in pixel holds the length in 15 bits.
)

// RecordSize returns the byte length of a scanline record of n pixels:
// n raw pixels plus one lead-in slot used for scheme detection.
func RecordSize(n int) int {
	return n*PixelSize + PixelSize
}
