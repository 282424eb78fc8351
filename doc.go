// Package radiance provides a pure-Go decoder for Radiance HDR pictures (.hdr, .pic).
//
// The decoder is push-driven: input is written to it in chunks of any size, header lines and
// scanlines are decoded as soon as they are complete, and Close marks the end of input.
// Both run-length schemes of the format are supported, and pixels are converted to linear
// float32 triples with either the RGBE or the XYZE conversion.
package radiance
