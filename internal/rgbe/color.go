package rgbe

import "math"

// Converter turns raw shared-exponent pixels into linear floats.
type Converter struct {
	scale [256]float64
	bias  float64
}

// NewRGBEConverter returns the RGBE conversion: (c+0.5)/256 * 2^(E-136).
func NewRGBEConverter() *Converter {
	c := &Converter{bias: 0.5}
	for e := 1; e < 256; e++ {
		c.scale[e] = math.Ldexp(1, e-(128+8)) / 256
	}
	return c
}

// NewXYZEConverter returns the XYZE conversion: c/256 * 2^(E-128).
func NewXYZEConverter() *Converter {
	c := &Converter{}
	for e := 1; e < 256; e++ {
		c.scale[e] = math.Ldexp(1, e-128) / 256
	}
	return c
}

// Convert writes the three channels of raw pixel p into dst.
// A zero exponent yields black.
func (c *Converter) Convert(dst []float32, p []byte) {
	e := p[E]
	if e == 0 {
		dst[0], dst[1], dst[2] = 0, 0, 0
		return
	}
	s := c.scale[e]
	dst[0] = float32((float64(p[R]) + c.bias) * s)
	dst[1] = float32((float64(p[G]) + c.bias) * s)
	dst[2] = float32((float64(p[B]) + c.bias) * s)
}
