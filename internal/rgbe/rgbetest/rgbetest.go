// Package rgbetest builds Radiance pictures in memory for tests.
package rgbetest

import (
	"bytes"
	"fmt"
)

// Pixel is a raw R, G, B, E tuple.
type Pixel [4]byte

// Picture describes a synthetic picture. Scanlines holds the raw pixels of every
// scanline in stream order; Dimension is the resolution line, e.g. "-Y 2 +X 3".
type Picture struct {
	Filetype  string // Defaults to RADIANCE; "-" omits the line.
	Comments  []string
	Headers   []string // Raw "KEY=VALUE" lines.
	Dimension string
	Scanlines [][]Pixel
	Old       bool // Encode with the old scheme instead of the new one.
}

// Bytes renders the picture.
func (p Picture) Bytes() []byte {
	var buf bytes.Buffer
	switch p.Filetype {
	case "":
		buf.WriteString("#?RADIANCE\n")
	case "-":
	default:
		fmt.Fprintf(&buf, "#?%s\n", p.Filetype)
	}
	for _, c := range p.Comments {
		fmt.Fprintf(&buf, "# %s\n", c)
	}
	for _, h := range p.Headers {
		buf.WriteString(h)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.WriteString(p.Dimension)
	buf.WriteByte('\n')
	for _, sl := range p.Scanlines {
		if p.Old {
			buf.Write(Flat(sl))
		} else {
			buf.Write(EncodeNew(sl))
		}
	}
	return buf.Bytes()
}

// Flat returns the uncompressed old-scheme record of a scanline.
func Flat(pixels []Pixel) []byte {
	out := make([]byte, 0, len(pixels)*4)
	for _, px := range pixels {
		out = append(out, px[:]...)
	}
	return out
}

// EncodeNew encodes a scanline with the per-channel scheme, lead-in pixel included.
func EncodeNew(pixels []Pixel) []byte {
	n := len(pixels)
	out := []byte{2, 2, byte(n >> 8), byte(n)}
	vals := make([]byte, n)
	for ch := 0; ch < 4; ch++ {
		for i, px := range pixels {
			vals[i] = px[ch]
		}
		out = appendChannel(out, vals)
	}
	return out
}

func appendChannel(out, vals []byte) []byte {
	for i := 0; i < len(vals); {
		run := 1
		for i+run < len(vals) && run < 127 && vals[i+run] == vals[i] {
			run++
		}
		if run >= 3 {
			out = append(out, byte(128+run), vals[i])
			i += run
			continue
		}
		j := i
		for j < len(vals) && j-i < 128 {
			if j+2 < len(vals) && vals[j] == vals[j+1] && vals[j] == vals[j+2] {
				break
			}
			j++
		}
		out = append(out, byte(j-i))
		out = append(out, vals[i:j]...)
		i = j
	}
	return out
}

// Gradient returns w*h distinct pixels, indexed by y*w+x, with non-zero exponents.
func Gradient(w, h int) []Pixel {
	pix := make([]Pixel, w*h)
	for i := range pix {
		pix[i] = Pixel{byte(i * 7), byte(i * 13), byte(255 - i), byte(120 + i%16)}
	}
	return pix
}

// RowMajor slices pixels indexed by y*w+x into top-down, left-to-right scanlines,
// the layout of a "-Y h +X w" picture.
func RowMajor(pix []Pixel, w, h int) [][]Pixel {
	out := make([][]Pixel, h)
	for y := 0; y < h; y++ {
		out[y] = pix[y*w : (y+1)*w]
	}
	return out
}
