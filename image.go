package radiance

import (
	"image"
	"math"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/hdrcolor"
)

// Image is a decoded picture. Pix holds three float32 channels per pixel,
// rows top to bottom, at offset (x + y*Width) * 3.
type Image struct {
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Headers    Headers    `json:"headers"`
	Comments   []string   `json:"comments,omitempty"`
	Pix        []float32  `json:"-"`
	Conversion Conversion `json:"conversion"`
}

// At returns the channels at x, y, clamping coordinates to the picture.
func (m *Image) At(x, y int) (float32, float32, float32) {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x >= m.Width {
		x = m.Width - 1
	}
	if y >= m.Height {
		y = m.Height - 1
	}
	i := (y*m.Width + x) * 3
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// Exposed returns a copy of Pix divided by the accumulated EXPOSURE, which
// restores the values written before the picture was exposed.
func (m *Image) Exposed() []float32 {
	out := make([]float32, len(m.Pix))
	e := m.Headers.Exposure
	if !m.Headers.HasExposure || e == 0 {
		copy(out, m.Pix)
		return out
	}
	inv := float32(1 / e)
	for i, v := range m.Pix {
		out[i] = v * inv
	}
	return out
}

// HDR returns the picture as an hdr.Image: *hdr.XYZ for XYZE pictures,
// *hdr.RGB otherwise.
func (m *Image) HDR() hdr.Image {
	r := image.Rect(0, 0, m.Width, m.Height)
	if m.Conversion == ConversionXYZE {
		out := hdr.NewXYZ(r)
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				i := (y*m.Width + x) * 3
				out.SetXYZ(x, y, hdrcolor.XYZ{X: float64(m.Pix[i]), Y: float64(m.Pix[i+1]), Z: float64(m.Pix[i+2])})
			}
		}
		return out
	}

	out := hdr.NewRGB(r)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := (y*m.Width + x) * 3
			out.SetRGB(x, y, hdrcolor.RGB{R: float64(m.Pix[i]), G: float64(m.Pix[i+1]), B: float64(m.Pix[i+2])})
		}
	}
	return out
}

// Stats summarizes the luminance of a picture.
type Stats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Stats computes luminance statistics, using Y directly for XYZE pictures.
func (m *Image) Stats() Stats {
	if len(m.Pix) == 0 {
		return Stats{}
	}
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0
	for i := 0; i+2 < len(m.Pix); i += 3 {
		l := m.luminance(rgb{r: m.Pix[i], g: m.Pix[i+1], b: m.Pix[i+2]})
		s.Min = math.Min(s.Min, l)
		s.Max = math.Max(s.Max, l)
		sum += l
	}
	s.Mean = sum / float64(len(m.Pix)/3)
	return s
}

func (m *Image) luminance(v rgb) float64 {
	if m.Conversion == ConversionXYZE {
		return float64(v.g)
	}
	_, y, _ := rgbToXYZ(v)
	return float64(y)
}
