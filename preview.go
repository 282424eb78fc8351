package radiance

import (
	"errors"
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// Interpolation selects the resampling filter of a preview.
type Interpolation int

const (
	// InterpolationNearest is nearest-neighbor sampling.
	InterpolationNearest Interpolation = iota
	// InterpolationBilinear is linear sampling.
	InterpolationBilinear
	// InterpolationBicubic is cubic sampling.
	InterpolationBicubic
	// InterpolationMitchellNetravali is Mitchell-Netravali sampling.
	InterpolationMitchellNetravali
	// InterpolationLanczos2 is Lanczos sampling with a=2.
	InterpolationLanczos2
	// InterpolationLanczos3 is Lanczos sampling with a=3.
	InterpolationLanczos3
)

// ParseInterpolation maps a filter name like "lanczos3" to an Interpolation.
func ParseInterpolation(name string) (Interpolation, error) {
	switch name {
	case "nearest":
		return InterpolationNearest, nil
	case "bilinear":
		return InterpolationBilinear, nil
	case "bicubic":
		return InterpolationBicubic, nil
	case "mitchell":
		return InterpolationMitchellNetravali, nil
	case "lanczos2":
		return InterpolationLanczos2, nil
	case "lanczos3", "":
		return InterpolationLanczos3, nil
	}
	return InterpolationNearest, errors.New("unknown interpolation " + name)
}

func (i Interpolation) function() resize.InterpolationFunction {
	switch i {
	case InterpolationBilinear:
		return resize.Bilinear
	case InterpolationBicubic:
		return resize.Bicubic
	case InterpolationMitchellNetravali:
		return resize.MitchellNetravali
	case InterpolationLanczos2:
		return resize.Lanczos2
	case InterpolationLanczos3:
		return resize.Lanczos3
	default:
		return resize.NearestNeighbor
	}
}

// PreviewOptions controls tone mapping and resampling of a preview.
type PreviewOptions struct {
	// Exposure adjusts brightness in stops before tone mapping.
	Exposure float32
	// Interpolation is the resampling filter, nearest by default.
	Interpolation Interpolation
}

// Preview tone maps m to 8-bit sRGB and resamples it to width x height.
// A zero dimension keeps the aspect ratio, both zero keep the size.
func Preview(m *Image, width, height uint, opts ...func(o *PreviewOptions)) (image.Image, error) {
	if m == nil || m.Width <= 0 || m.Height <= 0 || len(m.Pix) < m.Width*m.Height*3 {
		return nil, errors.New("empty picture")
	}

	opt := PreviewOptions{}
	for _, applyOpt := range opts {
		applyOpt(&opt)
	}

	ldr := toneMap(m, exp2f(opt.Exposure))
	if width == 0 && height == 0 {
		return ldr, nil
	}
	return resize.Resize(width, height, ldr, opt.Interpolation.function()), nil
}

// toneMap clips scaled linear values and applies the sRGB transfer function.
func toneMap(m *Image, scale float32) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := (y*m.Width + x) * 3
			v := rgb{r: m.Pix[i], g: m.Pix[i+1], b: m.Pix[i+2]}
			if m.Conversion == ConversionXYZE {
				v = xyzToRGB(v.r, v.g, v.b)
			}
			out.SetNRGBA(x, y, color.NRGBA{
				R: to8(v.r * scale),
				G: to8(v.g * scale),
				B: to8(v.b * scale),
				A: 0xff,
			})
		}
	}
	return out
}

func to8(v float32) uint8 {
	return uint8(srgbOetf(clamp01(v))*255 + 0.5)
}
