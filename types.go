package radiance

import (
	"fmt"
	"strings"
)

// Conversion selects how raw pixels are turned into floats.
type Conversion int

const (
	// ConversionRGBE decodes standard RGBE pixels: (c+0.5)/256 * 2^(E-136).
	ConversionRGBE Conversion = iota
	// ConversionXYZE decodes CIE XYZ pixels: c/256 * 2^(E-128).
	ConversionXYZE
)

// String implements fmt.Stringer.
func (c Conversion) String() string {
	if c == ConversionXYZE {
		return "xyze"
	}
	return "rgbe"
}

// MarshalText implements encoding.TextMarshaler.
func (c Conversion) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Conversion) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "rgbe", "rgb", "":
		*c = ConversionRGBE
	case "xyze", "xyz":
		*c = ConversionXYZE
	default:
		return fmt.Errorf("unknown conversion %q", text)
	}
	return nil
}

// Options controls decoding.
type Options struct {
	// Conversion selects the pixel conversion, RGBE by default.
	Conversion Conversion `json:"conversion"`
	// Strict rejects unknown filetypes, malformed header lines and
	// mismatching scanline markers. Enabled by default.
	Strict bool `json:"strict"`
	// MaxPixels bounds width*height, 0 disables the check.
	MaxPixels int `json:"max_pixels"`
	// ChunkSize is the read size used by Decode.
	ChunkSize int `json:"chunk_size"`

	Logger  Logger       `json:"-"`
	OnLoad  func(*Image) `json:"-"`
	OnError func(error)  `json:"-"`
}

// DefaultOptions returns the options NewDecoder starts from.
func DefaultOptions() Options {
	return Options{
		Conversion: ConversionRGBE,
		Strict:     true,
		MaxPixels:  defaultMaxPixels,
		ChunkSize:  defaultChunkSize,
	}
}

// WithOptions copies o into the decoder options.
func WithOptions(o Options) func(*Options) {
	return func(dst *Options) {
		*dst = o
	}
}
