package radiance

type rgb struct {
	r, g, b float32
}

// rgbToXYZ converts linear Rec.709 primaries to CIE XYZ, D65 white.
func rgbToXYZ(v rgb) (float32, float32, float32) {
	return 0.4123908*v.r + 0.35758433*v.g + 0.1804808*v.b,
		0.212639*v.r + 0.71516865*v.g + 0.07219232*v.b,
		0.019330818*v.r + 0.11919478*v.g + 0.95053214*v.b
}

// xyzToRGB converts CIE XYZ to linear Rec.709 primaries, D65 white.
func xyzToRGB(x, y, z float32) rgb {
	return rgb{
		r: 3.24097*x - 1.5373832*y - 0.49861076*z,
		g: -0.96924365*x + 1.8759675*y + 0.041555058*z,
		b: 0.05563008*x - 0.20397696*y + 1.0569715*z,
	}
}
