package radiance

const (
	defaultMaxPixels = 1 << 28
	defaultChunkSize = 256 << 10
)

const (
	filetypeRadiance = "RADIANCE"
	filetypeRGBE     = "RGBE"

	headerExposure  = "EXPOSURE"
	headerColorCorr = "COLORCORR"
)
