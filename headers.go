package radiance

import (
	"strconv"
	"strings"
)

// Headers holds the information lines of a picture.
type Headers struct {
	// Radiance is set once a RADIANCE or RGBE filetype line was seen.
	Radiance bool `json:"radiance"`

	// Exposure is the product of all EXPOSURE lines, 1 when there are none.
	Exposure    float64 `json:"exposure"`
	HasExposure bool    `json:"has_exposure"`

	// ColorCorr is the element-wise product of all COLORCORR lines.
	ColorCorr    [3]float64 `json:"colorcorr"`
	HasColorCorr bool       `json:"has_colorcorr"`

	// Values holds other KEY=VALUE lines, last one wins.
	Values map[string]string `json:"values,omitempty"`

	// Commands holds lines without '=', typically the history of programs
	// that produced the picture.
	Commands []string `json:"commands,omitempty"`
}

func newHeaders() Headers {
	return Headers{
		Exposure:  1,
		ColorCorr: [3]float64{1, 1, 1},
		Values:    map[string]string{},
	}
}

// Get returns a raw header value.
func (h *Headers) Get(name string) (string, bool) {
	v, ok := h.Values[name]
	return v, ok
}

// set stores a key/value line, accumulating EXPOSURE and COLORCORR.
// Unparsable accumulated values are kept verbatim and reported as not ok.
func (h *Headers) set(key, value string) bool {
	switch strings.ToUpper(key) {
	case headerExposure:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			h.Values[key] = value
			return false
		}
		h.Exposure *= f
		h.HasExposure = true
	case headerColorCorr:
		fields := strings.Fields(value)
		if len(fields) != 3 {
			h.Values[key] = value
			return false
		}
		var cc [3]float64
		for i, s := range fields {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				h.Values[key] = value
				return false
			}
			cc[i] = f
		}
		for i := range cc {
			h.ColorCorr[i] *= cc[i]
		}
		h.HasColorCorr = true
	default:
		h.Values[key] = value
	}
	return true
}
