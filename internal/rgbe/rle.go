package rgbe

import "errors"

var (
	// ErrShortRecord is returned when the source ends before the scanline is complete.
	ErrShortRecord = errors.New("scanline record is short")
	// ErrRunOverflow is returned when a run extends past the end of the scanline.
	ErrRunOverflow = errors.New("run overflows scanline")
	// ErrOrphanRepeat is returned when an old-scheme repeat marker has no pixel to repeat.
	ErrOrphanRepeat = errors.New("repeat marker without preceding pixel")
)

// Scheme identifies the run-length encoding of a scanline.
type Scheme int

const (
	// SchemeOld is the legacy pixel-repeat encoding (and plain flat pixels).
	SchemeOld Scheme = iota
	// SchemeNew is the per-channel run-length encoding.
	SchemeNew
)

// String implements fmt.Stringer.
func (s Scheme) String() string {
	if s == SchemeNew {
		return "new"
	}
	return "old"
}

// Detect inspects the lead-in pixel of a scanline of n pixels and reports the scheme it uses.
func Detect(lead []byte, n int) Scheme {
	if n < minNewRLELength || n > maxNewRLELength {
		return SchemeOld
	}
	if lead[R] != 2 || lead[G] != 2 || lead[B]&0x80 != 0 {
		return SchemeOld
	}
	return SchemeNew
}

// MarkerLength returns the scanline length declared by a new-scheme lead-in pixel.
func MarkerLength(lead []byte) int {
	return int(lead[B])<<8 | int(lead[E])
}

// Decode decodes one scanline from src into dst, which must hold exactly
// n*PixelSize bytes. It selects the scheme from the lead-in pixel and returns
// the scheme and the number of source bytes consumed.
func Decode(dst, src []byte) (Scheme, int, error) {
	if len(src) < PixelSize {
		return SchemeOld, 0, ErrShortRecord
	}
	if Detect(src[:PixelSize], len(dst)/PixelSize) == SchemeNew {
		n, err := DecodeNew(dst, src[PixelSize:])
		return SchemeNew, n + PixelSize, err
	}
	n, err := DecodeOld(dst, src)
	return SchemeOld, n, err
}

// DecodeOld decodes an old-scheme scanline. A (1,1,1,E) group repeats the
// previous pixel E<<shift times, shift growing by 8 for each consecutive
// repeat group so chained markers encode long runs.
func DecodeOld(dst, src []byte) (int, error) {
	n := len(dst) / PixelSize
	off, pos := 0, 0
	shift := uint(0)
	for pos < n {
		if off+PixelSize > len(src) {
			return off, ErrShortRecord
		}
		p := src[off : off+PixelSize]
		off += PixelSize

		if p[R] == 1 && p[G] == 1 && p[B] == 1 {
			if pos == 0 {
				return off, ErrOrphanRepeat
			}
			count := int(p[E]) << shift
			if pos+count > n {
				return off, ErrRunOverflow
			}
			prev := dst[(pos-1)*PixelSize : pos*PixelSize]
			for ; count > 0; count-- {
				copy(dst[pos*PixelSize:], prev)
				pos++
			}
			shift += 8
			continue
		}

		copy(dst[pos*PixelSize:], p)
		pos++
		shift = 0
	}
	return off, nil
}

// DecodeNew decodes the channel planes of a new-scheme scanline, src starting
// right after the lead-in pixel. Each channel is a sequence of control bytes:
// above 128 is a run of (control&127) copies of the next byte, otherwise a
// literal of control bytes.
func DecodeNew(dst, src []byte) (int, error) {
	n := len(dst) / PixelSize
	off := 0
	for ch := 0; ch < PixelSize; ch++ {
		for pos := 0; pos < n; {
			if off >= len(src) {
				return off, ErrShortRecord
			}
			code := int(src[off])
			off++

			if code > 128 {
				code &= 127
				if off >= len(src) {
					return off, ErrShortRecord
				}
				v := src[off]
				off++
				if pos+code > n {
					return off, ErrRunOverflow
				}
				for ; code > 0; code-- {
					dst[pos*PixelSize+ch] = v
					pos++
				}
				continue
			}

			if pos+code > n {
				return off, ErrRunOverflow
			}
			if off+code > len(src) {
				return off, ErrShortRecord
			}
			for _, v := range src[off : off+code] {
				dst[pos*PixelSize+ch] = v
				pos++
			}
			off += code
		}
	}
	return off, nil
}
