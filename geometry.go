package radiance

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var dimensionRe = regexp.MustCompile(`^\s*([+-])([XYxy])\s+(-?\d+)\s+([+-])([XYxy])\s+(-?\d+)\s*$`)

// span is one axis walk: start, exclusive end and step of +1 or -1.
type span struct {
	start, end, step int
}

func (s span) count() int {
	return (s.end - s.start) * s.step
}

func newSpan(ascending bool, n int) span {
	if ascending {
		return span{start: 0, end: n, step: 1}
	}
	return span{start: n - 1, end: -1, step: -1}
}

// traversal maps scanline pixels to buffer positions. It is fully derived
// from the dimension line and only cursor and remaining change afterwards.
type traversal struct {
	rowMajor bool
	fast     span // Swept by one scanline.
	slow     span // Advanced once per scanline.

	cursor    int
	remaining int
}

// geometry is the outcome of a dimension line.
type geometry struct {
	width, height int
	trav          traversal
}

// scanlinePixels returns the number of pixels in one scanline.
func (g geometry) scanlinePixels() int {
	if g.trav.rowMajor {
		return g.width
	}
	return g.height
}

func (g geometry) String() string {
	order := "column-major"
	if g.trav.rowMajor {
		order = "row-major"
	}
	return fmt.Sprintf("%dx%d %s", g.width, g.height, order)
}

// ascending reports the storage direction of a signed axis token:
// +X runs left to right and -Y runs top to bottom.
func ascending(sign, axis byte) bool {
	if axis == 'X' {
		return sign == '+'
	}
	return sign == '-'
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

// parseDimension recognizes a resolution line like "-Y 512 +X 768".
// ok is false when the line is not a resolution line at all.
func parseDimension(line string, maxPixels int) (g geometry, ok bool, err error) {
	m := dimensionRe.FindStringSubmatch(line)
	if m == nil {
		return g, false, nil
	}

	sign1, axis1 := m[1][0], upper(m[2][0])
	sign2, axis2 := m[4][0], upper(m[5][0])
	if axis1 == axis2 {
		return g, true, newError("dimension", KindInvalidDimension, "axis %c given twice in %q", axis1, line)
	}

	n1, err1 := strconv.Atoi(m[3])
	n2, err2 := strconv.Atoi(m[6])
	if err1 != nil || err2 != nil || n1 <= 0 || n2 <= 0 {
		return g, true, newError("dimension", KindInvalidDimension, "bad extents in %q", line)
	}
	if n1 > math.MaxInt/3/n2 || max(n1, n2) > (math.MaxInt-4)/4 {
		return g, true, newError("dimension", KindInvalidDimension, "%dx%d does not fit in memory", n1, n2)
	}
	if maxPixels > 0 && n1 > maxPixels/n2 {
		return g, true, newError("dimension", KindInvalidDimension, "%dx%d exceeds %d pixels", n1, n2, maxPixels)
	}

	slow := newSpan(ascending(sign1, axis1), n1)
	fast := newSpan(ascending(sign2, axis2), n2)

	g.trav = traversal{
		rowMajor:  axis1 == 'Y',
		fast:      fast,
		slow:      slow,
		cursor:    slow.start,
		remaining: n1,
	}
	if g.trav.rowMajor {
		g.height, g.width = n1, n2
	} else {
		g.width, g.height = n1, n2
	}
	return g, true, nil
}
