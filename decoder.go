package radiance

import (
	"bytes"
	"errors"
	"strconv"
	"strings"

	"github.com/vearutop/radiance/internal/rgbe"
)

type decoderState int

const (
	stateHeader decoderState = iota
	stateScanlines
	stateDone
	stateFailed
)

// Decoder decodes a Radiance picture pushed to it in chunks of any size.
//
// Write delivers input and Close signals its end. A Decoder is not safe for
// concurrent use.
type Decoder struct {
	opt  Options
	log  Logger
	conv *rgbe.Converter

	state decoderState
	err   error
	img   *Image

	// buf[off:] is the input not consumed yet.
	buf []byte
	off int

	// skipLF drops a '\n' following a "\r" terminated dimension line, only
	// when earlier header lines ended with "\r\n".
	skipLF bool
	lastCR bool
	crlf   bool

	headers  Headers
	comments []string

	geom       geometry
	recordSize int
	scanline   []byte // Raw pixels of the current scanline.
	pix        []float32
}

// NewDecoder creates an empty decoder.
func NewDecoder(opts ...func(o *Options)) *Decoder {
	opt := DefaultOptions()
	for _, applyOpt := range opts {
		applyOpt(&opt)
	}
	if opt.Logger == nil {
		opt.Logger = NoOpLogger{}
	}
	if opt.ChunkSize <= 0 {
		opt.ChunkSize = defaultChunkSize
	}

	d := &Decoder{
		opt:     opt,
		log:     opt.Logger,
		headers: newHeaders(),
	}
	if opt.Conversion == ConversionXYZE {
		d.conv = rgbe.NewXYZEConverter()
	} else {
		d.conv = rgbe.NewRGBEConverter()
	}
	return d
}

// HeaderComplete reports whether the dimension line was parsed.
func (d *Decoder) HeaderComplete() bool {
	return d.state == stateScanlines || d.state == stateDone
}

// Width returns the picture width, 0 until the header is complete.
func (d *Decoder) Width() int { return d.geom.width }

// Height returns the picture height, 0 until the header is complete.
func (d *Decoder) Height() int { return d.geom.height }

// Write buffers p and decodes every header line and scanline it completes.
// It always consumes all of p unless decoding failed.
func (d *Decoder) Write(p []byte) (int, error) {
	switch d.state {
	case stateFailed:
		return 0, d.err
	case stateDone:
		return 0, ErrClosed
	}

	if d.state == stateScanlines && d.geom.trav.remaining == 0 {
		// Trailing data after the last scanline is not needed.
		return len(p), nil
	}

	d.compact()
	d.buf = append(d.buf, p...)

	if err := d.process(false); err != nil {
		return 0, d.fail(err)
	}
	return len(p), nil
}

// Close signals the end of input. It decodes what is left and finishes the
// picture, or reports why it cannot. Repeated calls return the same result.
func (d *Decoder) Close() error {
	switch d.state {
	case stateFailed:
		return d.err
	case stateDone:
		return nil
	}

	if err := d.process(true); err != nil {
		return d.fail(err)
	}
	if d.state == stateHeader {
		return d.fail(newError("header", KindTruncated, "input ended before the dimension line"))
	}
	if rest := len(d.buf) - d.off; rest > 0 {
		d.log.Debug("ignoring trailing data", Field{Key: "bytes", Value: rest})
	}

	d.state = stateDone
	d.img = &Image{
		Width:      d.geom.width,
		Height:     d.geom.height,
		Headers:    d.headers,
		Comments:   d.comments,
		Pix:        d.pix,
		Conversion: d.opt.Conversion,
	}
	d.buf, d.off, d.scanline = nil, 0, nil

	d.log.Debug("picture decoded", Field{Key: "geometry", Value: d.geom.String()})
	if d.opt.OnLoad != nil {
		d.opt.OnLoad(d.img)
	}
	return nil
}

// Image returns the decoded picture once Close succeeded.
func (d *Decoder) Image() (*Image, error) {
	switch d.state {
	case stateDone:
		return d.img, nil
	case stateFailed:
		return nil, d.err
	default:
		return nil, newError("image", KindIncomplete, "decoding is not finished")
	}
}

func (d *Decoder) fail(err error) error {
	d.state = stateFailed
	d.err = err
	d.buf, d.off, d.scanline, d.pix = nil, 0, nil, nil

	d.log.Error("decoding failed", Field{Key: "error", Value: err})
	if d.opt.OnError != nil {
		d.opt.OnError(err)
	}
	return err
}

// compact moves unconsumed input to the front of the buffer.
func (d *Decoder) compact() {
	if d.off == 0 {
		return
	}
	n := copy(d.buf, d.buf[d.off:])
	d.buf = d.buf[:n]
	d.off = 0
}

func (d *Decoder) process(eof bool) error {
	if d.state == stateHeader {
		if err := d.readHeader(eof); err != nil {
			return err
		}
	}
	if d.state == stateScanlines {
		return d.readScanlines(eof)
	}
	return nil
}

// readHeader consumes complete header lines. An unterminated line is only
// taken at end of input.
func (d *Decoder) readHeader(eof bool) error {
	for d.state == stateHeader {
		data := d.buf[d.off:]
		i := bytes.IndexAny(data, "\r\n")

		var line []byte
		switch {
		case i >= 0:
			line = data[:i]
			d.off += i + 1
		case eof && len(data) > 0:
			line = data
			d.off += len(data)
		default:
			return nil
		}

		if i >= 0 {
			cr := data[i] == '\r'
			if !cr && d.lastCR && len(line) == 0 {
				d.crlf = true
			}
			d.lastCR = cr
		}

		if err := d.headerLine(string(line)); err != nil {
			return err
		}
		if d.state == stateScanlines && d.crlf && i >= 0 && data[i] == '\r' {
			d.skipLF = true
		}
	}
	return nil
}

func (d *Decoder) headerLine(line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	prefixLen := len(line) - len(strings.TrimLeft(line, "#?"))
	prefix, body := line[:prefixLen], line[prefixLen:]

	switch prefix {
	case "#?":
		return d.filetype(strings.TrimSpace(body))
	case "#":
		d.comments = append(d.comments, strings.TrimSpace(body))
		return nil
	case "":
	default:
		return d.malformed(line, "unknown line prefix %q", prefix)
	}

	if i := strings.IndexFunc(line, isControl); i >= 0 {
		return d.malformed(line, "control character %#x", line[i])
	}

	g, ok, err := parseDimension(line, d.opt.MaxPixels)
	if err != nil {
		return err
	}
	if ok {
		return d.startScanlines(g)
	}

	if i := strings.IndexByte(line, '='); i >= 0 {
		key, value := strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
		if key == "" {
			return d.malformed(line, "missing header name")
		}
		if !d.headers.set(key, value) {
			return d.malformed(line, "bad %s value", key)
		}
		return nil
	}

	d.headers.Commands = append(d.headers.Commands, strings.TrimSpace(line))
	return nil
}

func isControl(r rune) bool {
	return r < 0x20 && r != '\t'
}

func (d *Decoder) filetype(value string) error {
	if value == filetypeRadiance || value == filetypeRGBE {
		d.headers.Radiance = true
		return nil
	}
	if d.opt.Strict {
		return newError("header", KindMissingFiletype, "unsupported filetype %q", value)
	}
	d.log.Warn("ignoring unsupported filetype", Field{Key: "filetype", Value: value})
	return nil
}

// malformed fails in strict mode and only warns otherwise.
func (d *Decoder) malformed(line, format string, args ...any) error {
	err := newError("header", KindMalformedHeader, format, args...)
	if d.opt.Strict {
		return err
	}
	d.log.Warn("ignoring malformed header line", Field{Key: "line", Value: line}, Field{Key: "error", Value: err})
	return nil
}

func (d *Decoder) startScanlines(g geometry) error {
	if !d.headers.Radiance {
		return newError("header", KindMissingFiletype, "no RADIANCE or RGBE filetype before dimension line")
	}

	n := g.scanlinePixels()
	d.geom = g
	d.recordSize = rgbe.RecordSize(n)
	d.scanline = make([]byte, n*rgbe.PixelSize)
	d.pix = make([]float32, g.width*g.height*3)
	d.state = stateScanlines

	d.log.Debug("header complete",
		Field{Key: "geometry", Value: g.String()},
		Field{Key: "record_size", Value: d.recordSize},
		Field{Key: "comments", Value: len(d.comments)},
	)
	return nil
}

// readScanlines decodes scanlines while a full record is buffered, or
// whatever is left at end of input.
func (d *Decoder) readScanlines(eof bool) error {
	t := &d.geom.trav
	for t.remaining > 0 {
		data := d.buf[d.off:]
		if d.skipLF && len(data) > 0 {
			d.skipLF = false
			if data[0] == '\n' {
				d.off++
				continue
			}
		}

		if len(data) < d.recordSize && !eof {
			return nil
		}
		if len(data) == 0 {
			break
		}

		scheme, n, err := rgbe.Decode(d.scanline, data)
		if err == nil && scheme == rgbe.SchemeNew {
			err = d.checkMarker(data)
		}
		if err != nil {
			if errors.Is(err, rgbe.ErrShortRecord) {
				if !eof {
					return nil
				}
				return wrapError("scanline", KindTruncated, d.scanlineName(), err)
			}
			if IsKind(err) {
				return err
			}
			return wrapError("scanline", KindCorruptScanline, d.scanlineName(), err)
		}

		d.off += n
		d.writeScanline()
	}

	if eof && t.remaining > 0 {
		return newError("scanline", KindTruncated, "%d of %d scanlines missing", t.remaining, t.slow.count())
	}
	return nil
}

func (d *Decoder) checkMarker(data []byte) error {
	n := d.geom.scanlinePixels()
	if got := rgbe.MarkerLength(data); got != n {
		if d.opt.Strict {
			return newError("scanline", KindScanlineMarker, "%s declares %d pixels, want %d", d.scanlineName(), got, n)
		}
		d.log.Warn("scanline length mismatch", Field{Key: "declared", Value: got}, Field{Key: "expected", Value: n})
	}
	return nil
}

func (d *Decoder) scanlineName() string {
	t := d.geom.trav
	return "scanline " + strconv.Itoa(t.slow.count()-t.remaining)
}

// writeScanline converts the current scanline into the pixel buffer along the
// fast axis and advances the slow cursor.
func (d *Decoder) writeScanline() {
	t := &d.geom.trav
	p := t.fast.start
	for i := 0; i < len(d.scanline); i += rgbe.PixelSize {
		x, y := p, t.cursor
		if !t.rowMajor {
			x, y = t.cursor, p
		}
		off := (x + y*d.geom.width) * 3
		d.conv.Convert(d.pix[off:off+3], d.scanline[i:i+rgbe.PixelSize])
		p += t.fast.step
	}
	t.cursor += t.slow.step
	t.remaining--
}
