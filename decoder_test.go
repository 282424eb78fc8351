package radiance

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/vearutop/radiance/internal/rgbe"
	"github.com/vearutop/radiance/internal/rgbe/rgbetest"
)

// decodeChunks pushes data in chunks of the given size and closes the decoder.
func decodeChunks(data []byte, chunk int, opts ...func(o *Options)) (*Image, error) {
	d := NewDecoder(opts...)
	for len(data) > 0 {
		n := chunk
		if n > len(data) {
			n = len(data)
		}
		if _, err := d.Write(data[:n]); err != nil {
			return nil, err
		}
		data = data[n:]
	}
	if err := d.Close(); err != nil {
		return nil, err
	}
	return d.Image()
}

// expectedPix converts pixels indexed by y*w+x.
func expectedPix(pixels []rgbetest.Pixel, conv *rgbe.Converter) []float32 {
	out := make([]float32, len(pixels)*3)
	for i, px := range pixels {
		conv.Convert(out[i*3:i*3+3], px[:])
	}
	return out
}

func TestDecoderOrientation(t *testing.T) {
	const w, h = 3, 2
	pixels := rgbetest.Gradient(w, h)
	at := func(x, y int) rgbetest.Pixel { return pixels[y*w+x] }

	for _, tc := range []struct {
		dim       string
		scanlines func() [][]rgbetest.Pixel
	}{
		{
			dim: "-Y 2 +X 3",
			scanlines: func() [][]rgbetest.Pixel {
				return [][]rgbetest.Pixel{
					{at(0, 0), at(1, 0), at(2, 0)},
					{at(0, 1), at(1, 1), at(2, 1)},
				}
			},
		},
		{
			dim: "-Y 2 -X 3",
			scanlines: func() [][]rgbetest.Pixel {
				return [][]rgbetest.Pixel{
					{at(2, 0), at(1, 0), at(0, 0)},
					{at(2, 1), at(1, 1), at(0, 1)},
				}
			},
		},
		{
			dim: "+Y 2 +X 3",
			scanlines: func() [][]rgbetest.Pixel {
				return [][]rgbetest.Pixel{
					{at(0, 1), at(1, 1), at(2, 1)},
					{at(0, 0), at(1, 0), at(2, 0)},
				}
			},
		},
		{
			dim: "+X 3 -Y 2",
			scanlines: func() [][]rgbetest.Pixel {
				return [][]rgbetest.Pixel{
					{at(0, 0), at(0, 1)},
					{at(1, 0), at(1, 1)},
					{at(2, 0), at(2, 1)},
				}
			},
		},
		{
			dim: "-X 3 +Y 2",
			scanlines: func() [][]rgbetest.Pixel {
				return [][]rgbetest.Pixel{
					{at(2, 1), at(2, 0)},
					{at(1, 1), at(1, 0)},
					{at(0, 1), at(0, 0)},
				}
			},
		},
	} {
		t.Run(tc.dim, func(t *testing.T) {
			data := rgbetest.Picture{Dimension: tc.dim, Scanlines: tc.scanlines(), Old: true}.Bytes()
			img, err := decodeChunks(data, len(data))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if img.Width != w || img.Height != h {
				t.Fatalf("unexpected size %dx%d", img.Width, img.Height)
			}
			want := expectedPix(pixels, rgbe.NewRGBEConverter())
			if !reflect.DeepEqual(img.Pix, want) {
				t.Fatalf("pixels mismatch:\n got %v\nwant %v", img.Pix, want)
			}
		})
	}
}

func TestDecoderNewSchemeChunked(t *testing.T) {
	const w, h = 40, 6
	pixels := rgbetest.Gradient(w, h)
	for i := range pixels {
		if i%5 != 0 {
			pixels[i] = pixels[i-i%5] // Give the encoder runs to find.
		}
	}
	data := rgbetest.Picture{
		Comments:  []string{"made by a test"},
		Headers:   []string{"FORMAT=32-bit_rle_rgbe", "EXPOSURE=2.0", "SOFTWARE=test", "pfilt -x 40"},
		Dimension: "-Y 6 +X 40",
		Scanlines: rgbetest.RowMajor(pixels, w, h),
	}.Bytes()

	whole, err := decodeChunks(data, len(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(whole.Pix) != w*h*3 {
		t.Fatalf("unexpected buffer length %d", len(whole.Pix))
	}
	if !reflect.DeepEqual(whole.Pix, expectedPix(pixels, rgbe.NewRGBEConverter())) {
		t.Fatal("pixels mismatch")
	}
	if !reflect.DeepEqual(whole.Comments, []string{"made by a test"}) {
		t.Fatalf("unexpected comments %q", whole.Comments)
	}
	if v, _ := whole.Headers.Get("FORMAT"); v != "32-bit_rle_rgbe" {
		t.Fatalf("unexpected FORMAT %q", v)
	}
	if !reflect.DeepEqual(whole.Headers.Commands, []string{"pfilt -x 40"}) {
		t.Fatalf("unexpected commands %q", whole.Headers.Commands)
	}

	rnd := rand.New(rand.NewSource(7))
	for _, chunk := range []int{1, 2, 3, 7, 64, 161, 1000} {
		img, err := decodeChunks(data, chunk)
		if err != nil {
			t.Fatalf("chunk %d: decode: %v", chunk, err)
		}
		if !reflect.DeepEqual(img, whole) {
			t.Fatalf("chunk %d: result differs from single chunk decode", chunk)
		}
	}

	// Random chunk sizes.
	d := NewDecoder()
	for rest := data; len(rest) > 0; {
		n := 1 + rnd.Intn(50)
		if n > len(rest) {
			n = len(rest)
		}
		if _, err := d.Write(rest[:n]); err != nil {
			t.Fatalf("write: %v", err)
		}
		rest = rest[n:]
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	img, err := d.Image()
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if !reflect.DeepEqual(img, whole) {
		t.Fatal("random chunks: result differs from single chunk decode")
	}
}

func TestDecoderRoundTripTuples(t *testing.T) {
	const w, h = 24, 3
	pixels := rgbetest.Gradient(w, h)
	data := rgbetest.Picture{Dimension: "-Y 3 +X 24", Scanlines: rgbetest.RowMajor(pixels, w, h)}.Bytes()

	img, err := decodeChunks(data, 5, func(o *Options) { o.Conversion = ConversionXYZE })
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Conversion != ConversionXYZE {
		t.Fatalf("unexpected conversion %s", img.Conversion)
	}
	// XYZE conversion is exact for these mantissas, so tuples can be recovered.
	for i, px := range pixels {
		scale := math.Ldexp(1, int(px[3])-128) / 256
		for ch := 0; ch < 3; ch++ {
			got := float64(img.Pix[i*3+ch]) / scale
			if got != float64(px[ch]) {
				t.Fatalf("pixel %d channel %d: got %v want %d", i, ch, got, px[ch])
			}
		}
	}
}

func TestDecoderFiniteNonNegative(t *testing.T) {
	const w, h = 16, 4
	rnd := rand.New(rand.NewSource(3))
	pixels := make([]rgbetest.Pixel, w*h)
	for i := range pixels {
		pixels[i] = rgbetest.Pixel{byte(rnd.Intn(256)), byte(rnd.Intn(256)), byte(rnd.Intn(256)), byte(rnd.Intn(256))}
	}
	data := rgbetest.Picture{Dimension: "-Y 4 +X 16", Scanlines: rgbetest.RowMajor(pixels, w, h)}.Bytes()

	img, err := decodeChunks(data, 33)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i, v := range img.Pix {
		if v < 0 || math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("cell %d: bad value %v", i, v)
		}
	}
}

func TestDecoderOldSchemeRuns(t *testing.T) {
	const w = 1 + 200 + 3*256
	var buf bytes.Buffer
	buf.WriteString("#?RGBE\n\n-Y 1 +X 969\n")
	buf.Write([]byte{10, 20, 30, 140, 1, 1, 1, 200, 1, 1, 1, 3})

	img, err := decodeChunks(buf.Bytes(), 4)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := make([]float32, 3)
	rgbe.NewRGBEConverter().Convert(want, []byte{10, 20, 30, 140})
	for x := 0; x < w; x++ {
		r, g, b := img.At(x, 0)
		if r != want[0] || g != want[1] || b != want[2] {
			t.Fatalf("pixel %d: got %v %v %v want %v", x, r, g, b, want)
		}
	}
}

func TestDecoderHeaderAccumulation(t *testing.T) {
	data := rgbetest.Picture{
		Headers: []string{
			"EXPOSURE=2.0",
			"EXPOSURE= 2.0",
			"COLORCORR=1 2 3",
			"COLORCORR=0.5 0.5 2",
			"VIEW=-vtv",
			"VIEW=-vta",
		},
		Dimension: "-Y 1 +X 1",
		Scanlines: [][]rgbetest.Pixel{{{1, 2, 3, 128}}},
		Old:       true,
	}.Bytes()

	img, err := decodeChunks(data, 3)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	hd := img.Headers
	if !hd.Radiance {
		t.Fatal("filetype flag not set")
	}
	if !hd.HasExposure || hd.Exposure != 4.0 {
		t.Fatalf("unexpected exposure %v", hd.Exposure)
	}
	if !hd.HasColorCorr || hd.ColorCorr != [3]float64{0.5, 1, 6} {
		t.Fatalf("unexpected colorcorr %v", hd.ColorCorr)
	}
	if v, _ := hd.Get("VIEW"); v != "-vta" {
		t.Fatalf("later value must win, got %q", v)
	}
	if _, ok := hd.Get(headerExposure); ok {
		t.Fatal("EXPOSURE must not be stored as a raw value")
	}

	exposed := img.Exposed()
	for i := range exposed {
		if exposed[i] != img.Pix[i]/4 {
			t.Fatalf("cell %d: got %v want %v", i, exposed[i], img.Pix[i]/4)
		}
	}
}

func TestDecoderHeaderDefaults(t *testing.T) {
	data := rgbetest.Picture{Dimension: "-Y 1 +X 1", Scanlines: [][]rgbetest.Pixel{{{1, 2, 3, 128}}}, Old: true}.Bytes()
	img, err := decodeChunks(data, len(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Headers.HasExposure || img.Headers.Exposure != 1 {
		t.Fatalf("unexpected exposure %v", img.Headers.Exposure)
	}
	if img.Headers.HasColorCorr || img.Headers.ColorCorr != [3]float64{1, 1, 1} {
		t.Fatalf("unexpected colorcorr %v", img.Headers.ColorCorr)
	}
}

func TestDecoderCRLF(t *testing.T) {
	pixels := rgbetest.Gradient(8, 1)
	var buf bytes.Buffer
	buf.WriteString("#?RADIANCE\r\nFORMAT=32-bit_rle_rgbe\r\n\r\n-Y 1 +X 8\r\n")
	buf.Write(rgbetest.EncodeNew(pixels))

	for _, chunk := range []int{1, 1000} {
		img, err := decodeChunks(buf.Bytes(), chunk)
		if err != nil {
			t.Fatalf("chunk %d: decode: %v", chunk, err)
		}
		if !reflect.DeepEqual(img.Pix, expectedPix(pixels, rgbe.NewRGBEConverter())) {
			t.Fatalf("chunk %d: pixels mismatch", chunk)
		}
	}
}

func TestDecoderCROnly(t *testing.T) {
	// The first pixel starts with 0x0a, which must not be taken for a line feed.
	data := []byte("#?RADIANCE\r\r-Y 1 +X 1\r\x0a\x02\x03\x80")

	for _, chunk := range []int{1, len(data)} {
		img, err := decodeChunks(data, chunk)
		if err != nil {
			t.Fatalf("chunk %d: decode: %v", chunk, err)
		}
		want := expectedPix([]rgbetest.Pixel{{0x0a, 0x02, 0x03, 0x80}}, rgbe.NewRGBEConverter())
		if !reflect.DeepEqual(img.Pix, want) {
			t.Fatalf("chunk %d: pixels mismatch: %v", chunk, img.Pix)
		}
	}
}

func TestDecoderTrailingData(t *testing.T) {
	data := rgbetest.Picture{Dimension: "-Y 1 +X 2", Scanlines: [][]rgbetest.Pixel{{{1, 2, 3, 128}, {4, 5, 6, 129}}}, Old: true}.Bytes()
	data = append(data, 9, 9, 9, 9, 9) // Enough for a full record, so the scanline decodes on Write.

	d := NewDecoder()
	if _, err := d.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := d.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("write after last scanline: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := d.Write([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestDecoderErrors(t *testing.T) {
	one := [][]rgbetest.Pixel{{{1, 2, 3, 128}}}
	newLine := rgbetest.EncodeNew(rgbetest.Gradient(8, 1))

	badMarker := append([]byte(nil), newLine...)
	badMarker[3] = 9

	for _, tc := range []struct {
		name      string
		data      []byte
		lenient   bool
		unlimited bool
		want      *DecodeError
	}{
		{
			name: "no filetype",
			data: rgbetest.Picture{Filetype: "-", Dimension: "-Y 1 +X 1", Scanlines: one, Old: true}.Bytes(),
			want: ErrMissingFiletype,
		},
		{
			name: "unknown filetype strict",
			data: []byte("#?FOOBAR\n-Y 1 +X 1\n\x01\x02\x03\x80"),
			want: ErrMissingFiletype,
		},
		{
			name:    "unknown filetype lenient",
			data:    []byte("#?FOOBAR\n-Y 1 +X 1\n\x01\x02\x03\x80"),
			lenient: true,
			want:    ErrMissingFiletype,
		},
		{
			name: "zero height",
			data: []byte("#?RADIANCE\n\n-Y 0 +X 3\n"),
			want: ErrInvalidDimension,
		},
		{
			name: "negative width",
			data: []byte("#?RADIANCE\n\n-Y 2 +X -3\n"),
			want: ErrInvalidDimension,
		},
		{
			name:      "wrapping pixel count",
			data:      []byte("#?RADIANCE\n\n-Y 6148914691236517206 +X 3\n\x01\x02\x03\x80\x01\x02\x03\x80\x01\x02\x03\x80"),
			unlimited: true,
			want:      ErrInvalidDimension,
		},
		{
			name:      "huge extents",
			data:      []byte("#?RADIANCE\n\n-Y 4294967296 +X 4294967296\n"),
			unlimited: true,
			want:      ErrInvalidDimension,
		},
		{
			name: "same axis twice",
			data: []byte("#?RADIANCE\n\n-Y 2 -Y 3\n"),
			want: ErrInvalidDimension,
		},
		{
			name: "truncated scanline",
			data: rgbetest.Picture{Dimension: "-Y 1 +X 8", Scanlines: [][]rgbetest.Pixel{rgbetest.Gradient(8, 1)}}.Bytes()[:30],
			want: ErrTruncated,
		},
		{
			name: "missing scanlines",
			data: []byte("#?RADIANCE\n\n-Y 2 +X 1\n\x01\x02\x03\x80"),
			want: ErrTruncated,
		},
		{
			name: "header only",
			data: []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n"),
			want: ErrTruncated,
		},
		{
			name: "scanline marker strict",
			data: append([]byte("#?RADIANCE\n\n-Y 1 +X 8\n"), badMarker...),
			want: ErrScanlineMarker,
		},
		{
			name: "malformed prefix",
			data: []byte("#?RADIANCE\n?what\n\n-Y 1 +X 1\n\x01\x02\x03\x80"),
			want: ErrMalformedHeader,
		},
		{
			name: "empty header name",
			data: []byte("#?RADIANCE\n  =x\n\n-Y 1 +X 1\n\x01\x02\x03\x80"),
			want: ErrMalformedHeader,
		},
		{
			name: "bad exposure",
			data: []byte("#?RADIANCE\nEXPOSURE=bright\n\n-Y 1 +X 1\n\x01\x02\x03\x80"),
			want: ErrMalformedHeader,
		},
		{
			name: "orphan repeat",
			data: []byte("#?RADIANCE\n\n-Y 1 +X 2\n\x01\x01\x01\x01\x01\x02\x03\x80"),
			want: ErrCorruptScanline,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var (
				reported []error
				loaded   int
			)
			opts := func(o *Options) {
				o.Strict = !tc.lenient
				if tc.unlimited {
					o.MaxPixels = 0
				}
				o.OnError = func(err error) { reported = append(reported, err) }
				o.OnLoad = func(*Image) { loaded++ }
			}

			for _, chunk := range []int{1, len(tc.data)} {
				reported, loaded = nil, 0
				img, err := decodeChunks(tc.data, chunk, opts)
				if !errors.Is(err, tc.want) {
					t.Fatalf("chunk %d: expected %v, got %v", chunk, tc.want.Kind, err)
				}
				if img != nil {
					t.Fatalf("chunk %d: unexpected picture", chunk)
				}
				if len(reported) != 1 || reported[0] != err {
					t.Fatalf("chunk %d: error must be reported once, got %v", chunk, reported)
				}
				if loaded != 0 {
					t.Fatalf("chunk %d: load reported for failed decode", chunk)
				}
			}
		})
	}
}

func TestDecoderLenientRecovers(t *testing.T) {
	newLine := rgbetest.EncodeNew(rgbetest.Gradient(8, 1))
	badMarker := append([]byte(nil), newLine...)
	badMarker[3] = 9

	for name, data := range map[string][]byte{
		"scanline marker":  append([]byte("#?RADIANCE\n\n-Y 1 +X 8\n"), badMarker...),
		"malformed prefix": append([]byte("#?RADIANCE\n?what\n##also\n\n-Y 1 +X 8\n"), newLine...),
		"bad colorcorr":    append([]byte("#?RADIANCE\nCOLORCORR=1 2\n\n-Y 1 +X 8\n"), newLine...),
		"empty name":       append([]byte("#?RADIANCE\n =x\n\n-Y 1 +X 8\n"), newLine...),
	} {
		t.Run(name, func(t *testing.T) {
			img, err := decodeChunks(data, 3, func(o *Options) { o.Strict = false })
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(img.Pix, expectedPix(rgbetest.Gradient(8, 1), rgbe.NewRGBEConverter())) {
				t.Fatal("pixels mismatch")
			}
			if _, ok := img.Headers.Get(""); ok {
				t.Fatal("unnamed header stored")
			}
		})
	}
}

func TestDecoderMaxPixels(t *testing.T) {
	data := []byte("#?RADIANCE\n\n-Y 100 +X 100\n")
	_, err := decodeChunks(data, len(data), func(o *Options) { o.MaxPixels = 9999 })
	if !errors.Is(err, ErrInvalidDimension) {
		t.Fatalf("expected invalid dimension, got %v", err)
	}
}

func TestDecoderLifecycle(t *testing.T) {
	data := rgbetest.Picture{Dimension: "-Y 2 +X 1", Scanlines: [][]rgbetest.Pixel{{{1, 2, 3, 128}}, {{4, 5, 6, 128}}}, Old: true}.Bytes()

	loaded := 0
	d := NewDecoder(func(o *Options) { o.OnLoad = func(*Image) { loaded++ } })
	if d.HeaderComplete() {
		t.Fatal("header must not be complete before input")
	}
	if _, err := d.Image(); !IsKind(err, KindIncomplete) {
		t.Fatalf("expected incomplete, got %v", err)
	}

	split := bytes.Index(data, []byte("-Y")) + 4
	if _, err := d.Write(data[:split]); err != nil {
		t.Fatalf("write: %v", err)
	}
	if d.HeaderComplete() {
		t.Fatal("unterminated dimension line must wait for more input")
	}
	if _, err := d.Write(data[split:]); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !d.HeaderComplete() || d.Width() != 1 || d.Height() != 2 {
		t.Fatalf("unexpected geometry %dx%d", d.Width(), d.Height())
	}
	if _, err := d.Image(); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("expected not finished before Close, got %v", err)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if loaded != 1 {
		t.Fatalf("load must be reported once, got %d", loaded)
	}
	img, err := d.Image()
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if len(img.Pix) != 6 {
		t.Fatalf("unexpected buffer length %d", len(img.Pix))
	}
}

func TestDecoderFailureIsSticky(t *testing.T) {
	d := NewDecoder()
	_, err := d.Write([]byte("#?RADIANCE\n\n-Y 0 +X 1\n"))
	if !errors.Is(err, ErrInvalidDimension) {
		t.Fatalf("expected invalid dimension, got %v", err)
	}
	if _, err2 := d.Write([]byte("more")); err2 != err {
		t.Fatalf("expected the same error, got %v", err2)
	}
	if err2 := d.Close(); err2 != err {
		t.Fatalf("expected the same error from Close, got %v", err2)
	}
	if _, err2 := d.Image(); err2 != err {
		t.Fatalf("expected the same error from Image, got %v", err2)
	}
}
