package radiance

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/mdouchement/hdr/hdrcolor"
)

func init() {
	image.RegisterFormat("hdr", "#?RADIANCE", decodeImage, decodeImageConfig)
	image.RegisterFormat("hdr", "#?RGBE", decodeImage, decodeImageConfig)
}

// Decode reads a whole picture from r, pushing it into a Decoder in chunks
// of Options.ChunkSize bytes.
func Decode(r io.Reader, opts ...func(o *Options)) (*Image, error) {
	d := NewDecoder(opts...)
	buf := make([]byte, d.opt.ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := d.Write(buf[:n]); werr != nil {
				return nil, werr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
	}
	if err := d.Close(); err != nil {
		return nil, err
	}
	return d.Image()
}

// DecodeFile decodes a picture file, transparently decompressing gzip and
// zstd streams.
func DecodeFile(path string, opts ...func(o *Options)) (*Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := OpenSource(f)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	img, err := Decode(src, opts...)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// DecodeConfig reads only as far as the dimension line.
func DecodeConfig(r io.Reader, opts ...func(o *Options)) (image.Config, error) {
	d := NewDecoder(opts...)
	buf := make([]byte, 512)
	for !d.HeaderComplete() {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := d.Write(buf[:n]); werr != nil {
				if d.Width() > 0 {
					// Only scanline data failed.
					break
				}
				return image.Config{}, werr
			}
		}
		if errors.Is(err, io.EOF) {
			if cerr := d.Close(); cerr != nil && d.Width() == 0 {
				return image.Config{}, cerr
			}
			break
		}
		if err != nil {
			return image.Config{}, fmt.Errorf("read: %w", err)
		}
	}

	model := hdrcolor.RGBModel
	if d.opt.Conversion == ConversionXYZE {
		model = hdrcolor.XYZModel
	}
	return image.Config{ColorModel: model, Width: d.Width(), Height: d.Height()}, nil
}

func decodeImage(r io.Reader) (image.Image, error) {
	m, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return m.HDR(), nil
}

func decodeImageConfig(r io.Reader) (image.Config, error) {
	return DecodeConfig(r)
}
