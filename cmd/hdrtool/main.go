package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/vearutop/radiance"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:], os.Stdout)
	case "preview":
		err = runPreview(os.Args[2:])
	case "detect":
		err = runDetect(os.Args[2:], os.Stdout)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: hdrtool <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  info    -in input.hdr [-xyz] [-lenient] [-config c.json]")
	fmt.Fprintln(os.Stderr, "  preview -in input.hdr -out preview.png [-w 800] [-h 0] [-exposure 0] [-interp lanczos3] [-q 90]")
	fmt.Fprintln(os.Stderr, "  detect  -in input.hdr")
	fmt.Fprintln(os.Stderr, "All commands accept -log-level debug|info|warn|error.")
}

// decodeFlags are shared by commands that decode a picture.
type decodeFlags struct {
	in       *string
	xyz      *bool
	lenient  *bool
	config   *string
	logLevel *string
}

func addDecodeFlags(fs *flag.FlagSet) decodeFlags {
	return decodeFlags{
		in:       fs.String("in", "", "input Radiance HDR file, gzip or zstd compressed allowed"),
		xyz:      fs.Bool("xyz", false, "use XYZE pixel conversion"),
		lenient:  fs.Bool("lenient", false, "tolerate unknown filetypes, malformed headers and scanline markers"),
		config:   fs.String("config", "", "JSON file with decode options"),
		logLevel: fs.String("log-level", "warn", "logging level: debug, info, warn, error"),
	}
}

func (f decodeFlags) options() (radiance.Options, error) {
	opt := radiance.DefaultOptions()
	if *f.config != "" {
		cfg, err := loadConfig(*f.config)
		if err != nil {
			return opt, fmt.Errorf("load config: %w", err)
		}
		opt = cfg
	}
	if *f.xyz {
		opt.Conversion = radiance.ConversionXYZE
	}
	if *f.lenient {
		opt.Strict = false
	}
	level, err := radiance.ParseLevel(*f.logLevel)
	if err != nil {
		return opt, err
	}
	opt.Logger = &radiance.StandardLogger{
		Logger:   log.New(os.Stderr, "hdrtool: ", log.LstdFlags),
		MinLevel: level,
	}
	return opt, nil
}

func (f decodeFlags) decode() (*radiance.Image, error) {
	if *f.in == "" {
		return nil, errors.New("missing required arguments")
	}
	opt, err := f.options()
	if err != nil {
		return nil, err
	}
	return radiance.DecodeFile(*f.in, radiance.WithOptions(opt))
}

// loadConfig reads decode options, fields missing from the file keep their defaults.
func loadConfig(path string) (radiance.Options, error) {
	opt := radiance.DefaultOptions()
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return opt, err
	}
	if err := json.Unmarshal(data, &opt); err != nil {
		return opt, err
	}
	return opt, nil
}

type infoOutput struct {
	*radiance.Image
	Luminance radiance.Stats `json:"luminance"`
}

func runInfo(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	df := addDecodeFlags(fs)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	img, err := df.decode()
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(infoOutput{Image: img, Luminance: img.Stats()}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(payload))
	return err
}

func runPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	df := addDecodeFlags(fs)
	outPath := fs.String("out", "", "output PNG or JPEG")
	width := fs.Uint("w", 0, "preview width, 0 keeps aspect ratio")
	height := fs.Uint("h", 0, "preview height, 0 keeps aspect ratio")
	exposure := fs.Float64("exposure", 0, "exposure adjustment in stops")
	interp := fs.String("interp", "lanczos3", "nearest, bilinear, bicubic, mitchell, lanczos2, lanczos3")
	q := fs.Int("q", 90, "JPEG quality")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outPath == "" {
		return errors.New("missing required arguments")
	}
	ip, err := radiance.ParseInterpolation(*interp)
	if err != nil {
		return err
	}

	img, err := df.decode()
	if err != nil {
		return err
	}
	pv, err := radiance.Preview(img, *width, *height, func(o *radiance.PreviewOptions) {
		o.Exposure = float32(*exposure)
		o.Interpolation = ip
	})
	if err != nil {
		return err
	}
	return writeImage(*outPath, pv, *q)
}

func writeImage(path string, img image.Image, quality int) (err error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(f, img, &jpeg.Options{Quality: quality})
	default:
		return png.Encode(f, img)
	}
}

func runDetect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	inPath := fs.String("in", "", "input file")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("missing required arguments")
	}
	f, err := os.Open(filepath.Clean(*inPath))
	if err != nil {
		return err
	}
	defer f.Close()

	src, err := radiance.OpenSource(f)
	if err != nil {
		return err
	}
	defer src.Close()

	ok, err := radiance.IsRadiance(src)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(out, "radiance")
		return nil
	}
	fmt.Fprintln(out, "not radiance")
	return nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
