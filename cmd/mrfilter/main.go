// Command mrfilter applies a spatial filter to a 3D or 4D raster volume.
//
// Usage:
//
//	mrfilter [flags] <input> <fft|gradient|median|smooth> <output>
//
// The input and output are volume header files (YAML header next to a raw
// data file). Each filter has its own set of optional flags; the filter
// computes the output geometry from the input header and its parameters
// before the output storage is created.
package main

import (
	"flag"
	"fmt"
	"math/cmplx"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssheybani/mrtrix3/pkg/config"
	"github.com/ssheybani/mrtrix3/pkg/filter"
	"github.com/ssheybani/mrtrix3/pkg/loop"
	"github.com/ssheybani/mrtrix3/pkg/volume"
)

type options struct {
	// fft
	axes       string
	inverse    bool
	magnitude  bool
	centreZero bool

	// gradient / smooth
	stdev   string
	fwhm    string
	scanner bool

	// median / smooth
	extent string

	// all filters
	stride string
	mask   string
	cores  int
}

func main() {
	var opt options
	flag.StringVar(&opt.axes, "axes", "", "comma-separated axes along which to apply the FFT (default: 0,1,2)")
	flag.BoolVar(&opt.inverse, "inverse", false, "apply the inverse FFT")
	flag.BoolVar(&opt.magnitude, "magnitude", false, "output a magnitude image rather than the complex or component result")
	flag.BoolVar(&opt.centreZero, "centre-zero", false, "re-arrange the FFT so the zero-frequency bin lies at the image centre")
	flag.StringVar(&opt.stdev, "stdev", "", "Gaussian stdev in mm, one value or one per axis")
	flag.StringVar(&opt.fwhm, "fwhm", "", "Gaussian FWHM in mm, one value or one per axis (mutually exclusive with -stdev)")
	flag.BoolVar(&opt.scanner, "scanner", false, "express the gradient in the scanner coordinate frame")
	flag.StringVar(&opt.extent, "extent", "", "kernel extent in voxels, one odd value or one per axis")
	flag.StringVar(&opt.stride, "stride", "", "comma-separated output strides, overriding the computed ones")
	flag.StringVar(&opt.mask, "mask", "", "only filter voxels inside this mask volume")
	flag.IntVar(&opt.cores, "cores", 0, "number of CPU cores for per-volume parallelism (default: from config, else all)")
	configPath := flag.String("config", "", "path to a YAML configuration file")
	quiet := flag.Bool("quiet", false, "suppress progress output")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	if flag.NArg() != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <input> <fft|gradient|median|smooth> <output>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}
	if *quiet || cfg.Processing.Quiet {
		log = log.Level(zerolog.WarnLevel)
	}
	if opt.cores == 0 {
		opt.cores = cfg.Processing.NumCores
	}

	input, name, output := flag.Arg(0), flag.Arg(1), flag.Arg(2)

	kind, err := filter.ParseKind(name)
	if err != nil {
		log.Fatal().Err(err).Msg("selecting filter")
	}

	in, err := volume.Open(input)
	if err != nil {
		log.Fatal().Err(err).Msg("opening input volume")
	}
	log.Info().Str("image", input).Ints("dims", in.Header().Dims).Msg("input volume loaded")

	start := time.Now()
	switch kind {
	case filter.KindFFT:
		err = runFFT(log, in, input, output, &opt)
	case filter.KindGradient:
		err = runGradient(log, in, input, output, &opt)
	case filter.KindMedian:
		err = runMedian(log, in, input, output, cfg, &opt)
	case filter.KindSmooth:
		err = runSmooth(log, in, input, output, &opt)
	}
	if err != nil {
		log.Fatal().Err(err).Str("filter", name).Msg("filtering failed")
	}
	log.Info().Str("output", output).Dur("elapsed", time.Since(start)).Msg("done")
}

func runFFT(log zerolog.Logger, in *volume.Volume, input, output string, opt *options) error {
	f, err := filter.NewFFT(in.Header(), opt.inverse)
	if err != nil {
		return err
	}
	if opt.axes != "" {
		axes, err := parseInts(opt.axes)
		if err != nil {
			return fmt.Errorf("%w: %v", filter.ErrConfiguration, err)
		}
		if err := f.SetAxes(axes); err != nil {
			return err
		}
	}
	f.SetCentreZero(opt.centreZero)
	if err := applyStrideOption(&f.Base, opt); err != nil {
		return err
	}
	f.SetMessage(fmt.Sprintf("applying FFT filter to image %s...", input))
	log.Info().Msg(f.Message())

	if !opt.magnitude {
		out, err := volume.New(f.Header())
		if err != nil {
			return err
		}
		if err := f.Apply(in, out); err != nil {
			return err
		}
		return volume.Save(out, output)
	}

	// magnitude output: transform into a scratch complex volume, then
	// collapse to the modulus in a real-valued image of the same geometry
	scratch, err := volume.New(f.Header())
	if err != nil {
		return err
	}
	if err := f.Apply(in, scratch); err != nil {
		return err
	}
	out, err := volume.New(f.Header().WithType(volume.Float32))
	if err != nil {
		return err
	}
	src, dst := scratch.View(), out.View()
	loop.InOrder(out.Header()).Run(func() {
		dst.SetValue(cmplx.Abs(src.Complex()))
	}, src, dst)
	return volume.Save(out, output)
}

func runGradient(log zerolog.Logger, in *volume.Volume, input, output string, opt *options) error {
	f, err := filter.NewGradient(in.Header(), opt.magnitude)
	if err != nil {
		return err
	}
	if opt.stdev != "" {
		stdev, err := parseFloats(opt.stdev)
		if err != nil {
			return fmt.Errorf("%w: %v", filter.ErrConfiguration, err)
		}
		if err := f.SetStdev(stdev); err != nil {
			return err
		}
	}
	f.SetScannerFrame(opt.scanner)
	f.SetWorkers(opt.cores)
	if err := applyStrideOption(&f.Base, opt); err != nil {
		return err
	}
	f.SetMessage(fmt.Sprintf("applying gradient filter to image %s...", input))
	log.Info().Msg(f.Message())

	out, err := volume.New(f.Header())
	if err != nil {
		return err
	}
	if err := f.Apply(in, out); err != nil {
		return err
	}
	return volume.Save(out, output)
}

func runMedian(log zerolog.Logger, in *volume.Volume, input, output string, cfg *config.Config, opt *options) error {
	f, err := filter.NewMedian(in.Header())
	if err != nil {
		return err
	}
	if err := f.SetExtent([]int{cfg.Filters.MedianExtent}); err != nil {
		return err
	}
	if opt.extent != "" {
		extent, err := parseInts(opt.extent)
		if err != nil {
			return fmt.Errorf("%w: %v", filter.ErrConfiguration, err)
		}
		if err := f.SetExtent(extent); err != nil {
			return err
		}
	}
	if err := setMaskOption(f.SetMask, opt); err != nil {
		return err
	}
	f.SetWorkers(opt.cores)
	if err := applyStrideOption(&f.Base, opt); err != nil {
		return err
	}
	f.SetMessage(fmt.Sprintf("applying median filter to image %s...", input))
	log.Info().Msg(f.Message())

	out, err := volume.New(f.Header())
	if err != nil {
		return err
	}
	if err := f.Apply(in, out); err != nil {
		return err
	}
	return volume.Save(out, output)
}

func runSmooth(log zerolog.Logger, in *volume.Volume, input, output string, opt *options) error {
	f, err := filter.NewSmooth(in.Header())
	if err != nil {
		return err
	}
	if opt.stdev != "" && opt.fwhm != "" {
		return fmt.Errorf("%w: the stdev and FWHM options are mutually exclusive", filter.ErrConfiguration)
	}
	if opt.stdev != "" {
		stdev, err := parseFloats(opt.stdev)
		if err != nil {
			return fmt.Errorf("%w: %v", filter.ErrConfiguration, err)
		}
		if err := f.SetStdev(stdev); err != nil {
			return err
		}
	}
	if opt.fwhm != "" {
		fwhm, err := parseFloats(opt.fwhm)
		if err != nil {
			return fmt.Errorf("%w: %v", filter.ErrConfiguration, err)
		}
		if err := f.SetFWHM(fwhm); err != nil {
			return err
		}
	}
	if opt.extent != "" {
		extent, err := parseInts(opt.extent)
		if err != nil {
			return fmt.Errorf("%w: %v", filter.ErrConfiguration, err)
		}
		if err := f.SetExtent(extent); err != nil {
			return err
		}
	}
	if err := setMaskOption(f.SetMask, opt); err != nil {
		return err
	}
	f.SetWorkers(opt.cores)
	if err := applyStrideOption(&f.Base, opt); err != nil {
		return err
	}
	f.SetMessage(fmt.Sprintf("applying smooth filter to image %s...", input))
	log.Info().Msg(f.Message())

	out, err := volume.New(f.Header())
	if err != nil {
		return err
	}
	if err := f.Apply(in, out); err != nil {
		return err
	}
	return volume.Save(out, output)
}

// applyStrideOption applies the -stride override to a filter's negotiated
// output header.
func applyStrideOption(b *filter.Base, opt *options) error {
	if opt.stride == "" {
		return nil
	}
	strides, err := parseInts(opt.stride)
	if err != nil {
		return fmt.Errorf("%w: %v", filter.ErrConfiguration, err)
	}
	return b.SetStrides(strides)
}

// setMaskOption opens the -mask volume, if any, and hands it to the filter.
func setMaskOption(set func(*volume.Volume), opt *options) error {
	if opt.mask == "" {
		return nil
	}
	mask, err := volume.Open(opt.mask)
	if err != nil {
		return fmt.Errorf("opening mask volume: %w", err)
	}
	set(mask)
	return nil
}

// parseInts parses a comma-separated list of integers.
func parseInts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	values := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", p)
		}
		values = append(values, v)
	}
	return values, nil
}

// parseFloats parses a comma-separated list of floats.
func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %q", p)
		}
		values = append(values, v)
	}
	return values, nil
}
