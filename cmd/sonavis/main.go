// Command sonavis renders a spectrogram of a WAV recording to a PNG.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/arobinet/sonavis/audiofile"
	"github.com/arobinet/sonavis/colourmap"
	"github.com/arobinet/sonavis/dsp"
	"github.com/arobinet/sonavis/logging"
	"github.com/arobinet/sonavis/render"
)

func main() {
	var (
		inPath     = flag.String("in", "", "input WAV file")
		outPath    = flag.String("out", "spectrogram.png", "output PNG file")
		mapPath    = flag.String("colourmap", "", "palette CSV file (default greyscale)")
		width      = flag.Int("width", 1200, "image width in pixels")
		height     = flag.Int("height", 600, "image height in pixels")
		windowSize = flag.Int("window", render.AdaptiveWindowSamples, "window size in samples, -1 for adaptive")
		overlap    = flag.Int("overlap", render.AdaptiveOverlapPercent, "window overlap percent, -1 for adaptive")
		windowType = flag.String("window-type", "hann", "analysis window type")
		variant    = flag.String("variant", "standard", "spectrogram variant: standard, reassigned or adaptive")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "usage: sonavis -in recording.wav [-out spectrogram.png]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if *verbose {
		logging.SetLevel(logging.DebugLevel)
	} else {
		logging.SetLevel(logging.WarnLevel)
	}

	if err := run(*inPath, *outPath, *mapPath, *width, *height,
		*windowSize, *overlap, *windowType, *variant); err != nil {
		logging.Fatal(err, "rendering failed")
	}
}

func run(inPath, outPath, mapPath string, width, height, windowSize, overlap int,
	windowType, variant string) error {

	svc, err := audiofile.Open(inPath)
	if err != nil {
		return err
	}
	info := svc.Info()

	table := colourmap.Greyscale(256)
	if mapPath != "" {
		if table, err = colourmap.Load(mapPath); err != nil {
			return err
		}
	}
	cfg := render.NewConfig(table)

	settings := render.DefaultGraphSettings(info.SampleRate)
	settings.WindowSamples = windowSize
	settings.WindowOverlapPercent = overlap
	settings.WindowType = dsp.WindowType(windowType)
	switch variant {
	case "reassigned":
		settings.SpectrogramVariant = render.VariantReassigned
	case "adaptive":
		settings.SpectrogramVariant = render.VariantAdaptive
	default:
		settings.SpectrogramVariant = render.VariantStandard
	}

	readerStep := render.NewDataReaderStep()
	fftStep := render.NewSpectrogramFFTStep(&settings, cfg)
	pipeline := render.NewSpectrogramPipeline(&settings, cfg, readerStep, fftStep)
	defer pipeline.Shutdown()

	req := &render.SpectrogramRequest{
		DataArea:       render.Area{Left: 0, Top: 0, Right: width - 1, Bottom: height - 1},
		File:           info,
		Reader:         svc,
		TimeRange:      info.TimeRange,
		FrequencyRange: info.FrequencyRange,
		Screen: render.ScreenFactors{
			Aspect: (info.TimeRange.Span() / float64(width)) /
				(info.FrequencyRange.Span() / float64(height)),
			PixelsPerSecond: float64(width) / info.TimeRange.Span(),
		},
	}

	done := make(chan error, 1)
	pipeline.Submit(req,
		func() { done <- nil },
		func(err error) { done <- err },
	)
	if err := <-done; err != nil {
		return err
	}

	completion := pipeline.CompletionData()
	if completion == nil || completion.Outcome != render.OutcomeSuccess {
		return fmt.Errorf("render did not produce an image (outcome %v)", outcomeOf(completion))
	}

	if params := pipeline.GraphParameters(); params != nil {
		logging.Info("rendered spectrogram", logging.Fields{
			"window_type":     string(params.WindowType),
			"window_samples":  params.WindowSamples,
			"overlap_percent": params.OverlapPercent,
			"channels":        params.Channels,
		})
	}

	return writePNG(outPath, completion.Image, table.Lowest(), width, height)
}

func outcomeOf(c *render.SpectrogramCompletion) render.Outcome {
	if c == nil {
		return render.OutcomeNone
	}
	return c.Outcome
}

// writePNG paints the rendered block into a full size image. Frequency
// rows arrive lowest first, so they flip onto the canvas with the low
// frequencies at the bottom.
func writePNG(path string, block [][]colourmap.RGB, background colourmap.RGB, width, height int) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill := color.RGBA{R: background[0], G: background[1], B: background[2], A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, fill)
		}
	}

	for r, row := range block {
		y := height - 1 - r
		if y < 0 || y >= height {
			continue
		}
		for x, rgb := range row {
			if x >= width {
				break
			}
			img.SetRGBA(x, y, color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}
