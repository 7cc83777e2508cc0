package render

import (
	"sync"

	"github.com/arobinet/sonavis/dsp"
	"github.com/arobinet/sonavis/logging"
)

// profilePercentile aggregates each frequency row; a high percentile
// follows the signal while trimming most of the noise.
const profilePercentile = 98.0

// ProfilePipeline renders the frequency profile: for each displayed
// frequency, an aggregate of the power over the displayed time span.
// It shares the reader and FFT steps with the spectrogram pipeline so
// the transform only runs once per panel.
type ProfilePipeline struct {
	settings *GraphSettings
	cfg      *Config
	worker   *pipelineWorker
	logger   logging.Logger

	readerStep *DataReaderStep
	fftStep    *SpectrogramFFTStep
	zoomStep   *zoomStep
	lineStep   *profileLineStep

	mu         sync.Mutex
	completion *ProfileCompletion
}

// NewProfilePipeline builds a profile pipeline around the panel's
// shared reader and FFT steps.
func NewProfilePipeline(settings *GraphSettings, cfg *Config,
	readerStep *DataReaderStep, fftStep *SpectrogramFFTStep) *ProfilePipeline {

	return &ProfilePipeline{
		settings:   settings,
		cfg:        cfg,
		worker:     newPipelineWorker("profile"),
		logger:     logging.WithFields(logging.Fields{"pipeline": "profile"}),
		readerStep: readerStep,
		fftStep:    fftStep,
		zoomStep:   newZoomStep(settings),
		lineStep:   &profileLineStep{},
	}
}

// Submit queues a render, displacing any queued but unstarted one.
func (p *ProfilePipeline) Submit(req *ProfileRequest, onCompletion func(), onError func(error)) {
	p.worker.submit(&workItem{
		run:          func() error { return p.renderOnce(req) },
		onCompletion: onCompletion,
		onError:      onError,
	})
}

// Shutdown discards queued work, waits for an in-flight render and
// stops the worker.
func (p *ProfilePipeline) Shutdown() {
	p.worker.shutdown()
}

// CompletionData returns the outcome of the most recent run, or nil.
func (p *ProfilePipeline) CompletionData() *ProfileCompletion {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completion
}

func (p *ProfilePipeline) setCompletion(c *ProfileCompletion) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completion = c
}

func (p *ProfilePipeline) renderOnce(req *ProfileRequest) error {
	p.setCompletion(nil)

	width, height := req.DataArea.Size()
	if width < 1 || height < 1 {
		p.setCompletion(&ProfileCompletion{Outcome: OutcomeAborted, Request: req})
		return failGracefully("image size is invalid")
	}

	g := NewCalcGeometry(p.settings, req.TimeRange, req.FrequencyRange,
		req.File, req.Screen, width, height)

	bytesNeeded, _ := estimateMemoryNeeded(req.File, g)
	if bytesNeeded > p.cfg.MaxSpectrogramBytes {
		p.logger.Warn("render rejected: too much memory needed",
			logging.Fields{"bytes_needed": bytesNeeded, "ceiling": p.cfg.MaxSpectrogramBytes})
		p.setCompletion(&ProfileCompletion{Outcome: OutcomeMemoryRejected, Request: req})
		return nil
	}

	raw, rawSerial, err := p.readerStep.process(readerParams{
		dataSerial:   req.File.DataSerial,
		reader:       req.Reader,
		firstIndex:   g.FirstTimeIndexForSegs,
		lastIndex:    g.LastTimeIndexForSegs,
		configSerial: p.cfg.Serial(),
	})
	if err != nil {
		return err
	}

	fftOut, fftSerial, err := p.fftStep.process(fftParams{
		previousSerial: rawSerial,
		sampleCount:    req.File.SampleCount,
		timeRange:      req.TimeRange,
		windowSamples:  g.WindowSamples,
		overlapSamples: g.OverlapSamples,
		overlapPercent: g.OverlapPercent,
		isReference:    req.IsReference,
	}, raw)
	if err != nil {
		return err
	}

	zoomed, zoomSerial, err := p.zoomStep.process(zoomParams{
		previousSerial: fftSerial,
		canvasHeight:   height,
		canvasWidth:    width,
		timeRange:      req.TimeRange,
		freqRange:      req.FrequencyRange,
		geometry:       g,
	}, fftOut.spec)
	if err != nil {
		return err
	}

	profile, _, err := p.lineStep.process(profileParams{
		previousSerial: zoomSerial,
		canvasHeight:   height,
		canvasWidth:    width,
	}, zoomed)
	if err != nil {
		return err
	}

	p.setCompletion(&ProfileCompletion{
		Outcome:    OutcomeSuccess,
		Request:    req,
		Points:     profile.points,
		ValueRange: profile.valueRange,
	})
	return nil
}

type profileParams struct {
	previousSerial uint64
	canvasHeight   int
	canvasWidth    int
}

type profileSnapshot struct{}

type profileOutput struct {
	points     []Point
	valueRange AxisRange
}

// profileLineStep aggregates each frequency row of the zoomed data to a
// single value and lays the results out as a polyline: x is the scaled
// value, y is the frequency row.
type profileLineStep struct {
	cache stepCache[profileParams, profileSnapshot, profileOutput]
}

func (s *profileLineStep) process(p profileParams, zoomed [][]float64) (profileOutput, uint64, error) {
	return s.cache.process(p, profileSnapshot{}, func() (profileOutput, error) {
		rows := len(zoomed)
		if rows == 0 {
			return profileOutput{}, failGracefully("no data to profile")
		}

		values := make([]float64, rows)
		for r, row := range zoomed {
			if len(row) == 0 {
				values[r] = 0
				continue
			}
			values[r] = dsp.Percentile(row, profilePercentile)
		}

		vmin, vmax := dsp.Min(values), dsp.Max(values)

		points := make([]Point, rows)
		if vrange := vmax - vmin; vrange > 0 {
			for y, v := range values {
				points[y] = Point{
					X: int((v-vmin)/vrange*float64(p.canvasWidth-1) + 0.5),
					Y: int(float64(y)*float64(p.canvasHeight)/float64(rows) + 0.5),
				}
			}
		}
		return profileOutput{
			points:     points,
			valueRange: AxisRange{Min: vmin, Max: vmax},
		}, nil
	})
}
