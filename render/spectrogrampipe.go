package render

import (
	"fmt"
	"sync"

	"github.com/arobinet/sonavis/colourmap"
	"github.com/arobinet/sonavis/logging"
)

// minRenderPixels is the smallest data area worth rendering; anything
// smaller is a transient window state and aborts gracefully.
const minRenderPixels = 10

// SpectrogramPipeline renders spectrogram images on a background
// worker. The reader and FFT steps are shared with the profile pipeline
// of the same panel; everything downstream is private.
type SpectrogramPipeline struct {
	settings *GraphSettings
	cfg      *Config
	worker   *pipelineWorker
	logger   logging.Logger

	readerStep *DataReaderStep
	fftStep    *SpectrogramFFTStep
	frameStep  *frameDataStep
	zoomStep   *zoomStep
	bncStep    *bncStep
	colourStep *colourMapStep
	phaseStep  *phaseColourStep

	mu                  sync.Mutex
	completion          *SpectrogramCompletion
	graphParams         *GraphParams
	lastHistogramSerial uint64
}

// NewSpectrogramPipeline builds a pipeline around the shared reader and
// FFT steps of a panel.
func NewSpectrogramPipeline(settings *GraphSettings, cfg *Config,
	readerStep *DataReaderStep, fftStep *SpectrogramFFTStep) *SpectrogramPipeline {

	return &SpectrogramPipeline{
		settings:   settings,
		cfg:        cfg,
		worker:     newPipelineWorker("spectrogram"),
		logger:     logging.WithFields(logging.Fields{"pipeline": "spectrogram"}),
		readerStep: readerStep,
		fftStep:    fftStep,
		frameStep:  newFrameDataStep(settings),
		zoomStep:   newZoomStep(settings),
		bncStep:    newBnCStep(settings),
		colourStep: newColourMapStep(cfg),
		phaseStep:  newPhaseColourStep(cfg),
	}
}

// Submit queues a render. A queued but unstarted render is displaced,
// so the callbacks run only for the requests that actually complete.
// onCompletion is not called for graceful aborts; read CompletionData
// to observe those.
func (p *SpectrogramPipeline) Submit(req *SpectrogramRequest, onCompletion func(), onError func(error)) {
	p.worker.submit(&workItem{
		run:          func() error { return p.renderOnce(req) },
		onCompletion: onCompletion,
		onError:      onError,
	})
}

// Shutdown discards queued work, waits for an in-flight render and
// stops the worker.
func (p *SpectrogramPipeline) Shutdown() {
	p.worker.shutdown()
}

// CompletionData returns the outcome of the most recent run, or nil if
// none has finished.
func (p *SpectrogramPipeline) CompletionData() *SpectrogramCompletion {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completion
}

// GraphParameters returns the analysis parameters of the most recent
// successful run, with adaptive values resolved.
func (p *SpectrogramPipeline) GraphParameters() *GraphParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.graphParams
}

// DataAreaToValue returns the dB value under a data area pixel, for
// readouts under the mouse pointer.
func (p *SpectrogramPipeline) DataAreaToValue(x, y int) (float64, bool) {
	return p.zoomStep.cachedValue(x, y)
}

func (p *SpectrogramPipeline) setCompletion(c *SpectrogramCompletion, params *GraphParams) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completion = c
	if params != nil {
		p.graphParams = params
	}
}

func (p *SpectrogramPipeline) renderOnce(req *SpectrogramRequest) error {
	p.setCompletion(nil, nil)

	width, height := req.DataArea.Size()
	if width < minRenderPixels || height < minRenderPixels {
		p.setCompletion(&SpectrogramCompletion{Outcome: OutcomeAborted, Request: req}, nil)
		return failGracefully("area to draw is too small")
	}

	g := NewCalcGeometry(p.settings, req.TimeRange, req.FrequencyRange,
		req.File, req.Screen, width, height)

	bytesNeeded, _ := estimateMemoryNeeded(req.File, g)
	if bytesNeeded > p.cfg.MaxSpectrogramBytes {
		p.logger.Warn("render rejected: too much memory needed",
			logging.Fields{"bytes_needed": bytesNeeded, "ceiling": p.cfg.MaxSpectrogramBytes})
		p.setCompletion(&SpectrogramCompletion{
			Outcome:      OutcomeMemoryRejected,
			Request:      req,
			MemoryNeeded: bytesNeeded,
		}, nil)
		return nil
	}

	// Each step memoizes on its parameters and relevant settings, with
	// the previous step's serial chained in so that invalidation flows
	// downstream but untouched steps stay cached.
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

	if lo, hi := rawMinMax(raw.data); lo == hi {
		p.setCompletion(&SpectrogramCompletion{Outcome: OutcomeAborted, Request: req}, nil)
		return failGracefully("range of raw data values is zero")
	}

	frames, frameSerial, err := p.frameStep.process(frameParams{
		rawSerial:      rawSerial,
		firstTimeIndex: g.FirstTimeIndexForSegs,
		layout:         req.File.FrameData,
		windowSamples:  g.WindowSamples,
	}, raw)
	if err != nil {
		return err
	}

	fftOut, fftSerial, err := p.fftStep.process(fftParams{
		previousSerial: frameSerial,
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

	bnc, bncSerial, err := p.bncStep.process(bncParams{previousSerial: zoomSerial}, zoomed)
	if err != nil {
		return err
	}

	var img [][]colourmap.RGB
	if frames != nil {
		img, _, err = p.phaseStep.process(phaseParams{
			previousSerial: bncSerial,
			frameSerial:    frameSerial,
			frameLength:    frames.FrameLength,
			firstAmpIndex:  g.FirstTimeIndexForAmp,
			lastAmpIndex:   g.LastTimeIndexForAmp,
			stepSamples:    g.StepSamples,
			windowSamples:  g.WindowSamples,
		}, bnc.data, frames)
	} else {
		img, _, err = p.colourStep.process(colourParams{previousSerial: bncSerial}, bnc.data)
	}
	if err != nil {
		return fmt.Errorf("colour mapping failed: %w", err)
	}

	// The histogram feed only changes when the zoomed data does; skip
	// resending it otherwise.
	var histogram [][]float64
	p.mu.Lock()
	if zoomSerial != p.lastHistogramSerial {
		histogram = zoomed
		p.lastHistogramSerial = zoomSerial
	}
	p.mu.Unlock()

	params := fftOut.params
	p.setCompletion(&SpectrogramCompletion{
		Outcome:      OutcomeSuccess,
		Request:      req,
		Image:        img,
		TimeOffset:   g.TimeOffsetPixels,
		FreqOffset:   g.FreqOffsetPixels,
		ActualTime:   AxisRange{Min: g.ActualTimeAxisMin, Max: g.ActualTimeAxisMax},
		ActualFreq:   AxisRange{Min: g.ActualFreqAxisMin, Max: g.ActualFreqAxisMax},
		Histogram:    histogram,
		AutoBnCRange: bnc.autoRange,
		Params:       params,
	}, &params)
	return nil
}
