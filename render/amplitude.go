package render

import (
	"sync"

	"github.com/arobinet/sonavis/logging"
)

// amplitudeYMargin leaves unused pixels above and below the waveform.
const amplitudeYMargin = 5

// AmplitudePipeline renders the waveform min/max envelope as vertical
// line segments, sharing the raw data reader with the other pipelines
// of its panel.
type AmplitudePipeline struct {
	settings *GraphSettings
	cfg      *Config
	worker   *pipelineWorker
	logger   logging.Logger

	readerStep  *DataReaderStep
	reduceStep  *amplitudeReduceStep
	segmentStep *amplitudeSegmentStep

	mu         sync.Mutex
	completion *AmplitudeCompletion
}

// NewAmplitudePipeline builds an amplitude pipeline around the panel's
// shared reader step.
func NewAmplitudePipeline(settings *GraphSettings, cfg *Config, readerStep *DataReaderStep) *AmplitudePipeline {
	return &AmplitudePipeline{
		settings:    settings,
		cfg:         cfg,
		worker:      newPipelineWorker("amplitude"),
		logger:      logging.WithFields(logging.Fields{"pipeline": "amplitude"}),
		readerStep:  readerStep,
		reduceStep:  &amplitudeReduceStep{},
		segmentStep: &amplitudeSegmentStep{},
	}
}

// Submit queues a render, displacing any queued but unstarted one.
func (p *AmplitudePipeline) Submit(req *AmplitudeRequest, onCompletion func(), onError func(error)) {
	p.worker.submit(&workItem{
		run:          func() error { return p.renderOnce(req) },
		onCompletion: onCompletion,
		onError:      onError,
	})
}

// Shutdown discards queued work, waits for an in-flight render and
// stops the worker.
func (p *AmplitudePipeline) Shutdown() {
	p.worker.shutdown()
}

// CompletionData returns the outcome of the most recent run, or nil.
func (p *AmplitudePipeline) CompletionData() *AmplitudeCompletion {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completion
}

func (p *AmplitudePipeline) setCompletion(c *AmplitudeCompletion) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completion = c
}

func (p *AmplitudePipeline) renderOnce(req *AmplitudeRequest) error {
	p.setCompletion(nil)

	width, height := req.DataArea.Size()
	if width < 1 || height < 1 {
		p.setCompletion(&AmplitudeCompletion{Outcome: OutcomeAborted, Request: req})
		return failGracefully("image size is invalid")
	}

	// The geometry is shared with the spectrogram so both pipelines read
	// the same raw range through the common reader step.
	g := NewCalcGeometry(p.settings, req.TimeRange, req.File.FrequencyRange,
		req.File, req.Screen, width, height)

	_, fileBytes := estimateMemoryNeeded(req.File, g)
	if fileBytes > p.cfg.MaxFileReadBytes {
		p.logger.Warn("render rejected: raw read too large",
			logging.Fields{"bytes_needed": fileBytes, "ceiling": p.cfg.MaxFileReadBytes})
		p.setCompletion(&AmplitudeCompletion{
			Outcome:      OutcomeMemoryRejected,
			Request:      req,
			MemoryNeeded: fileBytes,
		})
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

	reduced, reduceSerial, err := p.reduceStep.process(reduceParams{
		previousSerial: rawSerial,
		canvasWidth:    width,
		timeRange:      req.TimeRange,
		amplitudeRange: req.AmplitudeRange,
		firstAmpIndex:  g.FirstTimeIndexForAmp,
		lastAmpIndex:   g.LastTimeIndexForAmp,
	}, raw)
	if err != nil {
		return p.stepErr(req, err)
	}

	segments, _, err := p.segmentStep.process(segmentParams{
		previousSerial: reduceSerial,
		canvasHeight:   height,
		canvasWidth:    width,
		amplitudeRange: req.AmplitudeRange,
	}, reduced)
	if err != nil {
		return p.stepErr(req, err)
	}

	p.setCompletion(&AmplitudeCompletion{
		Outcome:  OutcomeSuccess,
		Request:  req,
		Segments: segments,
	})
	return nil
}

// stepErr records an aborted completion for graceful step failures.
func (p *AmplitudePipeline) stepErr(req *AmplitudeRequest, err error) error {
	if isGraceful(err) {
		p.setCompletion(&AmplitudeCompletion{Outcome: OutcomeAborted, Request: req})
	}
	return err
}

type reduceParams struct {
	previousSerial uint64
	canvasWidth    int
	timeRange      AxisRange
	amplitudeRange AxisRange
	firstAmpIndex  int
	lastAmpIndex   int
}

type reduceSnapshot struct{}

type reducedAmplitudes struct {
	// ranges holds per-bucket (min, max) sample values across channels.
	ranges [][2]int16
}

// amplitudeReduceStep shrinks the raw samples to about two buckets per
// canvas pixel, keeping each bucket's amplitude extremes. Downstream
// work is then proportional to the canvas, not the recording.
type amplitudeReduceStep struct {
	cache stepCache[reduceParams, reduceSnapshot, reducedAmplitudes]
}

func (s *amplitudeReduceStep) process(p reduceParams, raw readerOutput) (reducedAmplitudes, uint64, error) {
	return s.cache.process(p, reduceSnapshot{}, func() (reducedAmplitudes, error) {
		channels := len(raw.data)
		if channels == 0 {
			return reducedAmplitudes{}, failGracefully("no raw data to reduce")
		}
		rawSamples := len(raw.data[0])

		minIndex := max(0, p.firstAmpIndex-raw.offset)
		maxIndex := min(rawSamples, p.lastAmpIndex-raw.offset)
		if maxIndex <= minIndex {
			return reducedAmplitudes{}, failGracefully("amplitude range is empty")
		}

		targetBuckets := p.canvasWidth * 2
		slicing := max(1, (maxIndex-minIndex)/targetBuckets)
		bucketCount := (maxIndex - minIndex) / slicing

		ranges := make([][2]int16, bucketCount)
		for b := 0; b < bucketCount; b++ {
			start := minIndex + b*slicing
			lo, hi := raw.data[0][start], raw.data[0][start]
			for _, channel := range raw.data {
				for i := start; i < start+slicing; i++ {
					v := channel[i]
					if v < lo {
						lo = v
					}
					if v > hi {
						hi = v
					}
				}
			}
			ranges[b] = [2]int16{lo, hi}
		}
		return reducedAmplitudes{ranges: ranges}, nil
	})
}

type segmentParams struct {
	previousSerial uint64
	canvasHeight   int
	canvasWidth    int
	amplitudeRange AxisRange
}

type segmentSnapshot struct{}

// amplitudeSegmentStep turns reduced amplitude ranges into drawable
// vertical segments. Each column's segment is widened to overlap the
// previous column's range so the waveform draws without gaps.
type amplitudeSegmentStep struct {
	cache stepCache[segmentParams, segmentSnapshot, []LineSegment]
}

func (s *amplitudeSegmentStep) process(p segmentParams, reduced reducedAmplitudes) ([]LineSegment, uint64, error) {
	return s.cache.process(p, segmentSnapshot{}, func() ([]LineSegment, error) {
		columns := len(reduced.ranges)
		if columns == 0 {
			return nil, failGracefully("no reduced amplitude data")
		}

		span := p.amplitudeRange.Span()
		if span <= 0 {
			span = 1
		}
		scaleY := func(a float64) int {
			y := float64(p.canvasHeight-1-amplitudeYMargin*2) *
				(a - p.amplitudeRange.Min) / span
			return int(y+0.5) + amplitudeYMargin
		}

		segments := make([]LineSegment, 0, columns)
		havePrev := false
		var prevLo, prevHi int
		for x := 0; x < columns; x++ {
			lo := scaleY(float64(reduced.ranges[x][0]))
			hi := scaleY(float64(reduced.ranges[x][1])) + 1
			scaledX := int(float64(x)*float64(p.canvasWidth-1)/float64(columns) + 0.5)

			segLo, segHi := lo, hi
			if havePrev {
				segLo = min(min(lo, hi), min(prevLo, prevHi))
				segHi = max(max(lo, hi), max(prevLo, prevHi))
			}
			segments = append(segments, LineSegment{X0: scaledX, Y0: segLo, X1: scaledX, Y1: segHi})
			prevLo, prevHi = lo, hi
			havePrev = true
		}
		return segments, nil
	})
}
