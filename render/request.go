package render

// RawDataReader supplies raw samples from an open audio file. The index
// range is half open and may extend beyond the file; implementations
// clip it and return the samples actually read, channel major.
type RawDataReader interface {
	ReadRawData(firstIndex, lastIndex int) (samples [][]int16, actualCount int, err error)
}

// FrameDataLayout describes hidden per-frame data embedded in a file's
// sample stream, if any.
type FrameDataLayout struct {
	Present     bool
	FrameLength int // Samples per frame.
	Offset      int // Sample offset of the first frame boundary.
	ValueCount  int // Hidden words per frame, including the header.
}

// FileInfo is the metadata a pipeline needs about the audio file it is
// rendering. DataSerial changes whenever a different file (or different
// data) is loaded, which invalidates everything cached downstream.
type FileInfo struct {
	SampleRate     int
	SampleCount    int
	Channels       int
	BytesPerSample int

	TimeRange      AxisRange
	FrequencyRange AxisRange
	AmplitudeRange AxisRange

	FrameData  FrameDataLayout
	DataSerial uint64
}

// ScreenFactors capture how the canvas maps to data, used by the
// adaptive window size and overlap calculations.
type ScreenFactors struct {
	// Aspect is (time span / canvas width) / (frequency span / canvas
	// height); windows sized by it give roughly square display cells.
	Aspect float64
	// PixelsPerSecond is the canvas time axis scaling.
	PixelsPerSecond float64
}

// SpectrogramRequest asks a spectrogram pipeline for one render.
type SpectrogramRequest struct {
	DataArea       Area
	File           FileInfo
	Reader         RawDataReader
	TimeRange      AxisRange
	FrequencyRange AxisRange
	Screen         ScreenFactors
	IsReference    bool
}

// AmplitudeRequest asks an amplitude pipeline for one render.
type AmplitudeRequest struct {
	DataArea       Area
	File           FileInfo
	Reader         RawDataReader
	TimeRange      AxisRange
	AmplitudeRange AxisRange
	Screen         ScreenFactors
	IsReference    bool
}

// ProfileRequest asks a profile pipeline for one render.
type ProfileRequest struct {
	DataArea       Area
	File           FileInfo
	Reader         RawDataReader
	TimeRange      AxisRange
	FrequencyRange AxisRange
	Screen         ScreenFactors
	IsReference    bool
}
