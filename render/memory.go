package render

// Memory ceilings, in bytes. A request whose estimated working set
// exceeds the relevant ceiling is rejected rather than attempted.
const (
	maxSpectrogramBytes = 500_000_000
	maxFileReadBytes    = 250_000_000
)

// estimateMemoryNeeded predicts the working memory for a spectrogram
// render: the raw samples read from file plus the spectrum storage.
// Spectrum size scales with the segment overlap factor; dividing by two
// accounts for the discarded phase half of each transform. Reassigned
// renders need somewhat more, which the estimate deliberately ignores.
func estimateMemoryNeeded(file FileInfo, g CalcGeometry) (totalBytes, fileBytes int) {
	samplesNeeded := (g.LastTimeIndexForSegs - g.FirstTimeIndexForSegs) * file.Channels
	fileBytes = samplesNeeded * file.BytesPerSample

	overlapFactor := float64(g.NFFT) / float64(g.NFFT-g.NFFTOverlap)
	spectrumBytes := int(float64(samplesNeeded) * overlapFactor * 4 / 2)

	return fileBytes + spectrumBytes, fileBytes
}
