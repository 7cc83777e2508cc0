package render

import (
	"github.com/arobinet/sonavis/steg"
)

// FrameTable holds per-frame data decoded from the sample stream. Each
// row is one frame: the sample offset of the frame within the raw read
// buffer, followed by the frame's payload values.
type FrameTable struct {
	Rows        [][]int32
	FrameLength int
}

type frameParams struct {
	rawSerial      uint64
	firstTimeIndex int
	layout         FrameDataLayout
	windowSamples  int
}

type frameSnapshot struct {
	showFrameData bool
}

// frameDataStep decodes hidden frame records from the raw samples. The
// result is nil when the file carries no frame data, when display is
// turned off, or when the frame structure fails confirmation.
type frameDataStep struct {
	settings *GraphSettings
	cache    stepCache[frameParams, frameSnapshot, *FrameTable]
}

func newFrameDataStep(settings *GraphSettings) *frameDataStep {
	return &frameDataStep{settings: settings}
}

func (s *frameDataStep) process(p frameParams, raw readerOutput) (*FrameTable, uint64, error) {
	snapshot := frameSnapshot{showFrameData: s.settings.ShowFrameData}
	return s.cache.process(p, snapshot, func() (*FrameTable, error) {
		if !p.layout.Present || !snapshot.showFrameData || len(raw.data) == 0 {
			return nil, nil
		}
		return decodeFrames(raw.data[0], p.firstTimeIndex, p.layout), nil
	})
}

// decodeFrames walks the channel at frame strides, unpacking one record
// per frame. Each record is prefix, frame length, value count, then the
// payload. A missing prefix on the frame following a decoded one means
// the stream is not really framed, so presence is revoked and nil is
// returned rather than a partial table.
func decodeFrames(channel []int16, firstTimeIndex int, layout FrameDataLayout) *FrameTable {
	if layout.FrameLength <= 0 || layout.ValueCount < 3 {
		return nil
	}

	// The first time index is where the read nominally started; negative
	// values were clipped to zero by the reader.
	firstTimeIndex = max(0, firstTimeIndex)
	rawNeeded := steg.RawLenForWords(layout.ValueCount)

	// Where the first frame boundary falls within the buffer:
	i := layout.FrameLength - firstTimeIndex%layout.FrameLength + layout.Offset
	for i >= layout.FrameLength {
		i -= layout.FrameLength
	}

	var rows [][]int32
	confirmed := false
	for ; i+rawNeeded <= len(channel); i += layout.FrameLength {
		words := steg.DecodeWords(channel[i:i+rawNeeded], layout.ValueCount)
		if words[0] != steg.PrefixWord {
			if confirmed {
				// A decoded frame not followed by another prefix means
				// we were fooled by noise. Downgrade, don't error.
				return nil
			}
			continue
		}
		confirmed = true

		row := make([]int32, layout.ValueCount-3+1)
		row[0] = int32(i)
		for c, w := range words[3:] {
			row[c+1] = int32(int16(w))
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil
	}
	return &FrameTable{Rows: rows, FrameLength: layout.FrameLength}
}
