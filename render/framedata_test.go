package render

import (
	"testing"

	"github.com/arobinet/sonavis/steg"
)

// encodeFrame hides one frame record at the given sample offset. The
// record is prefix, frame length, value count, then the payload.
func encodeFrame(channel []int16, offset, frameLength int, payload []int16) {
	words := make([]uint16, 0, 3+len(payload))
	words = append(words, steg.PrefixWord, uint16(frameLength), uint16(3+len(payload)))
	for _, v := range payload {
		words = append(words, uint16(v))
	}
	steg.EncodeWords(channel[offset:], words)
}

func TestDecodeFramesRoundTrip(t *testing.T) {
	const frameLength = 512
	layout := FrameDataLayout{
		Present:     true,
		FrameLength: frameLength,
		Offset:      0,
		ValueCount:  5, // prefix, length, count plus a 2 value payload
	}

	channel := make([]int16, 4*frameLength)
	payloads := [][]int16{{100, -200}, {300, -400}, {500, -600}, {700, -32768}}
	for f, payload := range payloads {
		encodeFrame(channel, f*frameLength, frameLength, payload)
	}

	// Read starting 25 samples into frame 1: the cut frame is skipped and
	// decoding resumes at the next boundary, frame 2.
	firstTimeIndex := frameLength + 25
	table := decodeFrames(channel[firstTimeIndex:], firstTimeIndex, layout)
	if table == nil {
		t.Fatal("expected a frame table")
	}
	if table.FrameLength != frameLength {
		t.Errorf("FrameLength = %d, want %d", table.FrameLength, frameLength)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}

	for f, row := range table.Rows {
		wantOffset := int32(frameLength - 25 + f*frameLength)
		if row[0] != wantOffset {
			t.Errorf("row %d offset = %d, want %d", f, row[0], wantOffset)
		}
		want := payloads[f+2]
		if len(row) != 1+len(want) {
			t.Fatalf("row %d has %d columns, want %d", f, len(row), 1+len(want))
		}
		for c, v := range want {
			if row[c+1] != int32(v) {
				t.Errorf("row %d value %d = %d, want %d", f, c, row[c+1], v)
			}
		}
	}
}

func TestDecodeFramesRevokesOnBrokenSequence(t *testing.T) {
	const frameLength = 256
	layout := FrameDataLayout{
		Present:     true,
		FrameLength: frameLength,
		Offset:      0,
		ValueCount:  4,
	}

	// One valid frame followed by frames with no prefix at all: a real
	// framed stream has a record at every frame boundary, so this is
	// noise that happened to look like a prefix.
	channel := make([]int16, 4*frameLength)
	encodeFrame(channel, 0, frameLength, []int16{42})

	if table := decodeFrames(channel, 0, layout); table != nil {
		t.Errorf("expected revocation, got %d rows", len(table.Rows))
	}
}

func TestDecodeFramesDegenerateLayouts(t *testing.T) {
	channel := make([]int16, 1024)
	tests := []struct {
		name   string
		layout FrameDataLayout
	}{
		{"zero frame length", FrameDataLayout{Present: true, ValueCount: 4}},
		{"header only", FrameDataLayout{Present: true, FrameLength: 256, ValueCount: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if table := decodeFrames(channel, 0, tt.layout); table != nil {
				t.Error("expected nil table")
			}
		})
	}
}

func TestFrameDataStepRespectsSettings(t *testing.T) {
	const frameLength = 256
	layout := FrameDataLayout{Present: true, FrameLength: frameLength, Offset: 0, ValueCount: 4}

	channel := make([]int16, 4*frameLength)
	for f := 0; f < 4; f++ {
		encodeFrame(channel, f*frameLength, frameLength, []int16{int16(f)})
	}
	raw := readerOutput{data: [][]int16{channel}}

	settings := DefaultGraphSettings(44100)
	settings.ShowFrameData = false
	step := newFrameDataStep(&settings)

	p := frameParams{rawSerial: 1, firstTimeIndex: 0, layout: layout, windowSamples: 1024}
	table, _, err := step.process(p, raw)
	if err != nil {
		t.Fatal(err)
	}
	if table != nil {
		t.Error("frame data must be nil when display is off")
	}

	settings.ShowFrameData = true
	table, _, err = step.process(p, raw)
	if err != nil {
		t.Fatal(err)
	}
	if table == nil || len(table.Rows) != 4 {
		t.Fatalf("expected 4 rows with display on, got %+v", table)
	}
}
