// Package steg packs and unpacks data words hidden in the least
// significant bits of 16 bit audio samples. Each hidden word is spread
// across 16 consecutive samples, least significant bit first, so the
// audible impact is below the quantization noise floor.
package steg

// PrefixWord marks the start of a frame record in the hidden stream.
const PrefixWord uint16 = 0x55AA

// WordBits is the number of samples that carry one hidden word.
const WordBits = 16

// RawLenForWords returns the number of samples needed to carry n words.
func RawLenForWords(n int) int {
	return n * WordBits
}

// DecodeWords extracts up to maxWords hidden words from the sample LSBs.
// Fewer words are returned when the input runs out of whole words.
func DecodeWords(samples []int16, maxWords int) []uint16 {
	available := len(samples) / WordBits
	if maxWords > available {
		maxWords = available
	}
	if maxWords <= 0 {
		return nil
	}

	words := make([]uint16, maxWords)
	for w := 0; w < maxWords; w++ {
		var value uint16
		base := w * WordBits
		for bit := 0; bit < WordBits; bit++ {
			value |= uint16(samples[base+bit]&1) << bit
		}
		words[w] = value
	}
	return words
}

// EncodeWords writes the words into the LSBs of samples, in place.
// It returns the number of samples modified.
func EncodeWords(samples []int16, words []uint16) int {
	n := 0
	for w, value := range words {
		base := w * WordBits
		if base+WordBits > len(samples) {
			break
		}
		for bit := 0; bit < WordBits; bit++ {
			samples[base+bit] = samples[base+bit]&^1 | int16(value>>bit&1)
		}
		n += WordBits
	}
	return n
}
