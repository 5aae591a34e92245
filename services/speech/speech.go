// Package speech provides a deterministic in-memory plugin.Speech
// implementation: no real TTS backend is in scope (§1), so this stub
// synthesizes a minimal WAV container around silence proportional to
// the text length, just enough to exercise textToSpeech's
// artifact-persistence path end to end without a network dependency.
package speech

import (
	"context"
	"encoding/binary"

	"github.com/flowloom/rivulet/plugin"
)

type Stub struct{}

func New() Stub { return Stub{} }

func (Stub) Synthesize(ctx context.Context, text string, opts plugin.SpeechOptions) ([]byte, string, error) {
	sampleRate := 8000
	numSamples := len(text) * 80
	if numSamples == 0 {
		numSamples = sampleRate / 10
	}
	return wavFile(sampleRate, numSamples), "audio/wav", nil
}

func wavFile(sampleRate, numSamples int) []byte {
	dataSize := numSamples * 2
	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	return buf
}

var _ plugin.Speech = Stub{}
