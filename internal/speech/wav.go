package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hammamikhairi/gridvoice/internal/domain"
)

// EncodeWAV renders mono 16-bit PCM as a RIFF/WAVE file.
func EncodeWAV(a domain.Audio) []byte {
	dataLen := len(a.Samples) * 2
	var buf bytes.Buffer
	buf.Grow(44 + dataLen)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(a.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(a.SampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	binary.Write(&buf, binary.LittleEndian, a.Samples)
	return buf.Bytes()
}

// DecodeWAV parses a 16-bit PCM WAV file. Multi-channel audio is mixed
// down to mono.
func DecodeWAV(wav []byte) (domain.Audio, error) {
	if len(wav) < 44 {
		return domain.Audio{}, errors.New("wav data too short")
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return domain.Audio{}, errors.New("not a valid WAV file")
	}

	var (
		channels   int
		sampleRate int
		bits       int
		haveFormat bool
	)

	// Walk chunks to find "fmt " and "data".
	pos := 12
	for pos+8 <= len(wav) {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		start := pos + 8

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 || start+16 > len(wav) {
				return domain.Audio{}, errors.New("truncated fmt chunk")
			}
			format := binary.LittleEndian.Uint16(wav[start:])
			if format != 1 {
				return domain.Audio{}, fmt.Errorf("unsupported wav format %d", format)
			}
			channels = int(binary.LittleEndian.Uint16(wav[start+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(wav[start+4:]))
			bits = int(binary.LittleEndian.Uint16(wav[start+14:]))
			haveFormat = true

		case "data":
			if !haveFormat {
				return domain.Audio{}, errors.New("data chunk before fmt chunk")
			}
			if bits != 16 || channels < 1 || sampleRate <= 0 {
				return domain.Audio{}, fmt.Errorf("unsupported wav layout: %d-bit, %d channels, %d Hz", bits, channels, sampleRate)
			}
			end := start + chunkSize
			if end > len(wav) {
				end = len(wav)
			}
			return domain.Audio{
				Samples:    mixdown(wav[start:end], channels),
				SampleRate: sampleRate,
			}, nil
		}

		pos = start + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}

	return domain.Audio{}, errors.New("data chunk not found in WAV")
}

// mixdown converts interleaved little-endian int16 frames to mono.
func mixdown(pcm []byte, channels int) []int16 {
	frameSize := 2 * channels
	frames := len(pcm) / frameSize
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			off := i*frameSize + c*2
			sum += int(int16(binary.LittleEndian.Uint16(pcm[off:])))
		}
		out[i] = int16(sum / channels)
	}
	return out
}
