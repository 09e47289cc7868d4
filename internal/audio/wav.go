// Package audio holds synthesized clips and the single-slot playback controller.
package audio

import (
	"bytes"
	"encoding/binary"
)

// Clip is one playable audio payload.
type Clip struct {
	Data        []byte
	ContentType string // e.g. "audio/mpeg", "audio/wav"
}

// Ext returns a file extension matching the clip content type.
func (c *Clip) Ext() string {
	switch c.ContentType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac":
		return ".flac"
	case "audio/aac":
		return ".aac"
	default:
		return ".mp3"
	}
}

// WAVHeaderSize is the size of the canonical RIFF/WAVE header written by PCMToWAV.
const WAVHeaderSize = 44

// PCMToWAV wraps raw little-endian PCM data in a WAV container.
func PCMToWAV(pcm []byte, sampleRate, channels, bytesPerSample int) []byte {
	dataLen := len(pcm)
	fileLen := WAVHeaderSize - 8 + dataLen // RIFF chunk size excludes "RIFF" and the size field

	buf := &bytes.Buffer{}
	buf.Grow(WAVHeaderSize + dataLen)

	// RIFF chunk descriptor
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(fileLen))
	buf.WriteString("WAVE")

	// fmt sub-chunk
	blockAlign := channels * bytesPerSample
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bytesPerSample*8))

	// data sub-chunk
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(pcm)

	return buf.Bytes()
}

// WAVClip frames pcm as a WAV clip.
func WAVClip(pcm []byte, sampleRate, channels, bytesPerSample int) *Clip {
	return &Clip{
		Data:        PCMToWAV(pcm, sampleRate, channels, bytesPerSample),
		ContentType: "audio/wav",
	}
}
