package translate

import (
	"encoding/binary"
	"strconv"
	"strings"
)

const wavHeaderSize = 44

// EncodeWAV wraps raw s16le PCM in a minimal RIFF/WAVE container so the
// transcription capability can ingest it.
func EncodeWAV(pcm []byte, sampleRate int, channels int) []byte {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if channels <= 0 {
		channels = 1
	}

	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	out := make([]byte, wavHeaderSize+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[wavHeaderSize:], pcm)
	return out
}

// parseMediaType extracts rate and channel parameters from a media type such
// as "audio/L16;rate=16000;channels=1".
func parseMediaType(mediaType string) (base string, sampleRate int, channels int) {
	sampleRate = 16000
	channels = 1

	parts := strings.Split(mediaType, ";")
	base = strings.ToLower(strings.TrimSpace(parts[0]))
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || parsed <= 0 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "rate":
			sampleRate = parsed
		case "channels":
			channels = parsed
		}
	}
	return base, sampleRate, channels
}

// isRawPCM reports whether the payload needs a WAV container before upload.
func isRawPCM(base string) bool {
	switch base {
	case "audio/l16", "audio/pcm", "":
		return true
	default:
		return false
	}
}
