package audio

import "encoding/binary"

// WAV header layout constants.
const (
	wavHeaderSize   = 44
	wavFmtChunkSize = 16
	riffHeaderSize  = 12
	chunkHeaderSize = 8
)

// parseWAV walks the RIFF chunk list and derives duration from the data
// chunk size and the fmt chunk byte rate.
func parseWAV(data []byte) (float64, bool) {
	if len(data) < riffHeaderSize {
		return 0, false
	}

	var byteRate uint32
	var dataSize uint32
	haveFmt, haveData := false, false

	offset := riffHeaderSize
	for offset+chunkHeaderSize <= len(data) {
		id := string(data[offset : offset+4])
		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + chunkHeaderSize

		switch id {
		case "fmt ":
			if size < wavFmtChunkSize || body+wavFmtChunkSize > len(data) {
				return 0, false
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
			haveFmt = true
		case "data":
			// Truncated data chunks still yield a usable size: clamp to
			// the bytes actually present.
			avail := uint32(len(data) - body)
			if size > avail {
				size = avail
			}
			dataSize = size
			haveData = true
		}

		if haveFmt && haveData {
			break
		}

		// Chunks are word-aligned.
		offset = body + int(size)
		if size%2 == 1 {
			offset++
		}
	}

	if !haveFmt || !haveData || byteRate == 0 {
		return 0, false
	}
	return float64(dataSize) / float64(byteRate), true
}

// WrapPCMAsWAV wraps raw little-endian signed PCM in a WAV header so APIs
// that expect file uploads (e.g. Whisper-style endpoints) accept it.
func WrapPCMAsWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	wav := make([]byte, wavHeaderSize+dataSize)

	copy(wav[0:4], "RIFF")
	binary.LittleEndian.PutUint32(wav[4:8], uint32(36+dataSize))
	copy(wav[8:12], "WAVE")

	copy(wav[12:16], "fmt ")
	binary.LittleEndian.PutUint32(wav[16:20], wavFmtChunkSize)
	binary.LittleEndian.PutUint16(wav[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(wav[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(wav[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(wav[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(wav[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(wav[34:36], uint16(bitsPerSample))

	copy(wav[36:40], "data")
	binary.LittleEndian.PutUint32(wav[40:44], uint32(dataSize))
	copy(wav[44:], pcm)

	return wav
}
