package audio

// MP3 duration is computed by walking Layer III frame headers and summing
// samples-per-frame over the sample rate. Only Layer III is handled; TTS
// vendors emit nothing else. Anything unparseable falls through to the
// size-based estimate.

const (
	mp3MinFrames    = 1
	id3HeaderSize   = 10
	mp3FrameHdrSize = 4

	// Resync tolerance: give up after this much leading garbage.
	mp3MaxGarbage = 4096
)

// Bitrates in kbps, indexed by the header bitrate field.
var mp3BitrateV1L3 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320}
var mp3BitrateV2L3 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160}

// Sample rates indexed by version then the header sample-rate field.
var mp3SampleRates = map[int][3]int{
	3: {44100, 48000, 32000}, // MPEG1
	2: {22050, 24000, 16000}, // MPEG2
	0: {11025, 12000, 8000},  // MPEG2.5
}

func looksLikeMP3(data []byte) bool {
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func parseMP3(data []byte) (float64, bool) {
	offset := skipID3(data)

	var total float64
	frames := 0
	garbage := 0

	for offset+mp3FrameHdrSize <= len(data) {
		frameLen, frameSecs, ok := parseMP3Frame(data[offset:])
		if !ok {
			offset++
			garbage++
			if garbage > mp3MaxGarbage {
				break
			}
			continue
		}
		garbage = 0
		total += frameSecs
		frames++
		offset += frameLen
	}

	if frames < mp3MinFrames || total <= 0 {
		return 0, false
	}
	return total, true
}

// skipID3 returns the offset past an ID3v2 tag, if present.
func skipID3(data []byte) int {
	if len(data) < id3HeaderSize || string(data[0:3]) != "ID3" {
		return 0
	}
	// Tag size is a 28-bit syncsafe integer.
	size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
	return id3HeaderSize + size
}

// parseMP3Frame validates one frame header and returns its byte length and
// duration in seconds.
func parseMP3Frame(data []byte) (int, float64, bool) {
	if len(data) < mp3FrameHdrSize {
		return 0, 0, false
	}
	if data[0] != 0xFF || data[1]&0xE0 != 0xE0 {
		return 0, 0, false
	}

	version := int(data[1] >> 3 & 0x03) // 3=MPEG1, 2=MPEG2, 0=MPEG2.5
	layer := int(data[1] >> 1 & 0x03)   // 1 = Layer III
	if version == 1 || layer != 1 {
		return 0, 0, false
	}

	bitrateIdx := int(data[2] >> 4 & 0x0F)
	sampleIdx := int(data[2] >> 2 & 0x03)
	padding := int(data[2] >> 1 & 0x01)
	if bitrateIdx == 0 || bitrateIdx == 15 || sampleIdx == 3 {
		return 0, 0, false
	}

	var bitrate int
	var samplesPerFrame int
	if version == 3 {
		bitrate = mp3BitrateV1L3[bitrateIdx] * 1000
		samplesPerFrame = 1152
	} else {
		bitrate = mp3BitrateV2L3[bitrateIdx] * 1000
		samplesPerFrame = 576
	}

	sampleRate := mp3SampleRates[version][sampleIdx]
	if sampleRate == 0 || bitrate == 0 {
		return 0, 0, false
	}

	frameLen := samplesPerFrame / 8 * bitrate / sampleRate
	frameLen += padding
	if frameLen <= mp3FrameHdrSize {
		return 0, 0, false
	}

	return frameLen, float64(samplesPerFrame) / float64(sampleRate), true
}
