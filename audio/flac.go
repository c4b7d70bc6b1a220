package audio

// FLAC duration comes straight from the STREAMINFO block: a 20-bit sample
// rate and a 36-bit total-samples count packed after the min/max block and
// frame sizes.

const (
	flacMagicSize      = 4
	flacStreamInfoSize = 34
)

func parseFLAC(data []byte) (float64, bool) {
	// Magic, then the first metadata block header (STREAMINFO is mandatory
	// and always first).
	headerEnd := flacMagicSize + 4
	if len(data) < headerEnd+flacStreamInfoSize {
		return 0, false
	}
	if data[flacMagicSize]&0x7F != 0 { // block type 0 = STREAMINFO
		return 0, false
	}

	info := data[headerEnd : headerEnd+flacStreamInfoSize]

	// Bytes 10-12 hold the 20-bit sample rate; the low nibble of byte 12
	// starts channels/bps, and bytes 13-17 carry the remaining 36-bit
	// total-samples field.
	sampleRate := uint32(info[10])<<12 | uint32(info[11])<<4 | uint32(info[12])>>4
	totalSamples := uint64(info[13]&0x0F)<<32 |
		uint64(info[14])<<24 |
		uint64(info[15])<<16 |
		uint64(info[16])<<8 |
		uint64(info[17])

	if sampleRate == 0 || totalSamples == 0 {
		return 0, false
	}
	return float64(totalSamples) / float64(sampleRate), true
}
