package audio

import (
	"bytes"
	"encoding/binary"
)

// OGG duration is the final granule position divided by the codec clock.
// Opus streams always run a 48 kHz granule clock with a pre-skip offset;
// Vorbis streams carry the rate in their identification header.

const (
	oggPageHeaderSize = 27
	oggGranuleOffset  = 6

	opusGranuleRate  = 48000
	opusPreSkipOff   = 10
	vorbisRateOffset = 12
)

func parseOGG(data []byte) (float64, bool) {
	rate, preSkip, ok := oggCodecClock(data)
	if !ok {
		return 0, false
	}

	// The last page's granule position is authoritative, but scanning for
	// page boundaries from the front is robust against truncated tails.
	var granule uint64
	found := false
	offset := 0
	for {
		idx := bytes.Index(data[offset:], []byte("OggS"))
		if idx < 0 {
			break
		}
		pos := offset + idx
		if pos+oggPageHeaderSize > len(data) {
			break
		}
		g := binary.LittleEndian.Uint64(data[pos+oggGranuleOffset : pos+oggGranuleOffset+8])
		// -1 marks a page with no finished packets.
		if g != ^uint64(0) && g > granule {
			granule = g
			found = true
		}
		offset = pos + 4
	}

	if !found || granule <= preSkip {
		return 0, false
	}
	return float64(granule-preSkip) / float64(rate), true
}

// oggCodecClock identifies the stream codec from the first packet and
// returns the granule clock rate plus any pre-skip samples.
func oggCodecClock(data []byte) (rate uint32, preSkip uint64, ok bool) {
	if idx := bytes.Index(data, []byte("OpusHead")); idx >= 0 {
		if idx+opusPreSkipOff+2 <= len(data) {
			preSkip = uint64(binary.LittleEndian.Uint16(data[idx+opusPreSkipOff : idx+opusPreSkipOff+2]))
		}
		return opusGranuleRate, preSkip, true
	}
	if idx := bytes.Index(data, []byte("\x01vorbis")); idx >= 0 {
		if idx+vorbisRateOffset+4 > len(data) {
			return 0, 0, false
		}
		rate = binary.LittleEndian.Uint32(data[idx+vorbisRateOffset : idx+vorbisRateOffset+4])
		if rate == 0 {
			return 0, 0, false
		}
		return rate, 0, true
	}
	return 0, 0, false
}
