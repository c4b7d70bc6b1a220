// Package audio provides container-aware duration probing for generated
// speech audio, plus PCM/WAV helpers shared by vendor adapters.
//
// Duration drives the RTF metrics, so the probe is strict about how a value
// was obtained. Three strategies run in priority order:
//
//  1. a duration reported by the vendor alongside the response,
//  2. parsing the container itself (WAV, MP3, OGG, FLAC),
//  3. a size-based estimate from documented bitrate assumptions.
//
// Estimated values are flagged so downstream consumers never mistake a guess
// for a measurement.
package audio

import "strings"

// maxDurationSeconds rejects absurd probe results (24 hours).
const maxDurationSeconds = 86400

// Source records which strategy produced a duration.
type Source string

const (
	SourceVendor    Source = "vendor"
	SourceContainer Source = "container"
	SourceEstimate  Source = "estimate"
)

// Duration is a probed audio duration with its provenance.
type Duration struct {
	Seconds float64
	Source  Source
}

// Estimated reports whether the value is a size-based guess rather than a
// parsed or vendor-reported duration.
func (d Duration) Estimated() bool {
	return d.Source == SourceEstimate
}

// Probe determines the duration of an audio blob.
//
// vendorDuration, when positive, is trusted first (some vendors emit
// containers whose duration is computable from the response alone). Otherwise
// the blob is sniffed and parsed; only if parsing fails does the size-based
// estimate apply. The boolean return is false when no plausible duration
// could be determined: values ≤ 0 or above 24 hours are rejected outright.
func Probe(data []byte, contentType string, vendorDuration float64) (Duration, bool) {
	if plausible(vendorDuration) {
		return Duration{Seconds: vendorDuration, Source: SourceVendor}, true
	}

	if secs, ok := parseContainer(data); ok && plausible(secs) {
		return Duration{Seconds: secs, Source: SourceContainer}, true
	}

	if secs, ok := estimateFromSize(len(data), contentType); ok && plausible(secs) {
		return Duration{Seconds: secs, Source: SourceEstimate}, true
	}

	return Duration{}, false
}

func plausible(secs float64) bool {
	return secs > 0 && secs <= maxDurationSeconds
}

// parseContainer sniffs the container magic and dispatches to the matching
// parser. Content type is deliberately ignored here: vendors mislabel.
func parseContainer(data []byte) (float64, bool) {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return parseWAV(data)
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return parseFLAC(data)
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return parseOGG(data)
	case looksLikeMP3(data):
		return parseMP3(data)
	default:
		return 0, false
	}
}

// Size-based bitrate assumptions per content type, used only when container
// parsing fails. MP3/OGG/AAC assume 128 kbps CBR; WAV assumes 16-bit stereo
// at 44.1 kHz; FLAC assumes roughly one megabyte per minute.
const (
	estimateBitsPerSecond      = 128000
	estimateWAVBytesPerSecond  = 44100 * 2 * 2
	estimateFLACBytesPerSecond = 1024 * 1024 / 60
)

func estimateFromSize(size int, contentType string) (float64, bool) {
	if size <= 0 {
		return 0, false
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "wav"):
		return float64(size) / estimateWAVBytesPerSecond, true
	case strings.Contains(ct, "flac"):
		return float64(size) / estimateFLACBytesPerSecond, true
	default:
		// mp3, ogg, aac and unknown types share the 128 kbps assumption.
		return float64(size) * 8 / estimateBitsPerSecond, true
	}
}

// ExtensionFor maps a content type to the artifact file extension.
func ExtensionFor(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return "mp3"
	case strings.Contains(ct, "wav"):
		return "wav"
	case strings.Contains(ct, "ogg"), strings.Contains(ct, "opus"):
		return "ogg"
	case strings.Contains(ct, "flac"):
		return "flac"
	default:
		return "bin"
	}
}
