package aggregate

import (
	"context"
	"fmt"
	"sort"

	"github.com/AltairaLabs/speechbench/repository"
)

// Service mix buckets.
const (
	serviceE2E     = "E2E"
	serviceSTT     = "STT"
	serviceTTS     = "TTS"
	serviceUnknown = "UNKNOWN"
)

// maxPairings caps the reported top chained pairings.
const maxPairings = 5

// VendorUsage counts items per vendor, split by capability.
type VendorUsage struct {
	TTS map[string]int `json:"tts"`
	STT map[string]int `json:"stt"`
}

// Pairing summarizes one chained (tts, stt) vendor combination.
type Pairing struct {
	TTSVendor string  `json:"tts_vendor"`
	STTVendor string  `json:"stt_vendor"`
	AvgWER    float64 `json:"avg_wer"`
	Tests     int     `json:"tests"`
}

// Insights is the service mix / vendor usage dashboard view.
type Insights struct {
	ServiceMix        map[string]int `json:"service_mix"`
	VendorUsage       VendorUsage    `json:"vendor_usage"`
	TopVendorPairings []Pairing      `json:"top_vendor_pairings"`
}

type pairingAccum struct {
	tts, stt string
	werSum   float64
	count    int
}

// Insights folds the window's items into the service mix, per-capability
// vendor usage and the top chained pairings ranked by test count, ties
// broken by lower average WER.
func (s *Service) Insights(ctx context.Context) (*Insights, error) {
	rows, err := s.store.InsightRowsSince(ctx, s.cutoff())
	if err != nil {
		return nil, fmt.Errorf("insight rows: %w", err)
	}

	mix := map[string]int{serviceE2E: 0, serviceSTT: 0, serviceTTS: 0, serviceUnknown: 0}
	usage := VendorUsage{TTS: map[string]int{}, STT: map[string]int{}}
	pairings := map[string]*pairingAccum{}

	for _, row := range rows {
		ttsVendor := sidecarString(row.Sidecar, "tts_vendor")
		sttVendor := sidecarString(row.Sidecar, "stt_vendor")

		switch classify(row) {
		case serviceE2E:
			mix[serviceE2E]++
			if ttsVendor != "" {
				usage.TTS[ttsVendor]++
			}
			if sttVendor != "" {
				usage.STT[sttVendor]++
			}
			if ttsVendor != "" && sttVendor != "" {
				key := ttsVendor + "|" + sttVendor
				p, ok := pairings[key]
				if !ok {
					p = &pairingAccum{tts: ttsVendor, stt: sttVendor}
					pairings[key] = p
				}
				if wer, ok := row.Metrics["wer"]; ok {
					p.werSum += wer
					p.count++
				}
			}
		case serviceSTT:
			mix[serviceSTT]++
			vendor := sttVendor
			if vendor == "" {
				vendor = row.Vendor
			}
			usage.STT[vendor]++
		case serviceTTS:
			mix[serviceTTS]++
			vendor := ttsVendor
			if vendor == "" {
				vendor = row.Vendor
			}
			usage.TTS[vendor]++
		default:
			mix[serviceUnknown]++
		}
	}

	return &Insights{
		ServiceMix:        mix,
		VendorUsage:       usage,
		TopVendorPairings: topPairings(pairings),
	}, nil
}

// classify determines which service an item exercised. The sidecar label
// written at completion is authoritative; items without one (failed before
// completion, or written by older versions) fall back to detection from
// their recorded metric names.
func classify(row repository.InsightRow) string {
	switch sidecarString(row.Sidecar, "service_type") {
	case "e2e":
		return serviceE2E
	case "stt":
		return serviceSTT
	case "tts":
		return serviceTTS
	}

	if _, ok := row.Metrics["e2e_latency"]; ok {
		return serviceE2E
	}
	if _, ok := row.Metrics["stt_latency"]; ok {
		return serviceSTT
	}
	if _, ok := row.Metrics["wer"]; ok {
		return serviceSTT
	}
	if _, ok := row.Metrics["tts_latency"]; ok {
		return serviceTTS
	}
	return serviceUnknown
}

func topPairings(accum map[string]*pairingAccum) []Pairing {
	result := make([]Pairing, 0, len(accum))
	for _, p := range accum {
		if p.count == 0 {
			continue
		}
		result = append(result, Pairing{
			TTSVendor: p.tts,
			STTVendor: p.stt,
			AvgWER:    roundTo(p.werSum/float64(p.count), 4),
			Tests:     p.count,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Tests != result[j].Tests {
			return result[i].Tests > result[j].Tests
		}
		return result[i].AvgWER < result[j].AvgWER
	})
	if len(result) > maxPairings {
		result = result[:maxPairings]
	}
	return result
}

func sidecarString(sidecar map[string]any, key string) string {
	s, _ := sidecar[key].(string)
	return s
}
