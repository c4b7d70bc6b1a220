// Package vendors maintains the closed registry of speech vendors.
//
// A vendor is registered under a string key for one or both capabilities
// (synthesis, transcription). Lookups of unknown {vendor, capability} pairs
// fail with an UnknownVendorError listing the registered alternatives, so
// callers can surface a precise validation message instead of a nil panic
// deep inside a run.
package vendors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/AltairaLabs/speechbench/stt"
	"github.com/AltairaLabs/speechbench/tts"
)

// Capability identifies which side of the speech pipeline a vendor serves.
type Capability string

const (
	// CapabilityTTS is text-to-speech synthesis.
	CapabilityTTS Capability = "tts"

	// CapabilitySTT is speech-to-text transcription.
	CapabilitySTT Capability = "stt"
)

// UnknownVendorError is returned when a lookup names a vendor that is not
// registered for the requested capability.
type UnknownVendorError struct {
	Vendor     string
	Capability Capability
	Available  []string
}

func (e *UnknownVendorError) Error() string {
	return fmt.Sprintf("unknown %s vendor %q (available: %s)",
		e.Capability, e.Vendor, strings.Join(e.Available, ", "))
}

// Registry maps {vendor, capability} to adapter instances.
// Adapters are stateless with respect to runs; clients and API keys are
// configured once at registration and shared across all runs.
type Registry struct {
	mu       sync.RWMutex
	tts      map[string]tts.Service
	stt      map[string]stt.Service
	limiters map[string]*rate.Limiter
}

// NewRegistry creates an empty vendor registry.
func NewRegistry() *Registry {
	return &Registry{
		tts:      make(map[string]tts.Service),
		stt:      make(map[string]stt.Service),
		limiters: make(map[string]*rate.Limiter),
	}
}

// RegisterTTS adds a synthesis adapter under its own Name().
func (r *Registry) RegisterTTS(svc tts.Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[svc.Name()] = svc
}

// RegisterSTT adds a transcription adapter under its own Name().
func (r *Registry) RegisterSTT(svc stt.Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[svc.Name()] = svc
}

// SetRateLimit installs a per-vendor rate limiter shared across both
// capabilities. Vendor quotas are account-wide, not per-endpoint.
func (r *Registry) SetRateLimit(vendor string, rps float64, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters[vendor] = rate.NewLimiter(rate.Limit(rps), burst)
}

// TTS returns the synthesis adapter for the given vendor.
func (r *Registry) TTS(vendor string) (tts.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.tts[vendor]
	if !ok {
		return nil, &UnknownVendorError{
			Vendor:     vendor,
			Capability: CapabilityTTS,
			Available:  sortedKeys(r.tts),
		}
	}
	return svc, nil
}

// STT returns the transcription adapter for the given vendor.
func (r *Registry) STT(vendor string) (stt.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.stt[vendor]
	if !ok {
		return nil, &UnknownVendorError{
			Vendor:     vendor,
			Capability: CapabilitySTT,
			Available:  sortedKeys(r.stt),
		}
	}
	return svc, nil
}

// Has reports whether the vendor is registered for the capability.
func (r *Registry) Has(vendor string, capability Capability) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch capability {
	case CapabilityTTS:
		_, ok := r.tts[vendor]
		return ok
	case CapabilitySTT:
		_, ok := r.stt[vendor]
		return ok
	}
	return false
}

// TTSVendors returns the registered synthesis vendor names, sorted.
func (r *Registry) TTSVendors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.tts)
}

// STTVendors returns the registered transcription vendor names, sorted.
func (r *Registry) STTVendors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.stt)
}

// Wait blocks until the vendor's rate limiter admits another call, or the
// context is cancelled. Vendors without a configured limiter pass through.
func (r *Registry) Wait(ctx context.Context, vendor string) error {
	r.mu.RLock()
	limiter := r.limiters[vendor]
	r.mu.RUnlock()

	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
