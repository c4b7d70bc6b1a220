package engine

import (
	"fmt"
	"strings"

	"github.com/AltairaLabs/speechbench/repository"
	"github.com/AltairaLabs/speechbench/vendors"
)

// ValidationError rejects a malformed run request. It maps to a 4xx at the
// network layer; nothing is persisted when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Input is one reference string for a run, optionally tied to a stored
// script item.
type Input struct {
	Text         string
	ScriptItemID string
}

// ChainConfig names the two vendors of a chained run.
type ChainConfig struct {
	TTSVendor string `json:"tts_vendor"`
	STTVendor string `json:"stt_vendor"`
}

// Label is the combined vendor label carried by chained run items.
func (c ChainConfig) Label() string {
	return c.TTSVendor + "→" + c.STTVendor
}

// VendorModels holds per-vendor model overrides.
type VendorModels struct {
	TTSModel string `json:"tts_model,omitempty"`
	STTModel string `json:"stt_model,omitempty"`
	VoiceID  string `json:"voice_id,omitempty"`
}

// RunConfig is the enumerated run configuration.
type RunConfig struct {
	// Service selects the capability under test in isolated mode.
	Service string

	// Chain names the synthesis and transcription vendors in chained mode.
	Chain *ChainConfig

	// Models carries per-vendor model overrides, keyed by vendor name.
	Models map[string]VendorModels

	// VoiceID and Language apply to all synthesis calls unless a vendor
	// override says otherwise.
	VoiceID  string
	Language string
}

// RunRequest is a validated-on-entry run creation request.
type RunRequest struct {
	Mode    string
	Vendors []string
	Inputs  []Input
	Config  RunConfig
}

// validate checks the request against the registry. Empty inputs are an
// error: a run with nothing to measure is a caller mistake, not a case for
// a silent default.
func (r *RunRequest) validate(reg *vendors.Registry) error {
	mode := strings.ToLower(strings.TrimSpace(r.Mode))
	if mode != repository.ModeIsolated && mode != repository.ModeChained {
		return &ValidationError{Field: "mode", Message: fmt.Sprintf("%q is not isolated or chained", r.Mode)}
	}
	r.Mode = mode

	if len(r.Inputs) == 0 {
		return &ValidationError{Field: "inputs", Message: "at least one input text is required"}
	}
	for i, in := range r.Inputs {
		if strings.TrimSpace(in.Text) == "" {
			return &ValidationError{Field: "inputs", Message: fmt.Sprintf("input %d is blank", i)}
		}
	}

	if mode == repository.ModeChained {
		return r.validateChain(reg)
	}
	return r.validateIsolated(reg)
}

func (r *RunRequest) validateIsolated(reg *vendors.Registry) error {
	if len(r.Vendors) == 0 {
		return &ValidationError{Field: "vendors", Message: "at least one vendor is required"}
	}

	service := strings.ToLower(strings.TrimSpace(r.Config.Service))
	var capability vendors.Capability
	switch service {
	case "tts":
		capability = vendors.CapabilityTTS
	case "stt":
		capability = vendors.CapabilitySTT
	case "":
		return &ValidationError{Field: "config.service", Message: "required in isolated mode"}
	default:
		return &ValidationError{Field: "config.service", Message: fmt.Sprintf("%q is not tts or stt", r.Config.Service)}
	}
	r.Config.Service = service

	for _, vendor := range r.Vendors {
		if !reg.Has(vendor, capability) {
			return &ValidationError{
				Field:   "vendors",
				Message: fmt.Sprintf("no %s adapter registered for %q", capability, vendor),
			}
		}
	}
	return nil
}

func (r *RunRequest) validateChain(reg *vendors.Registry) error {
	chain := r.Config.Chain
	if chain == nil || chain.TTSVendor == "" || chain.STTVendor == "" {
		return &ValidationError{Field: "config.chain", Message: "tts_vendor and stt_vendor are required in chained mode"}
	}
	if !reg.Has(chain.TTSVendor, vendors.CapabilityTTS) {
		return &ValidationError{
			Field:   "config.chain.tts_vendor",
			Message: fmt.Sprintf("no tts adapter registered for %q", chain.TTSVendor),
		}
	}
	if !reg.Has(chain.STTVendor, vendors.CapabilitySTT) {
		return &ValidationError{
			Field:   "config.chain.stt_vendor",
			Message: fmt.Sprintf("no stt adapter registered for %q", chain.STTVendor),
		}
	}
	return nil
}

// expand materializes the run items. Isolated mode crosses every input with
// every vendor; chained mode yields one item per input under the combined
// label.
func (r *RunRequest) expand() []repository.RunItem {
	var items []repository.RunItem
	if r.Mode == repository.ModeChained {
		label := r.Config.Chain.Label()
		for _, in := range r.Inputs {
			items = append(items, repository.RunItem{
				ScriptItemID: in.ScriptItemID,
				Vendor:       label,
				TextInput:    strings.TrimSpace(in.Text),
			})
		}
		return items
	}

	for _, in := range r.Inputs {
		for _, vendor := range r.Vendors {
			items = append(items, repository.RunItem{
				ScriptItemID: in.ScriptItemID,
				Vendor:       vendor,
				TextInput:    strings.TrimSpace(in.Text),
			})
		}
	}
	return items
}

// runVendors is the vendor list persisted on the run row. Chained runs carry
// the combined label, matching the item labels.
func (r *RunRequest) runVendors() []string {
	if r.Mode == repository.ModeChained {
		return []string{r.Config.Chain.Label()}
	}
	return r.Vendors
}

// configMap renders the config for persistence. Keys are stable; consumers
// read them back from the run row.
func (r *RunRequest) configMap() map[string]any {
	cfg := map[string]any{}
	if r.Config.Service != "" {
		cfg["service"] = r.Config.Service
	}
	if r.Config.Chain != nil {
		cfg["chain"] = map[string]any{
			"tts_vendor": r.Config.Chain.TTSVendor,
			"stt_vendor": r.Config.Chain.STTVendor,
		}
	}
	if len(r.Config.Models) > 0 {
		models := map[string]any{}
		for vendor, m := range r.Config.Models {
			entry := map[string]any{}
			if m.TTSModel != "" {
				entry["tts_model"] = m.TTSModel
			}
			if m.STTModel != "" {
				entry["stt_model"] = m.STTModel
			}
			if m.VoiceID != "" {
				entry["voice_id"] = m.VoiceID
			}
			models[vendor] = entry
		}
		cfg["models"] = models
	}
	if r.Config.VoiceID != "" {
		cfg["voice_id"] = r.Config.VoiceID
	}
	if r.Config.Language != "" {
		cfg["language"] = r.Config.Language
	}
	return cfg
}
