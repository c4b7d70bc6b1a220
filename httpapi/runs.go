package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/AltairaLabs/speechbench/artifact"
	"github.com/AltairaLabs/speechbench/engine"
	"github.com/AltairaLabs/speechbench/repository"
	"github.com/AltairaLabs/speechbench/scripts"
)

const defaultRunListLimit = 50

// createRunRequest is the POST /api/runs body. Inputs may come from direct
// text, stored scripts or a pasted batch payload; all present sources are
// combined.
type createRunRequest struct {
	Mode              string           `json:"mode"`
	Vendors           []string         `json:"vendors"`
	TextInputs        []string         `json:"text_inputs"`
	ScriptIDs         []string         `json:"script_ids"`
	BatchScriptInput  string           `json:"batch_script_input"`
	BatchScriptFormat string           `json:"batch_script_format"`
	Config            runConfigPayload `json:"config"`
}

type runConfigPayload struct {
	Service  string                         `json:"service"`
	Chain    *engine.ChainConfig            `json:"chain"`
	Models   map[string]engine.VendorModels `json:"models"`
	VoiceID  string                         `json:"voice_id"`
	Language string                         `json:"language"`
}

type createRunResponse struct {
	RunID         string `json:"run_id"`
	Status        string `json:"status"`
	AcceptedItems int    `json:"accepted_items"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &engine.ValidationError{Field: "body", Message: "invalid JSON"})
		return
	}
	s.createRun(w, r, req)
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request, req createRunRequest) {
	inputs, err := s.collectInputs(r, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	runReq := engine.RunRequest{
		Mode:    req.Mode,
		Vendors: req.Vendors,
		Inputs:  inputs,
		Config: engine.RunConfig{
			Service:  req.Config.Service,
			Chain:    req.Config.Chain,
			Models:   req.Config.Models,
			VoiceID:  req.Config.VoiceID,
			Language: req.Config.Language,
		},
	}

	run, items, err := s.engine.CreateRun(r.Context(), runReq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.engine.Launch(run.ID)

	writeJSON(w, http.StatusCreated, createRunResponse{
		RunID:         run.ID,
		Status:        "created",
		AcceptedItems: len(items),
	})
}

// collectInputs merges the request's input sources: direct texts verbatim,
// batch payload through the format parsers, script items with their ids
// attached so results link back to the corpus.
func (s *Server) collectInputs(r *http.Request, req createRunRequest) ([]engine.Input, error) {
	var inputs []engine.Input

	for _, text := range req.TextInputs {
		inputs = append(inputs, engine.Input{Text: text})
	}
	for _, text := range scripts.ParseBatch(req.BatchScriptInput, req.BatchScriptFormat) {
		inputs = append(inputs, engine.Input{Text: text})
	}
	for _, scriptID := range req.ScriptIDs {
		items, err := s.store.ScriptItems(r.Context(), scriptID)
		if err != nil {
			return nil, fmt.Errorf("script %s: %w", scriptID, err)
		}
		for _, item := range items {
			inputs = append(inputs, engine.Input{Text: item.Text, ScriptItemID: item.ID})
		}
	}
	return inputs, nil
}

// handleQuickRun accepts a form-encoded single utterance: text, a
// comma-separated vendor list, an optional mode and an optional config JSON
// string.
func (s *Server) handleQuickRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, &engine.ValidationError{Field: "body", Message: "invalid form data"})
		return
	}

	req := createRunRequest{
		Mode: r.PostFormValue("mode"),
	}
	if req.Mode == "" {
		req.Mode = repository.ModeIsolated
	}
	if text := r.PostFormValue("text"); text != "" {
		req.TextInputs = []string{text}
	}
	for _, v := range strings.Split(r.PostFormValue("vendors"), ",") {
		if v = strings.TrimSpace(v); v != "" {
			req.Vendors = append(req.Vendors, v)
		}
	}
	if cfg := r.PostFormValue("config"); cfg != "" {
		if err := json.Unmarshal([]byte(cfg), &req.Config); err != nil {
			writeError(w, r, &engine.ValidationError{Field: "config", Message: "invalid JSON"})
			return
		}
	}

	s.createRun(w, r, req)
}

type runPayload struct {
	ID         string         `json:"id"`
	Mode       string         `json:"mode"`
	Vendors    []string       `json:"vendors"`
	Config     map[string]any `json:"config,omitempty"`
	Status     string         `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	StartedAt  *time.Time     `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at"`
	Items      []itemPayload  `json:"items"`
}

type itemPayload struct {
	ID             string           `json:"id"`
	RunID          string           `json:"run_id"`
	ScriptItemID   string           `json:"script_item_id,omitempty"`
	Vendor         string           `json:"vendor"`
	TextInput      string           `json:"text_input"`
	AudioPath      string           `json:"audio_path,omitempty"`
	Transcript     string           `json:"transcript,omitempty"`
	MetricsSummary string           `json:"metrics_summary"`
	Sidecar        map[string]any   `json:"sidecar,omitempty"`
	Status         string           `json:"status"`
	FailureReason  string           `json:"failure_reason,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	Metrics        []metricPayload  `json:"metrics,omitempty"`
	Artifacts      []blobRefPayload `json:"artifacts,omitempty"`
}

type metricPayload struct {
	Name      string   `json:"metric_name"`
	Value     float64  `json:"value"`
	Unit      string   `json:"unit,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	PassFail  string   `json:"pass_fail,omitempty"`
}

type blobRefPayload struct {
	Kind        string `json:"kind"`
	FilePath    string `json:"file_path"`
	ContentType string `json:"content_type"`
	ByteLength  int    `json:"byte_length"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultRunListLimit)
	offset := queryInt(r, "offset", 0)

	runs, err := s.store.ListRuns(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payload := make([]runPayload, 0, len(runs))
	for i := range runs {
		items, err := s.store.ListItemsByRun(r.Context(), runs[i].ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		payload = append(payload, toRunPayload(&runs[i], items, false))
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": payload})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.store.ListItemsByRun(r.Context(), runID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payload := toRunPayload(run, items, true)
	for i := range payload.Items {
		metrics, err := s.store.MetricsForItem(r.Context(), payload.Items[i].ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		for _, m := range metrics {
			payload.Items[i].Metrics = append(payload.Items[i].Metrics, metricPayload{
				Name:      m.Name,
				Value:     m.Value,
				Unit:      m.Unit,
				Threshold: m.Threshold,
				PassFail:  m.PassFail,
			})
		}

		artifacts, err := s.store.ArtifactsForItem(r.Context(), payload.Items[i].ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		for _, a := range artifacts {
			payload.Items[i].Artifacts = append(payload.Items[i].Artifacts, blobRefPayload{
				Kind:        a.Kind,
				FilePath:    a.FilePath,
				ContentType: a.ContentType,
				ByteLength:  a.ByteLength,
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"run": payload})
}

func toRunPayload(run *repository.Run, items []repository.RunItem, withConfig bool) runPayload {
	p := runPayload{
		ID:         run.ID,
		Mode:       run.Mode,
		Vendors:    run.Vendors,
		Status:     string(run.Status),
		CreatedAt:  run.CreatedAt,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Items:      make([]itemPayload, 0, len(items)),
	}
	if withConfig {
		p.Config = run.Config
	}
	for _, item := range items {
		p.Items = append(p.Items, itemPayload{
			ID:             item.ID,
			RunID:          item.RunID,
			ScriptItemID:   item.ScriptItemID,
			Vendor:         item.Vendor,
			TextInput:      item.TextInput,
			AudioPath:      item.AudioPath,
			Transcript:     item.Transcript,
			MetricsSummary: item.MetricsSummary,
			Sidecar:        item.Sidecar,
			Status:         string(item.Status),
			FailureReason:  item.FailureReason,
			CreatedAt:      item.CreatedAt,
		})
	}
	return p
}

// handleDeleteRun purges a run: its artifacts are removed from storage first,
// then the run and all dependent rows are deleted.
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")

	if _, err := s.store.GetRun(r.Context(), runID); err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.store.ListItemsByRun(r.Context(), runID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, item := range items {
		artifacts, err := s.store.ArtifactsForItem(r.Context(), item.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		for _, a := range artifacts {
			if err := s.artifacts.Remove(artifact.Kind(a.Kind), filepath.Base(a.FilePath)); err != nil {
				writeError(w, r, err)
				return
			}
		}
	}

	if err := s.store.PurgeRun(r.Context(), runID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "purged"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
