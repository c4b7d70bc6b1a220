package httpapi

import (
	"errors"
	"net/http"

	"github.com/AltairaLabs/speechbench/artifact"
)

// handleGetFile serves a stored artifact by kind and filename. The store only
// recognizes names it generated itself; anything else is a 404.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	var kind artifact.Kind
	switch r.PathValue("kind") {
	case "audio":
		kind = artifact.KindAudio
	case "transcript":
		kind = artifact.KindTranscript
	default:
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown artifact kind"})
		return
	}

	data, contentType, err := s.artifacts.Open(kind, r.PathValue("filename"))
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "artifact not found"})
			return
		}
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}

type scriptPayload struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Tags        string              `json:"tags,omitempty"`
	ItemCount   int                 `json:"item_count"`
	Items       []scriptItemPayload `json:"items"`
}

type scriptItemPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Lang string `json:"lang,omitempty"`
	Tags string `json:"tags,omitempty"`
}

func (s *Server) handleListScripts(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListScripts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	payload := make([]scriptPayload, 0, len(list))
	for _, script := range list {
		items, err := s.store.ScriptItems(r.Context(), script.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		sp := scriptPayload{
			ID:          script.ID,
			Name:        script.Name,
			Description: script.Description,
			Tags:        script.Tags,
			ItemCount:   script.ItemCount,
			Items:       make([]scriptItemPayload, 0, len(items)),
		}
		for _, item := range items {
			sp.Items = append(sp.Items, scriptItemPayload{
				ID:   item.ID,
				Text: item.Text,
				Lang: item.Lang,
				Tags: item.Tags,
			})
		}
		payload = append(payload, sp)
	}

	writeJSON(w, http.StatusOK, map[string]any{"scripts": payload})
}
