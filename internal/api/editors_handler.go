package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmolnar/mailstate/internal/dispatch"
	"github.com/dmolnar/mailstate/internal/editor"
	"github.com/dmolnar/mailstate/internal/models"
)

// EditorsHandler serves active compositions and the tag registry.
type EditorsHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewEditorsHandler creates a new EditorsHandler instance.
func NewEditorsHandler(dispatcher *dispatch.Dispatcher) *EditorsHandler {
	return &EditorsHandler{dispatcher: dispatcher}
}

// GetEditor returns an active composition by the id in the request path.
func (h *EditorsHandler) GetEditor(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/editors/")
	if id == "" {
		http.Error(w, "editor id is required", http.StatusBadRequest)
		return
	}

	ed, err := h.dispatcher.Editor(id)
	if errors.Is(err, editor.ErrEditorNotFound) {
		http.Error(w, "Editor not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSONResponse(w, ed)
}

// GetTags returns every tag.
func (h *EditorsHandler) GetTags(w http.ResponseWriter, _ *http.Request) {
	tags := h.dispatcher.Tags()
	tagValues := make([]models.Tag, len(tags))
	for i, t := range tags {
		tagValues[i] = *t
	}

	WriteJSONResponse(w, tagValues)
}
