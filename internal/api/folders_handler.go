package api

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/dmolnar/mailstate/internal/dispatch"
	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/store"
)

// FoldersHandler serves the folder tree and single folders with their derived
// hierarchy fields.
type FoldersHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewFoldersHandler creates a new FoldersHandler instance.
func NewFoldersHandler(dispatcher *dispatch.Dispatcher) *FoldersHandler {
	return &FoldersHandler{dispatcher: dispatcher}
}

// GetFolders returns every folder, system folders first.
func (h *FoldersHandler) GetFolders(w http.ResponseWriter, _ *http.Request) {
	folders := h.dispatcher.Folders()
	sortFolders(folders)

	folderValues := make([]models.Folder, len(folders))
	for i, f := range folders {
		folderValues[i] = *f
	}

	WriteJSONResponse(w, folderValues)
}

// GetFolder returns a single folder by the id in the request path. Folder ids
// may contain slashes, so everything after the prefix is the id.
func (h *FoldersHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/folders/")
	if id == "" {
		http.Error(w, "folder id is required", http.StatusBadRequest)
		return
	}

	folder, err := h.dispatcher.Folder(id)
	if errors.Is(err, store.ErrFolderNotFound) {
		http.Error(w, "Folder not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSONResponse(w, folder)
}

// sortFolders orders system folders by fixed priority, then everything else
// alphabetically by path.
func sortFolders(folders []*models.Folder) {
	priority := map[string]int{
		models.InboxFolderID:  1,
		models.DraftsFolderID: 2,
		models.SentFolderID:   3,
		models.JunkFolderID:   4,
		models.TrashFolderID:  5,
	}
	const other = 6

	sort.SliceStable(folders, func(i, j int) bool {
		pi, ok := priority[folders[i].ID]
		if !ok {
			pi = other
		}
		pj, ok := priority[folders[j].ID]
		if !ok {
			pj = other
		}
		if pi != pj {
			return pi < pj
		}
		return folders[i].Path < folders[j].Path
	})
}
