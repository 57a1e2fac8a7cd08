package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmolnar/mailstate/internal/dispatch"
	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/store"
)

// MessagesHandler serves cached messages.
type MessagesHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewMessagesHandler creates a new MessagesHandler instance.
func NewMessagesHandler(dispatcher *dispatch.Dispatcher) *MessagesHandler {
	return &MessagesHandler{dispatcher: dispatcher}
}

// GetMessages returns the cached messages of the folder named in the query
// string.
func (h *MessagesHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	folderID := r.URL.Query().Get("folder")
	if folderID == "" {
		http.Error(w, "folder query parameter is required", http.StatusBadRequest)
		return
	}

	messages := h.dispatcher.MessagesForFolder(folderID)
	messageValues := make([]models.Message, len(messages))
	for i, m := range messages {
		messageValues[i] = *m
	}

	WriteJSONResponse(w, messageValues)
}

// GetMessage returns a single cached message by the id in the request path.
func (h *MessagesHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/messages/")
	if id == "" {
		http.Error(w, "message id is required", http.StatusBadRequest)
		return
	}

	message, err := h.dispatcher.Message(id)
	if errors.Is(err, store.ErrMessageNotFound) {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSONResponse(w, message)
}
