package api

import (
	"net/http"

	"github.com/dmolnar/mailstate/internal/dispatch"
	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/store"
)

// ConversationsHandler serves a folder's conversation list with the fetch
// state the client needs to decide whether more pages exist.
type ConversationsHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewConversationsHandler creates a new ConversationsHandler instance.
func NewConversationsHandler(dispatcher *dispatch.Dispatcher) *ConversationsHandler {
	return &ConversationsHandler{dispatcher: dispatcher}
}

// ConversationListResponse is the conversation list of a folder plus its
// pagination bookkeeping.
type ConversationListResponse struct {
	Conversations []models.Conversation `json:"conversations"`
	Status        store.Status          `json:"status"`
	Offset        int                   `json:"offset"`
	Query         string                `json:"query,omitempty"`
	SortBy        string                `json:"sort_by,omitempty"`
}

// GetConversations returns the conversations of the folder named in the
// query string, newest first.
func (h *ConversationsHandler) GetConversations(w http.ResponseWriter, r *http.Request) {
	folderID := r.URL.Query().Get("folder")
	if folderID == "" {
		http.Error(w, "folder query parameter is required", http.StatusBadRequest)
		return
	}

	conversations := h.dispatcher.ConversationsForFolder(folderID)
	state := h.dispatcher.SearchState(folderID)

	response := ConversationListResponse{
		Conversations: make([]models.Conversation, len(conversations)),
		Status:        state.Status,
		Offset:        state.Offset,
		Query:         state.Query,
		SortBy:        state.SortBy,
	}
	for i, c := range conversations {
		response.Conversations[i] = *c
	}

	WriteJSONResponse(w, response)
}
