// Package transport defines the boundary to the remote mail service. The
// core only requires request/response pairing and error surfacing; whether an
// implementation speaks IMAP, HTTP or anything else is its own business.
package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/dmolnar/mailstate/internal/models"
	"github.com/dmolnar/mailstate/internal/normalize"
)

// Error wraps a failure of the remote mail service. Transport errors are
// surfaced to the caller and never retried automatically.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// SortOrder is the conversation list sort order.
type SortOrder string

const (
	SortDateDesc SortOrder = "dateDesc"
	SortDateAsc  SortOrder = "dateAsc"
)

// SearchRequest asks for one page of a folder's conversation list.
type SearchRequest struct {
	FolderID string
	Query    string
	SortBy   SortOrder
	Offset   int
	Limit    int
}

// FolderOp enumerates the folder mutations.
type FolderOp string

const (
	FolderRename    FolderOp = "rename"
	FolderMove      FolderOp = "move"
	FolderRecolor   FolderOp = "color"
	FolderDelete    FolderOp = "delete"
	FolderEmpty     FolderOp = "empty"
	FolderRetention FolderOp = "retentionpolicy"
)

// FolderActionRequest is a folder mutation. Unused fields stay zero.
type FolderActionRequest struct {
	FolderID  string
	Op        FolderOp
	Name      string
	ParentID  string
	Color     int
	Recursive bool
	Retention *normalize.RawRetention
}

// ItemOp enumerates the conversation/message mutations.
type ItemOp string

const (
	ItemRead    ItemOp = "read"
	ItemUnread  ItemOp = "unread"
	ItemFlag    ItemOp = "flag"
	ItemUnflag  ItemOp = "unflag"
	ItemUrgent  ItemOp = "urgent"
	ItemSpam    ItemOp = "spam"
	ItemNotSpam ItemOp = "notspam"
	ItemMove    ItemOp = "move"
	ItemTrash   ItemOp = "trash"
	ItemDelete  ItemOp = "delete"
	ItemTag     ItemOp = "tag"
	ItemUntag   ItemOp = "untag"
)

// ItemActionRequest is a flag-and-move action on conversations or messages.
type ItemActionRequest struct {
	IDs      []string
	Op       ItemOp
	FolderID string
	TagName  string
}

// TagOp enumerates the tag mutations.
type TagOp string

const (
	TagRename  TagOp = "rename"
	TagRecolor TagOp = "color"
	TagDelete  TagOp = "delete"
)

// TagActionRequest mutates an existing tag.
type TagActionRequest struct {
	TagID string
	Op    TagOp
	Name  string
	Color int
}

// Draft is the outgoing shape of a composition, for both save-draft and send.
type Draft struct {
	// ID is the persisted draft id to overwrite; empty creates a new draft.
	ID            string
	From          models.Participant
	To            []models.Participant
	CC            []models.Participant
	BCC           []models.Participant
	Subject       string
	Text          string
	HTML          string
	Attachments   []models.AttachmentRef
	AttachmentIDs []string
	Urgent        bool
	// OriginalID and ReplyType let the service mark the original message
	// replied or forwarded.
	OriginalID string
	ReplyType  string
}

// Change is a remote mailbox change notice.
type Change struct {
	FolderID string
}

// Transport is the abstract mail service the core talks to.
type Transport interface {
	FetchFolders(ctx context.Context) ([]normalize.RawFolder, error)
	CreateFolder(ctx context.Context, parentID, name string) (*normalize.RawFolder, error)
	// FolderAction returns the folder's id after the mutation. Services whose
	// folder ids encode the folder's location report the re-keyed id here;
	// empty or unchanged means the id is stable.
	FolderAction(ctx context.Context, req FolderActionRequest) (string, error)

	Search(ctx context.Context, req SearchRequest) (*normalize.SearchResult, error)
	FetchConversation(ctx context.Context, convID string) ([]normalize.RawMessage, error)
	FetchMessage(ctx context.Context, id string, full bool) (*normalize.RawMessage, error)

	ConvAction(ctx context.Context, req ItemActionRequest) error
	MsgAction(ctx context.Context, req ItemActionRequest) error

	CreateTag(ctx context.Context, name string, color int) (*models.Tag, error)
	TagAction(ctx context.Context, req TagActionRequest) error

	SaveDraft(ctx context.Context, draft Draft) (*normalize.RawMessage, error)
	SendMessage(ctx context.Context, draft Draft) error
	UploadAttachment(ctx context.Context, filename, contentType string, r io.Reader) (string, error)

	// Changes delivers remote change notices until ctx is cancelled.
	Changes(ctx context.Context) (<-chan Change, error)
}
