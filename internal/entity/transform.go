package entity

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/wesm/foldercache/internal/textutil"
)

// DefaultFolderMarker is the title suffix that promotes a chat to a folder.
const DefaultFolderMarker = " 📁"

// Transformer converts raw wire objects into domain entities and orders them.
type Transformer struct {
	// Marker is the title suffix that marks a chat as a folder.
	Marker string
}

// NewTransformer returns a Transformer using marker, or DefaultFolderMarker
// when marker is empty.
func NewTransformer(marker string) *Transformer {
	if marker == "" {
		marker = DefaultFolderMarker
	}
	return &Transformer{Marker: textutil.NormalizeTitle(marker)}
}

// IsFolder reports whether chat is tracked as a folder.
func (t *Transformer) IsFolder(chat RawChat) bool {
	if chat.General {
		return true
	}
	marker := strings.TrimSpace(t.Marker)
	return marker != "" && strings.HasSuffix(strings.TrimSpace(textutil.NormalizeTitle(chat.Title)), marker)
}

// TransformFolder builds a Folder from a raw chat.
func (t *Transformer) TransformFolder(chat RawChat) (Folder, error) {
	if chat.ID == 0 {
		return Folder{}, fmt.Errorf("chat %q: missing id: %w", chat.Title, ErrMalformed)
	}
	title := strings.TrimSpace(textutil.NormalizeTitle(textutil.EnsureUTF8(chat.Title)))
	icon := ""
	if marker := strings.TrimSpace(t.Marker); marker != "" && strings.HasSuffix(title, marker) {
		title = strings.TrimSpace(strings.TrimSuffix(title, marker))
		icon = marker
	}
	return Folder{
		ID:      chat.ID,
		Title:   title,
		Icon:    icon,
		General: chat.General,
		Channel: chat.Kind.Channel(),
		Date:    chat.Date,
	}, nil
}

// TransformMessage builds a Message from a raw message for the given user.
func (t *Transformer) TransformMessage(msg RawMessage, user User) (Message, error) {
	folderID := msg.PeerID.FolderID()
	if msg.ID == 0 || folderID == 0 {
		return Message{}, fmt.Errorf("message %d in folder %d: %w", msg.ID, folderID, ErrMalformed)
	}
	var author int64
	if msg.FromID != nil {
		author = msg.FromID.UserID
	}
	return Message{
		ID:       msg.ID,
		FolderID: folderID,
		AuthorID: author,
		Text:     textutil.EnsureUTF8(msg.Text),
		Date:     msg.Date,
		EditDate: msg.EditDate,
		Own:      msg.Out || (user.ID != 0 && author == user.ID),
		Edited:   msg.EditDate != 0,
	}, nil
}

// SortFolders orders general folders first, then by most recent date, then id.
func (t *Transformer) SortFolders(folders []Folder) []Folder {
	out := slices.Clone(folders)
	slices.SortStableFunc(out, func(a, b Folder) int {
		if a.General != b.General {
			if a.General {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// SortMessages orders messages chronologically, ties broken by id.
func (t *Transformer) SortMessages(messages []Message) []Message {
	out := slices.Clone(messages)
	slices.SortStableFunc(out, func(a, b Message) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
