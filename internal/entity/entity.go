// Package entity defines the wire variants delivered by the protocol layer,
// the domain entities kept in the cache, and the default transform between
// the two.
package entity

import "errors"

// ErrMalformed is returned when a raw object cannot be transformed.
var ErrMalformed = errors.New("malformed raw entity")

// Folder is a chat or channel promoted to a tracked conversation group.
type Folder struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Icon    string `json:"icon,omitempty"`
	General bool   `json:"general,omitempty"`
	Channel bool   `json:"channel,omitempty"`
	Date    int64  `json:"date,omitempty"` // ordering hint
}

func (f Folder) Key() int64 { return f.ID }

// Message is a transformed message owned by exactly one folder.
type Message struct {
	ID       int64  `json:"id"`
	FolderID int64  `json:"folder_id"`
	AuthorID int64  `json:"author_id,omitempty"`
	Text     string `json:"text"`
	Date     int64  `json:"date"`
	EditDate int64  `json:"edit_date,omitempty"`
	Own      bool   `json:"own,omitempty"`
	Edited   bool   `json:"edited,omitempty"`
}

func (m Message) Key() int64 { return m.ID }

// User is the current account context used when transforming messages.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// Folders maps folder id to Folder in display order.
type Folders = Ordered[Folder]

// FolderMessages maps message id to Message for one folder.
type FolderMessages = Ordered[Message]

// SearchMessages is the global message id to Message search index.
type SearchMessages = Ordered[Message]

// FoldersMessages maps folder id to that folder's messages.
type FoldersMessages map[int64]*FolderMessages

// Clone returns a new map sharing the per-folder collections.
func (fm FoldersMessages) Clone() FoldersMessages {
	out := make(FoldersMessages, len(fm))
	for id, msgs := range fm {
		out[id] = msgs
	}
	return out
}
