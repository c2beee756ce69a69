package entity

import (
	"encoding/json"
	"fmt"
)

// ChatKind is the closed set of raw chat variants.
type ChatKind int

const (
	ChatKindUnknown ChatKind = iota
	ChatKindChat
	ChatKindChannel
	ChatKindChatForbidden
	ChatKindChannelForbidden
)

var chatKindNames = map[string]ChatKind{
	"chat":             ChatKindChat,
	"channel":          ChatKindChannel,
	"chatForbidden":    ChatKindChatForbidden,
	"channelForbidden": ChatKindChannelForbidden,
}

// String returns the wire discriminator for k.
func (k ChatKind) String() string {
	for name, kind := range chatKindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Forbidden reports whether the account has lost access to the chat.
func (k ChatKind) Forbidden() bool {
	return k == ChatKindChatForbidden || k == ChatKindChannelForbidden
}

// Channel reports whether k is a channel variant.
func (k ChatKind) Channel() bool {
	return k == ChatKindChannel || k == ChatKindChannelForbidden
}

// MessageKind is the closed set of raw message variants.
type MessageKind int

const (
	MessageKindUnknown MessageKind = iota
	MessageKindPlain
	MessageKindService
	MessageKindEmpty
)

var messageKindNames = map[string]MessageKind{
	"message":        MessageKindPlain,
	"messageService": MessageKindService,
	"messageEmpty":   MessageKindEmpty,
}

func (k MessageKind) String() string {
	for name, kind := range messageKindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// UpdateFamily groups raw update kinds by the reconciliation they trigger.
type UpdateFamily int

const (
	UpdateOther UpdateFamily = iota
	UpdateNew
	UpdateDelete
	UpdateEdit
)

var updateFamilies = map[string]UpdateFamily{
	"updateNewMessage":            UpdateNew,
	"updateNewChannelMessage":     UpdateNew,
	"updateDeleteMessages":        UpdateDelete,
	"updateDeleteChannelMessages": UpdateDelete,
	"updateEditMessage":           UpdateEdit,
	"updateEditChannelMessage":    UpdateEdit,
}

func (f UpdateFamily) String() string {
	switch f {
	case UpdateNew:
		return "new"
	case UpdateDelete:
		return "delete"
	case UpdateEdit:
		return "edit"
	default:
		return "other"
	}
}

// Peer identifies the conversation a message belongs to.
type Peer struct {
	ChannelID int64 `json:"channel_id,omitempty"`
	UserID    int64 `json:"user_id,omitempty"`
	ChatID    int64 `json:"chat_id,omitempty"`
}

// FolderID resolves the owning folder: channel, then user, then chat.
func (p Peer) FolderID() int64 {
	switch {
	case p.ChannelID != 0:
		return p.ChannelID
	case p.UserID != 0:
		return p.UserID
	default:
		return p.ChatID
	}
}

// RawChat is a chat or channel object as delivered by the protocol layer.
type RawChat struct {
	Kind    ChatKind `json:"-"`
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Left    bool     `json:"left,omitempty"`
	General bool     `json:"general,omitempty"`
	Date    int64    `json:"date,omitempty"`
}

type rawChatAlias RawChat

func (c *RawChat) UnmarshalJSON(data []byte) error {
	var wire struct {
		Kind string `json:"_"`
		rawChatAlias
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode chat: %w", err)
	}
	*c = RawChat(wire.rawChatAlias)
	// A chat without a discriminator is an ordinary, accessible chat.
	if wire.Kind == "" {
		c.Kind = ChatKindChat
	} else {
		c.Kind = chatKindNames[wire.Kind]
	}
	return nil
}

func (c RawChat) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"_"`
		rawChatAlias
	}{c.Kind.String(), rawChatAlias(c)})
}

// RawMessage is a message object as delivered by the protocol layer.
type RawMessage struct {
	Kind     MessageKind `json:"-"`
	ID       int64       `json:"id"`
	PeerID   Peer        `json:"peer_id"`
	FromID   *Peer       `json:"from_id,omitempty"`
	Date     int64       `json:"date,omitempty"`
	EditDate int64       `json:"edit_date,omitempty"`
	Text     string      `json:"message,omitempty"`
	Out      bool        `json:"out,omitempty"`
}

type rawMessageAlias RawMessage

func (m *RawMessage) UnmarshalJSON(data []byte) error {
	var wire struct {
		Kind string `json:"_"`
		rawMessageAlias
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	*m = RawMessage(wire.rawMessageAlias)
	m.Kind = messageKindNames[wire.Kind]
	return nil
}

func (m RawMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"_"`
		rawMessageAlias
	}{m.Kind.String(), rawMessageAlias(m)})
}

// RawUpdate is a discrete update event carrying one or many messages.
type RawUpdate struct {
	Type     string       `json:"_"`
	Message  *RawMessage  `json:"message,omitempty"`
	Messages []RawMessage `json:"messages,omitempty"`
}

// Family classifies the update. Unrecognised types are UpdateOther.
func (u RawUpdate) Family() UpdateFamily {
	return updateFamilies[u.Type]
}

// Batch returns the messages carried by the update in order.
func (u RawUpdate) Batch() []RawMessage {
	if u.Message != nil {
		return []RawMessage{*u.Message}
	}
	return u.Messages
}
