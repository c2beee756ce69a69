package testutil

import (
	"github.com/wesm/foldercache/internal/entity"
)

// RawMessageBuilder provides a fluent API for constructing entity.RawMessage in tests.
type RawMessageBuilder struct {
	m entity.RawMessage
}

// NewRawMessage creates a plain message in a basic-group chat.
// The date defaults to the id so that id order is recency order.
func NewRawMessage(id, chatID int64) *RawMessageBuilder {
	return &RawMessageBuilder{
		m: entity.RawMessage{
			Kind:   entity.MessageKindPlain,
			ID:     id,
			PeerID: entity.Peer{ChatID: chatID},
			Date:   id,
			Text:   "message text",
		},
	}
}

func (b *RawMessageBuilder) InChannel(channelID int64) *RawMessageBuilder {
	b.m.PeerID = entity.Peer{ChannelID: channelID}
	return b
}

func (b *RawMessageBuilder) WithText(text string) *RawMessageBuilder {
	b.m.Text = text
	return b
}

func (b *RawMessageBuilder) WithDate(date int64) *RawMessageBuilder {
	b.m.Date = date
	return b
}

func (b *RawMessageBuilder) WithKind(kind entity.MessageKind) *RawMessageBuilder {
	b.m.Kind = kind
	return b
}

func (b *RawMessageBuilder) From(userID int64) *RawMessageBuilder {
	b.m.FromID = &entity.Peer{UserID: userID}
	return b
}

func (b *RawMessageBuilder) Build() entity.RawMessage {
	return b.m
}

// NewRawChat creates a raw chat of the "chat" kind.
func NewRawChat(id int64, title string) entity.RawChat {
	return entity.RawChat{Kind: entity.ChatKindChat, ID: id, Title: title}
}

// NewFolderChat creates a raw chat that carries the default folder marker.
func NewFolderChat(id int64, title string) entity.RawChat {
	return NewRawChat(id, title+entity.DefaultFolderMarker)
}

// NewUpdate wraps a single message in an update of the given type.
func NewUpdate(typ string, msg entity.RawMessage) entity.RawUpdate {
	return entity.RawUpdate{Type: typ, Message: &msg}
}

// NewBatchUpdate wraps several messages in an update of the given type.
func NewBatchUpdate(typ string, msgs ...entity.RawMessage) entity.RawUpdate {
	return entity.RawUpdate{Type: typ, Messages: msgs}
}
