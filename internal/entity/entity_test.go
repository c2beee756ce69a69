package entity

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOrdered_SetKeepsPositionOnReplace(t *testing.T) {
	o := NewOrdered(Message{ID: 3}, Message{ID: 1}, Message{ID: 2})
	o.Set(Message{ID: 1, Text: "edited"})

	if diff := cmp.Diff([]int64{3, 1, 2}, o.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	got, _ := o.Get(1)
	if got.Text != "edited" {
		t.Errorf("Get(1).Text = %q, want %q", got.Text, "edited")
	}
}

func TestOrdered_DeletePreservesOrder(t *testing.T) {
	o := NewOrdered(Message{ID: 1}, Message{ID: 2}, Message{ID: 3})
	if !o.Delete(2) {
		t.Fatal("Delete(2) = false, want true")
	}
	if o.Delete(42) {
		t.Error("Delete(42) = true for missing id")
	}
	if diff := cmp.Diff([]int64{1, 3}, o.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestOrdered_CloneIsIndependent(t *testing.T) {
	o := NewOrdered(Folder{ID: 1}, Folder{ID: 2})
	c := o.Clone()
	c.Delete(1)
	c.Set(Folder{ID: 3})

	if o.Len() != 2 || !o.Has(1) || o.Has(3) {
		t.Errorf("original mutated through clone: %v", o.Keys())
	}
}

func TestOrdered_NilIsEmpty(t *testing.T) {
	var o *FolderMessages
	if o.Len() != 0 || o.Has(1) || o.Values() != nil {
		t.Error("nil collection should behave as empty")
	}
	if o.Clone().Len() != 0 {
		t.Error("clone of nil should be empty")
	}
}

func TestOrdered_JSONRoundTripKeepsOrder(t *testing.T) {
	o := NewOrdered(Folder{ID: 9, Title: "b"}, Folder{ID: 4, Title: "a"})
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Folders
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(o.Values(), back.Values()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestPeer_FolderID(t *testing.T) {
	tests := []struct {
		name string
		peer Peer
		want int64
	}{
		{"channel wins", Peer{ChannelID: 1, UserID: 2, ChatID: 3}, 1},
		{"user before chat", Peer{UserID: 2, ChatID: 3}, 2},
		{"chat only", Peer{ChatID: 3}, 3},
		{"empty", Peer{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.peer.FolderID(); got != tt.want {
				t.Errorf("FolderID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRawDecoding(t *testing.T) {
	payload := `{
		"_": "updateEditChannelMessage",
		"message": {"_": "message", "id": 7, "peer_id": {"channel_id": 10}, "message": "hi"}
	}`
	var u RawUpdate
	if err := json.Unmarshal([]byte(payload), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.Family() != UpdateEdit {
		t.Errorf("Family() = %v, want edit", u.Family())
	}
	batch := u.Batch()
	if len(batch) != 1 || batch[0].Kind != MessageKindPlain || batch[0].PeerID.FolderID() != 10 {
		t.Errorf("unexpected batch: %+v", batch)
	}

	var chat RawChat
	if err := json.Unmarshal([]byte(`{"_":"channelForbidden","id":5,"title":"x"}`), &chat); err != nil {
		t.Fatalf("unmarshal chat: %v", err)
	}
	if !chat.Kind.Forbidden() || !chat.Kind.Channel() {
		t.Errorf("kind = %v, want channelForbidden", chat.Kind)
	}

	if err := json.Unmarshal([]byte(`{"_":"chatEmpty","id":6}`), &chat); err != nil {
		t.Fatalf("unmarshal unknown chat: %v", err)
	}
	if chat.Kind != ChatKindUnknown {
		t.Errorf("kind = %v, want unknown", chat.Kind)
	}

	if err := json.Unmarshal([]byte(`{"id":1,"left":true,"general":true}`), &chat); err != nil {
		t.Fatalf("unmarshal chat without kind: %v", err)
	}
	if chat.Kind != ChatKindChat || !chat.Left || !chat.General {
		t.Errorf("chat without kind = %+v, want plain left general chat", chat)
	}

	if (RawUpdate{Type: "updateUserStatus"}).Family() != UpdateOther {
		t.Error("unknown update type should be UpdateOther")
	}
}

func TestRawMessage_MarshalKeepsKind(t *testing.T) {
	data, err := json.Marshal(RawMessage{Kind: MessageKindService, ID: 1, PeerID: Peer{ChatID: 2}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back RawMessage
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Kind != MessageKindService || back.ID != 1 {
		t.Errorf("round trip = %+v", back)
	}
}

func TestTransformer_IsFolder(t *testing.T) {
	tf := NewTransformer("")
	tests := []struct {
		name string
		chat RawChat
		want bool
	}{
		{"general", RawChat{ID: 1, Title: "Lobby", General: true}, true},
		{"marker", RawChat{ID: 2, Title: "Work" + DefaultFolderMarker}, true},
		{"plain", RawChat{ID: 3, Title: "Random"}, false},
		{"marker in middle", RawChat{ID: 4, Title: "📁 Work"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tf.IsFolder(tt.chat); got != tt.want {
				t.Errorf("IsFolder(%q) = %v, want %v", tt.chat.Title, got, tt.want)
			}
		})
	}
}

func TestTransformer_TransformFolder(t *testing.T) {
	tf := NewTransformer("")
	got, err := tf.TransformFolder(RawChat{Kind: ChatKindChannel, ID: 5, Title: "Work" + DefaultFolderMarker, Date: 100})
	if err != nil {
		t.Fatalf("TransformFolder: %v", err)
	}
	want := Folder{ID: 5, Title: "Work", Icon: "📁", Channel: true, Date: 100}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("folder mismatch (-want +got):\n%s", diff)
	}

	if _, err := tf.TransformFolder(RawChat{Title: "x"}); !errors.Is(err, ErrMalformed) {
		t.Errorf("missing id: err = %v, want ErrMalformed", err)
	}
}

func TestTransformer_TransformMessage(t *testing.T) {
	tf := NewTransformer("")
	user := User{ID: 42}
	got, err := tf.TransformMessage(RawMessage{
		Kind:   MessageKindPlain,
		ID:     5,
		PeerID: Peer{ChatID: 10},
		FromID: &Peer{UserID: 42},
		Date:   1000,
		Text:   "hello",
	}, user)
	if err != nil {
		t.Fatalf("TransformMessage: %v", err)
	}
	want := Message{ID: 5, FolderID: 10, AuthorID: 42, Text: "hello", Date: 1000, Own: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("message mismatch (-want +got):\n%s", diff)
	}

	if _, err := tf.TransformMessage(RawMessage{ID: 5}, user); !errors.Is(err, ErrMalformed) {
		t.Errorf("missing peer: err = %v, want ErrMalformed", err)
	}
}

func TestTransformer_Sorts(t *testing.T) {
	tf := NewTransformer("")
	folders := tf.SortFolders([]Folder{
		{ID: 3, Date: 10},
		{ID: 1, Date: 30},
		{ID: 9, General: true},
		{ID: 2, Date: 30},
	})
	var ids []int64
	for _, f := range folders {
		ids = append(ids, f.ID)
	}
	if diff := cmp.Diff([]int64{9, 1, 2, 3}, ids); diff != "" {
		t.Errorf("folder order mismatch (-want +got):\n%s", diff)
	}

	in := []Message{{ID: 8, Date: 20}, {ID: 2, Date: 10}, {ID: 5, Date: 20}}
	msgs := tf.SortMessages(in)
	ids = ids[:0]
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	if diff := cmp.Diff([]int64{2, 5, 8}, ids); diff != "" {
		t.Errorf("message order mismatch (-want +got):\n%s", diff)
	}
	if in[0].ID != 8 {
		t.Error("SortMessages mutated its input")
	}
}
