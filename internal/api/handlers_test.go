package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wesm/foldercache/internal/entity"
	"github.com/wesm/foldercache/internal/queue"
	"github.com/wesm/foldercache/internal/reconcile"
	"github.com/wesm/foldercache/internal/store"
)

// failingCache implements CacheReader and fails every read.
type failingCache struct{}

var errDisk = errors.New("disk I/O error")

func (failingCache) GetFolders(ctx context.Context) (*entity.Folders, error) { return nil, errDisk }
func (failingCache) GetFolderMessages(ctx context.Context, id int64) (*entity.FolderMessages, error) {
	return nil, errDisk
}
func (failingCache) GetSearchMessages(ctx context.Context) (*entity.SearchMessages, error) {
	return nil, errDisk
}
func (failingCache) GetUser(ctx context.Context) (entity.User, error) { return entity.User{}, errDisk }
func (failingCache) GetStats(ctx context.Context) (*store.Stats, error) { return nil, errDisk }

// stubEngine implements Engine with a fixed error.
type stubEngine struct{ err error }

func (e stubEngine) HandleUpdates(ctx context.Context, req reconcile.Request, opts reconcile.Options) (*reconcile.Result, error) {
	return nil, e.err
}

func (e stubEngine) SetUser(ctx context.Context, user entity.User) error { return e.err }

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		page, size int
		want       []int
	}{
		{1, 2, []int{1, 2}},
		{3, 2, []int{5}},
		{4, 2, []int{}},
		{1, 10, []int{1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d size %d", tt.page, tt.size), func(t *testing.T) {
			got := paginate(items, tt.page, tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("paginate() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("paginate() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query        string
		wantPage     int
		wantPageSize int
	}{
		{"", 1, 100},
		{"page=3&page_size=20", 3, 20},
		{"page=0&page_size=0", 1, 100},
		{"page=-1&page_size=1000", 1, 100},
		{"page=abc", 1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/search?"+tt.query, nil)
			page, size := pageParams(r)
			if page != tt.wantPage || size != tt.wantPageSize {
				t.Errorf("pageParams(%q) = %d, %d; want %d, %d", tt.query, page, size, tt.wantPage, tt.wantPageSize)
			}
		})
	}
}

func TestErrorResponseShape(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusBadRequest, "invalid_id", "Folder ID must be a number")

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "invalid_id" || resp["message"] != "Folder ID must be a number" {
		t.Errorf("error response = %v", resp)
	}
}

func TestCacheFailuresReturn500(t *testing.T) {
	srv := NewServer(testConfig(), nil, failingCache{}, nil, testLogger())

	for _, path := range []string{
		"/api/v1/folders",
		"/api/v1/folders/1/messages",
		"/api/v1/search",
		"/api/v1/stats",
		"/api/v1/user",
	} {
		t.Run(path, func(t *testing.T) {
			w := do(t, srv, "GET", path, "")
			if w.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want 500", w.Code)
			}
		})
	}
}

func TestEngineErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"malformed", fmt.Errorf("reconcile messages: %w", entity.ErrMalformed), http.StatusUnprocessableEntity},
		{"queue closed", queue.ErrClosed, http.StatusServiceUnavailable},
		{"cache failure", errDisk, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(testConfig(), stubEngine{err: tt.err}, nil, nil, testLogger())
			w := do(t, srv, "POST", "/api/v1/updates", `{"chats": [{"_": "chat", "id": 1}]}`)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestSetUserFailure(t *testing.T) {
	srv := NewServer(testConfig(), stubEngine{err: errDisk}, nil, nil, testLogger())
	w := do(t, srv, "PUT", "/api/v1/user", `{"id": 7}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
