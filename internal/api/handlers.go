package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wesm/foldercache/internal/entity"
	"github.com/wesm/foldercache/internal/ingest"
	"github.com/wesm/foldercache/internal/queue"
)

// maxUpdateBodyBytes caps POST /updates bodies.
const maxUpdateBodyBytes = 8 << 20

// FolderList is the response of GET /folders.
type FolderList struct {
	Total   int             `json:"total"`
	Folders []entity.Folder `json:"folders"`
}

// MessagePage is a page of messages in cache order.
type MessagePage struct {
	FolderID int64            `json:"folder_id,omitempty"`
	Query    string           `json:"query,omitempty"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Messages []entity.Message `json:"messages"`
}

// SchedulerStatusResponse represents scheduler status.
type SchedulerStatusResponse struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// pageParams reads page (1-based) and page_size, clamping page_size to 1..500.
func pageParams(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}
	return page, pageSize
}

func paginate[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := min(start+pageSize, len(items))
	return items[start:end]
}

// handleUpdates decodes an envelope and runs it through the engine.
// The response is the partial result: only changed slices are present.
func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "engine_unavailable", "Reconciliation engine not available")
		return
	}

	env, err := ingest.Decode(r.Body, maxUpdateBodyBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_envelope", err.Error())
		return
	}

	res, err := s.engine.HandleUpdates(r.Context(), env.Request, env.Options)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, entity.ErrMalformed):
		writeError(w, http.StatusUnprocessableEntity, "malformed_payload", err.Error())
	case errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting_down", "Server is shutting down")
	default:
		s.logger.Error("failed to reconcile updates", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to apply updates")
	}
}

// handleListFolders returns the folder set in display order.
func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Cache not available")
		return
	}

	folders, err := s.cache.GetFolders(r.Context())
	if err != nil {
		s.logger.Error("failed to get folders", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve folders")
		return
	}

	writeJSON(w, http.StatusOK, FolderList{
		Total:   folders.Len(),
		Folders: append([]entity.Folder{}, folders.Values()...),
	})
}

// handleFolderMessages returns a page of one folder's cached messages.
func (s *Server) handleFolderMessages(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Cache not available")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Folder ID must be a number")
		return
	}

	folders, err := s.cache.GetFolders(r.Context())
	if err != nil {
		s.logger.Error("failed to get folders", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve folders")
		return
	}
	if !folders.Has(id) {
		writeError(w, http.StatusNotFound, "not_found", "Folder not found")
		return
	}

	msgs, err := s.cache.GetFolderMessages(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get folder messages", "folder_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve messages")
		return
	}

	page, pageSize := pageParams(r)
	writeJSON(w, http.StatusOK, MessagePage{
		FolderID: id,
		Total:    msgs.Len(),
		Page:     page,
		PageSize: pageSize,
		Messages: paginate(msgs.Values(), page, pageSize),
	})
}

// handleSearch returns the cached search index, optionally filtered by a
// case-insensitive substring of the message text.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Cache not available")
		return
	}

	index, err := s.cache.GetSearchMessages(r.Context())
	if err != nil {
		s.logger.Error("failed to get search index", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Search failed")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	matches := index.Values()
	if query != "" {
		needle := strings.ToLower(query)
		matches = nil
		for _, m := range index.Values() {
			if strings.Contains(strings.ToLower(m.Text), needle) {
				matches = append(matches, m)
			}
		}
	}

	page, pageSize := pageParams(r)
	writeJSON(w, http.StatusOK, MessagePage{
		Query:    query,
		Total:    len(matches),
		Page:     page,
		PageSize: pageSize,
		Messages: paginate(matches, page, pageSize),
	})
}

// handleStats returns cache statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Cache not available")
		return
	}

	stats, err := s.cache.GetStats(r.Context())
	if err != nil {
		s.logger.Error("failed to get stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleGetUser returns the current account; the zero user when unset.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Cache not available")
		return
	}

	user, err := s.cache.GetUser(r.Context())
	if err != nil {
		s.logger.Error("failed to get user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleSetUser replaces the current account.
func (s *Server) handleSetUser(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "engine_unavailable", "Reconciliation engine not available")
		return
	}

	var user entity.User
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&user); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user", "Body must be a user object")
		return
	}
	if user.ID == 0 {
		writeError(w, http.StatusBadRequest, "invalid_user", "User ID is required")
		return
	}

	if err := s.engine.SetUser(r.Context(), user); err != nil {
		s.logger.Error("failed to set user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to store user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleSchedulerStatus returns the scheduler status.
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler_unavailable", "Scheduler not available")
		return
	}
	writeJSON(w, http.StatusOK, SchedulerStatusResponse{
		Running: s.scheduler.IsRunning(),
		Jobs:    s.scheduler.Status(),
	})
}

// handleTriggerJob runs a scheduled job immediately.
func (s *Server) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler_unavailable", "Scheduler not available")
		return
	}

	name := chi.URLParam(r, "name")
	if !s.scheduler.IsScheduled(name) {
		writeError(w, http.StatusNotFound, "not_found", "Job "+name+" is not scheduled")
		return
	}
	if err := s.scheduler.TriggerJob(name); err != nil {
		s.logger.Error("failed to trigger job", "job", name, "error", err)
		writeError(w, http.StatusConflict, "job_error", err.Error())
		return
	}

	s.logger.Info("job triggered via API", "job", name)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"message": "Job " + name + " started",
	})
}
