// Package remote provides an HTTP client for a running foldercache server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wesm/foldercache/internal/api"
	"github.com/wesm/foldercache/internal/entity"
	"github.com/wesm/foldercache/internal/ingest"
	"github.com/wesm/foldercache/internal/reconcile"
	"github.com/wesm/foldercache/internal/store"
)

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("not found")

// pageSize is the largest page the server hands out.
const pageSize = 500

// Client talks to the foldercache HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config holds configuration for creating a Client.
type Config struct {
	URL           string
	APIKey        string
	AllowInsecure bool
	Timeout       time.Duration
}

// New creates a new Client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("remote URL is required")
	}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("URL scheme must be http or https, got: %s", parsedURL.Scheme)
	}

	// Enforce HTTPS unless AllowInsecure is set
	if parsedURL.Scheme == "http" && !cfg.AllowInsecure {
		return nil, fmt.Errorf("HTTPS required for remote connections\n\n" +
			"Options:\n" +
			"  1. Use HTTPS: [remote] url = \"https://nas:8080\"\n" +
			"  2. For trusted networks: add 'allow_insecure = true' to [remote] in config.toml")
	}

	if parsedURL.Host == "" {
		return nil, fmt.Errorf("remote URL must include a host (e.g., http://nas:8080)")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Close is a no-op for HTTP client.
func (c *Client) Close() error {
	return nil
}

// do sends in (when non-nil) as a JSON body and decodes the response into
// out (when non-nil). Non-2xx responses become errors.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// handleErrorResponse reads an error response and returns an appropriate error.
func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	msg := strings.TrimSpace(string(body))
	var apiErr api.ErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return fmt.Errorf("API error (%d): %s", resp.StatusCode, msg)
}

// HandleUpdates posts one envelope to the server and returns its result.
func (c *Client) HandleUpdates(ctx context.Context, req reconcile.Request, opts reconcile.Options) (*reconcile.Result, error) {
	var res reconcile.Result
	env := ingest.Envelope{Request: req, Options: opts}
	if err := c.do(ctx, http.MethodPost, "/api/v1/updates", env, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SetUser replaces the server's current account.
func (c *Client) SetUser(ctx context.Context, user entity.User) error {
	return c.do(ctx, http.MethodPut, "/api/v1/user", user, nil)
}

// GetUser fetches the current account; the zero user when unset.
func (c *Client) GetUser(ctx context.Context) (entity.User, error) {
	var user entity.User
	err := c.do(ctx, http.MethodGet, "/api/v1/user", nil, &user)
	return user, err
}

// GetFolders fetches the folder set in display order.
func (c *Client) GetFolders(ctx context.Context) (*entity.Folders, error) {
	var list api.FolderList
	if err := c.do(ctx, http.MethodGet, "/api/v1/folders", nil, &list); err != nil {
		return nil, err
	}
	return entity.NewOrdered(list.Folders...), nil
}

// GetFolderMessages fetches every cached message of one folder, page by
// page. An untracked folder yields ErrNotFound.
func (c *Client) GetFolderMessages(ctx context.Context, folderID int64) (*entity.FolderMessages, error) {
	path := "/api/v1/folders/" + strconv.FormatInt(folderID, 10) + "/messages"
	msgs, err := c.allPages(ctx, path, url.Values{})
	if err != nil {
		return nil, err
	}
	return entity.NewOrdered(msgs...), nil
}

// GetSearchMessages fetches the whole search index.
func (c *Client) GetSearchMessages(ctx context.Context) (*entity.SearchMessages, error) {
	msgs, err := c.allPages(ctx, "/api/v1/search", url.Values{})
	if err != nil {
		return nil, err
	}
	return entity.NewOrdered(msgs...), nil
}

// SearchMessages returns one page of indexed messages whose text contains
// query, and the total number of matches.
func (c *Client) SearchMessages(ctx context.Context, query string, page, size int) ([]entity.Message, int, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(size))

	var mp api.MessagePage
	if err := c.do(ctx, http.MethodGet, "/api/v1/search?"+q.Encode(), nil, &mp); err != nil {
		return nil, 0, err
	}
	return mp.Messages, mp.Total, nil
}

func (c *Client) allPages(ctx context.Context, path string, q url.Values) ([]entity.Message, error) {
	var all []entity.Message
	for page := 1; ; page++ {
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(pageSize))

		var mp api.MessagePage
		if err := c.do(ctx, http.MethodGet, path+"?"+q.Encode(), nil, &mp); err != nil {
			return nil, err
		}
		all = append(all, mp.Messages...)
		if len(mp.Messages) == 0 || len(all) >= mp.Total {
			return all, nil
		}
	}
}

// GetStats fetches cache statistics.
func (c *Client) GetStats(ctx context.Context) (*store.Stats, error) {
	var stats store.Stats
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// TriggerJob asks the server to run a scheduled job now.
func (c *Client) TriggerJob(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/jobs/"+url.PathEscape(name)+"/run", nil, nil)
}
