package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/calsync/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const todoistAPI = "https://api.todoist.com/api/v1"

// Todoist allows roughly 1000 requests per user every 15 minutes.
var defaultLimit = rate.Every(900 * time.Millisecond)

const (
	defaultBurst = 100
	pageSize     = 200
)

// Client talks to the Todoist REST API
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *logrus.Entry
}

// Option customizes a Client
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLimiter replaces the request pacing limiter. nil disables pacing.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l.WithField("component", "todoist")
		}
	}
}

// New creates a Client authenticated with token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: todoistAPI,
		http:    http.DefaultClient,
		limiter: rate.NewLimiter(defaultLimit, defaultBurst),
		log:     logrus.NewEntry(logrus.StandardLogger()).WithField("component", "todoist"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type taskPage struct {
	Results    []domain.Task `json:"results"`
	NextCursor *string       `json:"next_cursor"`
}

// ListTasks returns every task in the project section, following pagination.
func (c *Client) ListTasks(ctx context.Context, projectID, sectionID string) ([]domain.Task, error) {
	var tasks []domain.Task
	cursor := ""

	for {
		q := url.Values{}
		if projectID != "" {
			q.Set("project_id", projectID)
		}
		if sectionID != "" {
			q.Set("section_id", sectionID)
		}
		q.Set("limit", fmt.Sprint(pageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var page taskPage
		if err := c.do(ctx, http.MethodGet, "/tasks?"+q.Encode(), nil, &page); err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, page.Results...)

		if page.NextCursor == nil || *page.NextCursor == "" {
			break
		}
		cursor = *page.NextCursor
	}

	c.log.WithFields(logrus.Fields{"project_id": projectID, "section_id": sectionID, "count": len(tasks)}).
		Debug("listed tasks")
	return tasks, nil
}

// DeleteTask removes a task by id
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// CreateTask adds a task and returns it as stored
func (c *Client) CreateTask(ctx context.Context, t domain.NewTask) (*domain.Task, error) {
	var created domain.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", t, &created); err != nil {
		return nil, fmt.Errorf("create task %q: %w", t.Content, err)
	}
	return &created, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("X-Request-Id", uuid.New().String())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: http request: %v", domain.ErrExternalAPI, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrExternalAPI, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s: status %d: %s", domain.ErrExternalAPI, method, path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: unmarshal response: %v", domain.ErrParse, err)
	}
	return nil
}
