package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/icco/catalog/lib/validation"
)

// ErrMalformedEnvelope is returned when a response body does not match the
// catalog API envelope.
var ErrMalformedEnvelope = errors.New("malformed response envelope")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
}

// TokenSource supplies the bearer token sent with every request.
type TokenSource interface {
	SessionToken(ctx context.Context) (string, error)
}

// Page is the pagination block of a list response. Page numbers are zero based.
type Page struct {
	Content       []json.RawMessage `json:"content"`
	TotalPages    int               `json:"totalPages"`
	TotalElements int               `json:"totalElements"`
	Number        int               `json:"number"`
	Size          int               `json:"size"`
	Last          bool              `json:"last"`
}

type envelope struct {
	Result json.RawMessage `json:"result"`
}

type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
}

func NewClient(baseURL string, pageSize int, timeout time.Duration, tokens TokenSource, logger *slog.Logger) *Client {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logger,
	}
}

// ListPage fetches a single page of entity records.
func (c *Client) ListPage(ctx context.Context, entity string, page, size int) (*Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	body, err := c.do(ctx, http.MethodGet, "/"+entity, q, nil)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePageEnvelope(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	var env struct {
		Result Page `json:"result"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return &env.Result, nil
}

// ListAll walks every page of an entity collection.
func (c *Client) ListAll(ctx context.Context, entity string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for page := 0; ; page++ {
		p, err := c.ListPage(ctx, entity, page, c.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Content...)

		c.logger.DebugContext(ctx, "Fetched remote page",
			slog.String("entity", entity),
			slog.Int("page", page),
			slog.Int("count", len(p.Content)),
			slog.Int("total_elements", p.TotalElements))

		if p.Last || len(p.Content) == 0 || page+1 >= p.TotalPages {
			break
		}
	}
	return all, nil
}

// Get fetches a single record.
func (c *Client) Get(ctx context.Context, entity, id string) (json.RawMessage, error) {
	return c.item(ctx, http.MethodGet, "/"+entity+"/"+url.PathEscape(id), nil)
}

func (c *Client) Create(ctx context.Context, entity string, payload any) (json.RawMessage, error) {
	return c.item(ctx, http.MethodPost, "/"+entity, payload)
}

func (c *Client) Update(ctx context.Context, entity, id string, payload any) (json.RawMessage, error) {
	return c.item(ctx, http.MethodPut, "/"+entity+"/"+url.PathEscape(id), payload)
}

func (c *Client) Delete(ctx context.Context, entity, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/"+entity+"/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) item(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	body, err := c.do(ctx, method, path, nil, payload)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateItemEnvelope(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return env.Result, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.SessionToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read session token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
