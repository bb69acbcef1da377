package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/pkg/utils"
)

// DefaultTimeout bounds a single request when ClientConfig.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// ClientConfig locates and authenticates against the search service.
type ClientConfig struct {
	URL                string
	Username           string
	Password           string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Client is a Backend speaking the OpenSearch REST API over HTTP.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	logger   *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// NewClient creates a Client for cfg.
func NewClient(cfg ClientConfig, opts ...ClientOption) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // local development clusters use self-signed certificates
	}
	c := &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: timeout, Transport: transport},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNop(c.logger)
	return c
}

var _ Backend = (*Client)(nil)

// IndexExists reports whether index exists.
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	resp, err := c.do(ctx, http.MethodHead, "/"+url.PathEscape(index), "", nil)
	if err != nil {
		return false, &evalerr.BackendOperationError{Op: "exists", Index: index, Cause: err}
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &evalerr.BackendOperationError{Op: "exists", Index: index, Status: resp.StatusCode}
	}
}

// DeleteIndex removes index.
func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	return c.call(ctx, "delete", index, http.MethodDelete, "/"+url.PathEscape(index), nil, nil)
}

// CreateIndex creates index with the given settings and mappings.
func (c *Client) CreateIndex(ctx context.Context, index string, options map[string]any) error {
	return c.call(ctx, "create", index, http.MethodPut, "/"+url.PathEscape(index), options, nil)
}

// Refresh makes all writes to index visible to searches.
func (c *Client) Refresh(ctx context.Context, index string) error {
	return c.call(ctx, "refresh", index, http.MethodPost, "/"+url.PathEscape(index)+"/_refresh", nil, nil)
}

// Search runs body against index.
func (c *Client) Search(ctx context.Context, index string, body map[string]any) (*SearchResponse, error) {
	var out SearchResponse
	if err := c.call(ctx, "search", index, http.MethodPost, "/"+url.PathEscape(index)+"/_search", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// Bulk indexes docs into index in one request. A reply that reports item
// errors is a failure of the whole call.
func (c *Client) Bulk(ctx context.Context, index string, docs []BulkDocument) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		action := map[string]any{"index": map[string]any{"_index": index, "_id": d.ID}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(d.Body); err != nil {
			return fmt.Errorf("encode document %s: %w", d.ID, err)
		}
	}

	resp, err := c.do(ctx, http.MethodPost, "/_bulk", "application/x-ndjson", &buf)
	if err != nil {
		return &evalerr.BackendOperationError{Op: "bulk", Index: index, Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &evalerr.BackendOperationError{Op: "bulk", Index: index, Status: resp.StatusCode, Cause: readError(resp.Body)}
	}
	var out bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return &evalerr.BackendOperationError{Op: "bulk", Index: index, Status: resp.StatusCode, Cause: fmt.Errorf("decode response: %w", err)}
	}
	if out.Errors {
		failed := 0
		var first string
		for _, item := range out.Items {
			for _, r := range item {
				if r.Error != nil {
					if failed == 0 {
						first = fmt.Sprintf("%s: %s: %s", r.ID, r.Error.Type, r.Error.Reason)
					}
					failed++
				}
			}
		}
		return &evalerr.BackendOperationError{
			Op:    "bulk",
			Index: index,
			Cause: fmt.Errorf("%d of %d documents rejected, first: %s", failed, len(docs), first),
		}
	}
	c.logger.Debug("Bulk indexed", zap.String("index", index), zap.Int("documents", len(docs)))
	return nil
}

func (c *Client) call(ctx context.Context, op, index, method, path string, body any, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}
	resp, err := c.do(ctx, method, path, contentType, reader)
	if err != nil {
		return &evalerr.BackendOperationError{Op: op, Index: index, Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &evalerr.BackendOperationError{Op: op, Index: index, Status: resp.StatusCode, Cause: readError(resp.Body)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &evalerr.BackendOperationError{Op: op, Index: index, Status: resp.StatusCode, Cause: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return c.http.Do(req)
}

// readError extracts a short message from an error reply body.
func readError(r io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var reply struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &reply); err == nil && len(reply.Error) > 0 {
		var typed struct {
			Reason string `json:"reason"`
		}
		if json.Unmarshal(reply.Error, &typed) == nil && typed.Reason != "" {
			return errors.New(typed.Reason)
		}
		var plain string
		if json.Unmarshal(reply.Error, &plain) == nil && plain != "" {
			return errors.New(plain)
		}
	}
	return errors.New(utils.Summarize(string(data), 200))
}
