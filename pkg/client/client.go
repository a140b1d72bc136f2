// Package client is the HTTP transport to the remote flow backend and store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/gofiber/fiber/v3/client"
)

const (
	defaultTimeout = 60 * time.Second

	storeAPIKeyHeader = "x-store-api-key"
)

// Client calls the backend API. All methods are safe for concurrent use.
type Client struct {
	http   *client.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.http.SetHeader("Authorization", "Bearer "+token)
		}
	}
}

// WithStoreAPIKey sends the store API key on every request.
func WithStoreAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.http.SetHeader(storeAPIKeyHeader, key)
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// New creates a client for the backend at baseURL, e.g. http://localhost:7860.
func New(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		http: client.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(defaultTimeout),
		logger: logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CodeCheck is the response of standalone code validation.
type CodeCheck struct {
	Imports  ErrorGroup `json:"imports"`
	Function ErrorGroup `json:"function"`
}

// ErrorGroup lists the errors of one validation group.
type ErrorGroup struct {
	Errors []string `json:"errors"`
}

// StoreFilter narrows the store listing.
type StoreFilter struct {
	Fields       []string
	FilterByUser bool
}

// UploadArtifact uploads a file attached to flowID and returns the server side path.
func (c *Client) UploadArtifact(ctx context.Context, flowID, filename string, content io.Reader) (string, error) {
	file := client.AcquireFile(
		client.SetFileName(filename),
		client.SetFileFieldName("file"),
		client.SetFileReader(io.NopCloser(content)),
	)

	req := c.http.R().SetContext(ctx).AddFiles(file)

	var out struct {
		FilePath string `json:"file_path"`
	}

	if err := c.do(ctx, req, "POST", "/api/v1/upload/"+url.PathEscape(flowID), &out); err != nil {
		return "", err
	}

	if out.FilePath == "" {
		return "", fmt.Errorf("upload response without file_path: %w", ErrMalformedResponse)
	}

	return out.FilePath, nil
}

// ValidateCode checks standalone code and reports import and function errors.
func (c *Client) ValidateCode(ctx context.Context, code string) (*CodeCheck, error) {
	req := c.http.R().SetContext(ctx).SetJSON(map[string]string{"code": code})

	var out CodeCheck
	if err := c.do(ctx, req, "POST", "/api/v1/validate/code", &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// CompileDynamicComponent compiles code against the current node class and
// returns the raw replacement node class. Compile failures are *APIError
// values carrying the error and traceback.
func (c *Client) CompileDynamicComponent(ctx context.Context, code string, current *models.NodeClass) (json.RawMessage, error) {
	req := c.http.R().SetContext(ctx).SetJSON(map[string]any{
		"code":          code,
		"frontend_node": current,
	})

	var out json.RawMessage
	if err := c.do(ctx, req, "POST", "/api/v1/custom_component", &out); err != nil {
		return nil, err
	}

	return out, nil
}

// FetchStoreTags returns the tag catalog.
func (c *Client) FetchStoreTags(ctx context.Context) ([]models.TagRef, error) {
	req := c.http.R().SetContext(ctx)

	var out []models.TagRef
	if err := c.do(ctx, req, "GET", "/api/v1/store/tags", &out); err != nil {
		return nil, err
	}

	return out, nil
}

// FetchStoreEntries lists store entries.
func (c *Client) FetchStoreEntries(ctx context.Context, filter StoreFilter) ([]models.StoreEntry, error) {
	req := c.http.R().SetContext(ctx)

	if len(filter.Fields) > 0 {
		req.SetParam("fields", strings.Join(filter.Fields, ","))
	}

	if filter.FilterByUser {
		req.SetParam("filter_by_user", "true")
	}

	var out struct {
		Results []models.StoreEntry `json:"results"`
	}

	if err := c.do(ctx, req, "GET", "/api/v1/store/components/", &out); err != nil {
		return nil, err
	}

	return out.Results, nil
}

// CreateStoreEntry publishes a new store entry.
func (c *Client) CreateStoreEntry(ctx context.Context, submission models.StoreSubmission) error {
	req := c.http.R().SetContext(ctx).SetJSON(newStorePayload(submission))

	return c.do(ctx, req, "POST", "/api/v1/store/components/", nil)
}

// UpdateStoreEntry replaces the store entry identified by remoteID.
func (c *Client) UpdateStoreEntry(ctx context.Context, remoteID string, submission models.StoreSubmission) error {
	req := c.http.R().SetContext(ctx).SetJSON(newStorePayload(submission))

	return c.do(ctx, req, "PATCH", "/api/v1/store/components/"+url.PathEscape(remoteID), nil)
}

type storePayload struct {
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Data              *models.FlowData `json:"data"`
	Tags              []string         `json:"tags"`
	Parent            string           `json:"parent,omitempty"`
	IsComponent       bool             `json:"is_component"`
	Private           bool             `json:"private"`
	LastTestedVersion string           `json:"last_tested_version,omitempty"`
}

func newStorePayload(submission models.StoreSubmission) storePayload {
	doc := submission.Document
	if doc == nil {
		doc = &models.FlowDocument{}
	}

	tags := submission.TagIDs
	if tags == nil {
		tags = []string{}
	}

	return storePayload{
		Name:              doc.Name,
		Description:       doc.Description,
		Data:              doc.Data,
		Tags:              tags,
		Parent:            doc.ID,
		IsComponent:       doc.IsComponent,
		Private:           !submission.Public,
		LastTestedVersion: doc.LastTestedVersion,
	}
}

// do sends req and decodes a 2xx JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, req *client.Request, method, path string, out any) error {
	var (
		resp *client.Response
		err  error
	)

	switch method {
	case "GET":
		resp, err = req.Get(path)
	case "POST":
		resp, err = req.Post(path)
	case "PATCH":
		resp, err = req.Patch(path)
	default:
		client.ReleaseRequest(req)

		return fmt.Errorf("unsupported method %s", method)
	}

	if err != nil {
		client.ReleaseRequest(req)
		c.logger.ErrorContext(ctx, "Backend request failed", "method", method, "path", path, "error", err)

		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	body := bytes.Clone(resp.Body())
	resp.Close()

	if status < 200 || status >= 300 {
		apiErr := newAPIError(status, body)
		c.logger.WarnContext(ctx, "Backend returned error", "method", method, "path", path, "status", status, "detail", apiErr.Detail)

		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		if out != nil {
			return fmt.Errorf("%s %s: empty body: %w", method, path, ErrMalformedResponse)
		}

		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrMalformedResponse, err)
	}

	return nil
}
