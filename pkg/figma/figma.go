// Package figma is a small client for the parts of the Figma REST API used to
// validate, publish and unpublish Code Connect documents.
package figma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gnana997/codeconnect/pkg/connect"
)

// DefaultBaseURL is the REST API root.
const DefaultBaseURL = "https://api.figma.com/v1"

// Node types that can be connected.
const (
	TypeComponent    = "COMPONENT"
	TypeComponentSet = "COMPONENT_SET"
)

// Component property types.
const (
	PropertyBoolean      = "BOOLEAN"
	PropertyInstanceSwap = "INSTANCE_SWAP"
	PropertyText         = "TEXT"
	PropertyVariant      = "VARIANT"
)

// Layer is a node of a Figma document tree.
type Layer struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Children []*Layer `json:"children,omitempty"`
	// ComponentPropertyDefinitions is keyed by property name. Names of
	// non-variant properties carry a "#id" suffix.
	ComponentPropertyDefinitions map[string]PropertyDefinition `json:"componentPropertyDefinitions,omitempty"`
}

// IsComponent reports whether the layer is a component or component set.
func (l *Layer) IsComponent() bool {
	return l.Type == TypeComponent || l.Type == TypeComponentSet
}

// LayerNames returns the names of l and all its descendants, depth first.
func (l *Layer) LayerNames() []string {
	var names []string
	var walk func(*Layer)
	walk = func(n *Layer) {
		if n.Name != "" {
			names = append(names, n.Name)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(l)
	return names
}

// PropertyDefinition describes one component property.
type PropertyDefinition struct {
	Type           string   `json:"type"`
	DefaultValue   any      `json:"defaultValue,omitempty"`
	VariantOptions []string `json:"variantOptions,omitempty"`
}

// ComponentInfo is the entry of the `components` map of a nodes response.
type ComponentInfo struct {
	Key            string `json:"key"`
	Name           string `json:"name"`
	ComponentSetID string `json:"componentSetId,omitempty"`
}

// Node is one entry of a nodes response.
type Node struct {
	Document   *Layer                   `json:"document"`
	Components map[string]ComponentInfo `json:"components"`
}

// Client fetches nodes from a Figma file. A missing node maps to nil.
type Client interface {
	Nodes(ctx context.Context, fileKey string, ids []string) (map[string]*Node, error)
}

// DeletedNode names the published documents of one node and label.
type DeletedNode struct {
	FigmaNode string `json:"figmaNode"`
	Label     string `json:"label"`
}

// Publisher writes to the Code Connect endpoint of the REST API.
type Publisher interface {
	// Upload posts a JSON array of documents.
	Upload(ctx context.Context, docs []byte) error
	// Delete removes the documents published for each node and label.
	Delete(ctx context.Context, nodes []DeletedNode) error
}

// HTTPClient implements Client and Publisher over the REST API.
type HTTPClient struct {
	token   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *HTTPClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.client = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

// NewHTTPClient returns a client authenticating with a personal access
// token.
func NewHTTPClient(token string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		token:   token,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type nodesResponse struct {
	Nodes   map[string]*Node `json:"nodes"`
	Message string           `json:"message,omitempty"`
	Err     string           `json:"err,omitempty"`
}

// Nodes implements Client.
func (c *HTTPClient) Nodes(ctx context.Context, fileKey string, ids []string) (map[string]*Node, error) {
	endpoint := fmt.Sprintf("%s/files/%s/nodes?ids=%s", c.baseURL, url.PathEscape(fileKey), strings.Join(ids, ","))
	c.logger.Debug("fetching nodes", "file", fileKey, "count", len(ids))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch node info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var out nodesResponse
	decodeErr := json.Unmarshal(body, &out)
	if resp.StatusCode != http.StatusOK {
		detail := out.Err
		if detail == "" {
			detail = out.Message
		}
		return nil, fmt.Errorf("failed to fetch node info (%d): %s", resp.StatusCode, detail)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("parsing response: %w", decodeErr)
	}

	c.logger.Debug("fetched nodes", "file", fileKey, "ms", time.Since(start).Milliseconds())
	if out.Nodes == nil {
		out.Nodes = map[string]*Node{}
	}
	return out.Nodes, nil
}

// Upload implements Publisher.
func (c *HTTPClient) Upload(ctx context.Context, docs []byte) error {
	return c.codeConnect(ctx, http.MethodPost, docs, "upload to Figma")
}

// Delete implements Publisher.
func (c *HTTPClient) Delete(ctx context.Context, nodes []DeletedNode) error {
	if nodes == nil {
		nodes = []DeletedNode{}
	}
	body, err := json.Marshal(map[string][]DeletedNode{"nodes_to_delete": nodes})
	if err != nil {
		return fmt.Errorf("encoding nodes: %w", err)
	}
	return c.codeConnect(ctx, http.MethodDelete, body, "delete from Figma")
}

type errorResponse struct {
	Message string `json:"message,omitempty"`
	Err     string `json:"err,omitempty"`
}

func (c *HTTPClient) codeConnect(ctx context.Context, method string, body []byte, action string) error {
	endpoint := c.baseURL + "/code_connect"
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var out errorResponse
		_ = json.Unmarshal(data, &out)
		detail := out.Err
		if detail == "" {
			detail = out.Message
		}
		c.logger.Debug("code_connect request failed", "method", method, "body", string(data))
		return fmt.Errorf("failed to %s (%d): %s", action, resp.StatusCode, detail)
	}

	c.logger.Debug("code_connect request done", "method", method, "bytes", len(body), "ms", time.Since(start).Milliseconds())
	return nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("X-Figma-Token", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "code-connect-cli/"+connect.Version)
}
