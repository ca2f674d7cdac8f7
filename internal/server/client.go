package server

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

	"github.com/illarion/microkv/pkg/microkv"
)

// Client talks to a Server. Error responses are mapped back to the engine's
// sentinel errors where one exists.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the server at addr ("host:port" or a URL).
func NewClient(addr string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// RemoteError is an error response from the server.
type RemoteError struct {
	Status    int
	Kind      string
	Message   string
	RequestID string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server: %s (status %d, request %s)", e.Message, e.Status, e.RequestID)
}

func (e *RemoteError) Unwrap() error {
	switch e.Kind {
	case "not_found":
		return microkv.ErrNotFound
	case "serialization":
		return microkv.ErrSerialization
	case "not_committed":
		return microkv.ErrNotCommitted
	case "authentication":
		return microkv.ErrAuthentication
	case "corrupt_store":
		return microkv.ErrCorruptStore
	case "io":
		return microkv.ErrIO
	case "closed":
		return microkv.ErrClosed
	}
	return nil
}

// Namespaces lists namespace names; the default namespace is "".
func (c *Client) Namespaces(ctx context.Context) ([]string, error) {
	var resp namespacesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/namespaces", nil, &resp); err != nil {
		return nil, err
	}
	for i, name := range resp.Namespaces {
		resp.Namespaces[i] = NamespaceFromPath(name)
	}
	return resp.Namespaces, nil
}

// Keys lists the keys of namespace ns.
func (c *Client) Keys(ctx context.Context, ns string, sorted bool) ([]string, error) {
	path := "/v1/ns/" + url.PathEscape(NamespaceToPath(ns)) + "/keys"
	if sorted {
		path += "?sorted=true"
	}
	var resp keysResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

// Get returns the raw JSON value stored at key.
func (c *Client) Get(ctx context.Context, ns, key string) (json.RawMessage, error) {
	var value json.RawMessage
	if err := c.do(ctx, http.MethodGet, kvPath(ns, key), nil, &value); err != nil {
		return nil, err
	}
	return value, nil
}

// Put stores value, which must be valid JSON.
func (c *Client) Put(ctx context.Context, ns, key string, value json.RawMessage) error {
	return c.do(ctx, http.MethodPut, kvPath(ns, key), value, nil)
}

// Delete removes key and reports whether it existed.
func (c *Client) Delete(ctx context.Context, ns, key string) (bool, error) {
	var resp deleteResponse
	if err := c.do(ctx, http.MethodDelete, kvPath(ns, key), nil, &resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

// Clear removes every key of namespace ns.
func (c *Client) Clear(ctx context.Context, ns string) error {
	return c.do(ctx, http.MethodDelete, "/v1/ns/"+url.PathEscape(NamespaceToPath(ns)), nil, nil)
}

// Commit asks the server to save its store.
func (c *Client) Commit(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/commit", nil, nil)
}

func kvPath(ns, key string) string {
	return "/v1/ns/" + url.PathEscape(NamespaceToPath(ns)) + "/kv/" + url.PathEscape(key)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
			return &RemoteError{Status: resp.StatusCode, Kind: "internal", Message: resp.Status}
		}
		return &RemoteError{Status: resp.StatusCode, Kind: e.Error, Message: e.Message, RequestID: e.RequestID}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
