// Package client is the remote call boundary: it invokes the tasks.* procedures
// over HTTP and listens for revalidation pushes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tasklist/internal/apperr"
	"tasklist/internal/models"
)

const rpcPrefix = "/rpc/"

// Client calls a tasklist server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL. hc may be nil.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// List fetches the authoritative list.
func (c *Client) List(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.call(ctx, http.MethodGet, "tasks.list", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Create calls tasks.create.
func (c *Client) Create(ctx context.Context, in models.CreateTaskInput) error {
	return c.call(ctx, http.MethodPost, "tasks.create", in, nil)
}

// Update calls tasks.update. The pending marker never leaves the client.
func (c *Client) Update(ctx context.Context, in models.UpdateTaskInput) error {
	return c.call(ctx, http.MethodPost, "tasks.update", in.Stripped(), nil)
}

// Delete calls tasks.delete.
func (c *Client) Delete(ctx context.Context, in models.DeleteTaskInput) error {
	return c.call(ctx, http.MethodPost, "tasks.delete", in, nil)
}

func (c *Client) call(ctx context.Context, method, proc string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &apperr.TransportError{Op: proc, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+rpcPrefix+proc, body)
	if err != nil {
		return &apperr.TransportError{Op: proc, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &apperr.TransportError{Op: proc, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var env apperr.Envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || env.Error.Code == "" {
			return &apperr.TransportError{Op: proc, Status: resp.StatusCode, Err: fmt.Errorf("unexpected response %s", resp.Status)}
		}
		return apperr.FromWire(proc, resp.StatusCode, env.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.TransportError{Op: proc, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
