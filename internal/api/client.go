package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/DoyleJ11/bombastic-viewer/pkg/wire"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to the game server's REST surface.
type Client struct {
	base *url.URL
	http *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q needs scheme and host", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: u, http: httpClient}, nil
}

func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// CreatePlayer joins the match. The server is not assumed to be idempotent.
func (c *Client) CreatePlayer(ctx context.Context, name string) (wire.PlayerStatus, error) {
	var out wire.PlayerStatus
	err := c.do(ctx, http.MethodPost, "/player", wire.CreatePlayer{Name: name}, &out)
	if err != nil {
		return wire.PlayerStatus{}, fmt.Errorf("create player: %w", err)
	}
	if out.UID == "" {
		return wire.PlayerStatus{}, errors.New("create player: server returned no uid")
	}
	return out, nil
}

// ReadGlobalState returns the full board as a raw frame string.
func (c *Client) ReadGlobalState(ctx context.Context) (string, error) {
	var raw string
	if err := c.do(ctx, http.MethodGet, "/game", nil, &raw); err != nil {
		return "", fmt.Errorf("read global state: %w", err)
	}
	return raw, nil
}

func (c *Client) ReadPlayerState(ctx context.Context, uid string) (wire.PlayerStatus, error) {
	var out wire.PlayerStatus
	if err := c.do(ctx, http.MethodGet, "/player/"+url.PathEscape(uid), nil, &out); err != nil {
		return wire.PlayerStatus{}, fmt.Errorf("read player state: %w", err)
	}
	return out, nil
}

// SendAction is fire-and-forget: the response body is discarded.
func (c *Client) SendAction(ctx context.Context, uid string, action string) error {
	if err := c.do(ctx, http.MethodPut, "/player/"+url.PathEscape(uid), wire.Action{Action: action}, nil); err != nil {
		return fmt.Errorf("send action %s: %w", action, err)
	}
	return nil
}

func (c *Client) DeletePlayer(ctx context.Context, uid string) error {
	if err := c.do(ctx, http.MethodDelete, "/player/"+url.PathEscape(uid), nil, nil); err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
