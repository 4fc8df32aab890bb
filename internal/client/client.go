package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"campaign_feed/internal/api"
	"campaign_feed/internal/domain"
	sqlitestore "campaign_feed/internal/store/sqlite"
)

// Client talks to a running feedsim server.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// StreamURL is the websocket address of the live event stream.
func (c *Client) StreamURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func (c *Client) WaitHealth(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var out map[string]any
		if err := c.getJSON("/healthz", &out); err == nil {
			return nil
		}
		time.Sleep(400 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for /healthz")
}

func (c *Client) Status() (api.StatusResponse, error) {
	var out api.StatusResponse
	err := c.getJSON("/status", &out)
	return out, err
}

func (c *Client) Feed(limit int) ([]domain.Post, error) {
	var out []domain.Post
	if err := c.getJSON(fmt.Sprintf("/feed?limit=%d", limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Personas() ([]domain.Persona, error) {
	var out []domain.Persona
	if err := c.getJSON("/personas", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) News(limit int) ([]domain.NewsItem, error) {
	var out []domain.NewsItem
	if err := c.getJSON(fmt.Sprintf("/news?limit=%d", limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Generations(limit int) ([]domain.GenerationRecord, error) {
	var out []domain.GenerationRecord
	if err := c.getJSON(fmt.Sprintf("/generations?limit=%d", limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GenerationStats() ([]sqlitestore.GenerationStats, error) {
	var out []sqlitestore.GenerationStats
	if err := c.getJSON("/generations/stats", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Post(content string, tags []string) (domain.Post, error) {
	var out domain.Post
	err := c.postJSON("/posts", api.PostRequest{Content: content, IssueTags: tags}, &out)
	return out, err
}

func (c *Client) NewSession(req api.SessionRequest) error {
	return c.postJSON("/session", req, nil)
}

func (c *Client) Reset() error {
	return c.postJSON("/reset", nil, nil)
}

func (c *Client) Pause() error {
	return c.postJSON("/pause", nil, nil)
}

func (c *Client) Resume() error {
	return c.postJSON("/resume", nil, nil)
}

// Snapshot asks the server to persist the running session now and returns
// the saved tick.
func (c *Client) Snapshot() (int, error) {
	var out struct {
		Tick int `json:"tick"`
	}
	err := c.postJSON("/snapshot", nil, &out)
	return out.Tick, err
}

func (c *Client) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return err
	}
	return nil
}

func (c *Client) postJSON(path string, in any, out any) error {
	var payload io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return err
	}
	return nil
}
