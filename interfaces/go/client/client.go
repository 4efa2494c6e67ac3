package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is a minimal consumer of the videobridge ops API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client { return &Client{BaseURL: baseURL, HTTP: http.DefaultClient} }

type Session struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	Pending   int       `json:"pending"`
}

func (c *Client) ListSessions() ([]Session, int, error) {
	req, _ := http.NewRequest("GET", fmt.Sprintf("%s/api/sessions", c.BaseURL), nil)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	var out struct {
		Items []Session `json:"items"`
		Total int       `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, err
	}
	return out.Items, out.Total, nil
}
