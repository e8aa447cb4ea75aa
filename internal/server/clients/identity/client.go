// Package identity is a pass-through client of the identity directory.
package identity

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/drivegate/internal/server/clients/httpx"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
)

type Client struct {
	http *httpx.Client
}

func NewClient(c *httpx.Client) *Client {
	return &Client{http: c}
}

var expanded = url.Values{"expanded": {"true"}}

// GetUser reads one user by id.
func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var out models.User
	if err := c.http.DoJSON(ctx, http.MethodGet, expanded, nil, &out, "api", "entities", id); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchUsers looks users up by (partial) full name.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	q := url.Values{"fullName": {query}, "expanded": {"true"}}
	var out []models.User
	if err := c.http.DoJSON(ctx, http.MethodGet, q, nil, &out, "api", "entities", "search"); err != nil {
		return nil, err
	}
	return out, nil
}
