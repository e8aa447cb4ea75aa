// Package directory is the typed client of the object directory, the
// service of record for file, folder and shortcut metadata.
package directory

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/drivegate/internal/server/clients/httpx"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
)

// Client calls the object directory. Every call is bounded by the httpx
// client timeout.
type Client struct {
	http *httpx.Client
}

func NewClient(c *httpx.Client) *Client {
	return &Client{http: c}
}

// CreateFile creates a file record under owner.
func (c *Client) CreateFile(ctx context.Context, owner string, f models.NewFile) (*models.FsObject, error) {
	var out models.FsObject
	if err := c.http.DoJSON(ctx, http.MethodPost, nil, f, &out, "users", owner, "fs", "file"); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchFile updates the given fields of a file record.
func (c *Client) PatchFile(ctx context.Context, owner, id string, patch models.FilePatch) (*models.FsObject, error) {
	var out models.FsObject
	if err := c.http.DoJSON(ctx, http.MethodPatch, nil, patch, &out, "users", owner, "fs", "file", id); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFile removes a file record. Sagas use it as compensation.
func (c *Client) DeleteFile(ctx context.Context, owner, id string) error {
	return c.http.DoJSON(ctx, http.MethodDelete, nil, nil, nil, "users", owner, "fs", "file", id)
}

// GetObject reads one node.
func (c *Client) GetObject(ctx context.Context, owner, id string) (*models.FsObject, error) {
	var out models.FsObject
	if err := c.http.DoJSON(ctx, http.MethodGet, nil, nil, &out, "users", owner, "fs", id); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListChildren returns the immediate children of a folder.
func (c *Client) ListChildren(ctx context.Context, owner, folderID string) ([]models.FsObject, error) {
	var out []models.FsObject
	if err := c.http.DoJSON(ctx, http.MethodGet, nil, nil, &out, "users", owner, "fs", "folder", folderID, "children"); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDescendants returns the whole subtree below a folder, flattened and in
// no particular order.
func (c *Client) ListDescendants(ctx context.Context, owner, folderID string) ([]models.FsObject, error) {
	var out []models.FsObject
	if err := c.http.DoJSON(ctx, http.MethodGet, nil, nil, &out, "users", owner, "fs", "folder", folderID, "descendants"); err != nil {
		return nil, err
	}
	return out, nil
}

type shareRequest struct {
	SharedUserID     string `json:"sharedUserId"`
	SharedPermission string `json:"sharedPermission"`
}

// Share grants recipient permission on one of owner's nodes.
func (c *Client) Share(ctx context.Context, owner, id, recipient, permission string) (*models.ShareResult, error) {
	var out models.ShareResult
	body := shareRequest{SharedUserID: recipient, SharedPermission: permission}
	if err := c.http.DoJSON(ctx, http.MethodPost, nil, body, &out, "users", owner, "fs", id, "share"); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePermanent removes a trashed node of the given type (file, folder or
// shortcut) for good and returns its record.
func (c *Client) DeletePermanent(ctx context.Context, owner, nodeType, id string) (*models.FsObject, error) {
	var out models.FsObject
	if err := c.http.DoJSON(ctx, http.MethodDelete, nil, nil, &out, "users", owner, "fs", nodeType, id, "trash"); err != nil {
		return nil, err
	}
	return &out, nil
}
