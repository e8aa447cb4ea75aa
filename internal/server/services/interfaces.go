// Package services holds the cross-service operations of the gateway: the
// upload, re-upload and duplicate sagas, the folder archive streamer, share
// capabilities and the file download and delete flows.
package services

import (
	"context"

	"github.com/dmitrijs2005/drivegate/internal/server/models"
)

// Directory is the part of the object directory the services call.
type Directory interface {
	CreateFile(ctx context.Context, owner string, f models.NewFile) (*models.FsObject, error)
	PatchFile(ctx context.Context, owner, id string, patch models.FilePatch) (*models.FsObject, error)
	DeleteFile(ctx context.Context, owner, id string) error
	GetObject(ctx context.Context, owner, id string) (*models.FsObject, error)
	ListChildren(ctx context.Context, owner, folderID string) ([]models.FsObject, error)
	ListDescendants(ctx context.Context, owner, folderID string) ([]models.FsObject, error)
	Share(ctx context.Context, owner, id, recipient, permission string) (*models.ShareResult, error)
	DeletePermanent(ctx context.Context, owner, nodeType, id string) (*models.FsObject, error)
}

// bucketOf returns where a record's content lives. Records written by the
// gateway use the owner as bucket.
func bucketOf(rec *models.FsObject, owner string) string {
	if rec.Bucket != "" {
		return rec.Bucket
	}
	return owner
}
