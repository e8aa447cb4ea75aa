package services

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/logging"
	"github.com/dmitrijs2005/drivegate/internal/server/clients/httpx"
	"github.com/dmitrijs2005/drivegate/internal/server/clients/objectstore"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
	"github.com/dmitrijs2005/drivegate/internal/server/saga"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// FileService serves single file downloads and permanent deletes.
type FileService struct {
	dir         Directory
	store       objectstore.Store
	recorder    saga.Recorder
	concurrency int
	log         logging.Logger
}

// NewFileService builds the service. concurrency bounds the content deletes
// and directory calls of bulk operations; zero means DefaultBulkConcurrency.
func NewFileService(dir Directory, store objectstore.Store, recorder saga.Recorder, concurrency int, log logging.Logger) *FileService {
	if concurrency <= 0 {
		concurrency = DefaultBulkConcurrency
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &FileService{dir: dir, store: store, recorder: recorder, concurrency: concurrency, log: log.With("service", "files")}
}

// DownloadFile returns the record and an open content stream. The caller
// closes the stream.
func (s *FileService) DownloadFile(ctx context.Context, owner, id string) (*models.FsObject, io.ReadCloser, error) {
	rec, err := s.dir.GetObject(ctx, owner, id)
	if err != nil {
		return nil, nil, fmt.Errorf("read file %s: %w", id, err)
	}
	if !rec.IsFile() {
		return nil, nil, common.Validationf("%s is a %s, not a file", rec.ID, rec.Type)
	}

	rc, err := s.store.GetObject(ctx, bucketOf(rec, owner), rec.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("open content of %s: %w", id, err)
	}
	return rec, rc, nil
}

// DeleteFilePermanent removes the record for good, then its content. A
// failed content delete does not fail the call; it is logged and recorded
// as an orphan.
func (s *FileService) DeleteFilePermanent(ctx context.Context, owner, id string) (*models.FsObject, error) {
	rec, err := s.dir.DeletePermanent(ctx, owner, models.TypeFile, id)
	if err != nil {
		return nil, fmt.Errorf("delete file %s: %w", id, err)
	}
	if !rec.IsFile() && rec.Type != "" {
		return rec, nil
	}

	s.deleteContent(ctx, owner, rec)
	return rec, nil
}

// DeleteFolderPermanent removes a trashed folder for good, then the content
// of every file below it. The subtree is listed before the folder is
// deleted; a failed listing leaves everything in place.
func (s *FileService) DeleteFolderPermanent(ctx context.Context, owner, id string) (*models.FsObject, error) {
	nodes, err := s.dir.ListDescendants(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("list descendants of %s: %w", id, err)
	}

	rec, err := s.dir.DeletePermanent(ctx, owner, models.TypeFolder, id)
	if err != nil {
		return nil, fmt.Errorf("delete folder %s: %w", id, err)
	}

	files := make([]*models.FsObject, 0, len(nodes))
	for i := range nodes {
		if nodes[i].IsFile() {
			files = append(files, &nodes[i])
		}
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, f := range files {
		g.Go(func() error {
			s.deleteContent(ctx, owner, f)
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info(ctx, "folder deleted permanently", "id", id, "files", len(files))
	return rec, nil
}

// DeleteShortcutPermanent removes a trashed shortcut. Shortcuts have no
// content of their own.
func (s *FileService) DeleteShortcutPermanent(ctx context.Context, owner, id string) (*models.FsObject, error) {
	rec, err := s.dir.DeletePermanent(ctx, owner, models.TypeShortcut, id)
	if err != nil {
		return nil, fmt.Errorf("delete shortcut %s: %w", id, err)
	}
	return rec, nil
}

// DeleteFilesPermanent deletes every file in ids as DeleteFilePermanent
// does, with bounded concurrency. Records come back in the order of ids.
// The first failure stops files not yet started; files already deleted
// stay deleted.
func (s *FileService) DeleteFilesPermanent(ctx context.Context, owner string, ids []string) ([]*models.FsObject, error) {
	if len(ids) == 0 {
		return nil, common.Validationf("no file ids given")
	}

	out := make([]*models.FsObject, len(ids))
	err := fanOut(ctx, len(ids), s.concurrency, func(ctx context.Context, i int) error {
		rec, err := s.DeleteFilePermanent(ctx, owner, ids[i])
		if err != nil {
			return err
		}
		out[i] = rec
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "bulk permanent delete stopped", "count", len(ids), "error", err)
		return nil, err
	}
	return out, nil
}

// deleteContent removes the stored object of a deleted record. The record is
// already gone, so the delete is not cut short by ctx cancellation. A
// missing object is not an orphan.
func (s *FileService) deleteContent(ctx context.Context, owner string, rec *models.FsObject) {
	bucket := bucketOf(rec, owner)
	err := s.store.DeleteObject(context.WithoutCancel(ctx), bucket, rec.ID)
	switch {
	case err == nil:
	case httpx.IsNotFound(err):
		s.log.Debug(ctx, "file content already gone", "id", rec.ID, "bucket", bucket)
	default:
		s.log.Error(ctx, "failed to delete file content", "id", rec.ID, "bucket", bucket, "error", err)
		s.recordOrphan(ctx, owner, bucket, rec.ID, err)
	}
}

func (s *FileService) recordOrphan(ctx context.Context, owner, bucket, id string, cause error) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.Record(context.WithoutCancel(ctx), &models.Orphan{
		ID:        uuid.NewString(),
		Kind:      models.OrphanStoredObject,
		Owner:     owner,
		Bucket:    bucket,
		ObjectID:  id,
		Operation: models.OperationDelete,
		Reason:    cause.Error(),
		CreatedAt: timeNow().UTC(),
	})
	if err != nil {
		s.log.Error(ctx, "failed to record orphan", "id", id, "error", err)
	}
}
