package services

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/logging"
	"github.com/dmitrijs2005/drivegate/internal/server/clients/objectstore"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
	"github.com/dmitrijs2005/drivegate/internal/server/saga"
)

type UploadRequest struct {
	Owner    string
	Name     string
	ParentID *string
	// Size is the size the caller announced. The stored object must match it.
	Size   int64
	Public bool
}

type ReuploadRequest struct {
	Owner  string
	FileID string
	Size   int64
}

// UploadService runs the upload and re-upload sagas. Only one upload per
// target id may be in flight; callers serialize, nothing here locks.
type UploadService struct {
	dir        Directory
	store      objectstore.Store
	sagaOpts   saga.Options
	clientName string
	log        logging.Logger
}

func NewUploadService(dir Directory, store objectstore.Store, sagaOpts saga.Options, clientName string) *UploadService {
	if sagaOpts.Logger == nil {
		sagaOpts.Logger = logging.NewNopLogger()
	}
	return &UploadService{
		dir:        dir,
		store:      store,
		sagaOpts:   sagaOpts,
		clientName: clientName,
		log:        sagaOpts.Logger.With("service", "upload"),
	}
}

// UploadFile creates the directory record, streams content to the store and
// checks the stored size. Any failure after the record exists removes it
// again; a size mismatch also removes the stored object.
func (s *UploadService) UploadFile(ctx context.Context, req UploadRequest, content io.Reader) (*models.FsObject, error) {
	if req.Name == "" {
		return nil, common.Validationf("file name is required")
	}
	if req.Size < 0 {
		return nil, common.Validationf("size must not be negative, got %d", req.Size)
	}

	sg := saga.New(models.OperationUpload, req.Owner, req.Size, s.sagaOpts)

	var rec *models.FsObject
	err := sg.Try(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.dir.CreateFile(ctx, req.Owner, models.NewFile{
			Name:     req.Name,
			ParentID: req.ParentID,
			Size:     req.Size,
			Bucket:   req.Owner,
			Public:   req.Public,
			Client:   s.clientName,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create file record: %w", err)
	}
	sg.Bind(rec)
	bucket := bucketOf(rec, req.Owner)

	sg.Advance(ctx, saga.PhaseStreaming)
	var res objectstore.PutResult
	err = sg.Try(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.store.PutObject(ctx, bucket, rec.ID, content, req.Size)
		return err
	}, s.deleteRecord(req.Owner, rec.ID))
	if err != nil {
		return nil, fmt.Errorf("upload content of %s: %w", rec.ID, err)
	}

	sg.Advance(ctx, saga.PhaseVerified)
	if res.StoredSize != sg.ExpectedSize {
		mismatch := &common.SizeMismatchError{Expected: sg.ExpectedSize, Actual: res.StoredSize}
		sg.Compensate(ctx, mismatch, s.deleteRecord(req.Owner, rec.ID), s.deleteObject(bucket, rec.ID))
		return nil, mismatch
	}

	sg.Done(ctx)
	s.log.Info(ctx, "file uploaded", "id", rec.ID, "size", res.StoredSize)
	return rec, nil
}

// ReuploadFile replaces the content of an existing file. The old object may
// already be gone once streaming starts, so nothing is deleted afterwards: a
// failed stream leaves the record and any partial object in place, and a size
// mismatch is only logged.
func (s *UploadService) ReuploadFile(ctx context.Context, req ReuploadRequest, content io.Reader) (*models.FsObject, error) {
	if req.FileID == "" {
		return nil, common.Validationf("file id is required")
	}
	if req.Size < 0 {
		return nil, common.Validationf("size must not be negative, got %d", req.Size)
	}

	sg := saga.New(models.OperationReupload, req.Owner, req.Size, s.sagaOpts)

	var rec *models.FsObject
	err := sg.Try(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.dir.PatchFile(ctx, req.Owner, req.FileID, models.FilePatch{Size: &req.Size})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update file record: %w", err)
	}
	sg.Bind(rec)
	bucket := bucketOf(rec, req.Owner)

	sg.Advance(ctx, saga.PhaseStreaming)
	res, err := s.store.PutObject(ctx, bucket, rec.ID, content, req.Size)
	if err != nil {
		s.log.Error(ctx, "re-upload stream failed, record and partial object left in place",
			"id", rec.ID, "bucket", bucket, "error", err)
		sg.Fail(ctx, err)
		return nil, fmt.Errorf("upload content of %s: %w", rec.ID, err)
	}

	sg.Advance(ctx, saga.PhaseVerified)
	if res.StoredSize != sg.ExpectedSize {
		s.log.Warn(ctx, "re-upload size mismatch",
			"id", rec.ID, "expected", sg.ExpectedSize, "actual", res.StoredSize)
	}

	sg.Done(ctx)
	return rec, nil
}

func (s *UploadService) deleteRecord(owner, id string) saga.Step {
	return saga.Step{
		Kind:     models.OrphanDirectoryRecord,
		ObjectID: id,
		Run: func(ctx context.Context) error {
			return s.dir.DeleteFile(ctx, owner, id)
		},
	}
}

func (s *UploadService) deleteObject(bucket, key string) saga.Step {
	return saga.Step{
		Kind:     models.OrphanStoredObject,
		Bucket:   bucket,
		ObjectID: key,
		Run: func(ctx context.Context) error {
			return s.store.DeleteObject(ctx, bucket, key)
		},
	}
}
