package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/logging"
	"github.com/dmitrijs2005/drivegate/internal/server/clients/objectstore"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
	"github.com/dmitrijs2005/drivegate/internal/server/saga"
)

type DuplicateRequest struct {
	Owner    string
	SourceID string
	// Name defaults to the source name.
	Name     string
	ParentID *string
}

// DuplicateService copies a file: a new private record, then a store side
// copy of the bytes.
type DuplicateService struct {
	dir        Directory
	store      objectstore.Store
	sagaOpts   saga.Options
	clientName string
}

func NewDuplicateService(dir Directory, store objectstore.Store, sagaOpts saga.Options, clientName string) *DuplicateService {
	if sagaOpts.Logger == nil {
		sagaOpts.Logger = logging.NewNopLogger()
	}
	return &DuplicateService{dir: dir, store: store, sagaOpts: sagaOpts, clientName: clientName}
}

// DuplicateFile returns the new record. If the copy fails the new record is
// deleted again.
func (s *DuplicateService) DuplicateFile(ctx context.Context, req DuplicateRequest) (*models.FsObject, error) {
	src, err := s.dir.GetObject(ctx, req.Owner, req.SourceID)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", req.SourceID, err)
	}
	if !src.IsFile() {
		return nil, common.Validationf("%s is a %s, only files can be duplicated", src.ID, src.Type)
	}

	name := req.Name
	if name == "" {
		name = src.Name
	}

	sg := saga.New(models.OperationDuplicate, req.Owner, src.Size, s.sagaOpts)

	var rec *models.FsObject
	err = sg.Try(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.dir.CreateFile(ctx, req.Owner, models.NewFile{
			Name:     name,
			ParentID: req.ParentID,
			Size:     src.Size,
			Bucket:   req.Owner,
			Public:   false,
			Client:   s.clientName,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create copy record: %w", err)
	}
	sg.Bind(rec)

	sg.Advance(ctx, saga.PhaseStreaming)
	err = sg.Try(ctx, func(ctx context.Context) error {
		return s.store.CopyObject(ctx, bucketOf(src, req.Owner), src.ID, bucketOf(rec, req.Owner), rec.ID)
	}, saga.Step{
		Kind:     models.OrphanDirectoryRecord,
		ObjectID: rec.ID,
		Run: func(ctx context.Context) error {
			return s.dir.DeleteFile(ctx, req.Owner, rec.ID)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("copy %s to %s: %w", src.ID, rec.ID, err)
	}

	sg.Done(ctx)
	return rec, nil
}
