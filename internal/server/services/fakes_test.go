package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/server/clients/objectstore"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
	"github.com/dmitrijs2005/drivegate/internal/server/saga"
)

// --- directory fake ---

type shareCall struct {
	owner, id, recipient, permission string
}

type fakeDir struct {
	mu      sync.Mutex
	records map[string]*models.FsObject
	nextID  int

	createErr  error
	patchErr   error
	deleteErr  error
	getErr     error
	listErr    error
	shareErr   error
	delPermErr error
	// delPermErrs fails DeletePermanent for single ids.
	delPermErrs map[string]error
	// shareErrs fails Share for single recipients.
	shareErrs map[string]error

	created      []models.NewFile
	deleteCalls  []string
	shareCalls   []shareCall
	delPermCalls []string

	shareDelay       time.Duration
	shareInflight    int
	shareMaxInflight int

	children          map[string][]models.FsObject
	descendants       []models.FsObject
	listChildrenCalls int
}

func newFakeDir() *fakeDir {
	return &fakeDir{records: map[string]*models.FsObject{}, children: map[string][]models.FsObject{}}
}

func (f *fakeDir) add(o models.FsObject) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[o.ID] = &o
}

func (f *fakeDir) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[id]
	return ok
}

func (f *fakeDir) CreateFile(ctx context.Context, owner string, nf models.NewFile) (*models.FsObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, nf)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	rec := &models.FsObject{
		ID:       fmt.Sprintf("new-%d", f.nextID),
		Name:     nf.Name,
		ParentID: nf.ParentID,
		Type:     models.TypeFile,
		Bucket:   nf.Bucket,
		Size:     nf.Size,
		Public:   nf.Public,
		Client:   nf.Client,
	}
	f.records[rec.ID] = rec
	cp := *rec
	return &cp, nil
}

func (f *fakeDir) PatchFile(ctx context.Context, owner, id string, patch models.FilePatch) (*models.FsObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patchErr != nil {
		return nil, f.patchErr
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, &common.ServiceError{Code: "NOT_FOUND", Message: "no file " + id}
	}
	if patch.Size != nil {
		rec.Size = *patch.Size
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeDir) DeleteFile(ctx context.Context, owner, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.records, id)
	return nil
}

func (f *fakeDir) GetObject(ctx context.Context, owner, id string) (*models.FsObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, &common.ServiceError{Code: "NOT_FOUND", Message: "no object " + id}
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeDir) ListChildren(ctx context.Context, owner, folderID string) ([]models.FsObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listChildrenCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.children[folderID], nil
}

func (f *fakeDir) ListDescendants(ctx context.Context, owner, folderID string) ([]models.FsObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.descendants, nil
}

func (f *fakeDir) Share(ctx context.Context, owner, id, recipient, permission string) (*models.ShareResult, error) {
	f.mu.Lock()
	f.shareInflight++
	if f.shareInflight > f.shareMaxInflight {
		f.shareMaxInflight = f.shareInflight
	}
	delay := f.shareDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.shareInflight--
	f.shareCalls = append(f.shareCalls, shareCall{owner, id, recipient, permission})
	if f.shareErr != nil {
		return nil, f.shareErr
	}
	if err := f.shareErrs[recipient]; err != nil {
		return nil, err
	}
	return &models.ShareResult{FsObjectID: id, SharedUserID: recipient, SharedPermission: permission}, nil
}

func (f *fakeDir) DeletePermanent(ctx context.Context, owner, nodeType, id string) (*models.FsObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delPermCalls = append(f.delPermCalls, nodeType+"/"+id)
	if err := f.delPermErrs[id]; err != nil {
		return nil, err
	}
	if f.delPermErr != nil {
		return nil, f.delPermErr
	}
	rec, ok := f.records[id]
	if !ok || rec.Type != nodeType {
		return nil, &common.ServiceError{Code: "NOT_FOUND", Message: "no " + nodeType + " " + id}
	}
	delete(f.records, id)
	return rec, nil
}

// --- store fake ---

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	putErr error
	// shortBy makes PutObject report fewer bytes than it read.
	shortBy int64

	getErr   map[string]error
	getDelay time.Duration
	// blockKey makes GetObject of that key wait for cancellation.
	blockKey     string
	blockedSawCx chan error

	deleteErr   error
	deleteCalls []string
	copyErr     error
	copyCalls   [][4]string

	inflight    int
	maxInflight int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, getErr: map[string]error{}}
}

func (s *fakeStore) put(bucket, key string, b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = b
}

func (s *fakeStore) has(bucket, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[bucket+"/"+key]
	return ok
}

func (s *fakeStore) PutObject(ctx context.Context, bucket, key string, r io.Reader, sizeHint int64) (objectstore.PutResult, error) {
	if s.putErr != nil {
		return objectstore.PutResult{}, s.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return objectstore.PutResult{}, err
	}
	s.put(bucket, key, b)
	return objectstore.PutResult{StoredSize: int64(len(b)) - s.shortBy}, nil
}

type trackedBody struct {
	io.Reader
	s    *fakeStore
	once sync.Once
}

func (t *trackedBody) Close() error {
	t.once.Do(func() {
		t.s.mu.Lock()
		t.s.inflight--
		t.s.mu.Unlock()
	})
	return nil
}

func (s *fakeStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	err := s.getErr[key]
	b, ok := s.objects[bucket+"/"+key]
	s.inflight++
	if s.inflight > s.maxInflight {
		s.maxInflight = s.inflight
	}
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}

	if key == s.blockKey {
		<-ctx.Done()
		release()
		if s.blockedSawCx != nil {
			s.blockedSawCx <- ctx.Err()
		}
		return nil, ctx.Err()
	}

	if s.getDelay > 0 {
		select {
		case <-time.After(s.getDelay):
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}

	if err != nil {
		release()
		return nil, err
	}
	if !ok {
		release()
		return nil, &common.ServiceError{Code: "NOT_FOUND", Message: "no object " + key}
	}
	return &trackedBody{Reader: bytes.NewReader(b), s: s}, nil
}

func (s *fakeStore) DeleteObject(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls = append(s.deleteCalls, bucket+"/"+key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, bucket+"/"+key)
	return nil
}

func (s *fakeStore) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.copyCalls = append(s.copyCalls, [4]string{srcBucket, srcKey, dstBucket, dstKey})
	if s.copyErr != nil {
		return s.copyErr
	}
	s.objects[dstBucket+"/"+dstKey] = s.objects[srcBucket+"/"+srcKey]
	return nil
}

// --- orphan recorder fake ---

type fakeRecorder struct {
	mu      sync.Mutex
	orphans []*models.Orphan
}

func (r *fakeRecorder) Record(ctx context.Context, o *models.Orphan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orphans = append(r.orphans, o)
	return nil
}

var _ saga.Recorder = (*fakeRecorder)(nil)

func sagaOpts(rec saga.Recorder) saga.Options {
	return saga.Options{Recorder: rec, Timeout: time.Second}
}

func ptr[T any](v T) *T { return &v }
