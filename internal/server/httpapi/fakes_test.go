package httpapi

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/drivegate/internal/server/auth"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
	"github.com/dmitrijs2005/drivegate/internal/server/services"
)

type fakeUploads struct {
	upload   func(ctx context.Context, req services.UploadRequest, content io.Reader) (*models.FsObject, error)
	reupload func(ctx context.Context, req services.ReuploadRequest, content io.Reader) (*models.FsObject, error)
}

func (f *fakeUploads) UploadFile(ctx context.Context, req services.UploadRequest, content io.Reader) (*models.FsObject, error) {
	return f.upload(ctx, req, content)
}

func (f *fakeUploads) ReuploadFile(ctx context.Context, req services.ReuploadRequest, content io.Reader) (*models.FsObject, error) {
	return f.reupload(ctx, req, content)
}

type fakeDuplicates struct {
	fn func(ctx context.Context, req services.DuplicateRequest) (*models.FsObject, error)
}

func (f *fakeDuplicates) DuplicateFile(ctx context.Context, req services.DuplicateRequest) (*models.FsObject, error) {
	return f.fn(ctx, req)
}

type fakeArchives struct {
	prepare  func(ctx context.Context, owner, id string) (*models.FsObject, error)
	download func(ctx context.Context, owner, id string, w io.Writer) error
}

func (f *fakeArchives) PrepareFolderArchive(ctx context.Context, owner, id string) (*models.FsObject, error) {
	return f.prepare(ctx, owner, id)
}

func (f *fakeArchives) DownloadFolderArchive(ctx context.Context, owner, id string, w io.Writer) error {
	return f.download(ctx, owner, id, w)
}

type fakeShares struct {
	issue   func(subject, resource, permission string, ttl int) (string, error)
	inspect func(token string, now time.Time) (auth.Capability, error)
	redeem  func(ctx context.Context, token, recipient string, now time.Time) (*models.ShareResult, error)
	bulk    func(ctx context.Context, owner string, ids, recipients []string, permission string) ([]*models.ShareResult, error)
}

func (f *fakeShares) IssueShareCapability(subject, resource, permission string, ttl int) (string, error) {
	return f.issue(subject, resource, permission, ttl)
}

func (f *fakeShares) InspectShareCapability(token string, now time.Time) (auth.Capability, error) {
	return f.inspect(token, now)
}

func (f *fakeShares) RedeemShareCapability(ctx context.Context, token, recipient string, now time.Time) (*models.ShareResult, error) {
	return f.redeem(ctx, token, recipient, now)
}

func (f *fakeShares) ShareObjects(ctx context.Context, owner string, ids, recipients []string, permission string) ([]*models.ShareResult, error) {
	return f.bulk(ctx, owner, ids, recipients, permission)
}

type fakeFiles struct {
	download       func(ctx context.Context, owner, id string) (*models.FsObject, io.ReadCloser, error)
	delete         func(ctx context.Context, owner, id string) (*models.FsObject, error)
	deleteFolder   func(ctx context.Context, owner, id string) (*models.FsObject, error)
	deleteShortcut func(ctx context.Context, owner, id string) (*models.FsObject, error)
	deleteMany     func(ctx context.Context, owner string, ids []string) ([]*models.FsObject, error)
}

func (f *fakeFiles) DownloadFile(ctx context.Context, owner, id string) (*models.FsObject, io.ReadCloser, error) {
	return f.download(ctx, owner, id)
}

func (f *fakeFiles) DeleteFilePermanent(ctx context.Context, owner, id string) (*models.FsObject, error) {
	return f.delete(ctx, owner, id)
}

func (f *fakeFiles) DeleteFolderPermanent(ctx context.Context, owner, id string) (*models.FsObject, error) {
	return f.deleteFolder(ctx, owner, id)
}

func (f *fakeFiles) DeleteShortcutPermanent(ctx context.Context, owner, id string) (*models.FsObject, error) {
	return f.deleteShortcut(ctx, owner, id)
}

func (f *fakeFiles) DeleteFilesPermanent(ctx context.Context, owner string, ids []string) ([]*models.FsObject, error) {
	return f.deleteMany(ctx, owner, ids)
}

type fakeUsers struct {
	get    func(ctx context.Context, id string) (*models.User, error)
	search func(ctx context.Context, q string) ([]models.User, error)
}

func (f *fakeUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	return f.get(ctx, id)
}

func (f *fakeUsers) SearchUsers(ctx context.Context, q string) ([]models.User, error) {
	return f.search(ctx, q)
}

// --- helpers ---

const testUser = "u1"

func newTestHandler(deps Deps) http.Handler {
	return NewHandler(deps, Options{UserHeader: "X-User-Id", MaxFileSize: 1 << 20}, nil)
}

func do(h http.Handler, method, target string, body io.Reader, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("X-User-Id", testUser)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

type formPart struct {
	name, value string
	file        bool
}

func multipartBody(t *testing.T, parts ...formPart) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		var w io.Writer
		var err error
		if p.file {
			w, err = mw.CreateFormFile(p.name, "upload.bin")
		} else {
			w, err = mw.CreateFormField(p.name)
		}
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := io.WriteString(w, p.value); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}
