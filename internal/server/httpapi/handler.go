// Package httpapi is the HTTP surface of the gateway. Identity comes from a
// header set by the upstream auth gateway; every handler is a thin shell
// around one service call.
package httpapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/drivegate/internal/logging"
	"github.com/dmitrijs2005/drivegate/internal/server/auth"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
	"github.com/dmitrijs2005/drivegate/internal/server/repositories/orphans"
	"github.com/dmitrijs2005/drivegate/internal/server/services"
)

type Uploads interface {
	UploadFile(ctx context.Context, req services.UploadRequest, content io.Reader) (*models.FsObject, error)
	ReuploadFile(ctx context.Context, req services.ReuploadRequest, content io.Reader) (*models.FsObject, error)
}

type Duplicates interface {
	DuplicateFile(ctx context.Context, req services.DuplicateRequest) (*models.FsObject, error)
}

type Archives interface {
	PrepareFolderArchive(ctx context.Context, owner, folderID string) (*models.FsObject, error)
	DownloadFolderArchive(ctx context.Context, owner, folderID string, w io.Writer) error
}

type Shares interface {
	IssueShareCapability(subjectID, resourceID, permission string, ttlSeconds int) (string, error)
	InspectShareCapability(token string, now time.Time) (auth.Capability, error)
	RedeemShareCapability(ctx context.Context, token, recipientID string, now time.Time) (*models.ShareResult, error)
	ShareObjects(ctx context.Context, owner string, ids, recipients []string, permission string) ([]*models.ShareResult, error)
}

type Files interface {
	DownloadFile(ctx context.Context, owner, id string) (*models.FsObject, io.ReadCloser, error)
	DeleteFilePermanent(ctx context.Context, owner, id string) (*models.FsObject, error)
	DeleteFolderPermanent(ctx context.Context, owner, id string) (*models.FsObject, error)
	DeleteShortcutPermanent(ctx context.Context, owner, id string) (*models.FsObject, error)
	DeleteFilesPermanent(ctx context.Context, owner string, ids []string) ([]*models.FsObject, error)
}

type Users interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
}

// Deps are the services the handlers call.
type Deps struct {
	Uploads    Uploads
	Duplicates Duplicates
	Archives   Archives
	Shares     Shares
	Files      Files
	Users      Users
	Orphans    orphans.Repository
}

// Options tune request handling.
type Options struct {
	// UserHeader carries the acting user id.
	UserHeader  string
	MaxFileSize int64
}

type Handler struct {
	deps        Deps
	userHeader  string
	maxFileSize int64
	log         logging.Logger
	now         func() time.Time
}

// NewHandler builds the routed handler, wrapped in request id and access
// log middleware.
func NewHandler(deps Deps, opts Options, log logging.Logger) http.Handler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	h := &Handler{
		deps:        deps,
		userHeader:  opts.UserHeader,
		maxFileSize: opts.MaxFileSize,
		log:         log.With("module", "http_api"),
		now:         time.Now,
	}
	return withRequestID(h.accessLog(h.routes()))
}

func (h *Handler) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/fs/file", h.requireUser(h.uploadFile))
	mux.HandleFunc("POST /api/fs/file/{id}/reupload", h.requireUser(h.reuploadFile))
	mux.HandleFunc("POST /api/fs/file/{id}/duplicate", h.requireUser(h.duplicateFile))
	mux.HandleFunc("GET /api/fs/file/{id}/download", h.requireUser(h.downloadFile))
	mux.HandleFunc("DELETE /api/fs/file/{id}/permanent", h.requireUser(h.deleteFilePermanent))
	mux.HandleFunc("GET /api/fs/folder/{id}/download", h.requireUser(h.downloadFolder))
	mux.HandleFunc("DELETE /api/fs/folder/{id}/permanent", h.requireUser(h.deleteFolderPermanent))
	mux.HandleFunc("DELETE /api/fs/shortcut/{id}/permanent", h.requireUser(h.deleteShortcutPermanent))
	mux.HandleFunc("POST /api/fs/permanent/delete", h.requireUser(h.deleteFilesPermanent))

	mux.HandleFunc("POST /api/fs/{id}/share/token", h.requireUser(h.issueShareToken))
	mux.HandleFunc("GET /api/fs/permission/token", h.requireUser(h.inspectShareToken))
	mux.HandleFunc("POST /api/fs/share/redeem", h.requireUser(h.redeemShareToken))
	mux.HandleFunc("POST /api/fs/share", h.requireUser(h.shareObjects))

	mux.HandleFunc("GET /api/users/{id}", h.requireUser(h.getUser))
	mux.HandleFunc("GET /api/users", h.requireUser(h.searchUsers))

	mux.HandleFunc("GET /api/admin/orphans", h.requireUser(h.listOrphans))
	mux.HandleFunc("DELETE /api/admin/orphans/{id}", h.requireUser(h.resolveOrphan))

	return mux
}
