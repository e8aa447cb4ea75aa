package httpapi

import (
	"io"
	"mime"
	"net/http"

	"github.com/dmitrijs2005/drivegate/internal/server/models"
	"github.com/dmitrijs2005/drivegate/internal/server/services"
)

func (h *Handler) uploadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := parseUploadQuery(r.URL.Query(), h.maxFileSize)
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}

	req := services.UploadRequest{
		Owner:  userFromContext(ctx),
		Name:   q.Name,
		Size:   q.Size,
		Public: q.Public,
	}
	if q.Parent != "" {
		req.ParentID = &q.Parent
	}

	var rec *models.FsObject
	err = streamUpload(r, func(content io.Reader) error {
		var err error
		rec, err = h.deps.Uploads.UploadFile(ctx, req, content)
		return err
	})
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) reuploadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := parseReuploadQuery(r.URL.Query(), h.maxFileSize)
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}

	req := services.ReuploadRequest{
		Owner:  userFromContext(ctx),
		FileID: r.PathValue("id"),
		Size:   q.Size,
	}

	var rec *models.FsObject
	err = streamUpload(r, func(content io.Reader) error {
		var err error
		rec, err = h.deps.Uploads.ReuploadFile(ctx, req, content)
		return err
	})
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) duplicateFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body duplicateBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(ctx, w, h.log, err)
		return
	}

	rec, err := h.deps.Duplicates.DuplicateFile(ctx, services.DuplicateRequest{
		Owner:    userFromContext(ctx),
		SourceID: r.PathValue("id"),
		Name:     body.Name,
		ParentID: body.Parent,
	})
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) downloadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, body, err := h.deps.Files.DownloadFile(ctx, userFromContext(ctx), r.PathValue("id"))
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", attachment(rec.Name))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.log.Error(ctx, "file download interrupted", "id", rec.ID, "error", err)
		panic(http.ErrAbortHandler)
	}
}

func (h *Handler) deleteFilePermanent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.deps.Files.DeleteFilePermanent(ctx, userFromContext(ctx), r.PathValue("id"))
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) deleteFolderPermanent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.deps.Files.DeleteFolderPermanent(ctx, userFromContext(ctx), r.PathValue("id"))
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) deleteShortcutPermanent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.deps.Files.DeleteShortcutPermanent(ctx, userFromContext(ctx), r.PathValue("id"))
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) deleteFilesPermanent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body bulkDeleteBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(ctx, w, h.log, err)
		return
	}

	recs, err := h.deps.Files.DeleteFilesPermanent(ctx, userFromContext(ctx), body.IDs)
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func attachment(name string) string {
	v := mime.FormatMediaType("attachment", map[string]string{"filename": name})
	if v == "" {
		return "attachment"
	}
	return v
}
