package httpapi

import (
	"net/http"
)

// lazyResponse delays the response headers until the first byte of the
// archive, so a failure before that can still become an error response.
type lazyResponse struct {
	w       http.ResponseWriter
	name    string
	started bool
}

func (l *lazyResponse) Write(p []byte) (int, error) {
	if !l.started {
		l.started = true
		l.w.Header().Set("Content-Type", "application/zip")
		l.w.Header().Set("Content-Disposition", attachment(l.name+".zip"))
		l.w.WriteHeader(http.StatusOK)
	}
	return l.w.Write(p)
}

// downloadFolder streams the folder as a zip. Once bytes are on the wire a
// failure can only be signalled by cutting the connection, which leaves the
// client with a truncated archive.
func (h *Handler) downloadFolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := userFromContext(ctx)
	id := r.PathValue("id")

	folder, err := h.deps.Archives.PrepareFolderArchive(ctx, owner, id)
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}

	out := &lazyResponse{w: w, name: folder.Name}
	if err := h.deps.Archives.DownloadFolderArchive(ctx, owner, id, out); err != nil {
		if !out.started {
			writeError(ctx, w, h.log, err)
			return
		}
		h.log.Error(ctx, "folder archive aborted mid-stream", "folder", id, "error", err)
		panic(http.ErrAbortHandler)
	}
}
