package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
)

// defaultOrphanLimit caps an orphan listing without an explicit limit.
const defaultOrphanLimit = 100

func (h *Handler) listOrphans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultOrphanLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(ctx, w, h.log, common.Validationf("limit: %q is not a positive integer", v))
			return
		}
		limit = n
	}

	list, err := h.deps.Orphans.List(ctx, limit)
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	if list == nil {
		list = []*models.Orphan{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) resolveOrphan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	o, err := h.deps.Orphans.Resolve(ctx, r.PathValue("id"))
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	h.log.Info(ctx, "orphan resolved", "id", o.ID, "kind", o.Kind, "object", o.ObjectID, "by", userFromContext(ctx))
	writeJSON(w, http.StatusOK, o)
}
