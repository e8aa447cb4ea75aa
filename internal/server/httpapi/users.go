package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
)

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.deps.Users.GetUser(ctx, r.PathValue("id"))
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) searchUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query().Get("query")
	if len(query) < 2 {
		writeError(ctx, w, h.log, common.Validationf("query must be at least 2 characters"))
		return
	}

	users, err := h.deps.Users.SearchUsers(ctx, query)
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}
