package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/drivegate/internal/common"
)

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *Handler) issueShareToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body shareTokenBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(ctx, w, h.log, err)
		return
	}

	token, err := h.deps.Shares.IssueShareCapability(userFromContext(ctx), r.PathValue("id"), body.Permission, body.ExpirationInSec)
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) inspectShareToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(ctx, w, h.log, common.Validationf("token is required"))
		return
	}

	c, err := h.deps.Shares.InspectShareCapability(token, h.now())
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) redeemShareToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body redeemBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(ctx, w, h.log, err)
		return
	}

	res, err := h.deps.Shares.RedeemShareCapability(ctx, body.Token, userFromContext(ctx), h.now())
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) shareObjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body bulkShareBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	if n := len(body.IDs) * len(body.Recipients); n > maxSharePairs {
		writeError(ctx, w, h.log, common.Validationf("%d shares requested, at most %d per call", n, maxSharePairs))
		return
	}

	res, err := h.deps.Shares.ShareObjects(ctx, userFromContext(ctx), body.IDs, body.Recipients, body.Permission)
	if err != nil {
		writeError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
