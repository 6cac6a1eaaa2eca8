package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/mapcrew/backend/api/transport"
	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/pkg/httpcontext"
	bundleUC "github.com/mapcrew/backend/usecase/bundle"
)

type BundleHandler struct {
	baseHandler
	uc *bundleUC.Service
}

func NewBundleHandler(uc *bundleUC.Service, adapter *httpcontext.Adapter, logger *zap.Logger) *BundleHandler {
	return &BundleHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Create bundle
// @Tags bundles
// @Router /api/v1/bundles [post]
func (h *BundleHandler) Create(ctx *fasthttp.RequestCtx) {
	user, ok := h.currentUser(ctx)
	if !ok {
		return
	}

	var req transport.CreateBundleRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest,
			transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	bundle, err := h.uc.Create(stdCtx, user, req.Name, req.TaskIDs, req.PrimaryTaskID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, bundle)
}

// @Summary Get bundle
// @Tags bundles
// @Router /api/v1/bundles/{id} [get]
func (h *BundleHandler) Get(ctx *fasthttp.RequestCtx) {
	user, ok := h.currentUser(ctx)
	if !ok {
		return
	}
	bundleID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	bundle, err := h.uc.Get(stdCtx, user, bundleID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, bundle)
}

// @Summary Remove tasks from a bundle
// @Tags bundles
// @Router /api/v1/bundles/{id}/unbundle [post]
func (h *BundleHandler) Unbundle(ctx *fasthttp.RequestCtx) {
	user, ok := h.currentUser(ctx)
	if !ok {
		return
	}
	bundleID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	var req transport.UnbundleRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest,
			transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	bundle, err := h.uc.Unbundle(stdCtx, user, bundleID, req.TaskIDs)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, bundle)
}

// @Summary Delete bundle
// @Tags bundles
// @Router /api/v1/bundles/{id} [delete]
func (h *BundleHandler) Delete(ctx *fasthttp.RequestCtx) {
	user, ok := h.currentUser(ctx)
	if !ok {
		return
	}
	bundleID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}
	primaryTaskID := parseInt64(string(ctx.QueryArgs().Peek("primary_task_id")))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Delete(stdCtx, user, bundleID, primaryTaskID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}
