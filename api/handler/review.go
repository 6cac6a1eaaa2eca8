package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/mapcrew/backend/api/transport"
	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/pkg/httpcontext"
	reviewUC "github.com/mapcrew/backend/usecase/review"
)

type ReviewHandler struct {
	baseHandler
	uc *reviewUC.Service
}

func NewReviewHandler(uc *reviewUC.Service, adapter *httpcontext.Adapter, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Next review task
// @Tags review
// @Router /api/v1/review/next [get]
func (h *ReviewHandler) NextTask(ctx *fasthttp.RequestCtx) {
	user, ok := h.currentUser(ctx)
	if !ok {
		return
	}

	opts := h.searchOptions(ctx)
	lastTaskID := parseInt64(string(ctx.QueryArgs().Peek("last_task_id")))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.NextTask(stdCtx, user, opts, lastTaskID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if task == nil {
		h.respondJSON(ctx, http.StatusNotFound,
			transport.NewError(string(domain.ErrCodeNotFound), "review queue is empty", nil))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Task review snapshot
// @Tags review
// @Router /api/v1/tasks/{id}/review [get]
func (h *ReviewHandler) GetTask(ctx *fasthttp.RequestCtx) {
	if _, ok := h.currentUser(ctx); !ok {
		return
	}
	taskID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.GetTask(stdCtx, taskID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Start reviewing a task
// @Tags review
// @Router /api/v1/tasks/{id}/review/start [post]
func (h *ReviewHandler) StartReview(ctx *fasthttp.RequestCtx) {
	user, ok := h.currentUser(ctx)
	if !ok {
		return
	}
	taskID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.StartReview(stdCtx, user, taskID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Cancel a review claim
// @Tags review
// @Router /api/v1/tasks/{id}/review/claim [delete]
func (h *ReviewHandler) CancelReview(ctx *fasthttp.RequestCtx) {
	user, ok := h.currentUser(ctx)
	if !ok {
		return
	}
	taskID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.CancelReview(stdCtx, user, taskID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Set review status
// @Tags review
// @Router /api/v1/tasks/{id}/review/status [put]
func (h *ReviewHandler) SetStatus(ctx *fasthttp.RequestCtx) {
	user, ok := h.currentUser(ctx)
	if !ok {
		return
	}
	taskID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	var req transport.SetReviewStatusRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest,
			transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.SetStatus(stdCtx, user, taskID, domain.ReviewStatus(req.Status), req.ActionID, req.Comment)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK,
		transport.NewSuccess(result.Task, transport.UpdateMeta{RowsChanged: result.RowsChanged}))
}

// @Summary List review-requested tasks
// @Tags review
// @Router /api/v1/review/requested [get]
func (h *ReviewHandler) ListRequested(ctx *fasthttp.RequestCtx) {
	user, ok := h.currentUser(ctx)
	if !ok {
		return
	}

	opts := h.searchOptions(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	rows, err := h.uc.ListRequested(stdCtx, user, opts)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK,
		transport.NewSuccess(rows, transport.PageMeta{Limit: opts.Limit, Offset: opts.Offset}))
}

// @Summary List reviewed tasks
// @Tags review
// @Router /api/v1/review/reviewed [get]
func (h *ReviewHandler) ListReviewed(ctx *fasthttp.RequestCtx) {
	user, ok := h.currentUser(ctx)
	if !ok {
		return
	}

	opts := h.searchOptions(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	rows, err := h.uc.ListReviewed(stdCtx, user, opts)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK,
		transport.NewSuccess(rows, transport.PageMeta{Limit: opts.Limit, Offset: opts.Offset}))
}

// @Summary Review status metrics
// @Tags review
// @Router /api/v1/review/metrics [get]
func (h *ReviewHandler) Metrics(ctx *fasthttp.RequestCtx) {
	user, ok := h.currentUser(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	counts, err := h.uc.Metrics(stdCtx, user, h.searchOptions(ctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, counts)
}

// @Summary Review history of a task
// @Tags review
// @Router /api/v1/tasks/{id}/review/history [get]
func (h *ReviewHandler) TaskHistory(ctx *fasthttp.RequestCtx) {
	if _, ok := h.currentUser(ctx); !ok {
		return
	}
	taskID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	entries, err := h.uc.TaskHistory(stdCtx, taskID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, entries)
}

// searchOptions assembles the queue view parameters from query arguments.
// Filters compile to parameterized SQL downstream; nothing here touches
// query text.
func (h *ReviewHandler) searchOptions(ctx *fasthttp.RequestCtx) reviewUC.SearchOptions {
	args := ctx.QueryArgs()

	var filters domain.FilterSet
	filters = filters.WithIDs(domain.FieldChallengeID, parseIDList(string(args.Peek("challenge_ids")))...)
	filters = filters.WithIDs(domain.FieldProjectID, parseIDList(string(args.Peek("project_ids")))...)
	filters = filters.WithIDs(domain.FieldRequestedBy, parseIDList(string(args.Peek("requested_by")))...)
	filters = filters.WithIDs(domain.FieldReviewedBy, parseIDList(string(args.Peek("reviewed_by")))...)
	filters = filters.WithTextMatch(domain.FieldTaskName, string(args.Peek("task_name")))

	if statuses := string(args.Peek("statuses")); statuses != "" {
		var values []int
		for _, id := range parseIDList(statuses) {
			values = append(values, int(id))
		}
		filters = filters.WithInts(domain.FieldTaskStatus, values...)
	}
	if priorities := string(args.Peek("priorities")); priorities != "" {
		var values []int
		for _, id := range parseIDList(priorities) {
			values = append(values, int(id))
		}
		filters = filters.WithInts(domain.FieldPriority, values...)
	}

	var from, to time.Time
	if raw := string(args.Peek("from")); raw != "" {
		from, _ = time.Parse(time.RFC3339, raw)
	}
	if raw := string(args.Peek("to")); raw != "" {
		to, _ = time.Parse(time.RFC3339, raw)
	}
	filters = filters.WithDateRange(domain.FieldMappedOn, from, to)

	return reviewUC.SearchOptions{
		IncludeDisputed:       args.GetBool("disputed"),
		ExcludeOtherReviewers: args.GetBool("exclude_other_reviewers"),
		Filters:               filters,
		SortKey:               string(args.Peek("sort")),
		SortDir:               string(args.Peek("dir")),
		Limit:                 parseInt(string(args.Peek("limit")), 50),
		Offset:                parseInt(string(args.Peek("offset")), 0),
	}
}
