package handlers

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/campusworks/campusfix/internal/config"
	"github.com/campusworks/campusfix/internal/domain/issue"
	"github.com/campusworks/campusfix/internal/domain/job"
	"github.com/campusworks/campusfix/internal/http/middlewares"
	"github.com/campusworks/campusfix/internal/jobs"
	"github.com/campusworks/campusfix/internal/observability"
	"github.com/gin-gonic/gin"
)

type IssueStore interface {
	CreateWithJob(ctx context.Context, i issue.Issue, jobReq *job.CreateRequest) (issue.Issue, error)
	GetByID(ctx context.Context, id string) (issue.Issue, error)
	ListByCreator(ctx context.Context, userID string) ([]issue.Issue, error)
	ListAll(ctx context.Context) ([]issue.Issue, error)
	UpdateStatusWithJob(ctx context.Context, id string, status issue.Status, remarks *string, jobReq *job.CreateRequest) (issue.Issue, error)
}

type ImageSaver interface {
	SaveImage(ctx *gin.Context, file *multipart.FileHeader) (string, error)
}

// Nudger wakes the notification worker after an enqueue. Delivery still
// happens without it, just on the worker's poll interval.
type Nudger interface {
	Nudge(ctx context.Context) error
}

type IssuesHandler struct {
	repo   IssueStore
	images ImageSaver
	nudge  Nudger
	log    *slog.Logger
	prom   *observability.Prom
}

func NewIssuesHandler(repo IssueStore, images ImageSaver, nudge Nudger, log *slog.Logger, prom *observability.Prom) *IssuesHandler {
	return &IssuesHandler{
		repo:   repo,
		images: images,
		nudge:  nudge,
		log:    log,
		prom:   prom,
	}
}

// CreateIssue accepts a multipart form with title, description, category and
// an optional image part. The issue row and its notification job commit in
// one transaction.
func (h *IssuesHandler) CreateIssue(ctx *gin.Context) {
	var req issue.CreateIssueRequest

	if !BindForm(ctx, &req) {
		return
	}

	reporter, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	var imagePath *string

	file, err := ctx.FormFile("image")

	switch {
	case err == nil:
		saved, err := h.images.SaveImage(ctx, file)

		if err != nil {
			RespondError(ctx, http.StatusBadRequest, "invalid_image", "Uploaded file must be an image.", nil)
			return
		}
		imagePath = &saved
	case errors.Is(err, http.ErrMissingFile):
		// image is optional
	default:
		RespondBadRequest(ctx, "Invalid form data", nil)
		return
	}

	i, err := issue.NewFromCreateRequest(req, reporter.ID, imagePath)

	if err != nil {
		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	payload, err := jobs.IssueReceivedPayload{
		IssueID:     i.ID,
		Title:       i.Title,
		Category:    string(i.Category),
		Email:       reporter.Email,
		Name:        reporter.Name,
		RequestedAt: time.Now().UTC(),
	}.JSON()

	if err != nil {
		RespondInternal(ctx, "Could not report issue")
		return
	}

	idemKey := jobs.TypeIssueReceived + ":" + i.ID

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	created, err := h.repo.CreateWithJob(cctx, i, &job.CreateRequest{
		Type:           jobs.TypeIssueReceived,
		Payload:        payload,
		IdempotencyKey: &idemKey,
		UserID:         &reporter.ID,
	})

	if err != nil {
		h.log.Error("issue create failed", "error", err, "user_id", reporter.ID)
		RespondInternal(ctx, "Could not report issue")
		return
	}

	if h.prom != nil {
		h.prom.IssuesCreated.WithLabelValues(string(created.Category)).Inc()
	}

	h.nudgeWorker(ctx)

	ctx.JSON(http.StatusCreated, created)
}

// ListMine returns the caller's own reports, newest first.
func (h *IssuesHandler) ListMine(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	items, err := h.repo.ListByCreator(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not list issues")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// ListAll is the admin triage view, every issue with its reporter attached.
func (h *IssuesHandler) ListAll(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	items, err := h.repo.ListAll(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list issues")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// UpdateStatus moves an issue through its lifecycle and queues the
// status-change notification for the reporter.
func (h *IssuesHandler) UpdateStatus(ctx *gin.Context) {
	id := ctx.Param("id")

	var req issue.UpdateStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	current, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, issue.ErrNotFound) {
			RespondNotFound(ctx, "Issue not found")
			return
		}

		RespondInternal(ctx, "Could not update issue")
		return
	}

	from := current.Status
	next := issue.Status(req.Status)

	if err := current.Transition(next, req.Remarks); err != nil {
		if errors.Is(err, issue.ErrInvalidTransition) {
			RespondConflict(ctx, "invalid_transition", "Cannot move issue from "+string(from)+" to "+string(next)+".")
			return
		}

		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	payload, err := jobs.IssueStatusChangedPayload{
		IssueID:     current.ID,
		Title:       current.Title,
		Status:      string(next),
		Remarks:     remarksOrEmpty(req.Remarks),
		Email:       creatorEmail(current),
		Name:        creatorName(current),
		RequestedAt: time.Now().UTC(),
	}.JSON()

	if err != nil {
		RespondInternal(ctx, "Could not update issue")
		return
	}

	idemKey := jobs.TypeIssueStatusChanged + ":" + current.ID + ":" + string(next)

	updated, err := h.repo.UpdateStatusWithJob(cctx, id, next, req.Remarks, &job.CreateRequest{
		Type:           jobs.TypeIssueStatusChanged,
		Payload:        payload,
		IdempotencyKey: &idemKey,
		UserID:         &current.CreatedBy,
	})

	if err != nil {
		if errors.Is(err, issue.ErrNotFound) {
			RespondNotFound(ctx, "Issue not found")
			return
		}

		h.log.Error("issue status update failed", "error", err, "issue_id", id)
		RespondInternal(ctx, "Could not update issue")
		return
	}

	if h.prom != nil {
		h.prom.IssueTransitions.WithLabelValues(string(from), string(next)).Inc()
	}

	h.nudgeWorker(ctx)

	ctx.JSON(http.StatusOK, updated)
}

func (h *IssuesHandler) nudgeWorker(ctx *gin.Context) {
	if h.nudge == nil {
		return
	}

	nctx, cancel := context.WithTimeout(ctx.Request.Context(), 500*time.Millisecond)
	defer cancel()

	if err := h.nudge.Nudge(nctx); err != nil {
		h.log.Warn("worker nudge failed", "error", err)
	}
}

func remarksOrEmpty(r *string) string {
	if r == nil {
		return ""
	}
	return *r
}

func creatorEmail(i issue.Issue) string {
	if i.Creator != nil {
		return i.Creator.Email
	}
	return ""
}

func creatorName(i issue.Issue) string {
	if i.Creator != nil {
		return i.Creator.Name
	}
	return ""
}
