package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/treumlabs/signalcast/api/responses"
	"github.com/treumlabs/signalcast/api/validators"
	"github.com/treumlabs/signalcast/internal/queue"
	"github.com/treumlabs/signalcast/pkg/enums"
	pkgerrors "github.com/treumlabs/signalcast/pkg/errors"
	"github.com/treumlabs/signalcast/pkg/logger"
)

// QueueService is the queue surface the HTTP layer consumes.
type QueueService interface {
	EnqueueBroadcast(ctx context.Context, params queue.EnqueueParams) ([]queue.EnqueueResult, error)
	ProcessQueue(ctx context.Context, maxItems int) (queue.ProcessSummary, error)
	ApproveItem(ctx context.Context, id string) (bool, error)
	RejectItem(ctx context.Context, id, reason string) (bool, error)
	QueueStatus(ctx context.Context) (queue.Status, error)
	PendingForApproval(ctx context.Context) ([]queue.PendingItem, error)
	CleanupOldItems(ctx context.Context, daysOld int) (int64, error)
}

type addToQueueRequest struct {
	Content      string         `json:"content" validate:"required"`
	Platform     string         `json:"platform" validate:"required"`
	Priority     string         `json:"priority"`
	Source       string         `json:"source"`
	ScheduledFor *time.Time     `json:"scheduled_for"`
	Metadata     map[string]any `json:"metadata"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// QueueAdd admits content for one platform or broadcasts to all of them.
func QueueAdd(svc QueueService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req addToQueueRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		platform, err := enums.ParsePlatform(req.Platform)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform"))
			return
		}

		priority := enums.PriorityNormal
		if req.Priority != "" {
			priority, err = enums.ParsePriority(req.Priority)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority"))
				return
			}
		}

		results, err := svc.EnqueueBroadcast(ctx, queue.EnqueueParams{
			Content:      req.Content,
			Platform:     platform,
			Priority:     priority,
			Source:       req.Source,
			ScheduledFor: req.ScheduledFor,
			Metadata:     req.Metadata,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"results": results})
	}
}

// QueueProcess runs one dispatch pass.
func QueueProcess(svc QueueService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		maxItems, err := validators.ParseQueryInt(r, "max_items", 0, 0, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		summary, err := svc.ProcessQueue(ctx, maxItems)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// QueueApprove releases a pending item for dispatch.
func QueueApprove(svc QueueService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		itemID := chi.URLParam(r, "itemID")

		ok, err := svc.ApproveItem(ctx, itemID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"item_id": itemID, "approved": ok})
	}
}

// QueueReject rejects a pending item with a reason.
func QueueReject(svc QueueService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		itemID := chi.URLParam(r, "itemID")

		var req rejectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ok, err := svc.RejectItem(ctx, itemID, req.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"item_id": itemID, "rejected": ok})
	}
}

// QueueStatus reports the operational dashboard snapshot.
func QueueStatus(svc QueueService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status, err := svc.QueueStatus(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// QueuePending lists items awaiting approval.
func QueuePending(svc QueueService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		items, err := svc.PendingForApproval(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items, "count": len(items)})
	}
}

// QueueCleanup purges terminal rows past the retention window.
func QueueCleanup(svc QueueService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		daysOld, err := validators.ParseQueryInt(r, "days_old", 0, 0, 365)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		purged, err := svc.CleanupOldItems(ctx, daysOld)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"purged": purged})
	}
}
