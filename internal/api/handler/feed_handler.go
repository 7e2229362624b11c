package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/proposalhub/notify-fabric/internal/domain"
	"github.com/proposalhub/notify-fabric/internal/repository"
)

const defaultFeedLimit = 50

// FeedHandler serves the persisted in-app notification feed.
type FeedHandler struct {
	repo   repository.FeedRepository
	logger *zap.Logger
}

func NewFeedHandler(repo repository.FeedRepository, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{repo: repo, logger: logger}
}

// List handles GET /api/v1/feed/{recipient}
//
// @Summary  List a recipient's in-app notifications, newest first
// @Tags     feed
// @Produce  json
// @Param    recipient  path      string  true   "Recipient key"
// @Param    limit      query     int     false  "Max entries (default 50, max 200)"
// @Success  200        {object}  map[string]any
// @Router   /api/v1/feed/{recipient} [get]
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	recipient := chi.URLParam(r, "recipient")
	if recipient == "" {
		mapError(w, domain.ErrInvalidRecipient)
		return
	}

	limit := defaultFeedLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	entries, err := h.repo.ListByRecipient(r.Context(), recipient, limit)
	if err != nil {
		h.logger.Error("feed list failed", zap.String("recipient", recipient), zap.Error(err))
		mapError(w, err)
		return
	}

	unread, err := h.repo.UnreadCount(r.Context(), recipient)
	if err != nil {
		h.logger.Error("unread count failed", zap.String("recipient", recipient), zap.Error(err))
		mapError(w, err)
		return
	}

	if entries == nil {
		entries = []domain.FeedEntry{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":   entries,
		"unread": unread,
	})
}

// MarkRead handles POST /api/v1/feed/{recipient}/read
//
// @Summary  Mark all of a recipient's in-app notifications as read
// @Tags     feed
// @Produce  json
// @Param    recipient  path      string  true  "Recipient key"
// @Success  200        {object}  map[string]int64
// @Router   /api/v1/feed/{recipient}/read [post]
func (h *FeedHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	recipient := chi.URLParam(r, "recipient")
	if recipient == "" {
		mapError(w, domain.ErrInvalidRecipient)
		return
	}

	affected, err := h.repo.MarkAllRead(r.Context(), recipient)
	if err != nil {
		h.logger.Error("mark read failed", zap.String("recipient", recipient), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"marked_read": affected})
}
