package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/proposalhub/notify-fabric/internal/api/middleware"
	"github.com/proposalhub/notify-fabric/internal/domain"
	"github.com/proposalhub/notify-fabric/internal/engine"
)

// PublishRequest is the inbound envelope for the events endpoint.
type PublishRequest struct {
	Kind    domain.EventKind `json:"kind"`
	Payload domain.Payload   `json:"payload"`
}

// EventHandler accepts domain events from the surrounding application.
// Publishing is best-effort: a valid envelope is always accepted with 202,
// whatever happens to it downstream.
type EventHandler struct {
	eng    *engine.Engine
	logger *zap.Logger
}

func NewEventHandler(eng *engine.Engine, logger *zap.Logger) *EventHandler {
	return &EventHandler{eng: eng, logger: logger}
}

// Publish handles POST /api/v1/events
//
// @Summary  Publish a domain event for notification dispatch
// @Tags     events
// @Accept   json
// @Produce  json
// @Param    body  body      PublishRequest  true  "Event envelope"
// @Success  202   {object}  map[string]string
// @Failure  400   {object}  map[string]string
// @Router   /api/v1/events [post]
func (h *EventHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Kind == "" {
		mapError(w, domain.ErrInvalidEventKind)
		return
	}

	h.logger.Debug("event received",
		zap.String("event_kind", string(req.Kind)),
		zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
	)

	h.eng.Publish(r.Context(), req.Kind, req.Payload)

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
