package handler

import (
	"errors"
	"net/http"

	"github.com/sfmobility/sfmobility/internal/api/models"
	"github.com/sfmobility/sfmobility/internal/api/response"
	"github.com/sfmobility/sfmobility/internal/session"
)

// SessionHandler handles the user's saved comparison context.
type SessionHandler struct {
	sessions session.Store
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions session.Store) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
	}
}

// GetSession handles GET /v1/me/session - read the user's last comparison context.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	if h.sessions == nil {
		response.NotFound(w, r, "session not found")
		return
	}

	state, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			response.NotFound(w, r, "session not found")
			return
		}
		response.InternalError(w, r, "failed to get session")
		return
	}

	response.JSON(w, r, http.StatusOK, toSessionState(state))
}

// ClearSession handles DELETE /v1/me/session - discard the user's saved context.
func (h *SessionHandler) ClearSession(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	if h.sessions != nil {
		if err := h.sessions.Delete(r.Context(), userID); err != nil {
			response.InternalError(w, r, "failed to clear session")
			return
		}
	}

	response.NoContent(w, r)
}

func toSessionState(state *session.State) models.SessionState {
	out := models.SessionState{
		LastRecommendationID: state.LastRecommendationID,
		UpdatedAt:            models.Timestamp(state.UpdatedAt),
	}
	if state.LastOrigin != nil {
		out.LastOrigin = &models.Point{Lat: state.LastOrigin.Lat, Lon: state.LastOrigin.Lon}
	}
	if state.LastDestination != nil {
		out.LastDestination = &models.Point{Lat: state.LastDestination.Lat, Lon: state.LastDestination.Lon}
	}
	for _, m := range state.LastModes {
		out.LastModes = append(out.LastModes, models.Mode(m))
	}
	return out
}
