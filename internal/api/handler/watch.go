package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sfmobility/sfmobility/internal/api/models"
	"github.com/sfmobility/sfmobility/internal/api/response"
	"github.com/sfmobility/sfmobility/internal/watch"
)

const defaultWatchPageLimit = 50

// WatchHandler handles delay watch endpoints.
type WatchHandler struct {
	watchService *watch.Service
}

// NewWatchHandler creates a new WatchHandler.
func NewWatchHandler(watchService *watch.Service) *WatchHandler {
	return &WatchHandler{
		watchService: watchService,
	}
}

// ListWatches handles GET /v1/me/watches - list the user's delay watches.
func (h *WatchHandler) ListWatches(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	limit := defaultWatchPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			response.BadRequest(w, r, "limit must be an integer between 1 and 100", nil)
			return
		}
		limit = parsed
	}

	watches, err := h.watchService.List(r.Context(), userID, limit)
	if err != nil {
		response.InternalError(w, r, "failed to list watches")
		return
	}

	response.JSON(w, r, http.StatusOK, watches)
}

// CreateWatch handles POST /v1/me/watches - create a delay watch.
func (h *WatchHandler) CreateWatch(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	var input models.WatchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	created, err := h.watchService.Create(r.Context(), userID, &input)
	if err != nil {
		var validationErr *watch.ValidationError
		if errors.As(err, &validationErr) {
			response.BadRequest(w, r, "validation error", validationErr.Errors)
			return
		}
		response.InternalError(w, r, "failed to create watch")
		return
	}

	location := fmt.Sprintf("/v1/me/watches/%s", created.ID)
	response.Created(w, r, location, created)
}

// GetWatch handles GET /v1/me/watches/{watchId} - get a delay watch.
func (h *WatchHandler) GetWatch(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	watchID := chi.URLParam(r, "watchId")
	if watchID == "" {
		response.BadRequest(w, r, "watchId is required", nil)
		return
	}

	found, err := h.watchService.Get(r.Context(), userID, watchID)
	if err != nil {
		if errors.Is(err, watch.ErrWatchNotFound) {
			response.NotFound(w, r, "watch not found")
			return
		}
		response.InternalError(w, r, "failed to get watch")
		return
	}

	response.JSON(w, r, http.StatusOK, found)
}

// UpdateWatch handles PATCH /v1/me/watches/{watchId} - update a delay watch.
func (h *WatchHandler) UpdateWatch(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	watchID := chi.URLParam(r, "watchId")
	if watchID == "" {
		response.BadRequest(w, r, "watchId is required", nil)
		return
	}

	var input models.WatchUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	updated, err := h.watchService.Update(r.Context(), userID, watchID, &input)
	if err != nil {
		var validationErr *watch.ValidationError
		if errors.As(err, &validationErr) {
			response.BadRequest(w, r, "validation error", validationErr.Errors)
			return
		}
		if errors.Is(err, watch.ErrWatchNotFound) {
			response.NotFound(w, r, "watch not found")
			return
		}
		response.InternalError(w, r, "failed to update watch")
		return
	}

	response.JSON(w, r, http.StatusOK, updated)
}

// DeleteWatch handles DELETE /v1/me/watches/{watchId} - delete a delay watch.
func (h *WatchHandler) DeleteWatch(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	watchID := chi.URLParam(r, "watchId")
	if watchID == "" {
		response.BadRequest(w, r, "watchId is required", nil)
		return
	}

	if err := h.watchService.Delete(r.Context(), userID, watchID); err != nil {
		if errors.Is(err, watch.ErrWatchNotFound) {
			response.NotFound(w, r, "watch not found")
			return
		}
		response.InternalError(w, r, "failed to delete watch")
		return
	}

	response.NoContent(w, r)
}
