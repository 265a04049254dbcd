package handler

import (
	"net/http"

	"github.com/sfmobility/sfmobility/internal/api/models"
	"github.com/sfmobility/sfmobility/internal/api/response"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct{}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// GetEnums handles GET /v1/metadata/enums - get enum values used by the API.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	enums := models.Enums{
		Modes: []models.Mode{
			models.ModeTransit,
			models.ModeDriving,
			models.ModeWalking,
			models.ModeBiking,
		},
	}
	response.JSON(w, r, http.StatusOK, enums)
}
