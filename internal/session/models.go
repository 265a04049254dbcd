// Package session keeps short-lived per-user conversation state so a
// follow-up request can reuse the previous comparison's context.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/sfmobility/sfmobility/internal/directions"
	"github.com/sfmobility/sfmobility/internal/ranking"
)

// ErrSessionNotFound indicates no session exists for the user.
var ErrSessionNotFound = errors.New("session not found")

// State is the conversation state for one user.
type State struct {
	UserID               string               `json:"user_id"`
	LastOrigin           *directions.Location `json:"last_origin,omitempty"`
	LastDestination      *directions.Location `json:"last_destination,omitempty"`
	LastModes            []ranking.Mode       `json:"last_modes,omitempty"`
	LastRecommendationID string               `json:"last_recommendation_id,omitempty"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// Store defines the interface for session persistence.
type Store interface {
	// Get retrieves a user's session state.
	// Returns ErrSessionNotFound if none exists or it has expired.
	Get(ctx context.Context, userID string) (*State, error)

	// Save stores a user's session state, resetting its TTL.
	Save(ctx context.Context, state *State) error

	// Delete removes a user's session state.
	Delete(ctx context.Context, userID string) error
}
