package models

// SessionState is the caller's saved conversational context: where
// they last compared a trip and which recommendation they got.
type SessionState struct {
	LastOrigin           *Point    `json:"lastOrigin,omitempty"`
	LastDestination      *Point    `json:"lastDestination,omitempty"`
	LastModes            []Mode    `json:"lastModes,omitempty"`
	LastRecommendationID string    `json:"lastRecommendationId,omitempty"`
	UpdatedAt            Timestamp `json:"updatedAt"`
}
