package models

// Enums represents the enum values used by the API.
type Enums struct {
	Modes []Mode `json:"modes"`
}
