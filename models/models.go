package models

import "time"

// Inspection represents one submitted vehicle inspection record.
// Inspector and agency fields are a snapshot taken at submission time,
// not a live reference: renaming a user later must not rewrite history.
type Inspection struct {
	ID                 string    `json:"id"`
	Seq                int       `json:"seq"`
	Plate              string    `json:"plate"`
	Notes              string    `json:"notes,omitempty"`
	ExtinguisherExpiry *string   `json:"extinguisher_expiry,omitempty"` // YYYY-MM-DD
	InspectorID        string    `json:"inspector_id"`
	InspectorName      string    `json:"inspector_name"`
	InspectorEmail     string    `json:"inspector_email"`
	Agency             string    `json:"agency"`
	CreatedAt          time.Time `json:"created_at"`
	Photos             []Photo   `json:"photos"`
}

// Photo represents one captured checklist photo belonging to an inspection
type Photo struct {
	ID           int       `json:"id"`
	InspectionID string    `json:"inspection_id"`
	PhotoType    string    `json:"photo_type"`
	StorageURL   string    `json:"storage_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// User represents an inspector account
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	Agency    string    `json:"agency,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Agency represents a rental agency / department in the reference list
type Agency struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// SubmitInspectionRequest represents the inspection submission payload.
// Photos is a checklist-slot to base64 JPEG map; unknown slots are rejected.
type SubmitInspectionRequest struct {
	Plate              string            `json:"plate"`
	Notes              string            `json:"notes"`
	ExtinguisherExpiry string            `json:"extinguisher_expiry"`
	Photos             map[string]string `json:"photos"`
}

// SubmitInspectionResponse reports the stored record plus any checklist
// slots whose photo could not be saved and should be retried
type SubmitInspectionResponse struct {
	Inspection       *Inspection `json:"inspection"`
	FailedPhotoTypes []string    `json:"failed_photo_types"`
}

// RetryPhotosRequest re-uploads photos for checklist slots that failed
// during the original submission
type RetryPhotosRequest struct {
	Photos map[string]string `json:"photos" binding:"required"`
}

// LoginRequest represents the email + PIN authentication request
type LoginRequest struct {
	Email string `json:"email" binding:"required,email"`
	Pin   string `json:"pin" binding:"required"`
}

// TokenResponse represents the authentication response
type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// RefreshTokenRequest represents a token refresh request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateUserRequest represents the admin request to register an inspector
type CreateUserRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Name    string `json:"name" binding:"required,max=256"`
	Pin     string `json:"pin" binding:"required"`
	IsAdmin bool   `json:"is_admin"`
	Agency  string `json:"agency"`
}

// UpdatePinRequest represents the admin request to reset a user's PIN
type UpdatePinRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// UpdateAdminRequest represents the admin request to toggle the admin flag
type UpdateAdminRequest struct {
	IsAdmin *bool `json:"is_admin" binding:"required"`
}

// CreateAgencyRequest represents the admin request to add an agency
type CreateAgencyRequest struct {
	Name         string `json:"name" binding:"required,max=128"`
	Abbreviation string `json:"abbreviation" binding:"required"`
}

// MessageResponse represents a simple message response
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// InspectionEvent is broadcast to websocket listeners and published to
// AMQP when a new inspection is stored
type InspectionEvent struct {
	Type       string      `json:"type"`
	Inspection *Inspection `json:"inspection"`
	Timestamp  time.Time   `json:"timestamp"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	Timestamp        string `json:"timestamp"`
	ConnectedClients int    `json:"connected_clients"`
}
