package models

import "time"

type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Generation pairs a user prompt with its (eventually) synthesized image.
// ImageData holds the base64-encoded image; the empty string means the
// record is still pending synthesis.
type Generation struct {
	ID        string
	UserID    int64
	Prompt    string
	ImageData string
	ShareURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ready reports whether the image has been synthesized and persisted.
func (g *Generation) Ready() bool {
	return g.ImageData != ""
}
