package service

import "errors"

var (
	ErrNotFound           = errors.New("generation not found")
	ErrForbidden          = errors.New("not allowed to access this generation")
	ErrInvalidPrompt      = errors.New("prompt is required")
	ErrUnconfigured       = errors.New("GEMINI_API_KEY is not configured")
	ErrNoImage            = errors.New("no image generated in response")
	ErrNotReady           = errors.New("generation has no image yet")
	ErrShareUnavailable   = errors.New("share storage is not configured")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidLogin       = errors.New("invalid email or password")
)

// SynthesisError carries the backend's message for a failed synthesis call
// (network, quota, auth, timeout). The record stays pending so the caller
// can retry.
type SynthesisError struct {
	Message string
}

func (e *SynthesisError) Error() string {
	return "synthesis failed: " + e.Message
}
