package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KnuggetDeveloper/infograph/internal/auth"
	"github.com/KnuggetDeveloper/infograph/internal/models"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := s.users.Signup(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	token, err := s.sessions.Sign(user.ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.sessions.SetCookie(w, token)
	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := s.users.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	token, err := s.sessions.Sign(user.ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.sessions.SetCookie(w, token)
	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleSignout(w http.ResponseWriter, r *http.Request) {
	s.sessions.ClearCookie(w)
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	user, err := s.users.FindByID(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if user == nil {
		s.errorJSON(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleCreateGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		s.errorJSON(w, http.StatusUnauthorized, "Unauthorized. Please sign in to generate infographics.")
		return
	}

	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}

	gen, err := s.generations.Create(r.Context(), userID, req.Prompt)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"generationId": gen.ID,
	})
}

func (s *Server) handleFetchGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	gen, err := s.generations.Fetch(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"id":        gen.ID,
		"prompt":    gen.Prompt,
		"imageData": gen.ImageData,
		"createdAt": gen.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	result, err := s.generations.Generate(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := map[string]any{
		"success":   true,
		"imageData": result.ImageData,
	}
	if result.Cached {
		resp["cached"] = true
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	url, err := s.generations.Share(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"shareUrl": url,
	})
}

// handleDirectGenerate is the stateless one-shot flow: no session, nothing
// persisted.
func (s *Server) handleDirectGenerate(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}

	imageData, err := s.generations.GenerateDirect(r.Context(), req.Prompt)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"imageData": imageData,
	})
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		s.errorJSON(w, http.StatusUnauthorized, "Unauthorized")
		return 0, false
	}
	return userID, true
}
