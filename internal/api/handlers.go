package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"parlor/internal/auth"
	"parlor/internal/content"
	"parlor/internal/hub"
	"parlor/internal/models"
)

// Store is the subset of the storage contract the HTTP handlers need.
type Store interface {
	ListMessages(roomID models.RoomID) ([]models.Message, error)
	UpdateUsername(userID int64, username string) error
}

type API struct {
	auth  *auth.Service
	hub   *hub.Hub
	store Store
}

func New(authService *auth.Service, h *hub.Hub, store Store) *API {
	return &API{auth: authService, hub: h, store: store}
}

func (a *API) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	if _, err := a.auth.Signup(req.Username, req.Email, req.Password); err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "An account with this email already exists.")
			return
		}
		slog.Error("signup failed", "email", req.Email, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "User created successfully!"})
}

func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, user, err := a.auth.Login(req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "Invalid email or password.")
		return
	case errors.Is(err, auth.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, "Too many failed login attempts. Try again later.")
		return
	case err != nil:
		slog.Error("login failed", "email", req.Email, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error during login.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Logged in successfully!",
		"token":   token,
		"user":    user,
	})
}

func (a *API) RoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := a.hub.Rooms()
	if err != nil {
		slog.Error("failed to list rooms", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error fetching rooms.")
		return
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (a *API) UsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := a.hub.Users()
	if err != nil {
		slog.Error("failed to list users", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error fetching users.")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	roomID, err := models.ParseRoomID(r.PathValue("roomId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid room id.")
		return
	}

	messages, err := a.store.ListMessages(roomID)
	if err != nil {
		slog.Error("failed to list messages", "room_id", roomID, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error fetching messages.")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (a *API) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      int64  `json:"userId"`
		NewUsername string `json:"newUsername"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := content.ValidateUsername(req.NewUsername); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.store.UpdateUsername(req.UserID, req.NewUsername); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		slog.Error("failed to update username", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "newUsername": req.NewUsername})
}

// RequireAuth rejects requests without a valid bearer token.
func (a *API) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := a.auth.ParseToken(raw); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
